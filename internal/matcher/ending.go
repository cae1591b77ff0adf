package matcher

import "strings"

var conclusionGratitudeWords = []string{"thank", "thanks", "thankyou", "thx"}
var conclusionDoneWords = []string{"done", "finished", "complete"}

// MatchEndingPhrase implements the ending-phrase classifier (§4.4.2).
func MatchEndingPhrase(cfg Config, text string) bool {
	normalized := Normalize(text)
	compact := stripWhitespace(normalized)
	words := WordCount(normalized)

	for _, phrase := range cfg.EndingPhrases {
		p := Normalize(phrase)
		pCompact := stripWhitespace(p)

		if normalized == p || compact == pCompact {
			return true
		}
		if strings.HasPrefix(normalized, p) || strings.HasSuffix(normalized, p) {
			return true
		}
		if strings.HasPrefix(compact, pCompact) || strings.HasSuffix(compact, pCompact) {
			return true
		}
		if words <= 4 && strings.Contains(normalized, p) {
			return true
		}
	}

	if words <= 5 {
		if containsAny(normalized, conclusionGratitudeWords) || containsAny(normalized, conclusionDoneWords) {
			return true
		}
	}

	return false
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
