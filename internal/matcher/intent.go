package matcher

import "strings"

var agentKeywords = []string{"agent", "human", "person", "representative", "support", "someone"}
var actionKeywords = []string{"talk", "speak", "connect", "transfer", "want", "need", "get", "show", "give", "bring", "call"}
var interrogativeContext = []string{"what", "who", "is", "are", "explain", "tell me about", "define", "how does"}
var bareAgentWords = []string{"agent", "human", "person"}

// MatchHumanIntent implements the human-agent intent classifier (§4.4.3).
func MatchHumanIntent(cfg Config, text string) bool {
	normalized := Normalize(text)
	compact := stripWhitespace(normalized)

	for _, bare := range bareAgentWords {
		if normalized == bare {
			return true
		}
	}

	for _, phrase := range cfg.IntentPhrases {
		p := Normalize(phrase)
		if normalized == p || strings.Contains(normalized, p) || strings.Contains(compact, stripWhitespace(p)) {
			return true
		}
	}

	if containsAny(normalized, agentKeywords) && containsAny(normalized, actionKeywords) {
		if !containsAny(normalized, interrogativeContext) {
			return true
		}
	}

	return false
}
