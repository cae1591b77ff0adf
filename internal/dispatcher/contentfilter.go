package dispatcher

import "strings"

// adultContentKeywords is the fixed keyword-based reject list (§4.6 step
// 11). Deliberately narrow: the filter exists to bounce obviously
// off-topic abusive input before it reaches the AI path, not to be a
// general-purpose content moderation system.
var adultContentKeywords = []string{
	"porn", "pornography", "nude", "nudes", "xxx", "sex chat", "sexting",
}

// isFilteredContent reports whether text matches the fixed reject list.
func isFilteredContent(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range adultContentKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
