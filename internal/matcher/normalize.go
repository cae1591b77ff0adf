// Package matcher implements the Canned-Response Matcher (§4.4): exact and
// prefix matching of normalized text to preloaded replies, plus the
// ending-phrase and human-intent classifiers. All three are pure functions
// over a Config passed in by the caller, which supplies the preloaded,
// ending-phrase and intent-phrase tables. DefaultConfig holds a baseline
// set of those tables in this package, and the keyword lists of the
// ending-phrase and intent classifiers are fixed in ending.go and intent.go.
package matcher

import "strings"

// stripPunctuation is the fixed punctuation set normalize() removes.
const stripPunctuation = ".,!?;:"

// Normalize lowercases, trims, strips the fixed punctuation set, and
// collapses runs of whitespace to a single space. Idempotent: Normalize
// applied twice yields the same result as once (§8 testable property).
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = strings.TrimSpace(s)
	s = strings.Map(func(r rune) rune {
		if strings.ContainsRune(stripPunctuation, r) {
			return -1
		}
		return r
	}, s)
	return collapseWhitespace(strings.TrimSpace(s))
}

func collapseWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastWasSpace := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			if !lastWasSpace {
				b.WriteByte(' ')
			}
			lastWasSpace = true
			continue
		}
		b.WriteRune(r)
		lastWasSpace = false
	}
	return b.String()
}

// WordCount counts whitespace-separated tokens in an already-normalized string.
func WordCount(normalized string) int {
	if normalized == "" {
		return 0
	}
	return len(strings.Fields(normalized))
}

func stripWhitespace(s string) string {
	return strings.ReplaceAll(s, " ", "")
}
