// Package redact implements best-effort PII scrubbing of stored AI text
// when REDACT_PII is enabled (§6 "redact email and phone patterns from
// stored AI text"). A narrow, single-purpose concern with no equivalent
// anywhere in the pack, so it is built directly on stdlib regexp rather
// than reaching for a dedicated NLP/PII library — see DESIGN.md.
package redact

import "regexp"

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phonePattern = regexp.MustCompile(`(\+?\d{1,2}[\s.\-]?)?\(?\d{3}\)?[\s.\-]?\d{3}[\s.\-]?\d{4}`)
)

const (
	emailMask = "[redacted-email]"
	phoneMask = "[redacted-phone]"
)

// Text scrubs emails and phone numbers from s, returning the redacted
// copy. Callers only invoke this when REDACT_PII is enabled; the function
// itself is unconditional so it stays trivially testable.
func Text(s string) string {
	s = emailPattern.ReplaceAllString(s, emailMask)
	s = phonePattern.ReplaceAllString(s, phoneMask)
	return s
}
