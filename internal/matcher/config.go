package matcher

// Config is the configuration consumed by all three classifiers; the
// matcher takes it as a parameter on every call. cmd/server builds it once
// at startup from DefaultConfig, whose tables are defined in this file;
// there is no JSON or environment loader for it.
type Config struct {
	// Preloaded is the exact normalized-phrase -> canned-text table.
	Preloaded map[string]string
	// Prefixes is scanned longest-first when there is no exact hit.
	Prefixes []string
	// PreloadedByPrefix maps a prefix (a Prefixes entry) to its canned text.
	PreloadedByPrefix map[string]string

	// EndingPhrases are matched by the ending-phrase classifier.
	EndingPhrases []string

	// IntentPhrases are enumerated human-agent request phrases matched
	// verbatim by the intent classifier, in addition to its keyword rule.
	IntentPhrases []string
}

// DefaultConfig returns the baseline phrase tables a deployment would tune
// via its configuration store; it mirrors the canned behavior spec.md's
// seed tests assume (e.g. scenario 1's "Hi! I'm your AI Assistant...").
func DefaultConfig() Config {
	return Config{
		Preloaded: map[string]string{
			"hi":    "Hi! I'm your AI Assistant. How can I help you today?",
			"hello": "Hi! I'm your AI Assistant. How can I help you today?",
			"hey":   "Hi! I'm your AI Assistant. How can I help you today?",
		},
		Prefixes: []string{
			"hi i need help with",
			"hello i need help with",
		},
		PreloadedByPrefix: map[string]string{
			"hi i need help with":    "Hi! I'm your AI Assistant. How can I help you today?",
			"hello i need help with": "Hi! I'm your AI Assistant. How can I help you today?",
		},
		EndingPhrases: []string{
			"bye",
			"goodbye",
			"that's all",
			"nothing else",
			"no more questions",
		},
		IntentPhrases: []string{
			"i want to talk to a human",
			"i need to speak to an agent",
			"can i talk to someone",
			"connect me to a representative",
		},
	}
}
