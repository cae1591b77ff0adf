package matcher

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeIsIdempotent(t *testing.T) {
	inputs := []string{
		"  Hello, World!!  ",
		"I WANT to talk to; an Agent.",
		"already normal",
		"",
	}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		require.Equal(t, once, twice, "normalize not idempotent for %q", in)
	}
}

func TestMatchPreloadedExactAndPrefix(t *testing.T) {
	cfg := DefaultConfig()

	reply, ok := MatchPreloaded(cfg, "Hello!")
	require.True(t, ok)
	require.Contains(t, reply, "AI Assistant")

	_, ok = MatchPreloaded(cfg, "something unrelated entirely")
	require.False(t, ok)

	reply, ok = MatchPreloaded(cfg, "hi i need help with my order please")
	require.True(t, ok)
	require.NotEmpty(t, reply)
}

func TestMatchPreloadedPrefixRespectsBound(t *testing.T) {
	cfg := Config{
		Prefixes:          []string{"short"},
		PreloadedByPrefix: map[string]string{"short": "canned"},
	}
	// "short" has len 5 (<=15), bound=10, so up to 15 total chars matches.
	_, ok := MatchPreloaded(cfg, "short extra")
	require.True(t, ok)

	_, ok = MatchPreloaded(cfg, "short this is way too much extra text appended")
	require.False(t, ok)
}

func TestMatchEndingPhraseShortInputContainment(t *testing.T) {
	cfg := DefaultConfig()
	require.True(t, MatchEndingPhrase(cfg, "ok bye"))
	require.True(t, MatchEndingPhrase(cfg, "Thanks!"))
	require.True(t, MatchEndingPhrase(cfg, "we are done here"))
	require.False(t, MatchEndingPhrase(cfg, "tell me more about your pricing plans please"))
}

func TestMatchHumanIntent(t *testing.T) {
	cfg := DefaultConfig()

	require.True(t, MatchHumanIntent(cfg, "I want to talk to a human"))
	require.True(t, MatchHumanIntent(cfg, "agent"))
	require.True(t, MatchHumanIntent(cfg, "human"))
	require.False(t, MatchHumanIntent(cfg, "what is an agent"))
	require.False(t, MatchHumanIntent(cfg, "how does support work here"))
}
