package redact

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTextRedactsEmailAndPhone(t *testing.T) {
	in := "reach me at jane.doe@example.com or 555-123-4567 please"
	out := Text(in)
	require.NotContains(t, out, "jane.doe@example.com")
	require.NotContains(t, out, "555-123-4567")
	require.Contains(t, out, "[redacted-email]")
	require.Contains(t, out, "[redacted-phone]")
}

func TestTextLeavesPlainTextUntouched(t *testing.T) {
	in := "the order arrives in three to five business days"
	require.Equal(t, in, Text(in))
}
