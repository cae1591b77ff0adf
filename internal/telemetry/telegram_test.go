package telemetry

import (
	"testing"

	"github.com/stretchr/testify/require"

	"support-chat-broker/internal/models"
)

func TestNewOpsMirrorDisabledWithoutConfig(t *testing.T) {
	m := NewOpsMirror("", 0)
	require.False(t, m.enabled())

	// Send on a disabled mirror must not panic even though bot is nil.
	m.Send("title", "body", models.SeverityInfo)
}

func TestNewOpsMirrorDisabledWithPartialConfig(t *testing.T) {
	m := NewOpsMirror("some-token-but-no-chat", 0)
	require.False(t, m.enabled())
}
