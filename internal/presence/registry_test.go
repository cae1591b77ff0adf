package presence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"support-chat-broker/internal/models"
)

func visitorFixture() models.Visitor {
	return models.Visitor{URL: "https://example.com/", OnlineAt: time.Now(), Status: models.VisitorBrowsing}
}

func TestRegisterAgentIsIdempotent(t *testing.T) {
	r := NewRegistry()

	res1 := r.RegisterAgent("a1", "c1")
	require.False(t, res1.IsReplacement)

	res2 := r.RegisterAgent("a1", "c1")
	require.True(t, res2.IsReplacement)

	conn, ok := r.ConnectionForAgent("a1")
	require.True(t, ok)
	require.Equal(t, "c1", conn)
}

func TestReconnectWithinGraceCancelsTimer(t *testing.T) {
	r := NewRegistry()
	r.RegisterAgent("a1", "c1")

	expired := make(chan struct{}, 1)
	r.BeginDisconnect("c1", "u1", 50*time.Millisecond, func(agentID string) {
		expired <- struct{}{}
	})

	// Reconnect before the grace window elapses.
	result := r.RegisterAgent("a1", "c2")
	require.True(t, result.CancelledPending)

	select {
	case <-expired:
		t.Fatal("disconnect timer fired despite reconnect within grace period")
	case <-time.After(150 * time.Millisecond):
	}

	conn, ok := r.ConnectionForAgent("a1")
	require.True(t, ok)
	require.Equal(t, "c2", conn)
}

func TestDisconnectFiresAfterGraceWithNoReconnect(t *testing.T) {
	r := NewRegistry()
	r.RegisterAgent("a1", "c1")

	expired := make(chan string, 1)
	r.BeginDisconnect("c1", "u1", 30*time.Millisecond, func(agentID string) {
		if r.FinalizeDisconnect(agentID) {
			expired <- agentID
		}
	})

	select {
	case agentID := <-expired:
		require.Equal(t, "a1", agentID)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected disconnect timer to fire")
	}

	_, ok := r.ConnectionForAgent("a1")
	require.False(t, ok)
}

func TestVisitorLifecycle(t *testing.T) {
	r := NewRegistry()
	r.AddVisitor("v1", visitorFixture())
	require.Len(t, r.SnapshotVisitors(), 1)

	r.RemoveVisitor("v1")
	require.Empty(t, r.SnapshotVisitors())
}
