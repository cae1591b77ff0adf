package transport

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"support-chat-broker/internal/presence"
)

func TestHubRoomBroadcastRoundTrip(t *testing.T) {
	hub := NewHub()
	router := &Router{hub: hub, presenceMgr: presence.NewManager(presence.NewRegistry(), nil, hub, nil, nil, 0, 0)}
	handler := NewHandler(hub, router, nil)

	srv := httptest.NewServer(handler)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Give the server goroutine time to register the connection before we
	// try to look it up by id; there is exactly one connection live so we
	// can poll the hub directly instead of needing the id out-of-band.
	var connID string
	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		for id := range hub.connsByID {
			connID = id
			return true
		}
		return false
	}, time.Second, 5*time.Millisecond)

	hub.Join("room-1", hub.clientByID(connID))
	hub.EmitToRoom("room-1", "greeting", map[string]string{"text": "hello"})

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var frame struct {
		Type string `json:"type"`
		Data map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &frame))
	require.Equal(t, "greeting", frame.Type)
	require.Equal(t, "hello", frame.Data["text"])
}

func TestEmitToConnectionOnlyReachesTarget(t *testing.T) {
	hub := NewHub()
	router := &Router{hub: hub, presenceMgr: presence.NewManager(presence.NewRegistry(), nil, hub, nil, nil, 0, 0)}
	handler := NewHandler(hub, router, nil)

	srv := httptest.NewServer(handler)
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	connA, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer connA.Close()
	connB, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer connB.Close()

	var ids []string
	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		ids = ids[:0]
		for id := range hub.connsByID {
			ids = append(ids, id)
		}
		return len(ids) == 2
	}, time.Second, 5*time.Millisecond)

	hub.EmitToConnection(ids[0], "private", "only-for-one")

	_ = connA.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_ = connB.SetReadDeadline(time.Now().Add(200 * time.Millisecond))

	gotA := false
	if _, _, err := connA.ReadMessage(); err == nil {
		gotA = true
	}
	gotB := false
	if _, _, err := connB.ReadMessage(); err == nil {
		gotB = true
	}
	require.True(t, gotA || gotB, "exactly one connection should have received the private event")
	require.False(t, gotA && gotB)
}
