// Package transport implements the connection-oriented, room-based
// publish/subscribe transport (§6): rooms {sessionId}, admin_feed,
// agents:{agentId}, agents:session:{sessionId} (agent-only counterpart of
// {sessionId}, used for internal_note so it never reaches a visitor),
// admin, agent. Grounded on the teacher's
// internal/websocket/hub.go (a single event-loop owning shared state,
// reached only through channels) and internal/handlers/stream_manager.go
// (Job.Subscribe/Broadcast/History, buffered-channel-with-drop fan-out),
// generalized here from per-user maps to named rooms of *Client.
package transport

import (
	"log"
	"sync"
)

// Hub owns every live connection and its room memberships. Unlike the
// teacher's Hub (a single serialized event loop reached through channels),
// this Hub uses a single RWMutex-guarded critical section per operation —
// the same idiom internal/presence.Registry uses — because room membership
// changes are small, independent operations with no cross-room ordering
// requirement (§5 "no ordering guarantee" across sessions).
type Hub struct {
	mu          sync.RWMutex
	connsByID   map[string]*Client
	roomMembers map[string]map[string]*Client // room -> connID -> client
}

// NewHub builds an empty Hub.
func NewHub() *Hub {
	return &Hub{
		connsByID:   make(map[string]*Client),
		roomMembers: make(map[string]map[string]*Client),
	}
}

// Register adds a newly-upgraded connection to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connsByID[c.id] = c
}

// Unregister removes a connection and drops it from every room it had
// joined.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.connsByID, c.id)
	for room, members := range h.roomMembers {
		delete(members, c.id)
		if len(members) == 0 {
			delete(h.roomMembers, room)
		}
	}
	c.closeSend()
}

// Join subscribes a connection to a room.
func (h *Hub) Join(room string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.roomMembers[room]
	if !ok {
		members = make(map[string]*Client)
		h.roomMembers[room] = members
	}
	members[c.id] = c
}

// Leave unsubscribes a connection from a room.
func (h *Hub) Leave(room string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.roomMembers[room]; ok {
		delete(members, c.id)
		if len(members) == 0 {
			delete(h.roomMembers, room)
		}
	}
}

// clientByID resolves a live *Client by connection id, used by the Router
// to join/leave rooms without the Hub exposing its internal maps publicly.
func (h *Hub) clientByID(connID string) *Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.connsByID[connID]
}

// EmitToRoom broadcasts an event to every connection currently joined to
// room. Implements dispatcher.Broadcaster, presence.Broadcaster, and
// notify.Broadcaster.
func (h *Hub) EmitToRoom(room string, eventType string, payload any) {
	h.mu.RLock()
	members := h.roomMembers[room]
	targets := make([]*Client, 0, len(members))
	for _, c := range members {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.sendEvent(eventType, payload)
	}
}

// EmitToConnection sends an event to exactly one connection, if still
// live.
func (h *Hub) EmitToConnection(connID string, eventType string, payload any) {
	h.mu.RLock()
	c, ok := h.connsByID[connID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	c.sendEvent(eventType, payload)
}

// Disconnect forcibly tears down a connection, used by the Agent Presence
// Manager's auth-failure path (§4.8: "schedule a delayed disconnect").
func (h *Hub) Disconnect(connID string) {
	h.mu.RLock()
	c, ok := h.connsByID[connID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	log.Printf("transport: forcing disconnect of connection %s", connID)
	c.close()
}

var _ interface {
	EmitToRoom(room string, eventType string, payload any)
	EmitToConnection(connID string, eventType string, payload any)
	Disconnect(connID string)
} = (*Hub)(nil)
