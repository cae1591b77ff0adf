// Package presence implements the Presence Registry and the Agent Presence
// Manager built on top of it: in-memory live-visitor and agent-connection
// tracking with grace-period reconnection, grounded on the teacher's
// internal/websocket.Hub single-critical-section idiom (one mutex guarding
// sibling maps, one owner for all writes), generalized here from
// "map keyed by user id" to the four maps spec §4.2 names.
package presence

import (
	"sync"
	"time"

	"support-chat-broker/internal/models"
)

// RegisterResult reports how registerAgent classified the call.
type RegisterResult struct {
	IsReplacement    bool
	CancelledPending bool
}

// Registry holds the three in-memory maps, and the pending-disconnect
// timers, behind a single mutex. Every operation is one critical section.
type Registry struct {
	mu sync.Mutex

	agentByConnection  map[string]string // connectionId -> agentId
	connectionByAgent  map[string]string // agentId -> connectionId
	liveVisitors       map[string]models.Visitor
	pendingDisconnects map[string]*pendingDisconnect // agentId -> timer record
}

type pendingDisconnect struct {
	agentID  string
	userID   string
	deadline time.Time
	timer    *time.Timer
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		agentByConnection:  make(map[string]string),
		connectionByAgent:  make(map[string]string),
		liveVisitors:       make(map[string]models.Visitor),
		pendingDisconnects: make(map[string]*pendingDisconnect),
	}
}

// RegisterAgent binds agentId to connId, replacing any prior connection id
// for that agent. If a grace-period timer was running for agentId, it is
// cancelled here and classified as part of the reconnect (no status
// broadcast should follow — reported as RegisterResult.CancelledPending).
func (r *Registry) RegisterAgent(agentID, connID string) RegisterResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, isReplacement := r.connectionByAgent[agentID]

	cancelled := false
	if pd, ok := r.pendingDisconnects[agentID]; ok {
		pd.timer.Stop()
		delete(r.pendingDisconnects, agentID)
		cancelled = true
	}

	if prevConn, ok := r.connectionByAgent[agentID]; ok && prevConn != connID {
		delete(r.agentByConnection, prevConn)
	}
	r.connectionByAgent[agentID] = connID
	r.agentByConnection[connID] = agentID

	return RegisterResult{IsReplacement: isReplacement, CancelledPending: cancelled}
}

// BeginDisconnect starts a grace-period timer for the agent owning connID,
// returning that agent's id, or "" if connID was not a registered agent
// connection. onExpire is invoked (in its own goroutine, by time.AfterFunc)
// if the timer is not cancelled by a reconnect before grace elapses.
func (r *Registry) BeginDisconnect(connID string, userID string, grace time.Duration, onExpire func(agentID string)) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	agentID, ok := r.agentByConnection[connID]
	if !ok {
		return ""
	}

	// A reconnect under a different connection id may already have
	// superseded this one; only arm the timer if connID is still current.
	if r.connectionByAgent[agentID] != connID {
		return agentID
	}

	pd := &pendingDisconnect{agentID: agentID, userID: userID, deadline: time.Now().Add(grace)}
	pd.timer = time.AfterFunc(grace, func() { onExpire(agentID) })
	r.pendingDisconnects[agentID] = pd

	return agentID
}

// CancelPendingDisconnect cancels a running grace timer for agentID,
// returning true if one was running. Race-safe with BeginDisconnect and
// RegisterAgent: re-auth during the tear-down window always either cancels
// the pending timer here or finds none, per §5's race-safety requirement.
func (r *Registry) CancelPendingDisconnect(agentID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	pd, ok := r.pendingDisconnects[agentID]
	if !ok {
		return false
	}
	pd.timer.Stop()
	delete(r.pendingDisconnects, agentID)
	return true
}

// FinalizeDisconnect removes an agent's presence entirely once its grace
// timer has actually fired. Returns false if the agent already reconnected
// (the pending record was consumed by RegisterAgent or
// CancelPendingDisconnect) and no offline transition should be emitted.
func (r *Registry) FinalizeDisconnect(agentID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, stillPending := r.pendingDisconnects[agentID]; !stillPending {
		return false
	}
	delete(r.pendingDisconnects, agentID)

	if connID, ok := r.connectionByAgent[agentID]; ok {
		delete(r.agentByConnection, connID)
		delete(r.connectionByAgent, agentID)
	}
	return true
}

// LiveAgentCount returns the number of currently connected agents.
func (r *Registry) LiveAgentCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.connectionByAgent)
}

// AgentForConnection returns the agent id authenticated on connID, if any.
// Used to resolve a caller's privilege level for actions (e.g. proactive
// chat initiation) gated on "caller is an authenticated agent."
func (r *Registry) AgentForConnection(connID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	agentID, ok := r.agentByConnection[connID]
	return agentID, ok
}

// ConnectionForAgent returns the live connection id for agentID, if online.
func (r *Registry) ConnectionForAgent(agentID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	connID, ok := r.connectionByAgent[agentID]
	return connID, ok
}

// AddVisitor registers a live anonymous visitor.
func (r *Registry) AddVisitor(connID string, v models.Visitor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v.ConnectionID = connID
	r.liveVisitors[connID] = v
}

// RemoveVisitor removes a visitor on transport disconnect.
func (r *Registry) RemoveVisitor(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.liveVisitors, connID)
}

// UpdateVisitor mutates a visitor record in place (e.g. status/sessionId on
// proactive chat initiation). No-op if the visitor is no longer present.
func (r *Registry) UpdateVisitor(connID string, mutate func(v *models.Visitor)) (models.Visitor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.liveVisitors[connID]
	if !ok {
		return models.Visitor{}, false
	}
	mutate(&v)
	r.liveVisitors[connID] = v
	return v, true
}

// VisitorByConnection returns a visitor by connection id.
func (r *Registry) VisitorByConnection(connID string) (models.Visitor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.liveVisitors[connID]
	return v, ok
}

// SnapshotVisitors returns a point-in-time copy of all live visitors, safe
// to broadcast without holding the registry's lock.
func (r *Registry) SnapshotVisitors() []models.Visitor {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Visitor, 0, len(r.liveVisitors))
	for _, v := range r.liveVisitors {
		out = append(out, v)
	}
	return out
}
