package presence

import (
	"context"
	"log"
	"time"

	"support-chat-broker/internal/auth"
	"support-chat-broker/internal/models"
)

// Broadcaster is the narrow slice of the transport layer the presence
// manager needs: emitting an event to a named room, or to one connection.
// Defined here (not imported from transport) so transport can depend on
// presence without a cycle.
type Broadcaster interface {
	EmitToRoom(room string, eventType string, payload any)
	EmitToConnection(connID string, eventType string, payload any)
	Disconnect(connID string)
}

// Notifier is the slice of the Notification Fan-out the presence manager
// drives for agent_connected/agent_disconnected events (§4.9).
type Notifier interface {
	NotifyAgentConnected(ctx context.Context, agentID string)
	NotifyAgentDisconnected(ctx context.Context, agentID string)
}

// StatusUpdater persists an agent's online/offline status.
type StatusUpdater interface {
	UpdateUserStatus(ctx context.Context, userID string, status string) error
}

// PresenceGauges is the narrow internal/obsv.Metrics slice the manager
// keeps up to date as visitors and agents connect/disconnect. Defined
// locally so presence never imports obsv directly; a nil value (the zero
// value of Manager.gauges) means gauges are not wired.
type PresenceGauges interface {
	SetLiveVisitors(n int)
	SetLiveAgents(n int)
}

// Manager is the Agent Presence Manager (§4.8): authentication, room join,
// grace-period disconnect, and status broadcast, all layered over Registry.
type Manager struct {
	registry  *Registry
	verifier  auth.Verifier
	broadcast Broadcaster
	notify    Notifier
	users     StatusUpdater

	gracePeriod   time.Duration
	authFailDelay time.Duration
	gauges        PresenceGauges
}

// WithGauges attaches a live visitor/agent gauge recorder
// (internal/obsv.Metrics). Returns m for chaining at construction time.
func (m *Manager) WithGauges(gauges PresenceGauges) *Manager {
	m.gauges = gauges
	return m
}

// NewManager builds an Agent Presence Manager.
func NewManager(registry *Registry, verifier auth.Verifier, broadcast Broadcaster, notify Notifier, users StatusUpdater, gracePeriod, authFailDelay time.Duration) *Manager {
	return &Manager{
		registry:      registry,
		verifier:      verifier,
		broadcast:     broadcast,
		notify:        notify,
		users:         users,
		gracePeriod:   gracePeriod,
		authFailDelay: authFailDelay,
	}
}

// AgentAuth handles the inbound agent_auth event: verify token, check role,
// register presence, emit connected/reconnect events per §4.8.
func (m *Manager) AgentAuth(ctx context.Context, connID, token string) {
	subject, role, err := m.verifier.VerifyToken(token)
	if err != nil || !role.AtLeastAgent() {
		m.broadcast.EmitToConnection(connID, "auth_error", map[string]string{"message": "authentication failed"})
		time.AfterFunc(m.authFailDelay, func() { m.broadcast.Disconnect(connID) })
		return
	}

	prevConn, hadPrev := m.registry.ConnectionForAgent(subject)
	result := m.registry.RegisterAgent(subject, connID)

	// Idempotent auth: same agent, same connection id already stored.
	if hadPrev && prevConn == connID && !result.CancelledPending {
		return
	}

	m.broadcast.EmitToRoom("agents:"+subject, "agent_session_ready", map[string]string{"agentId": subject})

	if result.CancelledPending {
		// Reconnect within grace: no status broadcast, per §4.2/§4.8.
		return
	}

	if result.IsReplacement {
		// A prior connection existed but with no running grace timer (e.g.
		// an ungraceful prior teardown already finalized): treat as a fresh
		// connect, matching "first-time registration" framing.
	}

	if err := m.users.UpdateUserStatus(ctx, subject, "online"); err != nil {
		log.Printf("presence: failed to persist online status for %s: %v", subject, err)
	}
	m.broadcast.EmitToRoom("admin_feed", "agent_connected", map[string]string{"agentId": subject})
	m.broadcast.EmitToRoom("admin_feed", "agent_status_changed", map[string]string{"agentId": subject, "status": "online", "action": "connected"})
	m.notify.NotifyAgentConnected(ctx, subject)
	m.reportAgentGauge()
}

func (m *Manager) reportAgentGauge() {
	if m.gauges != nil {
		m.gauges.SetLiveAgents(m.registry.LiveAgentCount())
	}
}

// Disconnect begins the grace-period teardown for the agent connection
// identified by connID.
func (m *Manager) Disconnect(ctx context.Context, connID, userID string) {
	m.registry.BeginDisconnect(connID, userID, m.gracePeriod, func(agentID string) {
		m.finalizeDisconnect(ctx, agentID)
	})
}

func (m *Manager) finalizeDisconnect(ctx context.Context, agentID string) {
	if !m.registry.FinalizeDisconnect(agentID) {
		// Reconnected before the timer fired; no status change.
		return
	}

	if err := m.users.UpdateUserStatus(ctx, agentID, "offline"); err != nil {
		log.Printf("presence: failed to persist offline status for %s: %v", agentID, err)
	}
	m.broadcast.EmitToRoom("admin_feed", "agent_status_changed", map[string]string{"agentId": agentID, "status": "offline", "action": "disconnected"})
	m.broadcast.EmitToRoom("admin_feed", "agent_disconnected", map[string]string{"agentId": agentID})
	m.notify.NotifyAgentDisconnected(ctx, agentID)
	m.reportAgentGauge()
}

// VisitorJoin registers a live visitor and broadcasts the updated snapshot.
func (m *Manager) VisitorJoin(connID, url string) {
	m.registry.AddVisitor(connID, models.Visitor{URL: url, OnlineAt: time.Now().UTC(), Status: models.VisitorBrowsing})
	m.broadcastVisitors()
}

// VisitorLeave removes a visitor on transport disconnect.
func (m *Manager) VisitorLeave(connID string) {
	m.registry.RemoveVisitor(connID)
	m.broadcastVisitors()
}

func (m *Manager) broadcastVisitors() {
	snapshot := m.registry.SnapshotVisitors()
	m.broadcast.EmitToRoom("admin_feed", "live_visitors_update", snapshot)
	if m.gauges != nil {
		m.gauges.SetLiveVisitors(len(snapshot))
	}
}

// SendVisitorSnapshot emits the current live-visitor snapshot to a single
// connection, used when a client joins admin_feed (it "immediately emits
// live_visitors_update" per spec §6).
func (m *Manager) SendVisitorSnapshot(connID string) {
	m.broadcast.EmitToConnection(connID, "live_visitors_update", m.registry.SnapshotVisitors())
}

// Registry exposes the underlying Presence Registry for components (the
// Dispatcher, Proactive Orchestrator) that only need read access.
func (m *Manager) Registry() *Registry { return m.registry }
