// Package proactive implements the Proactive Chat Orchestrator (§4.7): an
// admin-initiated "start a chat with this visitor" flow. Grounded on
// spec.md §4.7's own step list; session id generation uses
// github.com/google/uuid, already present in the pack's dependency
// surface (an indirect teacher dependency and a direct dependency of
// other example repos).
package proactive

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"support-chat-broker/internal/models"
	"support-chat-broker/internal/repository"
	"support-chat-broker/internal/session"
)

// ErrVisitorNotFound is returned when the target connection is not a live
// visitor in the Presence Registry.
var ErrVisitorNotFound = fmt.Errorf("proactive: target visitor not found")

// ErrForbidden is returned when the initiating caller lacks agent (or
// higher) privileges.
var ErrForbidden = fmt.Errorf("proactive: caller lacks agent privileges")

// VisitorLookup is the narrow Presence Registry slice this orchestrator
// needs: whether a connection id is a known live visitor, and updating its
// record once a chat is initiated.
type VisitorLookup interface {
	VisitorByConnection(connID string) (models.Visitor, bool)
	UpdateVisitor(connID string, mutate func(v *models.Visitor)) (models.Visitor, bool)
	SnapshotVisitors() []models.Visitor
}

// Broadcaster is the narrow transport slice needed to message the target
// visitor and the admin feed. Defined locally to avoid an import cycle.
type Broadcaster interface {
	EmitToConnection(connID string, eventType string, payload any)
	EmitToRoom(room string, eventType string, payload any)
}

// Orchestrator is the Proactive Chat Orchestrator.
type Orchestrator struct {
	repo      repository.Repository
	sessions  *session.Machine
	visitors  VisitorLookup
	broadcast Broadcaster
}

// New builds an Orchestrator.
func New(repo repository.Repository, sessions *session.Machine, visitors VisitorLookup, broadcast Broadcaster) *Orchestrator {
	return &Orchestrator{repo: repo, sessions: sessions, visitors: visitors, broadcast: broadcast}
}

// Result is returned to the initiating agent (§4.7 step 6).
type Result struct {
	Success   bool
	SessionID string
}

// InitiateChat runs the six orchestrator steps (§4.7) for the
// initiate_chat event.
func (o *Orchestrator) InitiateChat(ctx context.Context, callerRole models.Role, targetConnectionID, message, agentID string) (Result, error) {
	// Step 2: caller role check.
	if !callerRole.AtLeastAgent() {
		return Result{}, ErrForbidden
	}

	// Step 1: target visitor must exist.
	if _, ok := o.visitors.VisitorByConnection(targetConnectionID); !ok {
		return Result{}, ErrVisitorNotFound
	}

	// Step 3: create a new session with a server-generated id, assign the
	// agent, persist the initial agent message.
	sessionID := uuid.NewString()
	agent := agentID
	if _, err := o.repo.CreateSession(ctx, sessionID, models.UserMeta{AssignedAgent: &agent}); err != nil {
		return Result{}, fmt.Errorf("proactive: create session: %w", err)
	}
	if err := o.sessions.AssignAgent(ctx, sessionID, agentID); err != nil {
		return Result{}, fmt.Errorf("proactive: assign agent: %w", err)
	}
	if _, err := o.repo.AppendMessage(ctx, models.Message{
		SessionID:  sessionID,
		Sender:     models.SenderAgent,
		Text:       message,
		Visibility: models.VisibilityPublic,
		Meta:       models.MessageMeta{AgentID: &agentID},
	}); err != nil {
		return Result{}, fmt.Errorf("proactive: persist initial message: %w", err)
	}

	// Step 4: notify the target visitor's connection only.
	o.broadcast.EmitToConnection(targetConnectionID, "agent_initiated_chat", map[string]any{
		"sessionId": sessionID, "text": message, "agentId": agentID,
	})

	// Step 5: update the visitor record and broadcast the new snapshot.
	o.visitors.UpdateVisitor(targetConnectionID, func(v *models.Visitor) {
		v.Status = models.VisitorChatting
		v.SessionID = sessionID
	})
	o.broadcast.EmitToRoom("admin_feed", "live_visitors_update", o.visitors.SnapshotVisitors())

	// Step 6: acknowledge to the initiating agent (the caller emits this
	// itself using the returned Result; see transport/router.go).
	return Result{Success: true, SessionID: sessionID}, nil
}
