package dispatcher

import (
	"context"
	"log"
	"time"

	"support-chat-broker/internal/models"
)

// Fanout is the slice of the Notification Fan-out these session-adjacent
// events drive. Defined locally to avoid a dependency cycle with
// internal/notify (which itself only depends on repository/models).
type Fanout interface {
	NotifyRequestAgent(ctx context.Context, sessionID string)
	NotifySessionTimeoutWarning(ctx context.Context, sessionID string)
}

// StartSession implements the start_session event (§6): ensure the session
// exists, and emit a welcome bot message.
func (d *Dispatcher) StartSession(ctx context.Context, sessionID string, meta models.UserMeta, bc Broadcaster) {
	sess, err := d.sessions.EnsureExists(ctx, sessionID, meta)
	if err != nil {
		log.Printf("dispatcher: start session %s: %v", sessionID, err)
		return
	}
	bc.EmitToRoom(sessionRoom(sessionID), "session_started", map[string]any{"sessionId": sess.ID})

	settings, err := d.settings.GetSettings(ctx)
	if err != nil || settings.WelcomeMessage == "" {
		return
	}
	d.persistBotMessage(ctx, sessionID, settings.WelcomeMessage, models.MessageMeta{})
	bc.EmitToRoom(sessionRoom(sessionID), "bot_message", map[string]any{"text": settings.WelcomeMessage})
}

// RequestAgent implements the request_agent event: confirm to the visitor
// and raise a request_agent notification.
func (d *Dispatcher) RequestAgent(ctx context.Context, sessionID string, fanout Fanout, bc Broadcaster) {
	const confirmMsg = "We've notified our team. An agent will join shortly."
	d.persistBotMessage(ctx, sessionID, confirmMsg, models.MessageMeta{})
	bc.EmitToRoom(sessionRoom(sessionID), "bot_message", map[string]any{"text": confirmMsg})
	fanout.NotifyRequestAgent(ctx, sessionID)
}

// RequestHuman implements the request_human event: ring the admin feed.
func (d *Dispatcher) RequestHuman(ctx context.Context, sessionID, reason string, bc Broadcaster) {
	bc.EmitToRoom("admin_feed", "admin_ring_sound", map[string]any{"sessionId": sessionID, "reason": reason})
}

// SessionTimeout implements the session_timeout event: raise a
// session_timeout_warning notification and broadcast to the admin room.
func (d *Dispatcher) SessionTimeout(ctx context.Context, sessionID string, fanout Fanout, bc Broadcaster) {
	fanout.NotifySessionTimeoutWarning(ctx, sessionID)
	bc.EmitToRoom("admin", "session_timeout_warning", map[string]any{"sessionId": sessionID})
}

// AgentTakeover implements the agent_takeover event (§4.5 active →
// agent_assigned): unconditional reassignment is allowed even if another
// agent already owns the session (§9 Open Question decision).
func (d *Dispatcher) AgentTakeover(ctx context.Context, sessionID, agentID string, bc Broadcaster) {
	if err := d.sessions.AssignAgent(ctx, sessionID, agentID); err != nil {
		log.Printf("dispatcher: agent takeover for session %s: %v", sessionID, err)
		return
	}
	bc.EmitToRoom(sessionRoom(sessionID), "agent_joined", map[string]any{"agentId": agentID})
	bc.EmitToRoom("agents:"+agentID, "agent_session_assigned", map[string]any{"sessionId": sessionID})
}

// AgentMessage implements the agent_message event: persist and emit to the
// session room as the agent-authored counterpart to the AI path.
func (d *Dispatcher) AgentMessage(ctx context.Context, sessionID, agentID, text, msgType, attachmentURL string, bc Broadcaster) {
	meta := models.MessageMeta{AgentID: &agentID, Type: msgType}
	msg := models.Message{
		SessionID:  sessionID,
		Sender:     models.SenderAgent,
		Text:       text,
		Visibility: models.VisibilityPublic,
		Meta:       meta,
	}
	if attachmentURL != "" {
		msg.AttachmentURL = &attachmentURL
	}
	if _, err := d.repo.AppendMessage(ctx, msg); err != nil {
		log.Printf("dispatcher: persist agent message for session %s: %v", sessionID, err)
	}
	bc.EmitToRoom(sessionRoom(sessionID), "agent_message", map[string]any{"text": text, "agentId": agentID, "sender": "agent"})
}

// InternalNote implements the internal_note event: persisted and emitted
// only to the session's agent-only room (agentSessionRoom), which visitor
// connections never join, so the note stays out of the visitor-facing
// event channel (§6).
func (d *Dispatcher) InternalNote(ctx context.Context, sessionID, agentID, text string, bc Broadcaster) {
	msg := models.Message{
		SessionID:  sessionID,
		Sender:     models.SenderInternal,
		Text:       text,
		Visibility: models.VisibilityInternal,
		Meta:       models.MessageMeta{AgentID: &agentID},
	}
	if _, err := d.repo.AppendMessage(ctx, msg); err != nil {
		log.Printf("dispatcher: persist internal note for session %s: %v", sessionID, err)
	}
	bc.EmitToRoom(agentSessionRoom(sessionID), "internal_note", map[string]any{"text": text, "agentId": agentID, "ts": time.Now().UTC()})
}
