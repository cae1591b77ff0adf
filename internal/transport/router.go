package transport

import (
	"context"
	"encoding/json"
	"log"

	"support-chat-broker/internal/dispatcher"
	"support-chat-broker/internal/models"
	"support-chat-broker/internal/notify"
	"support-chat-broker/internal/presence"
	"support-chat-broker/internal/proactive"
)

// Router decodes each InboundEnvelope's event-specific payload and calls
// into the appropriate component, grounded on the teacher's
// Client.handleIncomingMessage type-switch (internal/websocket/client.go),
// generalized from a three-case switch ("stream_request"/"stop"/"ping") to
// the full inbound-event table (§6).
type Router struct {
	hub         *Hub
	presenceMgr *presence.Manager
	dispatch    *dispatcher.Dispatcher
	orchestrate *proactive.Orchestrator
	fanout      *notify.Fanout

	agentRoleOf func(connID string) (models.Role, bool)
}

// NewRouter builds a Router over every component an inbound event might
// need. agentRoleOf resolves the authenticated role for a connection that
// has completed agent_auth, used to enforce initiate_chat's role
// precondition (§4.7 step 2) and to decide whether a join_session caller
// also joins the session's agent-only room (so internal_note stays off
// visitor connections).
func NewRouter(hub *Hub, presenceMgr *presence.Manager, dispatch *dispatcher.Dispatcher, orchestrate *proactive.Orchestrator, fanout *notify.Fanout, agentRoleOf func(connID string) (models.Role, bool)) *Router {
	return &Router{hub: hub, presenceMgr: presenceMgr, dispatch: dispatch, orchestrate: orchestrate, fanout: fanout, agentRoleOf: agentRoleOf}
}

// Route is the InboundHandler passed to every Client.
func (r *Router) Route(connID string, env InboundEnvelope) {
	ctx := context.Background()

	switch env.Type {
	case "visitor_join":
		var payload struct {
			URL string `json:"url"`
		}
		_ = json.Unmarshal(env.Data, &payload)
		r.presenceMgr.VisitorJoin(connID, payload.URL)

	case "start_session":
		var payload struct {
			SessionID string          `json:"sessionId"`
			UserMeta  models.UserMeta `json:"userMeta"`
		}
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			r.hub.EmitToConnection(connID, "session_error", map[string]string{"message": "invalid start_session payload"})
			return
		}
		r.dispatch.StartSession(ctx, payload.SessionID, payload.UserMeta, r.hub)
		r.hub.Join(payload.SessionID, r.connByID(connID))

	case "join_session":
		var payload struct {
			SessionID string `json:"sessionId"`
		}
		_ = json.Unmarshal(env.Data, &payload)
		r.hub.Join(payload.SessionID, r.connByID(connID))
		if _, ok := r.agentRoleOf(connID); ok {
			r.hub.Join(agentSessionRoom(payload.SessionID), r.connByID(connID))
		}

	case "user_message":
		var msg dispatcher.InboundMessage
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			r.hub.EmitToConnection(connID, "session_error", map[string]string{"message": "invalid user_message payload"})
			return
		}
		r.dispatch.Dispatch(ctx, msg, connID, r.hub)

	case "request_agent":
		var payload struct {
			SessionID string `json:"sessionId"`
		}
		_ = json.Unmarshal(env.Data, &payload)
		r.dispatch.RequestAgent(ctx, payload.SessionID, r.fanout, r.hub)

	case "request_human":
		var payload struct {
			SessionID string `json:"sessionId"`
			Reason    string `json:"reason"`
		}
		_ = json.Unmarshal(env.Data, &payload)
		r.dispatch.RequestHuman(ctx, payload.SessionID, payload.Reason, r.hub)

	case "session_timeout":
		var payload struct {
			SessionID string `json:"sessionId"`
		}
		_ = json.Unmarshal(env.Data, &payload)
		r.dispatch.SessionTimeout(ctx, payload.SessionID, r.fanout, r.hub)

	case "agent_auth", "agent_connect":
		var payload struct {
			Token string `json:"token"`
		}
		_ = json.Unmarshal(env.Data, &payload)
		r.presenceMgr.AgentAuth(ctx, connID, payload.Token)

	case "agent_takeover":
		var payload struct {
			SessionID string `json:"sessionId"`
			AgentID   string `json:"agentId"`
		}
		_ = json.Unmarshal(env.Data, &payload)
		r.dispatch.AgentTakeover(ctx, payload.SessionID, payload.AgentID, r.hub)
		if _, ok := r.agentRoleOf(connID); ok {
			r.hub.Join(agentSessionRoom(payload.SessionID), r.connByID(connID))
		}

	case "agent_message":
		var payload struct {
			SessionID     string `json:"sessionId"`
			Text          string `json:"text"`
			AgentID       string `json:"agentId"`
			Type          string `json:"type"`
			AttachmentURL string `json:"attachmentUrl"`
		}
		_ = json.Unmarshal(env.Data, &payload)
		r.dispatch.AgentMessage(ctx, payload.SessionID, payload.AgentID, payload.Text, payload.Type, payload.AttachmentURL, r.hub)

	case "internal_note":
		var payload struct {
			SessionID string `json:"sessionId"`
			Text      string `json:"text"`
			AgentID   string `json:"agentId"`
		}
		_ = json.Unmarshal(env.Data, &payload)
		r.dispatch.InternalNote(ctx, payload.SessionID, payload.AgentID, payload.Text, r.hub)

	case "initiate_chat":
		var payload struct {
			TargetConnectionID string `json:"targetConnectionId"`
			Message            string `json:"message"`
			AgentID            string `json:"agentId"`
		}
		_ = json.Unmarshal(env.Data, &payload)
		role, _ := r.agentRoleOf(connID)
		result, err := r.orchestrate.InitiateChat(ctx, role, payload.TargetConnectionID, payload.Message, payload.AgentID)
		if err != nil {
			r.hub.EmitToConnection(connID, "session_error", map[string]string{"message": err.Error()})
			return
		}
		r.hub.EmitToConnection(connID, "initiate_chat_ack", map[string]any{"success": result.Success, "sessionId": result.SessionID})

	case "join_admin_feed":
		r.hub.Join("admin_feed", r.connByID(connID))
		r.presenceMgr.SendVisitorSnapshot(connID)

	default:
		log.Printf("transport: unknown inbound event type %q from connection %s", env.Type, connID)
	}
}

// agentSessionRoom mirrors the dispatcher's own unexported helper of the
// same name: the agent-only room for a session, joined here only once
// agentRoleOf confirms the joining connection authenticated as an agent,
// so internal_note (emitted into this room by the dispatcher) never
// reaches a visitor's connection.
func agentSessionRoom(sessionID string) string { return "agents:session:" + sessionID }

// connByID looks the *Client up in the Hub on every call; handler.go
// registers each Client with the Hub under its id, so the router can
// re-derive the *Client for Join/Leave without the Hub exposing its
// internal map.
func (r *Router) connByID(connID string) *Client {
	return r.hub.clientByID(connID)
}
