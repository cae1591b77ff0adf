// Package models defines the shared data shapes used across the dispatcher,
// repository, transport, and presence packages.
package models

import "time"

// Role is the bounded set of identities the repository boundary parses role
// strings into. Anything else is rejected rather than passed through.
type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleAdmin      Role = "admin"
	RoleAgent      Role = "agent"
	RoleViewer     Role = "viewer"
)

// ParseRole converts a raw role string into the bounded Role set, rejecting
// anything unrecognized instead of passing it through. This is the boundary
// REDESIGN FLAGS calls for in place of string-based, duck-typed role checks.
func ParseRole(raw string) (Role, bool) {
	switch Role(raw) {
	case RoleSuperAdmin, RoleAdmin, RoleAgent, RoleViewer:
		return Role(raw), true
	default:
		return "", false
	}
}

// AtLeastAgent reports whether r has agent privileges or higher.
func (r Role) AtLeastAgent() bool {
	switch r {
	case RoleAgent, RoleAdmin, RoleSuperAdmin:
		return true
	default:
		return false
	}
}

// SessionStatus is one of the three states in the session state machine.
type SessionStatus string

const (
	SessionActive        SessionStatus = "active"
	SessionAgentAssigned SessionStatus = "agent_assigned"
	SessionClosed        SessionStatus = "closed"
)

// Session is the unit of conversation. Identity is an opaque, client- or
// server-supplied string; see the Proactive Chat Orchestrator for the
// server-generated case.
type Session struct {
	ID            string        `db:"id" json:"id"`
	Status        SessionStatus `db:"status" json:"status"`
	AssignedAgent *string       `db:"assigned_agent" json:"assignedAgent,omitempty"`
	UserMeta      UserMeta      `db:"user_meta" json:"userMeta"`
	CreatedAt     time.Time     `db:"created_at" json:"createdAt"`
	LastSeen      time.Time     `db:"last_seen" json:"lastSeen"`
}

// UserMeta is the opaque key-value bag attached to a session. Two keys are
// meaningful to the core: ConversationConcluded and AssignedAgent (kept here
// too so a patch can carry both in one write).
type UserMeta struct {
	ConversationConcluded bool           `json:"conversationConcluded"`
	AssignedAgent         *string        `json:"assignedAgent,omitempty"`
	Extra                 map[string]any `json:"-"`
}

// Sender is who produced a Message.
type Sender string

const (
	SenderUser     Sender = "user"
	SenderBot      Sender = "bot"
	SenderAgent    Sender = "agent"
	SenderInternal Sender = "internal"
)

// Visibility controls whether a message may ever reach a visitor client.
type Visibility string

const (
	VisibilityPublic   Visibility = "public"
	VisibilityInternal Visibility = "internal"
)

// MessageMeta carries the optional, response-quality adjacent fields a
// message may be tagged with.
type MessageMeta struct {
	Confidence *float64 `json:"confidence,omitempty"`
	AgentID    *string  `json:"agentId,omitempty"`
	Type       string   `json:"type,omitempty"`
	Filtered   bool     `json:"filtered,omitempty"`
}

// Message is one append-only turn in a session.
type Message struct {
	ID            int64       `db:"id" json:"id"`
	SessionID     string      `db:"session_id" json:"sessionId"`
	Sender        Sender      `db:"sender" json:"sender"`
	Text          string      `db:"text" json:"text"`
	AttachmentURL *string     `db:"attachment_url" json:"attachmentUrl,omitempty"`
	Visibility    Visibility  `db:"visibility" json:"visibility,omitempty"`
	Meta          MessageMeta `db:"meta" json:"meta"`
	CreatedAt     time.Time   `db:"created_at" json:"createdAt"`
}

// VisitorStatus distinguishes browsing-only visitors from ones in a chat.
type VisitorStatus string

const (
	VisitorBrowsing VisitorStatus = "browsing"
	VisitorChatting VisitorStatus = "chatting"
)

// Visitor is an anonymous live page-view, held only in memory by the
// Presence Registry; never persisted.
type Visitor struct {
	ConnectionID string        `json:"connectionId"`
	URL          string        `json:"url"`
	OnlineAt     time.Time     `json:"onlineAt"`
	Status       VisitorStatus `json:"status,omitempty"`
	SessionID    string        `json:"sessionId,omitempty"`
}

// AgentPresence is a registered agent connection. At most one live
// ConnectionID exists per AgentID at any time.
type AgentPresence struct {
	AgentID       string `json:"agentId"`
	ConnectionID  string `json:"connectionId"`
	UserID        string `json:"userId"`
	Authenticated bool   `json:"authenticated"`
}

// ResponseType classifies how an AccuracyRecord's reply was produced.
type ResponseType string

const (
	ResponsePreloaded ResponseType = "preloaded"
	ResponseStub      ResponseType = "stub"
	ResponseAI        ResponseType = "ai"
	ResponseFallback  ResponseType = "fallback"
	ResponseVision    ResponseType = "vision"
)

// maxAccuracyMetadataLen bounds the serialized metadata blob; longer values
// are truncated with an ellipsis to exactly this length (spec boundary
// behavior: "Accuracy metadata string > 255 chars is truncated with
// ellipsis to exactly 255").
const maxAccuracyMetadataLen = 255

// AccuracyRecord audits a single generated reply for offline quality review.
type AccuracyRecord struct {
	ID           int64        `db:"id" json:"id"`
	SessionID    string       `db:"session_id" json:"sessionId"`
	RedactedText string       `db:"redacted_text" json:"redactedText"`
	Confidence   float64      `db:"confidence" json:"confidence"`
	LatencyMs    int64        `db:"latency_ms" json:"latencyMs"`
	Tokens       int          `db:"tokens" json:"tokens"`
	ResponseType ResponseType `db:"response_type" json:"responseType"`
	Metadata     string       `db:"metadata" json:"metadata,omitempty"`
	CreatedAt    time.Time    `db:"created_at" json:"createdAt"`
}

// TruncateMetadata enforces the 255-char accuracy-metadata boundary.
func TruncateMetadata(s string) string {
	const max = maxAccuracyMetadataLen
	if len(s) <= max {
		return s
	}
	const ellipsis = "..."
	return s[:max-len(ellipsis)] + ellipsis
}

// NotificationSeverity grades a system alert.
type NotificationSeverity string

const (
	SeverityInfo     NotificationSeverity = "info"
	SeverityWarning  NotificationSeverity = "warning"
	SeverityCritical NotificationSeverity = "critical"
)

// Notification is a per-recipient record created by the Notification
// Fan-out and broadcast to role rooms.
type Notification struct {
	ID        int64                `db:"id" json:"id"`
	UserID    string               `db:"user_id" json:"userId"`
	Type      string               `db:"type" json:"type"`
	Title     string               `db:"title" json:"title"`
	Body      string               `db:"body" json:"body"`
	Severity  NotificationSeverity `db:"severity" json:"severity"`
	Payload   JSONMap              `db:"payload" json:"payload,omitempty"`
	CreatedAt time.Time            `db:"created_at" json:"createdAt"`
}

// AppUser is the minimal user record the core reads: identity, role, and
// presence status. Authentication issuance (passwords, OAuth) lives outside
// the core per spec; this is only what the repository and presence layers
// need to read and update.
type AppUser struct {
	ID     string `db:"id" json:"id"`
	Role   Role   `db:"role" json:"role"`
	Status string `db:"status" json:"status"`
}

// AppSettings are the flat application-settings key-value pairs the
// dispatcher and AI path read at the settings boundary.
type AppSettings struct {
	SystemPrompt        string `db:"system_prompt" json:"systemPrompt"`
	ContextLimit        int    `db:"context_limit" json:"contextLimit"`
	WelcomeMessage      string `db:"welcome_message" json:"welcomeMessage"`
	ImageAnalysisPrompt string `db:"image_analysis_prompt" json:"imageAnalysisPrompt"`
}

// Settings boundary limits (spec §8 "Boundary behaviors").
const (
	MinContextLimit  = 2
	MaxContextLimit  = 50
	MaxSettingsInput = 5000
)

// ValidateAppSettings rejects settings values outside the documented bounds.
func ValidateAppSettings(s AppSettings) error {
	if s.ContextLimit < MinContextLimit || s.ContextLimit > MaxContextLimit {
		return ErrSettingsBoundary
	}
	if len(s.SystemPrompt) > MaxSettingsInput || len(s.WelcomeMessage) > MaxSettingsInput || len(s.ImageAnalysisPrompt) > MaxSettingsInput {
		return ErrSettingsBoundary
	}
	return nil
}
