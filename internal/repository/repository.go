// Package repository abstracts persistence behind the narrow interface
// spec.md §4.1 names: sessions, messages, users, notifications, accuracy
// records. The document database itself is an external collaborator; this
// package's Postgres implementation is one concrete backing for it,
// grounded on the teacher's sqlx-based internal/database package.
package repository

import (
	"context"

	"support-chat-broker/internal/models"
)

// SessionPatch carries a partial update to a Session. Fields left nil are
// left unchanged; the repository's patch semantics are expected to be
// idempotent (§5 "Shared-resource policy").
type SessionPatch struct {
	Status                *models.SessionStatus
	AssignedAgent         **string
	ConversationConcluded *bool
	LastSeen              *bool // true => bump LastSeen to now
}

// MessageOrder controls ListMessages ordering.
type MessageOrder int

const (
	OrderAscending MessageOrder = iota
	OrderDescending
)

// Repository is the persistence interface the dispatcher, session state
// machine, proactive orchestrator, and notification fan-out depend on.
// Implementations must return ErrNotFound/ErrConflict/ErrTransient for
// failure cases; callers treat anything else as an unexpected error.
type Repository interface {
	CreateSession(ctx context.Context, id string, meta models.UserMeta) (*models.Session, error)
	GetSession(ctx context.Context, id string) (*models.Session, error)
	UpdateSession(ctx context.Context, id string, patch SessionPatch) error

	AppendMessage(ctx context.Context, msg models.Message) (*models.Message, error)
	ListMessages(ctx context.Context, sessionID string, limit int, order MessageOrder) ([]models.Message, error)

	CreateNotification(ctx context.Context, n models.Notification) (*models.Notification, error)
	FindUsersByRole(ctx context.Context, role models.Role, limit int) ([]models.AppUser, error)
	UpdateUserStatus(ctx context.Context, userID string, status string) error

	CreateAccuracyRecord(ctx context.Context, r models.AccuracyRecord) (*models.AccuracyRecord, error)

	GetSettings(ctx context.Context) (models.AppSettings, error)
}
