package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"support-chat-broker/internal/models"
)

// CreateSession inserts a new session row with status=active.
func (p *Postgres) CreateSession(ctx context.Context, id string, meta models.UserMeta) (*models.Session, error) {
	now := time.Now().UTC()
	session := models.Session{
		ID:        id,
		Status:    models.SessionActive,
		UserMeta:  meta,
		CreatedAt: now,
		LastSeen:  now,
	}
	query := `
		INSERT INTO sessions (id, status, assigned_agent, user_meta, created_at, last_seen)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
		RETURNING id, status, assigned_agent, user_meta, created_at, last_seen`
	err := p.db.GetContext(ctx, &session, query, session.ID, session.Status, session.AssignedAgent, session.UserMeta, session.CreatedAt, session.LastSeen)
	if errors.Is(err, sql.ErrNoRows) {
		// Conflict: a session with this id already exists; return it instead.
		return p.GetSession(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: create session: %v", ErrTransient, err)
	}
	return &session, nil
}

// GetSession fetches a session by id.
func (p *Postgres) GetSession(ctx context.Context, id string) (*models.Session, error) {
	var session models.Session
	query := `SELECT id, status, assigned_agent, user_meta, created_at, last_seen FROM sessions WHERE id = $1`
	err := p.db.GetContext(ctx, &session, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: session %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get session: %v", ErrTransient, err)
	}
	return &session, nil
}

// UpdateSession applies a partial patch to a session row. Patch semantics
// are idempotent: reapplying the same patch leaves the row unchanged.
func (p *Postgres) UpdateSession(ctx context.Context, id string, patch SessionPatch) error {
	session, err := p.GetSession(ctx, id)
	if err != nil {
		return err
	}

	if patch.Status != nil {
		session.Status = *patch.Status
	}
	if patch.AssignedAgent != nil {
		session.AssignedAgent = *patch.AssignedAgent
	}
	if patch.ConversationConcluded != nil {
		session.UserMeta.ConversationConcluded = *patch.ConversationConcluded
	}
	if patch.LastSeen != nil && *patch.LastSeen {
		session.LastSeen = time.Now().UTC()
	}

	query := `
		UPDATE sessions
		SET status = $1, assigned_agent = $2, user_meta = $3, last_seen = $4
		WHERE id = $5`
	_, err = p.db.ExecContext(ctx, query, session.Status, session.AssignedAgent, session.UserMeta, session.LastSeen, id)
	if err != nil {
		return fmt.Errorf("%w: update session %s: %v", ErrTransient, id, err)
	}
	return nil
}
