package repository

import (
	"context"
	"fmt"

	"support-chat-broker/internal/models"
)

// AppendMessage inserts a new message row. Messages are append-only; there
// is no update or delete path in the core.
func (p *Postgres) AppendMessage(ctx context.Context, msg models.Message) (*models.Message, error) {
	query := `
		INSERT INTO messages (session_id, sender, text, attachment_url, visibility, meta, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id, session_id, sender, text, attachment_url, visibility, meta, created_at`
	var out models.Message
	err := p.db.GetContext(ctx, &out, query, msg.SessionID, msg.Sender, msg.Text, msg.AttachmentURL, msg.Visibility, msg.Meta)
	if err != nil {
		return nil, fmt.Errorf("%w: append message: %v", ErrTransient, err)
	}
	return &out, nil
}

// ListMessages returns up to limit messages for sessionID in the requested
// order. Used by the AI path to build the bounded history window (spec §9:
// "the spec fixes the AI history window at 20 messages ... Implementations
// must load ≤ that number, ascending, and exclude internal-visibility
// messages" — this query returns every visibility; the AI path's
// buildPrompt drops the internal ones).
func (p *Postgres) ListMessages(ctx context.Context, sessionID string, limit int, order MessageOrder) ([]models.Message, error) {
	if limit <= 0 {
		limit = 20
	}
	dir := "ASC"
	if order == OrderDescending {
		dir = "DESC"
	}
	query := fmt.Sprintf(`
		SELECT id, session_id, sender, text, attachment_url, visibility, meta, created_at
		FROM (
			SELECT id, session_id, sender, text, attachment_url, visibility, meta, created_at
			FROM messages
			WHERE session_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		) recent
		ORDER BY created_at %s`, dir)

	var out []models.Message
	if err := p.db.SelectContext(ctx, &out, query, sessionID, limit); err != nil {
		return nil, fmt.Errorf("%w: list messages for %s: %v", ErrTransient, sessionID, err)
	}
	return out, nil
}
