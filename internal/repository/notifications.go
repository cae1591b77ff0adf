package repository

import (
	"context"
	"fmt"

	"support-chat-broker/internal/models"
)

// CreateNotification inserts a per-recipient notification record.
func (p *Postgres) CreateNotification(ctx context.Context, n models.Notification) (*models.Notification, error) {
	query := `
		INSERT INTO notifications (user_id, type, title, body, severity, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id, user_id, type, title, body, severity, payload, created_at`
	var out models.Notification
	err := p.db.GetContext(ctx, &out, query, n.UserID, n.Type, n.Title, n.Body, n.Severity, n.Payload)
	if err != nil {
		return nil, fmt.Errorf("%w: create notification: %v", ErrTransient, err)
	}
	return &out, nil
}
