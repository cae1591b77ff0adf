package repository

import (
	"context"
	"fmt"

	"support-chat-broker/internal/models"
)

// CreateAccuracyRecord writes an audit row alongside a generated reply.
// Metadata is truncated to the 255-char accuracy-metadata boundary before insert.
func (p *Postgres) CreateAccuracyRecord(ctx context.Context, r models.AccuracyRecord) (*models.AccuracyRecord, error) {
	r.Metadata = models.TruncateMetadata(r.Metadata)
	query := `
		INSERT INTO accuracy_records (session_id, redacted_text, confidence, latency_ms, tokens, response_type, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING id, session_id, redacted_text, confidence, latency_ms, tokens, response_type, metadata, created_at`
	var out models.AccuracyRecord
	err := p.db.GetContext(ctx, &out, query, r.SessionID, r.RedactedText, r.Confidence, r.LatencyMs, r.Tokens, r.ResponseType, r.Metadata)
	if err != nil {
		return nil, fmt.Errorf("%w: create accuracy record: %v", ErrTransient, err)
	}
	return &out, nil
}
