package repository

import (
	"context"
	"fmt"

	"support-chat-broker/internal/models"
)

// FindUsersByRole returns up to limit users with the given role, grounded
// on the teacher's role-scoped user queries in internal/database/db_users.go.
func (p *Postgres) FindUsersByRole(ctx context.Context, role models.Role, limit int) ([]models.AppUser, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT id, role, status FROM app_users WHERE role = $1 LIMIT $2`
	var out []models.AppUser
	if err := p.db.SelectContext(ctx, &out, query, role, limit); err != nil {
		return nil, fmt.Errorf("%w: find users by role %s: %v", ErrTransient, role, err)
	}
	return out, nil
}

// UpdateUserStatus sets a user's presence status (e.g. "online"/"offline").
func (p *Postgres) UpdateUserStatus(ctx context.Context, userID string, status string) error {
	query := `UPDATE app_users SET status = $1 WHERE id = $2`
	res, err := p.db.ExecContext(ctx, query, status, userID)
	if err != nil {
		return fmt.Errorf("%w: update user status for %s: %v", ErrTransient, userID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}
	return nil
}
