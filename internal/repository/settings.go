package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"support-chat-broker/internal/models"
)

// GetSettings returns the single application-settings row, read-through a
// small cache: grounded on the teacher's DB.columnCache idiom (an
// RWMutex-guarded value sitting in front of the authoritative store), here
// generalized from a bool-per-column cache to a single cached settings
// snapshot invalidated by PutSettings.
func (p *Postgres) GetSettings(ctx context.Context) (models.AppSettings, error) {
	p.settingsMu.RLock()
	if p.settingsCache != nil {
		cached := *p.settingsCache
		p.settingsMu.RUnlock()
		return cached, nil
	}
	p.settingsMu.RUnlock()

	var s models.AppSettings
	query := `SELECT system_prompt, context_limit, welcome_message, image_analysis_prompt FROM app_settings LIMIT 1`
	err := p.db.GetContext(ctx, &s, query)
	if errors.Is(err, sql.ErrNoRows) {
		return models.AppSettings{}, fmt.Errorf("%w: app_settings", ErrNotFound)
	}
	if err != nil {
		return models.AppSettings{}, fmt.Errorf("%w: get settings: %v", ErrTransient, err)
	}

	p.settingsMu.Lock()
	p.settingsCache = &s
	p.settingsMu.Unlock()
	return s, nil
}

// PutSettings validates and persists application settings, invalidating the
// cache. Not part of the Repository interface (settings CRUD is served by
// the out-of-scope admin HTTP surface); exposed here for that host to call.
func (p *Postgres) PutSettings(ctx context.Context, s models.AppSettings) error {
	if err := models.ValidateAppSettings(s); err != nil {
		return err
	}
	query := `
		UPDATE app_settings
		SET system_prompt = $1, context_limit = $2, welcome_message = $3, image_analysis_prompt = $4`
	if _, err := p.db.ExecContext(ctx, query, s.SystemPrompt, s.ContextLimit, s.WelcomeMessage, s.ImageAnalysisPrompt); err != nil {
		return fmt.Errorf("%w: put settings: %v", ErrTransient, err)
	}

	p.settingsMu.Lock()
	p.settingsCache = nil
	p.settingsMu.Unlock()
	return nil
}
