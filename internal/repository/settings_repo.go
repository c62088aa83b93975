package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"evtracker/internal/models"
)

const lastImportKey = "last_import"

// SettingsRepository stores small key/value app state, currently the
// last-import summary the dashboard shows.
type SettingsRepository struct {
	db *sql.DB
}

// NewSettingsRepository returns repository.
func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// SaveLastImport upserts the run summary.
func (r *SettingsRepository) SaveLastImport(ctx context.Context, summary models.ImportSummary) error {
	value, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("repository: encode last import: %w", err)
	}
	const query = `
		INSERT INTO app_settings (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = $2, updated_at = NOW()
	`
	_, err = r.db.ExecContext(ctx, query, lastImportKey, value)
	return err
}

// LastImport returns the stored run summary, or nil when no import ran yet.
func (r *SettingsRepository) LastImport(ctx context.Context) (*models.ImportSummary, error) {
	const query = `SELECT value FROM app_settings WHERE key = $1`
	var value []byte
	err := r.db.QueryRowContext(ctx, query, lastImportKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var summary models.ImportSummary
	if err := json.Unmarshal(value, &summary); err != nil {
		return nil, fmt.Errorf("repository: decode last import: %w", err)
	}
	return &summary, nil
}
