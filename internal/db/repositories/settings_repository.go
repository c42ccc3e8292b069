// settings_repository.go implements SettingsRepository for the singleton
// system settings row that drives first-run setup.
package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shiplog/shiplog-server/internal/db/models"
)

// SettingsRepository handles system settings database operations
type SettingsRepository struct {
	db *sqlx.DB
}

// NewSettingsRepository creates a new SettingsRepository
func NewSettingsRepository(db *sqlx.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get retrieves the singleton settings row, or (nil, nil) before first boot
func (r *SettingsRepository) Get(ctx context.Context) (*models.SystemSettings, error) {
	var settings models.SystemSettings
	err := r.db.GetContext(ctx, &settings, `SELECT * FROM system_settings WHERE id = 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

// InitSetupToken stores the bcrypt hash of a fresh setup token, creating the
// singleton row if needed. Only applies while setup is incomplete so a restart
// never rotates the token out from under an in-progress setup.
func (r *SettingsRepository) InitSetupToken(ctx context.Context, tokenHash string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO system_settings (id, setup_token_hash, setup_completed, updated_at)
		VALUES (1, $1, false, $2)
		ON CONFLICT (id) DO UPDATE SET setup_token_hash = $1, updated_at = $2
		WHERE system_settings.setup_completed = false`,
		tokenHash, time.Now().UTC(),
	)
	return err
}

// CompleteSetup marks setup as done and clears the token hash. The conditional
// predicate makes the one-time token single-use.
func (r *SettingsRepository) CompleteSetup(ctx context.Context, userID uuid.UUID) (bool, error) {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx, `
		UPDATE system_settings
		SET setup_completed = true, setup_token_hash = NULL,
		    setup_completed_at = $1, setup_completed_by = $2, updated_at = $1
		WHERE id = 1 AND setup_completed = false`,
		now, userID,
	)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}
