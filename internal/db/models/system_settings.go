// Package models - system_settings.go defines the singleton settings row used
// for first-run bootstrap: the setup token hash consumed when creating the
// initial admin account.
package models

import (
	"time"

	"github.com/google/uuid"
)

// SystemSettings is the singleton (id = 1) settings record
type SystemSettings struct {
	ID int `db:"id" json:"id"`

	// SetupTokenHash holds the bcrypt hash of the one-time setup token printed
	// to the logs on first boot; cleared once setup completes.
	SetupTokenHash   *string    `db:"setup_token_hash" json:"-"`
	SetupCompleted   bool       `db:"setup_completed" json:"setup_completed"`
	SetupCompletedAt *time.Time `db:"setup_completed_at" json:"setup_completed_at,omitempty"`
	SetupCompletedBy *uuid.UUID `db:"setup_completed_by" json:"setup_completed_by,omitempty"`

	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
