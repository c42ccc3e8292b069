// Package models - tag.go defines the normalized Tag entity. A tag name may
// also exist only in a project's default-tag soft list without a row here.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Tag represents a normalized tag entity scoped to one project
type Tag struct {
	ID        uuid.UUID `db:"id" json:"id"`
	ProjectID uuid.UUID `db:"project_id" json:"project_id"`
	Name      string    `db:"name" json:"name"`
	Color     *string   `db:"color" json:"color,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
