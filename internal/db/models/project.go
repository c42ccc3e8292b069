// Package models - project.go defines the Project model and its per-project
// workflow flags, plus the Changelog container that owns a project's entries.
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Project represents a product whose changelog is published through Shiplog
type Project struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Slug        string    `db:"slug" json:"slug"`
	Description *string   `db:"description" json:"description,omitempty"`

	// Workflow flags consulted by the access policy:
	// RequireApproval forces staff publish/schedule mutations through review;
	// AllowAutoPublish lets staff publish directly even when approval is required
	// elsewhere. Destructive mutations ignore both and always need review.
	RequireApproval  bool `db:"require_approval" json:"require_approval"`
	AllowAutoPublish bool `db:"allow_auto_publish" json:"allow_auto_publish"`

	// DefaultTags is the project's soft tag list: names offered in the editor
	// without necessarily having a normalized tag row behind them.
	DefaultTags pq.StringArray `db:"default_tags" json:"default_tags"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Changelog is the container for a project's entries. One per project.
type Changelog struct {
	ID        uuid.UUID `db:"id" json:"id"`
	ProjectID uuid.UUID `db:"project_id" json:"project_id"`
	Title     string    `db:"title" json:"title"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
