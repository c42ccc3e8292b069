// Package models - entry.go defines the changelog Entry model and its
// draft → scheduled → published lifecycle.
package models

import (
	"time"

	"github.com/google/uuid"
)

// EntryStatus represents the publication state of a changelog entry
type EntryStatus string

const (
	EntryStatusDraft     EntryStatus = "draft"
	EntryStatusScheduled EntryStatus = "scheduled"
	EntryStatusPublished EntryStatus = "published"
)

// Entry represents a single changelog entry
type Entry struct {
	ID          uuid.UUID   `db:"id" json:"id"`
	ChangelogID uuid.UUID   `db:"changelog_id" json:"changelog_id"`
	Title       string      `db:"title" json:"title"`
	Body        string      `db:"body" json:"body"`
	Status      EntryStatus `db:"status" json:"status"`

	// PublishAt is set when the entry is scheduled; the publish runner flips
	// the entry to published once it passes. ScheduleApproved is the entry-level
	// grant flipped by an approved allow_schedule request.
	PublishAt        *time.Time `db:"publish_at" json:"publish_at,omitempty"`
	PublishedAt      *time.Time `db:"published_at" json:"published_at,omitempty"`
	ScheduleApproved bool       `db:"schedule_approved" json:"schedule_approved"`

	CreatedBy *uuid.UUID `db:"created_by" json:"created_by,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// IsPublished reports whether the entry is publicly visible
func (e *Entry) IsPublished() bool {
	return e.Status == EntryStatusPublished
}
