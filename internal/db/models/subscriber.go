// Package models - subscriber.go defines the Subscriber model for email
// followers of a project's changelog. Delivery itself is handled by an
// external mailer; this service only owns the subscription records.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Subscriber represents an email subscription to a project's changelog
type Subscriber struct {
	ID        uuid.UUID `db:"id" json:"id"`
	ProjectID uuid.UUID `db:"project_id" json:"project_id"`
	Email     string    `db:"email" json:"email"`
	Confirmed bool      `db:"confirmed" json:"confirmed"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
