// Package models - user.go defines the User model. Authentication is performed
// by an external identity service that issues the JWTs this server verifies;
// the local row carries the role consulted by the access policy.
package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents an actor known to the workflow
type User struct {
	ID    uuid.UUID `db:"id" json:"id"`
	Email string    `db:"email" json:"email"`
	Name  string    `db:"name" json:"name"`

	// Role is one of "admin", "staff", "viewer" (see auth.Role)
	Role string `db:"role" json:"role"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
