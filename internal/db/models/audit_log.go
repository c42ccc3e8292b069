// Package models - audit_log.go defines the AuditLog model: an immutable,
// append-only record of a workflow lifecycle event or other security-relevant
// action, capturing actor, action, affected resource, and arbitrary detail.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Audit actions emitted by the approval workflow. Decision outcomes
// (REQUEST_APPROVED / REQUEST_REJECTED) are written inside the same transaction
// as the status change; the remaining actions are best-effort lifecycle records.
const (
	AuditActionRequestCreated       = "REQUEST_CREATED"
	AuditActionRequestApproved      = "REQUEST_APPROVED"
	AuditActionRequestRejected      = "REQUEST_REJECTED"
	AuditActionRequestDuplicate     = "REQUEST_DUPLICATE"
	AuditActionRequestNotFound      = "REQUEST_DECISION_NOT_FOUND"
	AuditActionRequestDirectApplied = "REQUEST_DIRECT_APPLIED"
)

// AuditLog represents a single audit trail entry. Rows are never updated or
// deleted by the application.
type AuditLog struct {
	ID      uuid.UUID  `db:"id" json:"id"`
	ActorID *uuid.UUID `db:"actor_id" json:"actor_id,omitempty"` // Nullable for system actions

	Action       string  `db:"action" json:"action"` // "REQUEST_APPROVED", "entry.published", ...
	ResourceType *string `db:"resource_type" json:"resource_type,omitempty"`
	ResourceID   *string `db:"resource_id" json:"resource_id,omitempty"` // string, not uuid: soft targets like tag names are legal

	Details   map[string]interface{} `db:"-" json:"details,omitempty"` // JSONB: previous/next values, request kind, etc.
	IPAddress *string                `db:"ip_address" json:"ip_address,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
