// Package models - request.go defines the Request model for the approval workflow:
// a proposed mutation created by staff that an admin must approve or reject before
// the underlying change is applied.
package models

import (
	"time"

	"github.com/google/uuid"
)

// RequestStatus represents the lifecycle state of a workflow request
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusApproved RequestStatus = "approved"
	RequestStatusRejected RequestStatus = "rejected"
)

// RequestKind identifies which mutation a request proposes. Every kind must have
// a processor registered in the workflow registry before it can be approved.
type RequestKind string

const (
	RequestKindDeleteProject RequestKind = "delete_project"
	RequestKindDeleteTag     RequestKind = "delete_tag"
	RequestKindDeleteEntry   RequestKind = "delete_entry"
	RequestKindAllowPublish  RequestKind = "allow_publish"
	RequestKindAllowSchedule RequestKind = "allow_schedule"
)

// AllRequestKinds lists every kind the server accepts. The workflow registry is
// verified against this list at startup so a kind without a processor is a boot
// failure, not a silent runtime gap.
var AllRequestKinds = []RequestKind{
	RequestKindDeleteProject,
	RequestKindDeleteTag,
	RequestKindDeleteEntry,
	RequestKindAllowPublish,
	RequestKindAllowSchedule,
}

// IsValid reports whether k is a known request kind
func (k RequestKind) IsValid() bool {
	for _, known := range AllRequestKinds {
		if k == known {
			return true
		}
	}
	return false
}

// IsDestructive reports whether the kind removes domain entities. Destructive
// kinds always route through approval for staff, regardless of project flags.
func (k RequestKind) IsDestructive() bool {
	switch k {
	case RequestKindDeleteProject, RequestKindDeleteTag, RequestKindDeleteEntry:
		return true
	}
	return false
}

// Request represents a proposed mutation awaiting or having received a decision
type Request struct {
	ID     uuid.UUID     `db:"id" json:"id"`
	Kind   RequestKind   `db:"kind" json:"kind"`
	Status RequestStatus `db:"status" json:"status"`

	// Who proposed it and, once decided, who reviewed it
	ProposerID uuid.UUID  `db:"proposer_id" json:"proposer_id"`
	ReviewerID *uuid.UUID `db:"reviewer_id" json:"reviewer_id,omitempty"`

	// What it targets. ProjectID is required for every kind; TargetID is a
	// kind-dependent secondary reference (e.g. a tag name for delete_tag) and
	// EntryID is set by entry-scoped kinds.
	ProjectID uuid.UUID  `db:"project_id" json:"project_id"`
	TargetID  *string    `db:"target_id" json:"target_id,omitempty"`
	EntryID   *uuid.UUID `db:"entry_id" json:"entry_id,omitempty"`

	Reason string `db:"reason" json:"reason,omitempty"`

	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	ReviewedAt *time.Time `db:"reviewed_at" json:"reviewed_at,omitempty"`

	// Joined fields (not in DB)
	ProposerEmail string `db:"-" json:"proposer_email,omitempty"`
	ReviewerEmail string `db:"-" json:"reviewer_email,omitempty"`
	ProjectName   string `db:"-" json:"project_name,omitempty"`
}

// IsPending reports whether the request is still awaiting a decision
func (r *Request) IsPending() bool {
	return r.Status == RequestStatusPending
}

// IsTerminal reports whether the request has received its one-and-only decision
func (r *Request) IsTerminal() bool {
	return r.Status == RequestStatusApproved || r.Status == RequestStatusRejected
}
