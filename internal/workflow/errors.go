// errors.go defines the error taxonomy for the approval workflow. Handlers map
// these onto HTTP statuses; the orchestrator uses them to decide what aborts a
// transaction and what is merely informational.
package workflow

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shiplog/shiplog-server/internal/db/models"
)

// ErrForbidden is returned when the access policy denies the actor outright.
var ErrForbidden = errors.New("actor is not permitted to perform this mutation")

// ValidationError reports malformed input. No state is changed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError reports a missing entity: either the request being decided or a
// domain entity a processor needs. When raised inside a processor it aborts the
// whole approval transaction.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// AlreadyProcessedError reports a decision against a request that has already
// left pending. It is informational, not fatal: duplicate decision submissions
// are an expected race in a multi-admin UI, so callers receive the current
// state rather than a hard failure.
type AlreadyProcessedError struct {
	RequestID uuid.UUID
	Status    models.RequestStatus
}

func (e *AlreadyProcessedError) Error() string {
	return fmt.Sprintf("request %s already processed (status %s)", e.RequestID, e.Status)
}

// UnknownProcessorError reports a request kind with no registered processor at
// approval time. Fatal: approving it would record an approval with no mutation
// applied, so the transaction is aborted and the request stays pending.
type UnknownProcessorError struct {
	Kind models.RequestKind
}

func (e *UnknownProcessorError) Error() string {
	return fmt.Sprintf("no processor registered for request kind %q", e.Kind)
}

// DuplicateRequestError reports that an identical (kind, project, target)
// request is already pending.
type DuplicateRequestError struct {
	ExistingID uuid.UUID
}

func (e *DuplicateRequestError) Error() string {
	return fmt.Sprintf("an identical request is already pending (id %s)", e.ExistingID)
}

// ProcessorExecutionError wraps a failure raised while applying an approved
// mutation. Fatal: the enclosing transaction is rolled back, status update
// included, and the request remains pending.
type ProcessorExecutionError struct {
	Kind models.RequestKind
	Err  error
}

func (e *ProcessorExecutionError) Error() string {
	return fmt.Sprintf("processor %q failed: %v", e.Kind, e.Err)
}

func (e *ProcessorExecutionError) Unwrap() error {
	return e.Err
}
