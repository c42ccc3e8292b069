// orchestrator.go implements the workflow orchestrator: the request lifecycle
// controller. It owns every write to the request row, runs the terminal
// transition and the approved mutation in one transaction, and writes the audit
// trail. Processors never touch the request row; the orchestrator never touches
// domain entities directly.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shiplog/shiplog-server/internal/auth"
	"github.com/shiplog/shiplog-server/internal/db/models"
	"github.com/shiplog/shiplog-server/internal/db/repositories"
	"github.com/shiplog/shiplog-server/internal/telemetry"
)

// Orchestrator coordinates the approval workflow
type Orchestrator struct {
	db       *sqlx.DB
	registry *Registry
	requests *repositories.RequestRepository
	projects *repositories.ProjectRepository
	audit    *repositories.AuditRepository
}

// NewOrchestrator creates an Orchestrator and verifies the registry covers
// every request kind the server accepts. A missing processor is a startup
// error, not something discovered when an admin clicks approve.
func NewOrchestrator(db *sqlx.DB, registry *Registry) (*Orchestrator, error) {
	if err := registry.VerifyComplete(models.AllRequestKinds); err != nil {
		return nil, fmt.Errorf("workflow registry incomplete: %w", err)
	}
	return &Orchestrator{
		db:       db,
		registry: registry,
		requests: repositories.NewRequestRepository(db),
		projects: repositories.NewProjectRepository(db),
		audit:    repositories.NewAuditRepository(db),
	}, nil
}

// SubmitInput describes an intended mutation submitted by an actor
type SubmitInput struct {
	Kind      models.RequestKind
	ActorID   uuid.UUID
	Role      auth.Role
	ProjectID uuid.UUID
	TargetID  *string
	EntryID   *uuid.UUID
	Reason    string
	IPAddress string
}

// SubmitResult reports how a submitted mutation was handled
type SubmitResult struct {
	// Request is the persisted pending request, or the in-memory record of a
	// direct apply (never persisted as pending in that case)
	Request *models.Request
	// Applied is true when the access policy allowed a direct apply and the
	// mutation has already been executed
	Applied bool
}

// Submit routes an intended mutation through the access policy: deny it,
// persist it as a pending request, or apply it immediately.
func (o *Orchestrator) Submit(ctx context.Context, in SubmitInput) (*SubmitResult, error) {
	if !in.Kind.IsValid() {
		return nil, &ValidationError{Field: "kind", Reason: fmt.Sprintf("unknown request kind %q", in.Kind)}
	}
	if in.ProjectID == uuid.Nil {
		return nil, &ValidationError{Field: "project_id", Reason: "project id is required"}
	}

	project, err := o.projects.GetByID(ctx, in.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load project: %w", err)
	}
	if project == nil {
		return nil, &NotFoundError{Resource: "project", ID: in.ProjectID.String()}
	}

	req := &models.Request{
		ID:         uuid.New(),
		Kind:       in.Kind,
		Status:     models.RequestStatusPending,
		ProposerID: in.ActorID,
		ProjectID:  in.ProjectID,
		TargetID:   in.TargetID,
		EntryID:    in.EntryID,
		Reason:     in.Reason,
	}
	if err := ValidatePayload(req); err != nil {
		return nil, err
	}

	switch EvaluatePolicy(in.Role, in.Kind, project) {
	case OutcomeDeny:
		return nil, ErrForbidden

	case OutcomeApplyDirectly:
		if err := o.applyDirectly(ctx, req, in); err != nil {
			return nil, err
		}
		telemetry.WorkflowDirectAppliesTotal.WithLabelValues(string(in.Kind)).Inc()
		return &SubmitResult{Request: req, Applied: true}, nil

	default: // OutcomeCreateRequest
		existing, err := o.requests.FindPending(ctx, in.Kind, in.ProjectID, in.TargetID)
		if err != nil {
			return nil, fmt.Errorf("failed to check for duplicate request: %w", err)
		}
		if existing != nil {
			o.auditBestEffort(ctx, &models.AuditLog{
				ActorID:      &in.ActorID,
				Action:       models.AuditActionRequestDuplicate,
				ResourceType: strPtr("request"),
				ResourceID:   strPtr(existing.ID.String()),
				Details:      requestDetails(req),
				IPAddress:    ipPtr(in.IPAddress),
			})
			return nil, &DuplicateRequestError{ExistingID: existing.ID}
		}

		if err := o.requests.Create(ctx, req); err != nil {
			return nil, fmt.Errorf("failed to persist request: %w", err)
		}
		o.auditBestEffort(ctx, &models.AuditLog{
			ActorID:      &in.ActorID,
			Action:       models.AuditActionRequestCreated,
			ResourceType: strPtr("request"),
			ResourceID:   strPtr(req.ID.String()),
			Details:      requestDetails(req),
			IPAddress:    ipPtr(in.IPAddress),
		})
		telemetry.WorkflowRequestsCreatedTotal.WithLabelValues(string(in.Kind)).Inc()
		return &SubmitResult{Request: req}, nil
	}
}

// applyDirectly runs the mutation immediately for actors the policy exempts
// from review. The processor and the audit record share one transaction, the
// same guarantee an approval gets.
func (o *Orchestrator) applyDirectly(ctx context.Context, req *models.Request, in SubmitInput) error {
	processor, err := o.registry.Resolve(req.Kind)
	if err != nil {
		return err
	}

	tx, err := o.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := processor.Apply(ctx, tx, req); err != nil {
		telemetry.WorkflowProcessorFailuresTotal.WithLabelValues(string(req.Kind)).Inc()
		return wrapProcessorErr(req.Kind, err)
	}

	if err := o.audit.CreateTx(ctx, tx, &models.AuditLog{
		ActorID:      &in.ActorID,
		Action:       models.AuditActionRequestDirectApplied,
		ResourceType: strPtr("request"),
		ResourceID:   strPtr(req.ID.String()),
		Details:      requestDetails(req),
		IPAddress:    ipPtr(in.IPAddress),
	}); err != nil {
		return fmt.Errorf("failed to write audit record: %w", err)
	}

	return tx.Commit()
}

// Decide applies a reviewer's decision to a pending request.
//
// The terminal transition, the approved mutation, and the decision audit record
// share one transaction, so "decision recorded" and "mutation applied" can
// never be observed inconsistently. The transition itself is a conditional
// update; a concurrent decision that loses the race gets AlreadyProcessedError,
// never a double apply.
func (o *Orchestrator) Decide(ctx context.Context, requestID uuid.UUID, decision models.RequestStatus, reviewerID uuid.UUID, ipAddress string) (*models.Request, error) {
	if decision != models.RequestStatusApproved && decision != models.RequestStatusRejected {
		return nil, &ValidationError{Field: "decision", Reason: fmt.Sprintf("must be %q or %q", models.RequestStatusApproved, models.RequestStatusRejected)}
	}

	req, err := o.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load request: %w", err)
	}
	if req == nil {
		o.auditBestEffort(ctx, &models.AuditLog{
			ActorID:      &reviewerID,
			Action:       models.AuditActionRequestNotFound,
			ResourceType: strPtr("request"),
			ResourceID:   strPtr(requestID.String()),
			IPAddress:    ipPtr(ipAddress),
		})
		return nil, &NotFoundError{Resource: "request", ID: requestID.String()}
	}
	if req.IsTerminal() {
		// Benign: a retried decision on an already-decided request. Report the
		// current state instead of failing destructively.
		return req, &AlreadyProcessedError{RequestID: req.ID, Status: req.Status}
	}

	now := time.Now().UTC()

	tx, err := o.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	won, err := o.requests.MarkDecided(ctx, tx, req.ID, decision, reviewerID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to update request status: %w", err)
	}
	if !won {
		// A concurrent decision committed between our read and our update.
		tx.Rollback()
		current, err := o.requests.GetByID(ctx, requestID)
		if err != nil || current == nil {
			return nil, &AlreadyProcessedError{RequestID: requestID, Status: models.RequestStatus("unknown")}
		}
		return current, &AlreadyProcessedError{RequestID: current.ID, Status: current.Status}
	}

	if decision == models.RequestStatusApproved {
		processor, err := o.registry.Resolve(req.Kind)
		if err != nil {
			// No processor: the transaction aborts and the request stays
			// pending. Marking it approved with no mutation applied is the one
			// outcome this subsystem must never produce.
			return nil, err
		}
		if err := processor.Apply(ctx, tx, req); err != nil {
			telemetry.WorkflowProcessorFailuresTotal.WithLabelValues(string(req.Kind)).Inc()
			return nil, wrapProcessorErr(req.Kind, err)
		}
	}

	action := models.AuditActionRequestRejected
	if decision == models.RequestStatusApproved {
		action = models.AuditActionRequestApproved
	}
	details := requestDetails(req)
	details["reviewer_id"] = reviewerID.String()
	details["reviewed_at"] = now.Format(time.RFC3339)
	if err := o.audit.CreateTx(ctx, tx, &models.AuditLog{
		ActorID:      &reviewerID,
		Action:       action,
		ResourceType: strPtr("request"),
		ResourceID:   strPtr(req.ID.String()),
		Details:      details,
		IPAddress:    ipPtr(ipAddress),
	}); err != nil {
		return nil, fmt.Errorf("failed to write audit record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit decision: %w", err)
	}

	req.Status = decision
	req.ReviewerID = &reviewerID
	req.ReviewedAt = &now
	telemetry.WorkflowDecisionsTotal.WithLabelValues(string(req.Kind), string(decision)).Inc()
	return req, nil
}

// GetRequest loads a request by id for read-only callers
func (o *Orchestrator) GetRequest(ctx context.Context, id uuid.UUID) (*models.Request, error) {
	req, err := o.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, &NotFoundError{Resource: "request", ID: id.String()}
	}
	return req, nil
}

// ListRequests lists requests with filters and pagination
func (o *Orchestrator) ListRequests(ctx context.Context, filters repositories.RequestFilters, limit, offset int) ([]*models.Request, int, error) {
	return o.requests.List(ctx, filters, limit, offset)
}

// auditBestEffort writes a lifecycle audit record outside any transaction.
// Failures are logged, never propagated: these records are observability, not
// correctness. The decision-outcome record is different and always goes
// through CreateTx.
func (o *Orchestrator) auditBestEffort(ctx context.Context, log *models.AuditLog) {
	if err := o.audit.Create(ctx, log); err != nil {
		slog.Warn("failed to write audit record", "action", log.Action, "error", err)
	}
}

func wrapProcessorErr(kind models.RequestKind, err error) error {
	switch err.(type) {
	case *ValidationError:
		return err
	}
	return &ProcessorExecutionError{Kind: kind, Err: err}
}

func requestDetails(req *models.Request) map[string]interface{} {
	details := map[string]interface{}{
		"kind":        string(req.Kind),
		"project_id":  req.ProjectID.String(),
		"proposer_id": req.ProposerID.String(),
	}
	if req.TargetID != nil {
		details["target_id"] = *req.TargetID
	}
	if req.EntryID != nil {
		details["entry_id"] = req.EntryID.String()
	}
	return details
}

func strPtr(s string) *string { return &s }

func ipPtr(ip string) *string {
	if ip == "" {
		return nil
	}
	return &ip
}
