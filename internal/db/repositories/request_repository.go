// request_repository.go implements RequestRepository, providing database
// queries for workflow request rows. The status column is only ever changed
// through MarkDecided's conditional update; everything else is read or insert.
package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shiplog/shiplog-server/internal/db/models"
)

// RequestRepository handles workflow request database operations
type RequestRepository struct {
	db *sqlx.DB
}

// NewRequestRepository creates a new RequestRepository
func NewRequestRepository(db *sqlx.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// RequestFilters contains filters for querying requests
type RequestFilters struct {
	ProjectID *uuid.UUID
	Status    *models.RequestStatus
	Kind      *models.RequestKind
}

// Create persists a new pending request
func (r *RequestRepository) Create(ctx context.Context, req *models.Request) error {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	req.Status = models.RequestStatusPending
	req.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO requests (id, kind, status, proposer_id, project_id, target_id, entry_id, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		req.ID, req.Kind, req.Status, req.ProposerID,
		req.ProjectID, req.TargetID, req.EntryID, req.Reason, req.CreatedAt,
	)
	return err
}

// GetByID retrieves a request by id, or (nil, nil) when no row exists
func (r *RequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Request, error) {
	var req models.Request
	query := `SELECT * FROM requests WHERE id = $1`
	err := r.db.GetContext(ctx, &req, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// FindPending returns an existing pending request matching (kind, project,
// target), or (nil, nil). Used by the orchestrator's duplicate screen; this is
// a best-effort check, not a stored uniqueness invariant.
func (r *RequestRepository) FindPending(ctx context.Context, kind models.RequestKind, projectID uuid.UUID, targetID *string) (*models.Request, error) {
	var req models.Request
	query := `
		SELECT * FROM requests
		WHERE kind = $1 AND project_id = $2 AND status = 'pending'
		  AND target_id IS NOT DISTINCT FROM $3
		LIMIT 1
	`
	err := r.db.GetContext(ctx, &req, query, kind, projectID, targetID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// MarkDecided performs the terminal transition as a single conditional update
// inside the caller's transaction. It returns false, without error, when the
// request was not pending at update time because a concurrent decision won.
// Expressing the check in the WHERE clause, rather than read-then-write, is
// what makes two racing decisions on the same request resolve to exactly one
// winner.
func (r *RequestRepository) MarkDecided(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status models.RequestStatus, reviewerID uuid.UUID, reviewedAt time.Time) (bool, error) {
	query := `
		UPDATE requests
		SET status = $2, reviewer_id = $3, reviewed_at = $4
		WHERE id = $1 AND status = 'pending'
	`
	res, err := tx.ExecContext(ctx, query, id, status, reviewerID, reviewedAt)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// List retrieves requests with optional filters and pagination, newest first,
// with proposer/reviewer emails and the project name joined in.
func (r *RequestRepository) List(ctx context.Context, filters RequestFilters, limit, offset int) ([]*models.Request, int, error) {
	countQuery := `SELECT COUNT(*) FROM requests r WHERE 1=1`
	query := `
		SELECT r.id, r.kind, r.status, r.proposer_id, r.reviewer_id, r.project_id,
		       r.target_id, r.entry_id, r.reason, r.created_at, r.reviewed_at,
		       COALESCE(pu.email, '') AS proposer_email,
		       COALESCE(ru.email, '') AS reviewer_email,
		       COALESCE(p.name, '') AS project_name
		FROM requests r
		LEFT JOIN users pu ON pu.id = r.proposer_id
		LEFT JOIN users ru ON ru.id = r.reviewer_id
		LEFT JOIN projects p ON p.id = r.project_id
		WHERE 1=1
	`

	args := make([]interface{}, 0)
	paramIndex := 1

	if filters.ProjectID != nil {
		countQuery += fmt.Sprintf(` AND r.project_id = $%d`, paramIndex)
		query += fmt.Sprintf(` AND r.project_id = $%d`, paramIndex)
		args = append(args, *filters.ProjectID)
		paramIndex++
	}
	if filters.Status != nil {
		countQuery += fmt.Sprintf(` AND r.status = $%d`, paramIndex)
		query += fmt.Sprintf(` AND r.status = $%d`, paramIndex)
		args = append(args, *filters.Status)
		paramIndex++
	}
	if filters.Kind != nil {
		countQuery += fmt.Sprintf(` AND r.kind = $%d`, paramIndex)
		query += fmt.Sprintf(` AND r.kind = $%d`, paramIndex)
		args = append(args, *filters.Kind)
		paramIndex++
	}

	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY r.created_at DESC LIMIT $%d OFFSET $%d`, paramIndex, paramIndex+1)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	requests := make([]*models.Request, 0)
	for rows.Next() {
		req := &models.Request{}
		err := rows.Scan(
			&req.ID, &req.Kind, &req.Status, &req.ProposerID, &req.ReviewerID,
			&req.ProjectID, &req.TargetID, &req.EntryID, &req.Reason,
			&req.CreatedAt, &req.ReviewedAt,
			&req.ProposerEmail, &req.ReviewerEmail, &req.ProjectName,
		)
		if err != nil {
			return nil, 0, err
		}
		requests = append(requests, req)
	}

	return requests, total, rows.Err()
}

// CountPendingForProject returns the number of pending requests for a project
func (r *RequestRepository) CountPendingForProject(ctx context.Context, projectID uuid.UUID) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM requests WHERE project_id = $1 AND status = 'pending'`
	err := r.db.GetContext(ctx, &count, query, projectID)
	return count, err
}
