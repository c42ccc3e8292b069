// audit_repository.go implements AuditRepository, providing append and query
// operations for the audit trail. Decision-outcome records are written through
// CreateTx so they share the orchestrator's transaction; lifecycle records use
// Create against the pool and are best-effort.
package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shiplog/shiplog-server/internal/db/models"
)

// AuditRepository handles audit log database operations
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository creates a new AuditRepository
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// AuditFilters contains filters for querying audit logs
type AuditFilters struct {
	ActorID      *uuid.UUID
	Action       *string
	ResourceType *string
	StartDate    *time.Time
	EndDate      *time.Time
}

// Create appends an audit log entry using the connection pool
func (r *AuditRepository) Create(ctx context.Context, log *models.AuditLog) error {
	return insertAuditLog(ctx, r.db, log)
}

// CreateTx appends an audit log entry inside an open transaction, so the
// record commits or rolls back together with the state change it describes
func (r *AuditRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, log *models.AuditLog) error {
	return insertAuditLog(ctx, tx, log)
}

func insertAuditLog(ctx context.Context, ext sqlx.ExtContext, log *models.AuditLog) error {
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}

	var detailsJSON []byte
	var err error
	if log.Details != nil {
		detailsJSON, err = json.Marshal(log.Details)
		if err != nil {
			return err
		}
	}

	query := `
		INSERT INTO audit_logs (id, actor_id, action, resource_type, resource_id, details, ip_address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = ext.ExecContext(ctx, query,
		log.ID, log.ActorID, log.Action,
		log.ResourceType, log.ResourceID, detailsJSON, log.IPAddress, log.CreatedAt,
	)
	return err
}

// List retrieves audit logs with optional filters and pagination, newest first
func (r *AuditRepository) List(ctx context.Context, filters AuditFilters, limit, offset int) ([]*models.AuditLog, int, error) {
	countQuery := `SELECT COUNT(*) FROM audit_logs WHERE 1=1`
	query := `
		SELECT id, actor_id, action, resource_type, resource_id, details, ip_address, created_at
		FROM audit_logs
		WHERE 1=1
	`

	args := make([]interface{}, 0)
	paramIndex := 1

	if filters.ActorID != nil {
		countQuery += fmt.Sprintf(` AND actor_id = $%d`, paramIndex)
		query += fmt.Sprintf(` AND actor_id = $%d`, paramIndex)
		args = append(args, *filters.ActorID)
		paramIndex++
	}
	if filters.Action != nil {
		countQuery += fmt.Sprintf(` AND action = $%d`, paramIndex)
		query += fmt.Sprintf(` AND action = $%d`, paramIndex)
		args = append(args, *filters.Action)
		paramIndex++
	}
	if filters.ResourceType != nil {
		countQuery += fmt.Sprintf(` AND resource_type = $%d`, paramIndex)
		query += fmt.Sprintf(` AND resource_type = $%d`, paramIndex)
		args = append(args, *filters.ResourceType)
		paramIndex++
	}
	if filters.StartDate != nil {
		countQuery += fmt.Sprintf(` AND created_at >= $%d`, paramIndex)
		query += fmt.Sprintf(` AND created_at >= $%d`, paramIndex)
		args = append(args, *filters.StartDate)
		paramIndex++
	}
	if filters.EndDate != nil {
		countQuery += fmt.Sprintf(` AND created_at <= $%d`, paramIndex)
		query += fmt.Sprintf(` AND created_at <= $%d`, paramIndex)
		args = append(args, *filters.EndDate)
		paramIndex++
	}

	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, paramIndex, paramIndex+1)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	logs := make([]*models.AuditLog, 0)
	for rows.Next() {
		log := &models.AuditLog{}
		var detailsJSON []byte

		err := rows.Scan(
			&log.ID, &log.ActorID, &log.Action,
			&log.ResourceType, &log.ResourceID, &detailsJSON, &log.IPAddress, &log.CreatedAt,
		)
		if err != nil {
			return nil, 0, err
		}

		if detailsJSON != nil {
			if err := json.Unmarshal(detailsJSON, &log.Details); err != nil {
				return nil, 0, err
			}
		}

		logs = append(logs, log)
	}

	return logs, total, rows.Err()
}

// GetByID retrieves a single audit log entry, or (nil, nil) when none exists
func (r *AuditRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.AuditLog, error) {
	query := `
		SELECT id, actor_id, action, resource_type, resource_id, details, ip_address, created_at
		FROM audit_logs
		WHERE id = $1
	`

	log := &models.AuditLog{}
	var detailsJSON []byte

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&log.ID, &log.ActorID, &log.Action,
		&log.ResourceType, &log.ResourceID, &detailsJSON, &log.IPAddress, &log.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if detailsJSON != nil {
		if err := json.Unmarshal(detailsJSON, &log.Details); err != nil {
			return nil, err
		}
	}

	return log, nil
}
