// subscriber_repository.go implements SubscriberRepository for a project's
// email followers.
package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shiplog/shiplog-server/internal/db/models"
)

// SubscriberRepository handles subscriber database operations
type SubscriberRepository struct {
	db *sqlx.DB
}

// NewSubscriberRepository creates a new SubscriberRepository
func NewSubscriberRepository(db *sqlx.DB) *SubscriberRepository {
	return &SubscriberRepository{db: db}
}

// Create persists a new subscription. The unique constraint on
// (project_id, email) surfaces duplicates as a database error.
func (r *SubscriberRepository) Create(ctx context.Context, sub *models.Subscriber) error {
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	sub.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO subscribers (id, project_id, email, confirmed, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		sub.ID, sub.ProjectID, sub.Email, sub.Confirmed, sub.CreatedAt,
	)
	return err
}

// GetByEmail retrieves a project's subscription for an email address, or
// (nil, nil) when none exists
func (r *SubscriberRepository) GetByEmail(ctx context.Context, projectID uuid.UUID, email string) (*models.Subscriber, error) {
	var sub models.Subscriber
	err := r.db.GetContext(ctx, &sub,
		`SELECT * FROM subscribers WHERE project_id = $1 AND email = $2`, projectID, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// ListByProject retrieves a project's subscribers with pagination
func (r *SubscriberRepository) ListByProject(ctx context.Context, projectID uuid.UUID, limit, offset int) ([]*models.Subscriber, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM subscribers WHERE project_id = $1`, projectID); err != nil {
		return nil, 0, err
	}

	var subs []*models.Subscriber
	err := r.db.SelectContext(ctx, &subs, `
		SELECT * FROM subscribers WHERE project_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		projectID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return subs, total, nil
}

// Confirm marks a subscription as confirmed
func (r *SubscriberRepository) Confirm(ctx context.Context, id uuid.UUID) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE subscribers SET confirmed = true WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// Delete removes a subscription. Unsubscribe is self-service and not gated by
// the approval workflow.
func (r *SubscriberRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM subscribers WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}
