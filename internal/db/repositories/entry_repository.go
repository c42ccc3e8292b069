// entry_repository.go implements EntryRepository, providing database queries
// for changelog entries and their draft/scheduled/published lifecycle. The
// scheduled-to-published flip for due entries lives here too and is shared by
// the background publish runner.
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

// EntryRepository handles changelog entry database operations
type EntryRepository struct {
	db *sqlx.DB
}

// NewEntryRepository creates a new EntryRepository
func NewEntryRepository(db *sqlx.DB) *EntryRepository {
	return &EntryRepository{db: db}
}

// EntryFilters contains filters for querying entries
type EntryFilters struct {
	ChangelogID *uuid.UUID
	Status      *models.EntryStatus
}

// Create persists a new draft entry
func (r *EntryRepository) Create(ctx context.Context, entry *models.Entry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.Status == "" {
		entry.Status = models.EntryStatusDraft
	}
	now := time.Now().UTC()
	entry.CreatedAt = now
	entry.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO entries (id, changelog_id, title, body, status, publish_at, published_at, schedule_approved, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		entry.ID, entry.ChangelogID, entry.Title, entry.Body, entry.Status,
		entry.PublishAt, entry.PublishedAt, entry.ScheduleApproved,
		entry.CreatedBy, entry.CreatedAt, entry.UpdatedAt,
	)
	return err
}

// GetByID retrieves an entry by id, or (nil, nil) when no row exists
func (r *EntryRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Entry, error) {
	var entry models.Entry
	err := r.db.GetContext(ctx, &entry, `SELECT * FROM entries WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// List retrieves entries with optional filters and pagination, newest first
func (r *EntryRepository) List(ctx context.Context, filters EntryFilters, limit, offset int) ([]*models.Entry, int, error) {
	countQuery := `SELECT COUNT(*) FROM entries WHERE 1=1`
	query := `SELECT * FROM entries WHERE 1=1`

	args := make([]interface{}, 0)
	paramIndex := 1

	if filters.ChangelogID != nil {
		countQuery += fmt.Sprintf(` AND changelog_id = $%d`, paramIndex)
		query += fmt.Sprintf(` AND changelog_id = $%d`, paramIndex)
		args = append(args, *filters.ChangelogID)
		paramIndex++
	}
	if filters.Status != nil {
		countQuery += fmt.Sprintf(` AND status = $%d`, paramIndex)
		query += fmt.Sprintf(` AND status = $%d`, paramIndex)
		args = append(args, *filters.Status)
		paramIndex++
	}

	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, paramIndex, paramIndex+1)
	args = append(args, limit, offset)

	var entries []*models.Entry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// ListPublished retrieves published entries for a changelog, most recently
// published first. This backs the public changelog feed.
func (r *EntryRepository) ListPublished(ctx context.Context, changelogID uuid.UUID, limit, offset int) ([]*models.Entry, error) {
	var entries []*models.Entry
	err := r.db.SelectContext(ctx, &entries, `
		SELECT * FROM entries
		WHERE changelog_id = $1 AND status = $2
		ORDER BY published_at DESC
		LIMIT $3 OFFSET $4`,
		changelogID, models.EntryStatusPublished, limit, offset)
	return entries, err
}

// Update persists changes to a draft entry's content fields
func (r *EntryRepository) Update(ctx context.Context, entry *models.Entry) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE entries SET title = $2, body = $3, updated_at = $4
		WHERE id = $1`,
		entry.ID, entry.Title, entry.Body, time.Now().UTC(),
	)
	return err
}

// Publish flips an entry to published immediately. The conditional predicate
// keeps a republish from clobbering the original published_at timestamp.
func (r *EntryRepository) Publish(ctx context.Context, id uuid.UUID) (bool, error) {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx, `
		UPDATE entries SET status = $2, published_at = $3, publish_at = NULL, updated_at = $3
		WHERE id = $1 AND status != $2`,
		id, models.EntryStatusPublished, now,
	)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// Schedule marks an entry as scheduled for the given publish time
func (r *EntryRepository) Schedule(ctx context.Context, id uuid.UUID, publishAt time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE entries SET status = $2, publish_at = $3, updated_at = $4
		WHERE id = $1 AND status = $5`,
		id, models.EntryStatusScheduled, publishAt.UTC(), time.Now().UTC(), models.EntryStatusDraft,
	)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// PublishDue flips every scheduled entry whose publish time has passed to
// published and returns the ids affected. Called by the publish runner on each
// tick; the single conditional UPDATE makes concurrent runners harmless.
func (r *EntryRepository) PublishDue(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx, `
		UPDATE entries SET status = $1, published_at = $2, updated_at = $2
		WHERE status = $3 AND publish_at <= $2
		RETURNING id`,
		models.EntryStatusPublished, now.UTC(), models.EntryStatusScheduled,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SetTags replaces the entry's tag set inside one transaction
func (r *EntryRepository) SetTags(ctx context.Context, entryID uuid.UUID, tagIDs []uuid.UUID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM entry_tags WHERE entry_id = $1`, entryID); err != nil {
		return err
	}
	for _, tagID := range tagIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO entry_tags (entry_id, tag_id) VALUES ($1, $2)`, entryID, tagID); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetTags retrieves the tags attached to an entry
func (r *EntryRepository) GetTags(ctx context.Context, entryID uuid.UUID) ([]*models.Tag, error) {
	var tags []*models.Tag
	err := r.db.SelectContext(ctx, &tags, `
		SELECT t.* FROM tags t
		JOIN entry_tags et ON et.tag_id = t.id
		WHERE et.entry_id = $1
		ORDER BY t.name`, entryID)
	return tags, err
}
