// tag_repository.go implements TagRepository for the normalized tag entities.
// Tag deletion is absent on purpose: it only happens through the workflow's
// delete_tag processor, which also removes the soft default-tag list entry.
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

// TagRepository handles tag database operations
type TagRepository struct {
	db *sqlx.DB
}

// NewTagRepository creates a new TagRepository
func NewTagRepository(db *sqlx.DB) *TagRepository {
	return &TagRepository{db: db}
}

// Create persists a new tag
func (r *TagRepository) Create(ctx context.Context, tag *models.Tag) error {
	if tag.ID == uuid.Nil {
		tag.ID = uuid.New()
	}
	tag.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tags (id, project_id, name, color, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		tag.ID, tag.ProjectID, tag.Name, tag.Color, tag.CreatedAt,
	)
	return err
}

// GetByID retrieves a tag by id, or (nil, nil) when no row exists
func (r *TagRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Tag, error) {
	var tag models.Tag
	err := r.db.GetContext(ctx, &tag, `SELECT * FROM tags WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tag, nil
}

// GetByName retrieves a project's tag by name, or (nil, nil) when no row exists
func (r *TagRepository) GetByName(ctx context.Context, projectID uuid.UUID, name string) (*models.Tag, error) {
	var tag models.Tag
	err := r.db.GetContext(ctx, &tag,
		`SELECT * FROM tags WHERE project_id = $1 AND name = $2`, projectID, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tag, nil
}

// ListByProject retrieves all tags for a project ordered by name
func (r *TagRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.Tag, error) {
	var tags []*models.Tag
	err := r.db.SelectContext(ctx, &tags,
		`SELECT * FROM tags WHERE project_id = $1 ORDER BY name`, projectID)
	return tags, err
}
