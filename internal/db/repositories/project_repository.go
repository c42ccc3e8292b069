// project_repository.go implements ProjectRepository, providing database
// queries for projects and their changelog containers. Project deletion is
// deliberately absent: it only happens through the workflow's delete_project
// processor.
package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shiplog/shiplog-server/internal/db/models"
)

// ProjectRepository handles project database operations
type ProjectRepository struct {
	db *sqlx.DB
}

// NewProjectRepository creates a new ProjectRepository
func NewProjectRepository(db *sqlx.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Create persists a new project together with its changelog container
func (r *ProjectRepository) Create(ctx context.Context, project *models.Project) error {
	if project.ID == uuid.Nil {
		project.ID = uuid.New()
	}
	now := time.Now().UTC()
	project.CreatedAt = now
	project.UpdatedAt = now
	if project.DefaultTags == nil {
		project.DefaultTags = pq.StringArray{}
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO projects (id, name, slug, description, require_approval, allow_auto_publish, default_tags, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		project.ID, project.Name, project.Slug, project.Description,
		project.RequireApproval, project.AllowAutoPublish, project.DefaultTags,
		project.CreatedAt, project.UpdatedAt,
	)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO changelogs (id, project_id, title, created_at)
		VALUES ($1, $2, $3, $4)`,
		uuid.New(), project.ID, project.Name+" changelog", now,
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// GetByID retrieves a project by id, or (nil, nil) when no row exists
func (r *ProjectRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	var project models.Project
	err := r.db.GetContext(ctx, &project, `SELECT * FROM projects WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &project, nil
}

// GetBySlug retrieves a project by slug, or (nil, nil) when no row exists
func (r *ProjectRepository) GetBySlug(ctx context.Context, slug string) (*models.Project, error) {
	var project models.Project
	err := r.db.GetContext(ctx, &project, `SELECT * FROM projects WHERE slug = $1`, slug)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &project, nil
}

// GetByChangelogID retrieves the project owning a changelog, or (nil, nil)
// when no row exists
func (r *ProjectRepository) GetByChangelogID(ctx context.Context, changelogID uuid.UUID) (*models.Project, error) {
	var project models.Project
	err := r.db.GetContext(ctx, &project, `
		SELECT p.* FROM projects p
		JOIN changelogs c ON c.project_id = p.id
		WHERE c.id = $1`, changelogID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &project, nil
}

// List retrieves projects ordered by creation time, newest first
func (r *ProjectRepository) List(ctx context.Context, limit, offset int) ([]*models.Project, error) {
	var projects []*models.Project
	err := r.db.SelectContext(ctx, &projects,
		`SELECT * FROM projects ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	return projects, err
}

// Count returns the total number of projects
func (r *ProjectRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM projects`)
	return count, err
}

// Update persists changes to a project's mutable fields
func (r *ProjectRepository) Update(ctx context.Context, project *models.Project) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE projects SET
			name = $2, description = $3,
			require_approval = $4, allow_auto_publish = $5, default_tags = $6,
			updated_at = $7
		WHERE id = $1`,
		project.ID, project.Name, project.Description,
		project.RequireApproval, project.AllowAutoPublish, project.DefaultTags,
		time.Now().UTC(),
	)
	return err
}

// GetChangelog retrieves the changelog container for a project
func (r *ProjectRepository) GetChangelog(ctx context.Context, projectID uuid.UUID) (*models.Changelog, error) {
	var changelog models.Changelog
	err := r.db.GetContext(ctx, &changelog, `SELECT * FROM changelogs WHERE project_id = $1`, projectID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &changelog, nil
}
