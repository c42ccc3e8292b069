// delete_tag.go implements the processor for delete_tag requests. A tag
// identifier may live in two places: the project's default-tag soft list and a
// normalized tag row. Both are cleaned up; only the project itself must exist.
package workflow

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shiplog/shiplog-server/internal/db/models"
)

// DeleteTagProcessor removes a tag name from a project's default-tag list and,
// when a normalized tag entity with that name exists, disconnects it from every
// entry referencing it and deletes the entity. Absence of the hard entity is
// not an error.
type DeleteTagProcessor struct{}

func (p *DeleteTagProcessor) Kind() models.RequestKind {
	return models.RequestKindDeleteTag
}

func (p *DeleteTagProcessor) Apply(ctx context.Context, tx *sqlx.Tx, req *models.Request) error {
	payload, err := deleteTagPayload(req)
	if err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE projects SET default_tags = array_remove(default_tags, $2), updated_at = now() WHERE id = $1`,
		payload.ProjectID, payload.TagName,
	)
	if err != nil {
		return fmt.Errorf("failed to update default tags: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return &NotFoundError{Resource: "project", ID: payload.ProjectID.String()}
	}

	// Normalized entity cleanup, if one exists
	var tagID uuid.UUID
	err = tx.GetContext(ctx, &tagID,
		`SELECT id FROM tags WHERE project_id = $1 AND name = $2`,
		payload.ProjectID, payload.TagName,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil // soft-list-only tag
	}
	if err != nil {
		return fmt.Errorf("failed to look up tag entity: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM entry_tags WHERE tag_id = $1`, tagID); err != nil {
		return fmt.Errorf("failed to disconnect tag from entries: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM tags WHERE id = $1`, tagID); err != nil {
		return fmt.Errorf("failed to delete tag entity: %w", err)
	}

	return nil
}
