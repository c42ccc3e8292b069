// delete_project.go implements the processor for delete_project requests: the
// full cascade that removes a project and everything referencing it.
package workflow

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shiplog/shiplog-server/internal/db/models"
)

// DeleteProjectProcessor removes a project and all rows referencing it.
//
// Deletion order is dictated by foreign-key direction (children before
// parents): workflow requests referencing the project first (avoids dangling
// self-references, including the request being approved), then changelog
// entries, the changelog, tags and subscribers, and finally the project row.
// A referential-integrity error at any step aborts the whole transaction.
type DeleteProjectProcessor struct{}

func (p *DeleteProjectProcessor) Kind() models.RequestKind {
	return models.RequestKindDeleteProject
}

func (p *DeleteProjectProcessor) Apply(ctx context.Context, tx *sqlx.Tx, req *models.Request) error {
	payload, err := deleteProjectPayload(req)
	if err != nil {
		return err
	}

	var exists bool
	err = tx.GetContext(ctx, &exists, `SELECT true FROM projects WHERE id = $1`, payload.ProjectID)
	if errors.Is(err, sql.ErrNoRows) {
		return &NotFoundError{Resource: "project", ID: payload.ProjectID.String()}
	}
	if err != nil {
		return fmt.Errorf("failed to look up project: %w", err)
	}

	steps := []string{
		`DELETE FROM requests WHERE project_id = $1`,
		`DELETE FROM entries WHERE changelog_id IN (SELECT id FROM changelogs WHERE project_id = $1)`,
		`DELETE FROM changelogs WHERE project_id = $1`,
		`DELETE FROM entry_tags WHERE tag_id IN (SELECT id FROM tags WHERE project_id = $1)`,
		`DELETE FROM tags WHERE project_id = $1`,
		`DELETE FROM subscribers WHERE project_id = $1`,
		`DELETE FROM projects WHERE id = $1`,
	}
	for _, query := range steps {
		if _, err := tx.ExecContext(ctx, query, payload.ProjectID); err != nil {
			return fmt.Errorf("delete project cascade failed: %w", err)
		}
	}

	return nil
}
