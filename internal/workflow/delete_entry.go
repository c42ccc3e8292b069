// delete_entry.go implements the processor for delete_entry requests.
package workflow

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shiplog/shiplog-server/internal/db/models"
)

// DeleteEntryProcessor deletes a single changelog entry. Tag associations are
// removed by the entry_tags ON DELETE CASCADE, not by the processor.
//
// The delete is scoped to the request's project: the access policy was
// evaluated against that project, so an entry id pointing into a different
// project must not match. Such a request reads as entry-not-found.
type DeleteEntryProcessor struct{}

func (p *DeleteEntryProcessor) Kind() models.RequestKind {
	return models.RequestKindDeleteEntry
}

func (p *DeleteEntryProcessor) Apply(ctx context.Context, tx *sqlx.Tx, req *models.Request) error {
	payload, err := deleteEntryPayload(req)
	if err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `
		DELETE FROM entries
		WHERE id = $1
		  AND changelog_id IN (SELECT id FROM changelogs WHERE project_id = $2)`,
		payload.EntryID, payload.ProjectID)
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return &NotFoundError{Resource: "entry", ID: payload.EntryID.String()}
	}

	return nil
}
