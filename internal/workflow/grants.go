// grants.go implements the non-destructive processors: flag flips that grant
// publishing or scheduling rights. They exist to keep the registry honest:
// the extension point is not limited to deletions.
package workflow

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shiplog/shiplog-server/internal/db/models"
)

// AllowPublishProcessor flips the project-level allow_auto_publish flag so
// staff can publish entries for the project without further review.
type AllowPublishProcessor struct{}

func (p *AllowPublishProcessor) Kind() models.RequestKind {
	return models.RequestKindAllowPublish
}

func (p *AllowPublishProcessor) Apply(ctx context.Context, tx *sqlx.Tx, req *models.Request) error {
	payload, err := allowPublishPayload(req)
	if err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE projects SET allow_auto_publish = true, updated_at = now() WHERE id = $1`,
		payload.ProjectID,
	)
	if err != nil {
		return fmt.Errorf("failed to grant publish rights: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return &NotFoundError{Resource: "project", ID: payload.ProjectID.String()}
	}

	return nil
}

// AllowScheduleProcessor flips the entry-level schedule_approved flag so the
// entry may be scheduled for deferred publication.
//
// The update is scoped to the request's project. The access policy is decided
// from the project named on the request, so the grant must never land on an
// entry that lives under a different project; that case reads as
// entry-not-found and the transaction rolls back.
type AllowScheduleProcessor struct{}

func (p *AllowScheduleProcessor) Kind() models.RequestKind {
	return models.RequestKindAllowSchedule
}

func (p *AllowScheduleProcessor) Apply(ctx context.Context, tx *sqlx.Tx, req *models.Request) error {
	payload, err := allowSchedulePayload(req)
	if err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE entries SET schedule_approved = true, updated_at = now()
		WHERE id = $1
		  AND changelog_id IN (SELECT id FROM changelogs WHERE project_id = $2)`,
		payload.EntryID, payload.ProjectID,
	)
	if err != nil {
		return fmt.Errorf("failed to grant schedule rights: %w", err)
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
