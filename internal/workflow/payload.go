// payload.go gives each request kind a self-describing, typed payload extracted
// from the generic Request row. The target_id and entry_id columns mean
// different things per kind; extracting through these helpers means a processor
// can never misread another kind's fields.
package workflow

import (
	"github.com/google/uuid"
	"github.com/shiplog/shiplog-server/internal/db/models"
)

// DeleteProjectPayload targets an entire project and everything under it.
type DeleteProjectPayload struct {
	ProjectID uuid.UUID
}

// DeleteTagPayload targets one tag name within a project. The name may exist
// only in the project's default-tag soft list, as a normalized tag row, or both.
type DeleteTagPayload struct {
	ProjectID uuid.UUID
	TagName   string
}

// DeleteEntryPayload targets one changelog entry.
type DeleteEntryPayload struct {
	ProjectID uuid.UUID
	EntryID   uuid.UUID
}

// AllowPublishPayload grants project-level auto-publish rights.
type AllowPublishPayload struct {
	ProjectID uuid.UUID
}

// AllowSchedulePayload grants entry-level scheduling rights.
type AllowSchedulePayload struct {
	ProjectID uuid.UUID
	EntryID   uuid.UUID
}

func deleteProjectPayload(req *models.Request) (DeleteProjectPayload, error) {
	return DeleteProjectPayload{ProjectID: req.ProjectID}, nil
}

func deleteTagPayload(req *models.Request) (DeleteTagPayload, error) {
	if req.TargetID == nil || *req.TargetID == "" {
		return DeleteTagPayload{}, &ValidationError{Field: "target_id", Reason: "delete_tag requires a tag name"}
	}
	return DeleteTagPayload{ProjectID: req.ProjectID, TagName: *req.TargetID}, nil
}

func deleteEntryPayload(req *models.Request) (DeleteEntryPayload, error) {
	if req.EntryID == nil {
		return DeleteEntryPayload{}, &ValidationError{Field: "entry_id", Reason: "delete_entry requires an entry id"}
	}
	return DeleteEntryPayload{ProjectID: req.ProjectID, EntryID: *req.EntryID}, nil
}

func allowPublishPayload(req *models.Request) (AllowPublishPayload, error) {
	return AllowPublishPayload{ProjectID: req.ProjectID}, nil
}

func allowSchedulePayload(req *models.Request) (AllowSchedulePayload, error) {
	if req.EntryID == nil {
		return AllowSchedulePayload{}, &ValidationError{Field: "entry_id", Reason: "allow_schedule requires an entry id"}
	}
	return AllowSchedulePayload{ProjectID: req.ProjectID, EntryID: *req.EntryID}, nil
}

// ValidatePayload checks that a request carries the fields its kind requires.
// Called at submission time so a malformed request is rejected before it is
// ever persisted, not when an admin tries to approve it.
func ValidatePayload(req *models.Request) error {
	switch req.Kind {
	case models.RequestKindDeleteProject:
		_, err := deleteProjectPayload(req)
		return err
	case models.RequestKindDeleteTag:
		_, err := deleteTagPayload(req)
		return err
	case models.RequestKindDeleteEntry:
		_, err := deleteEntryPayload(req)
		return err
	case models.RequestKindAllowPublish:
		_, err := allowPublishPayload(req)
		return err
	case models.RequestKindAllowSchedule:
		_, err := allowSchedulePayload(req)
		return err
	default:
		return &ValidationError{Field: "kind", Reason: "unknown request kind"}
	}
}
