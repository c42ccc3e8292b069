package workflow

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shiplog/shiplog-server/internal/db/models"
)

// newTestTx opens a transaction against a sqlmock-backed pool so a processor
// can be exercised in isolation, the way the orchestrator invokes it.
func newTestTx(t *testing.T) (*sqlx.Tx, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { mockDB.Close() })

	mock.ExpectBegin()
	tx, err := sqlx.NewDb(mockDB, "sqlmock").BeginTxx(context.Background(), nil)
	if err != nil {
		t.Fatalf("BeginTxx: %v", err)
	}
	return tx, mock
}

// ---------------------------------------------------------------------------
// DeleteProjectProcessor
// ---------------------------------------------------------------------------

func TestDeleteProjectCascade(t *testing.T) {
	tx, mock := newTestTx(t)
	projectID := uuid.New()

	mock.ExpectQuery("SELECT true FROM projects").
		WillReturnRows(sqlmock.NewRows([]string{"true"}).AddRow(true))
	mock.ExpectExec("DELETE FROM requests").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM entries").WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectExec("DELETE FROM changelogs").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM entry_tags").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("DELETE FROM tags").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM subscribers").WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec("DELETE FROM projects").WillReturnResult(sqlmock.NewResult(0, 1))

	p := &DeleteProjectProcessor{}
	req := &models.Request{Kind: models.RequestKindDeleteProject, ProjectID: projectID}
	if err := p.Apply(context.Background(), tx, req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestDeleteProjectMissingProject(t *testing.T) {
	tx, mock := newTestTx(t)

	mock.ExpectQuery("SELECT true FROM projects").
		WillReturnError(sql.ErrNoRows)

	p := &DeleteProjectProcessor{}
	req := &models.Request{Kind: models.RequestKindDeleteProject, ProjectID: uuid.New()}
	err := p.Apply(context.Background(), tx, req)

	var nfErr *NotFoundError
	if !errors.As(err, &nfErr) {
		t.Fatalf("error = %T, want *NotFoundError", err)
	}
}

// ---------------------------------------------------------------------------
// DeleteTagProcessor
// ---------------------------------------------------------------------------

func TestDeleteTagSoftListOnly(t *testing.T) {
	tx, mock := newTestTx(t)
	tagName := "beta"
	req := &models.Request{
		Kind:      models.RequestKindDeleteTag,
		ProjectID: uuid.New(),
		TargetID:  &tagName,
	}

	mock.ExpectExec("UPDATE projects SET default_tags").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT id FROM tags").
		WillReturnError(sql.ErrNoRows) // no normalized entity, not an error

	p := &DeleteTagProcessor{}
	if err := p.Apply(context.Background(), tx, req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestDeleteTagWithNormalizedEntity(t *testing.T) {
	tx, mock := newTestTx(t)
	tagName := "beta"
	tagID := uuid.New()
	req := &models.Request{
		Kind:      models.RequestKindDeleteTag,
		ProjectID: uuid.New(),
		TargetID:  &tagName,
	}

	mock.ExpectExec("UPDATE projects SET default_tags").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT id FROM tags").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(tagID.String()))
	mock.ExpectExec("DELETE FROM entry_tags").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("DELETE FROM tags").
		WillReturnResult(sqlmock.NewResult(0, 1))

	p := &DeleteTagProcessor{}
	if err := p.Apply(context.Background(), tx, req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestDeleteTagMissingProject(t *testing.T) {
	tx, mock := newTestTx(t)
	tagName := "beta"
	req := &models.Request{
		Kind:      models.RequestKindDeleteTag,
		ProjectID: uuid.New(),
		TargetID:  &tagName,
	}

	mock.ExpectExec("UPDATE projects SET default_tags").
		WillReturnResult(sqlmock.NewResult(0, 0))

	p := &DeleteTagProcessor{}
	err := p.Apply(context.Background(), tx, req)

	var nfErr *NotFoundError
	if !errors.As(err, &nfErr) {
		t.Fatalf("error = %T, want *NotFoundError", err)
	}
}

// ---------------------------------------------------------------------------
// DeleteEntryProcessor
// ---------------------------------------------------------------------------

func TestDeleteEntryScopedToRequestProject(t *testing.T) {
	tx, mock := newTestTx(t)
	entryID := uuid.New()
	projectID := uuid.New()
	req := &models.Request{Kind: models.RequestKindDeleteEntry, ProjectID: projectID, EntryID: &entryID}

	mock.ExpectExec("DELETE FROM entries").
		WithArgs(entryID.String(), projectID.String()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	p := &DeleteEntryProcessor{}
	if err := p.Apply(context.Background(), tx, req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestDeleteEntryOutsideProjectIsNotFound(t *testing.T) {
	tx, mock := newTestTx(t)
	entryID := uuid.New()
	projectID := uuid.New()
	req := &models.Request{Kind: models.RequestKindDeleteEntry, ProjectID: projectID, EntryID: &entryID}

	// The entry exists under another project, so the scoped delete matches
	// nothing.
	mock.ExpectExec("DELETE FROM entries").
		WithArgs(entryID.String(), projectID.String()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	p := &DeleteEntryProcessor{}
	err := p.Apply(context.Background(), tx, req)

	var nfErr *NotFoundError
	if !errors.As(err, &nfErr) {
		t.Fatalf("error = %T, want *NotFoundError", err)
	}
}

// ---------------------------------------------------------------------------
// Grant processors
// ---------------------------------------------------------------------------

func TestAllowPublishFlipsProjectFlag(t *testing.T) {
	tx, mock := newTestTx(t)
	req := &models.Request{Kind: models.RequestKindAllowPublish, ProjectID: uuid.New()}

	mock.ExpectExec("UPDATE projects SET allow_auto_publish").
		WillReturnResult(sqlmock.NewResult(0, 1))

	p := &AllowPublishProcessor{}
	if err := p.Apply(context.Background(), tx, req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAllowScheduleFlipsEntryFlag(t *testing.T) {
	tx, mock := newTestTx(t)
	entryID := uuid.New()
	req := &models.Request{Kind: models.RequestKindAllowSchedule, ProjectID: uuid.New(), EntryID: &entryID}

	mock.ExpectExec("UPDATE entries SET schedule_approved").
		WillReturnResult(sqlmock.NewResult(0, 1))

	p := &AllowScheduleProcessor{}
	if err := p.Apply(context.Background(), tx, req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAllowScheduleOutsideProjectIsNotFound(t *testing.T) {
	tx, mock := newTestTx(t)
	entryID := uuid.New()
	projectID := uuid.New()
	req := &models.Request{Kind: models.RequestKindAllowSchedule, ProjectID: projectID, EntryID: &entryID}

	// The grant must stay inside the project the request names; an entry under
	// a different project matches nothing.
	mock.ExpectExec("UPDATE entries SET schedule_approved").
		WithArgs(entryID.String(), projectID.String()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	p := &AllowScheduleProcessor{}
	err := p.Apply(context.Background(), tx, req)

	var nfErr *NotFoundError
	if !errors.As(err, &nfErr) {
		t.Fatalf("error = %T, want *NotFoundError", err)
	}
}

func TestAllowScheduleMissingEntry(t *testing.T) {
	tx, mock := newTestTx(t)
	entryID := uuid.New()
	req := &models.Request{Kind: models.RequestKindAllowSchedule, ProjectID: uuid.New(), EntryID: &entryID}

	mock.ExpectExec("UPDATE entries SET schedule_approved").
		WillReturnResult(sqlmock.NewResult(0, 0))

	p := &AllowScheduleProcessor{}
	err := p.Apply(context.Background(), tx, req)

	var nfErr *NotFoundError
	if !errors.As(err, &nfErr) {
		t.Fatalf("error = %T, want *NotFoundError", err)
	}
}
