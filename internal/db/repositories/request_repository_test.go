package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shiplog/shiplog-server/internal/db/models"
)

var errDB = errors.New("db error")

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { mockDB.Close() })
	return sqlx.NewDb(mockDB, "sqlmock"), mock
}

func newRequestRepo(t *testing.T) (*RequestRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newMockDB(t)
	return NewRequestRepository(db), mock
}

var requestCols = []string{
	"id", "kind", "status", "proposer_id", "reviewer_id",
	"project_id", "target_id", "entry_id", "reason", "created_at", "reviewed_at",
}

func sampleRequestRow(id uuid.UUID, status models.RequestStatus) *sqlmock.Rows {
	return sqlmock.NewRows(requestCols).
		AddRow(id.String(), "delete_entry", string(status), uuid.New().String(), nil,
			uuid.New().String(), nil, uuid.New().String(), "stale entry", time.Now(), nil)
}

// ---------------------------------------------------------------------------
// Create / GetByID / FindPending
// ---------------------------------------------------------------------------

func TestRequestCreate(t *testing.T) {
	repo, mock := newRequestRepo(t)
	mock.ExpectExec("INSERT INTO requests").
		WillReturnResult(sqlmock.NewResult(0, 1))

	req := &models.Request{
		Kind:       models.RequestKindDeleteProject,
		ProposerID: uuid.New(),
		ProjectID:  uuid.New(),
		Reason:     "sunset",
	}
	if err := repo.Create(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if req.ID == uuid.Nil {
		t.Error("Create should assign an id")
	}
	if req.Status != models.RequestStatusPending {
		t.Errorf("status = %s, want pending", req.Status)
	}
	if req.CreatedAt.IsZero() {
		t.Error("Create should stamp created_at")
	}
}

func TestRequestGetByID_NotFound(t *testing.T) {
	repo, mock := newRequestRepo(t)
	mock.ExpectQuery("SELECT (.+) FROM requests WHERE id").
		WillReturnError(sql.ErrNoRows)

	req, err := repo.GetByID(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req != nil {
		t.Error("missing row should yield nil, nil")
	}
}

func TestRequestGetByID_Found(t *testing.T) {
	repo, mock := newRequestRepo(t)
	id := uuid.New()
	mock.ExpectQuery("SELECT (.+) FROM requests WHERE id").
		WillReturnRows(sampleRequestRow(id, models.RequestStatusPending))

	req, err := repo.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req == nil || req.ID != id {
		t.Fatal("expected the stored request back")
	}
	if !req.IsPending() {
		t.Errorf("status = %s, want pending", req.Status)
	}
}

func TestFindPending_NoMatch(t *testing.T) {
	repo, mock := newRequestRepo(t)
	mock.ExpectQuery("SELECT (.+) FROM requests").
		WillReturnError(sql.ErrNoRows)

	req, err := repo.FindPending(context.Background(), models.RequestKindDeleteTag, uuid.New(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req != nil {
		t.Error("no pending match should yield nil, nil")
	}
}

func TestFindPending_Match(t *testing.T) {
	repo, mock := newRequestRepo(t)
	id := uuid.New()
	tag := "beta"
	mock.ExpectQuery("SELECT (.+) FROM requests").
		WillReturnRows(sampleRequestRow(id, models.RequestStatusPending))

	req, err := repo.FindPending(context.Background(), models.RequestKindDeleteEntry, uuid.New(), &tag)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req == nil || req.ID != id {
		t.Fatal("expected the pending request back")
	}
}

// ---------------------------------------------------------------------------
// MarkDecided
// ---------------------------------------------------------------------------

func TestMarkDecided_Wins(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRequestRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE requests").
		WillReturnResult(sqlmock.NewResult(0, 1))

	tx, err := db.BeginTxx(context.Background(), nil)
	if err != nil {
		t.Fatalf("BeginTxx: %v", err)
	}

	won, err := repo.MarkDecided(context.Background(), tx, uuid.New(), models.RequestStatusApproved, uuid.New(), time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !won {
		t.Error("one affected row means this decision won")
	}
}

func TestMarkDecided_LosesRace(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRequestRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE requests").
		WillReturnResult(sqlmock.NewResult(0, 0))

	tx, err := db.BeginTxx(context.Background(), nil)
	if err != nil {
		t.Fatalf("BeginTxx: %v", err)
	}

	won, err := repo.MarkDecided(context.Background(), tx, uuid.New(), models.RequestStatusRejected, uuid.New(), time.Now())
	if err != nil {
		t.Fatalf("losing the race is not an error: %v", err)
	}
	if won {
		t.Error("zero affected rows means a concurrent decision won")
	}
}

// ---------------------------------------------------------------------------
// List
// ---------------------------------------------------------------------------

func listRequestCols() []string {
	return append(append([]string{}, requestCols...),
		"proposer_email", "reviewer_email", "project_name")
}

func TestRequestList_NoFilters(t *testing.T) {
	repo, mock := newRequestRepo(t)
	mock.ExpectQuery("SELECT COUNT.*FROM requests").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT r.id.*FROM requests r").
		WillReturnRows(sqlmock.NewRows(listRequestCols()).
			AddRow(uuid.New().String(), "delete_tag", "pending", uuid.New().String(), nil,
				uuid.New().String(), "beta", nil, "", time.Now(), nil,
				"staff@example.com", "", "Widgets"))

	requests, total, err := repo.List(context.Background(), RequestFilters{}, 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 {
		t.Errorf("total = %d, want 1", total)
	}
	if len(requests) != 1 {
		t.Fatalf("len(requests) = %d, want 1", len(requests))
	}
	if requests[0].ProposerEmail != "staff@example.com" {
		t.Errorf("proposer email = %q, want staff@example.com", requests[0].ProposerEmail)
	}
	if requests[0].ProjectName != "Widgets" {
		t.Errorf("project name = %q, want Widgets", requests[0].ProjectName)
	}
}

func TestRequestList_WithFilters(t *testing.T) {
	repo, mock := newRequestRepo(t)
	projectID := uuid.New()
	status := models.RequestStatusPending
	kind := models.RequestKindDeleteEntry

	mock.ExpectQuery("SELECT COUNT.*FROM requests").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery("SELECT r.id.*FROM requests r").
		WillReturnRows(sqlmock.NewRows(listRequestCols()))

	requests, total, err := repo.List(context.Background(), RequestFilters{
		ProjectID: &projectID,
		Status:    &status,
		Kind:      &kind,
	}, 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 0 || len(requests) != 0 {
		t.Errorf("total = %d, len = %d, want 0, 0", total, len(requests))
	}
}

func TestRequestList_CountError(t *testing.T) {
	repo, mock := newRequestRepo(t)
	mock.ExpectQuery("SELECT COUNT.*FROM requests").
		WillReturnError(errDB)

	if _, _, err := repo.List(context.Background(), RequestFilters{}, 10, 0); err == nil {
		t.Error("expected error, got nil")
	}
}
