package repositories

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shiplog/shiplog-server/internal/db/models"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func newAuditRepo(t *testing.T) (*AuditRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newMockDB(t)
	return NewAuditRepository(db), mock
}

var auditCols = []string{
	"id", "actor_id", "action", "resource_type", "resource_id",
	"details", "ip_address", "created_at",
}

func strPtr(s string) *string { return &s }

func sampleAuditRow() *sqlmock.Rows {
	return sqlmock.NewRows(auditCols).
		AddRow(uuid.New().String(), uuid.New().String(), "REQUEST_APPROVED",
			"request", uuid.New().String(), []byte(`{"kind":"delete_entry"}`), "1.2.3.4", time.Now())
}

// ---------------------------------------------------------------------------
// Create / CreateTx
// ---------------------------------------------------------------------------

func TestAuditCreate(t *testing.T) {
	repo, mock := newAuditRepo(t)
	mock.ExpectExec("INSERT INTO audit_logs").
		WillReturnResult(sqlmock.NewResult(0, 1))

	actorID := uuid.New()
	log := &models.AuditLog{
		ActorID:      &actorID,
		Action:       models.AuditActionRequestCreated,
		ResourceType: strPtr("request"),
		ResourceID:   strPtr(uuid.New().String()),
		IPAddress:    strPtr("1.2.3.4"),
	}
	if err := repo.Create(context.Background(), log); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if log.ID == uuid.Nil {
		t.Error("Create should assign an id")
	}
	if log.CreatedAt.IsZero() {
		t.Error("Create should stamp created_at")
	}
}

func TestAuditCreate_WithDetails(t *testing.T) {
	repo, mock := newAuditRepo(t)
	mock.ExpectExec("INSERT INTO audit_logs").
		WillReturnResult(sqlmock.NewResult(0, 1))

	log := &models.AuditLog{
		Action:  models.AuditActionRequestApproved,
		Details: map[string]interface{}{"kind": "delete_tag", "target_id": "beta"},
	}
	if err := repo.Create(context.Background(), log); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAuditCreate_DBError(t *testing.T) {
	repo, mock := newAuditRepo(t)
	mock.ExpectExec("INSERT INTO audit_logs").
		WillReturnError(errDB)

	log := &models.AuditLog{Action: models.AuditActionRequestCreated}
	if err := repo.Create(context.Background(), log); err == nil {
		t.Error("expected error, got nil")
	}
}

func TestAuditCreateTx(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAuditRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO audit_logs").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	if err != nil {
		t.Fatalf("BeginTxx: %v", err)
	}

	log := &models.AuditLog{Action: models.AuditActionRequestRejected}
	if err := repo.CreateTx(context.Background(), tx, log); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
}

// ---------------------------------------------------------------------------
// List / GetByID
// ---------------------------------------------------------------------------

func TestAuditList_NoFilters(t *testing.T) {
	repo, mock := newAuditRepo(t)
	mock.ExpectQuery("SELECT COUNT.*FROM audit_logs").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT id.*FROM audit_logs").
		WillReturnRows(sampleAuditRow())

	logs, total, err := repo.List(context.Background(), AuditFilters{}, 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 {
		t.Errorf("total = %d, want 1", total)
	}
	if len(logs) != 1 {
		t.Fatalf("len(logs) = %d, want 1", len(logs))
	}
	if logs[0].Details["kind"] != "delete_entry" {
		t.Errorf("details not decoded: %v", logs[0].Details)
	}
}

func TestAuditList_WithFilters(t *testing.T) {
	repo, mock := newAuditRepo(t)
	actorID := uuid.New()
	action := models.AuditActionRequestApproved
	resourceType := "request"
	start := time.Now().Add(-24 * time.Hour)
	end := time.Now()

	mock.ExpectQuery("SELECT COUNT.*FROM audit_logs").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery("SELECT id.*FROM audit_logs").
		WillReturnRows(sqlmock.NewRows(auditCols))

	logs, total, err := repo.List(context.Background(), AuditFilters{
		ActorID:      &actorID,
		Action:       &action,
		ResourceType: &resourceType,
		StartDate:    &start,
		EndDate:      &end,
	}, 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 0 || len(logs) != 0 {
		t.Errorf("total = %d, len = %d, want 0, 0", total, len(logs))
	}
}

func TestAuditGetByID_NotFound(t *testing.T) {
	repo, mock := newAuditRepo(t)
	mock.ExpectQuery("SELECT id.*FROM audit_logs").
		WillReturnError(sql.ErrNoRows)

	log, err := repo.GetByID(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if log != nil {
		t.Error("missing row should yield nil, nil")
	}
}
