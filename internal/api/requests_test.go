package api

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shiplog/shiplog-server/internal/auth"
	"github.com/shiplog/shiplog-server/internal/middleware"
	"github.com/shiplog/shiplog-server/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newWorkflowRouter wires the request handlers behind a stub auth layer that
// seeds the given role, mirroring the production middleware chain.
func newWorkflowRouter(t *testing.T, role auth.Role) (*gin.Engine, sqlmock.Sqlmock, uuid.UUID) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	orchestrator, err := workflow.NewOrchestrator(sqlx.NewDb(mockDB, "sqlmock"), workflow.DefaultRegistry())
	require.NoError(t, err)

	handlers := NewRequestHandlers(orchestrator)
	actorID := uuid.New()

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("user_id", actorID)
		c.Set("role", role)
	})
	r.POST("/requests", middleware.RequireProposer(), handlers.Submit)
	r.GET("/requests/:id", handlers.Get)
	r.POST("/requests/:id/decision", middleware.RequireReviewer(), handlers.Decide)

	return r, mock, actorID
}

func doJSON(r *gin.Engine, method, path string, payload interface{}) *httptest.ResponseRecorder {
	var body bytes.Buffer
	if payload != nil {
		json.NewEncoder(&body).Encode(payload)
	}
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

var testProjectCols = []string{
	"id", "name", "slug", "description",
	"require_approval", "allow_auto_publish", "default_tags",
	"created_at", "updated_at",
}

var testRequestCols = []string{
	"id", "kind", "status", "proposer_id", "reviewer_id",
	"project_id", "target_id", "entry_id", "reason", "created_at", "reviewed_at",
}

func strictProjectRow(id uuid.UUID) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(testProjectCols).
		AddRow(id.String(), "Widgets", "widgets", nil, true, false, []byte(`{}`), now, now)
}

func pendingRequestRow(id, projectID, entryID uuid.UUID) *sqlmock.Rows {
	return sqlmock.NewRows(testRequestCols).
		AddRow(id.String(), "delete_entry", "pending", uuid.New().String(), nil,
			projectID.String(), nil, entryID.String(), "stale", time.Now(), nil)
}

// ---------------------------------------------------------------------------
// Submit
// ---------------------------------------------------------------------------

func TestSubmitRequest_InvalidBody(t *testing.T) {
	r, _, _ := newWorkflowRouter(t, auth.RoleStaff)

	w := doJSON(r, http.MethodPost, "/requests", map[string]string{"kind": "delete_entry"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitRequest_ViewerBlockedByRBAC(t *testing.T) {
	r, _, _ := newWorkflowRouter(t, auth.RoleViewer)

	w := doJSON(r, http.MethodPost, "/requests", map[string]string{
		"kind":       "delete_entry",
		"project_id": uuid.New().String(),
		"entry_id":   uuid.New().String(),
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestSubmitRequest_StaffCreatesPending(t *testing.T) {
	r, mock, _ := newWorkflowRouter(t, auth.RoleStaff)
	projectID := uuid.New()

	mock.ExpectQuery("SELECT (.+) FROM projects WHERE id").
		WillReturnRows(strictProjectRow(projectID))
	mock.ExpectQuery("SELECT (.+) FROM requests").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO requests").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO audit_logs").
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := doJSON(r, http.MethodPost, "/requests", map[string]string{
		"kind":       "delete_entry",
		"project_id": projectID.String(),
		"entry_id":   uuid.New().String(),
		"reason":     "posted twice",
	})

	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var body struct {
		Applied bool `json:"applied"`
		Request struct {
			Status string `json:"status"`
			Kind   string `json:"kind"`
		} `json:"request"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Applied)
	assert.Equal(t, "pending", body.Request.Status)
	assert.Equal(t, "delete_entry", body.Request.Kind)
}

func TestSubmitRequest_AdminAppliesDirectly(t *testing.T) {
	r, mock, _ := newWorkflowRouter(t, auth.RoleAdmin)
	projectID := uuid.New()

	mock.ExpectQuery("SELECT (.+) FROM projects WHERE id").
		WillReturnRows(strictProjectRow(projectID))
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM entries").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO audit_logs").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	w := doJSON(r, http.MethodPost, "/requests", map[string]string{
		"kind":       "delete_entry",
		"project_id": projectID.String(),
		"entry_id":   uuid.New().String(),
	})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var body struct {
		Applied bool `json:"applied"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Applied)
}

func TestSubmitRequest_DuplicateConflict(t *testing.T) {
	r, mock, _ := newWorkflowRouter(t, auth.RoleStaff)
	projectID := uuid.New()
	entryID := uuid.New()
	existingID := uuid.New()

	mock.ExpectQuery("SELECT (.+) FROM projects WHERE id").
		WillReturnRows(strictProjectRow(projectID))
	mock.ExpectQuery("SELECT (.+) FROM requests").
		WillReturnRows(pendingRequestRow(existingID, projectID, entryID))
	mock.ExpectExec("INSERT INTO audit_logs").
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := doJSON(r, http.MethodPost, "/requests", map[string]string{
		"kind":       "delete_entry",
		"project_id": projectID.String(),
		"entry_id":   entryID.String(),
	})

	require.Equal(t, http.StatusConflict, w.Code, w.Body.String())

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, existingID.String(), body["existing_id"])
}

// ---------------------------------------------------------------------------
// Decide
// ---------------------------------------------------------------------------

func TestDecideRequest_StaffBlockedByRBAC(t *testing.T) {
	r, _, _ := newWorkflowRouter(t, auth.RoleStaff)

	w := doJSON(r, http.MethodPost, "/requests/"+uuid.New().String()+"/decision",
		map[string]string{"decision": "approved"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestDecideRequest_Approve(t *testing.T) {
	r, mock, _ := newWorkflowRouter(t, auth.RoleAdmin)
	requestID := uuid.New()
	projectID := uuid.New()
	entryID := uuid.New()

	mock.ExpectQuery("SELECT (.+) FROM requests WHERE id").
		WillReturnRows(pendingRequestRow(requestID, projectID, entryID))
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE requests").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM entries").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO audit_logs").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	w := doJSON(r, http.MethodPost, "/requests/"+requestID.String()+"/decision",
		map[string]string{"decision": "approved"})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Request struct {
			Status     string  `json:"status"`
			ReviewerID *string `json:"reviewer_id"`
		} `json:"request"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "approved", body.Request.Status)
	assert.NotNil(t, body.Request.ReviewerID)
}

func TestDecideRequest_InvalidDecision(t *testing.T) {
	r, _, _ := newWorkflowRouter(t, auth.RoleAdmin)

	w := doJSON(r, http.MethodPost, "/requests/"+uuid.New().String()+"/decision",
		map[string]string{"decision": "maybe"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDecideRequest_AlreadyDecided(t *testing.T) {
	r, mock, _ := newWorkflowRouter(t, auth.RoleAdmin)
	requestID := uuid.New()
	projectID := uuid.New()
	entryID := uuid.New()

	decided := sqlmock.NewRows(testRequestCols).
		AddRow(requestID.String(), "delete_entry", "rejected", uuid.New().String(), uuid.New().String(),
			projectID.String(), nil, entryID.String(), "", time.Now(), time.Now())
	mock.ExpectQuery("SELECT (.+) FROM requests WHERE id").
		WillReturnRows(decided)

	w := doJSON(r, http.MethodPost, "/requests/"+requestID.String()+"/decision",
		map[string]string{"decision": "approved"})

	require.Equal(t, http.StatusConflict, w.Code, w.Body.String())

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "rejected", body["status"])
}

// ---------------------------------------------------------------------------
// Get
// ---------------------------------------------------------------------------

func TestGetRequest_NotFound(t *testing.T) {
	r, mock, _ := newWorkflowRouter(t, auth.RoleStaff)
	mock.ExpectQuery("SELECT (.+) FROM requests WHERE id").
		WillReturnError(sql.ErrNoRows)

	w := doJSON(r, http.MethodGet, "/requests/"+uuid.New().String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetRequest_BadID(t *testing.T) {
	r, _, _ := newWorkflowRouter(t, auth.RoleStaff)

	w := doJSON(r, http.MethodGet, "/requests/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
