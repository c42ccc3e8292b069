package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shiplog/shiplog-server/internal/auth"
	"github.com/shiplog/shiplog-server/internal/db/repositories"
)

func newAuthRouter(t *testing.T) (*gin.Engine, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { mockDB.Close() })
	userRepo := repositories.NewUserRepository(sqlx.NewDb(mockDB, "sqlmock"))

	r := gin.New()
	r.GET("/", AuthMiddleware(userRepo), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id": CurrentUserID(c).String(),
			"role":    string(CurrentRole(c)),
		})
	})
	return r, mock
}

func doAuth(r *gin.Engine, header string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	r.ServeHTTP(w, req)
	return w
}

var userCols = []string{"id", "email", "name", "role", "created_at", "updated_at"}

func TestAuthMiddleware(t *testing.T) {
	t.Run("missing header returns 401", func(t *testing.T) {
		r, _ := newAuthRouter(t)
		if w := doAuth(r, ""); w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", w.Code)
		}
	})

	t.Run("non-bearer header returns 401", func(t *testing.T) {
		r, _ := newAuthRouter(t)
		if w := doAuth(r, "Basic dXNlcjpwYXNz"); w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", w.Code)
		}
	})

	t.Run("garbage token returns 401", func(t *testing.T) {
		r, _ := newAuthRouter(t)
		if w := doAuth(r, "Bearer not.a.jwt"); w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", w.Code)
		}
	})

	t.Run("valid token with unknown user returns 401", func(t *testing.T) {
		r, mock := newAuthRouter(t)
		userID := uuid.New()
		token, err := auth.GenerateJWT(userID.String(), "gone@example.com", auth.RoleStaff, time.Hour)
		if err != nil {
			t.Fatalf("GenerateJWT: %v", err)
		}
		mock.ExpectQuery("SELECT (.+) FROM users WHERE id").
			WillReturnRows(sqlmock.NewRows(userCols)) // no row

		if w := doAuth(r, "Bearer "+token); w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", w.Code)
		}
	})

	t.Run("valid token populates context from DB row", func(t *testing.T) {
		r, mock := newAuthRouter(t)
		userID := uuid.New()
		// Token claims staff, but the DB row says admin; the row wins.
		token, err := auth.GenerateJWT(userID.String(), "ops@example.com", auth.RoleStaff, time.Hour)
		if err != nil {
			t.Fatalf("GenerateJWT: %v", err)
		}
		mock.ExpectQuery("SELECT (.+) FROM users WHERE id").
			WillReturnRows(sqlmock.NewRows(userCols).
				AddRow(userID.String(), "ops@example.com", "Ops", "admin", time.Now(), time.Now()))

		w := doAuth(r, "Bearer "+token)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
		}
		body := w.Body.String()
		if !strings.Contains(body, userID.String()) {
			t.Errorf("body %q should carry the user id", body)
		}
		if !strings.Contains(body, `"role":"admin"`) {
			t.Errorf("role should come from the user row, got %q", body)
		}
	})
}
