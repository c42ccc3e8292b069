// audit.go provides Gin middleware that records authenticated write operations
// to the audit log. This request-level trail complements the workflow's own
// audit records: the orchestrator writes semantic records (REQUEST_APPROVED and
// friends), this middleware records the raw HTTP surface.
package middleware

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shiplog/shiplog-server/internal/db/models"
	"github.com/shiplog/shiplog-server/internal/db/repositories"
)

// AuditMiddleware logs authenticated write operations to the database.
// When logReadOps is true, GET requests are recorded as well.
func AuditMiddleware(auditRepo *repositories.AuditRepository, logReadOps bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Process request first
		c.Next()

		if c.Request.Method == "OPTIONS" {
			return
		}

		isReadOp := c.Request.Method == "GET"
		isFailed := c.Writer.Status() >= 400

		if isReadOp && !logReadOps {
			return
		}
		if isFailed {
			return
		}

		action := c.Request.Method + " " + c.Request.URL.Path
		ipAddress := c.ClientIP()

		auditLog := &models.AuditLog{
			Action:    action,
			IPAddress: &ipAddress,
			CreatedAt: time.Now().UTC(),
		}

		if userID, exists := c.Get("user_id"); exists {
			if id, ok := userID.(uuid.UUID); ok {
				auditLog.ActorID = &id
			}
		}

		if rt := resourceTypeFromPath(c.Request.URL.Path); rt != "" {
			auditLog.ResourceType = &rt
		}

		auditLog.Details = map[string]interface{}{
			"status_code": c.Writer.Status(),
		}

		// Async log creation (non-blocking)
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := auditRepo.Create(ctx, auditLog); err != nil {
				slog.Warn("failed to write request audit record", "action", action, "error", err)
			}
		}()
	}
}

// resourceTypeFromPath maps a URL path to the resource type it operates on
func resourceTypeFromPath(path string) string {
	switch {
	case strings.Contains(path, "/requests"):
		return "request"
	case strings.Contains(path, "/entries"):
		return "entry"
	case strings.Contains(path, "/projects"):
		return "project"
	case strings.Contains(path, "/subscribers"):
		return "subscriber"
	case strings.Contains(path, "/tags"):
		return "tag"
	case strings.Contains(path, "/users"):
		return "user"
	}
	return ""
}
