// audit.go implements the admin-only audit trail listing.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shiplog/shiplog-server/internal/db/repositories"
)

// AuditHandlers serves the audit trail endpoints
type AuditHandlers struct {
	audit *repositories.AuditRepository
}

// NewAuditHandlers creates audit handlers
func NewAuditHandlers(audit *repositories.AuditRepository) *AuditHandlers {
	return &AuditHandlers{audit: audit}
}

// List handles GET /admin/audit-logs with optional actor, action, resource
// type, and date range filters
func (h *AuditHandlers) List(c *gin.Context) {
	limit, offset := paginationParams(c)

	var filters repositories.AuditFilters
	if actor := c.Query("actor_id"); actor != "" {
		id, err := uuid.Parse(actor)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid actor_id"})
			return
		}
		filters.ActorID = &id
	}
	if action := c.Query("action"); action != "" {
		filters.Action = &action
	}
	if resourceType := c.Query("resource_type"); resourceType != "" {
		filters.ResourceType = &resourceType
	}
	if start := c.Query("start_date"); start != "" {
		t, err := time.Parse(time.RFC3339, start)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid start_date (expect RFC3339)"})
			return
		}
		filters.StartDate = &t
	}
	if end := c.Query("end_date"); end != "" {
		t, err := time.Parse(time.RFC3339, end)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid end_date (expect RFC3339)"})
			return
		}
		filters.EndDate = &t
	}

	logs, total, err := h.audit.List(c.Request.Context(), filters, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list audit logs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"audit_logs": logs,
		"total":      total,
		"limit":      limit,
		"offset":     offset,
	})
}

// Get handles GET /admin/audit-logs/:id
func (h *AuditHandlers) Get(c *gin.Context) {
	logID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid audit log id"})
		return
	}

	log, err := h.audit.GetByID(c.Request.Context(), logID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load audit log"})
		return
	}
	if log == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Audit log not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"audit_log": log})
}
