// requests.go implements the HTTP surface of the approval workflow: submitting
// intended mutations, deciding pending requests, and browsing the queue.
package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shiplog/shiplog-server/internal/db/models"
	"github.com/shiplog/shiplog-server/internal/db/repositories"
	"github.com/shiplog/shiplog-server/internal/middleware"
	"github.com/shiplog/shiplog-server/internal/workflow"
)

// RequestHandlers serves the workflow request endpoints
type RequestHandlers struct {
	orchestrator *workflow.Orchestrator
}

// NewRequestHandlers creates request handlers backed by the orchestrator
func NewRequestHandlers(orchestrator *workflow.Orchestrator) *RequestHandlers {
	return &RequestHandlers{orchestrator: orchestrator}
}

// submitRequestBody is the JSON body for POST /requests
type submitRequestBody struct {
	Kind      string  `json:"kind" binding:"required"`
	ProjectID string  `json:"project_id" binding:"required"`
	TargetID  *string `json:"target_id"`
	EntryID   *string `json:"entry_id"`
	Reason    string  `json:"reason"`
}

// Submit handles POST /requests. Depending on the access policy the mutation
// is applied immediately (201 with applied=true), recorded as a pending
// request (202), or rejected.
func (h *RequestHandlers) Submit(c *gin.Context) {
	var body submitRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	projectID, err := uuid.Parse(body.ProjectID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid project_id"})
		return
	}

	var entryID *uuid.UUID
	if body.EntryID != nil {
		id, err := uuid.Parse(*body.EntryID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid entry_id"})
			return
		}
		entryID = &id
	}

	result, err := h.orchestrator.Submit(c.Request.Context(), workflow.SubmitInput{
		Kind:      models.RequestKind(body.Kind),
		ActorID:   middleware.CurrentUserID(c),
		Role:      middleware.CurrentRole(c),
		ProjectID: projectID,
		TargetID:  body.TargetID,
		EntryID:   entryID,
		Reason:    body.Reason,
		IPAddress: c.ClientIP(),
	})
	if err != nil {
		respondWorkflowError(c, err)
		return
	}

	if result.Applied {
		c.JSON(http.StatusCreated, gin.H{
			"applied": true,
			"request": result.Request,
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"applied": false,
		"request": result.Request,
	})
}

// decisionBody is the JSON body for POST /requests/:id/decision
type decisionBody struct {
	Decision string `json:"decision" binding:"required"`
}

// Decide handles POST /requests/:id/decision
func (h *RequestHandlers) Decide(c *gin.Context) {
	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request id"})
		return
	}

	var body decisionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	req, err := h.orchestrator.Decide(
		c.Request.Context(),
		requestID,
		models.RequestStatus(body.Decision),
		middleware.CurrentUserID(c),
		c.ClientIP(),
	)
	if err != nil {
		respondWorkflowError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"request": req})
}

// Get handles GET /requests/:id
func (h *RequestHandlers) Get(c *gin.Context) {
	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request id"})
		return
	}

	req, err := h.orchestrator.GetRequest(c.Request.Context(), requestID)
	if err != nil {
		respondWorkflowError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"request": req})
}

// List handles GET /requests with optional status, kind, and project filters
func (h *RequestHandlers) List(c *gin.Context) {
	limit, offset := paginationParams(c)

	var filters repositories.RequestFilters
	if status := c.Query("status"); status != "" {
		s := models.RequestStatus(status)
		filters.Status = &s
	}
	if kind := c.Query("kind"); kind != "" {
		k := models.RequestKind(kind)
		filters.Kind = &k
	}
	if project := c.Query("project_id"); project != "" {
		id, err := uuid.Parse(project)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid project_id"})
			return
		}
		filters.ProjectID = &id
	}

	requests, total, err := h.orchestrator.ListRequests(c.Request.Context(), filters, limit, offset)
	if err != nil {
		respondWorkflowError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"requests": requests,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}

// paginationParams reads limit/offset query parameters with bounds applied
func paginationParams(c *gin.Context) (int, int) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 || limit > 100 {
		limit = 20
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}
