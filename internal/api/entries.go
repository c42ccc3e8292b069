// entries.go implements the changelog entry lifecycle over HTTP: draft
// creation and editing, publish-now, and scheduling. Publish and schedule are
// gated by the same access policy the workflow uses; when the policy routes a
// staff member through review, the response tells them which request kind to
// submit. Entry deletion has no handler here: it goes through the workflow as
// a delete_entry request.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shiplog/shiplog-server/internal/db/models"
	"github.com/shiplog/shiplog-server/internal/db/repositories"
	"github.com/shiplog/shiplog-server/internal/middleware"
	"github.com/shiplog/shiplog-server/internal/telemetry"
	"github.com/shiplog/shiplog-server/internal/workflow"
)

// EntryHandlers serves changelog entry endpoints
type EntryHandlers struct {
	entries  *repositories.EntryRepository
	projects *repositories.ProjectRepository
}

// NewEntryHandlers creates entry handlers
func NewEntryHandlers(entries *repositories.EntryRepository, projects *repositories.ProjectRepository) *EntryHandlers {
	return &EntryHandlers{entries: entries, projects: projects}
}

type createEntryBody struct {
	Title string   `json:"title" binding:"required"`
	Body  string   `json:"body" binding:"required"`
	Tags  []string `json:"tags"`
}

// Create handles POST /projects/:id/entries, creating a draft entry in the
// project's changelog
func (h *EntryHandlers) Create(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid project id"})
		return
	}

	changelog, err := h.projects.GetChangelog(c.Request.Context(), projectID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load changelog"})
		return
	}
	if changelog == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		return
	}

	var body createEntryBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	creator := middleware.CurrentUserID(c)
	entry := &models.Entry{
		ChangelogID: changelog.ID,
		Title:       body.Title,
		Body:        body.Body,
		Status:      models.EntryStatusDraft,
		CreatedBy:   &creator,
	}
	if err := h.entries.Create(c.Request.Context(), entry); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create entry"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"entry": entry})
}

// List handles GET /projects/:id/entries with optional status filter
func (h *EntryHandlers) List(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid project id"})
		return
	}

	changelog, err := h.projects.GetChangelog(c.Request.Context(), projectID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load changelog"})
		return
	}
	if changelog == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		return
	}

	limit, offset := paginationParams(c)
	filters := repositories.EntryFilters{ChangelogID: &changelog.ID}
	if status := c.Query("status"); status != "" {
		s := models.EntryStatus(status)
		filters.Status = &s
	}

	entries, total, err := h.entries.List(c.Request.Context(), filters, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list entries"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

// Get handles GET /entries/:id
func (h *EntryHandlers) Get(c *gin.Context) {
	entry, ok := h.loadEntry(c)
	if !ok {
		return
	}

	tags, err := h.entries.GetTags(c.Request.Context(), entry.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load tags"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"entry": entry, "tags": tags})
}

type updateEntryBody struct {
	Title *string `json:"title"`
	Body  *string `json:"body"`
}

// Update handles PUT /entries/:id. Published entries are immutable.
func (h *EntryHandlers) Update(c *gin.Context) {
	entry, ok := h.loadEntry(c)
	if !ok {
		return
	}

	if entry.IsPublished() {
		c.JSON(http.StatusConflict, gin.H{"error": "Published entries cannot be edited"})
		return
	}

	var body updateEntryBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	if body.Title != nil {
		entry.Title = *body.Title
	}
	if body.Body != nil {
		entry.Body = *body.Body
	}

	if err := h.entries.Update(c.Request.Context(), entry); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update entry"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"entry": entry})
}

// Publish handles POST /entries/:id/publish. The access policy decides whether
// the caller may publish now; a staff member the policy routes through review
// gets a 403 naming the allow_publish request kind.
func (h *EntryHandlers) Publish(c *gin.Context) {
	entry, project, ok := h.loadEntryWithProject(c)
	if !ok {
		return
	}

	outcome := workflow.EvaluatePolicy(middleware.CurrentRole(c), models.RequestKindAllowPublish, project)
	if outcome != workflow.OutcomeApplyDirectly {
		c.JSON(http.StatusForbidden, gin.H{
			"error":          "Publishing requires approval for this project",
			"request_kind":   string(models.RequestKindAllowPublish),
			"submit_request": "/api/v1/requests",
		})
		return
	}

	published, err := h.entries.Publish(c.Request.Context(), entry.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to publish entry"})
		return
	}
	if !published {
		c.JSON(http.StatusConflict, gin.H{"error": "Entry is already published"})
		return
	}

	telemetry.EntriesPublishedTotal.WithLabelValues("direct").Inc()

	entry, _ = h.entries.GetByID(c.Request.Context(), entry.ID)
	c.JSON(http.StatusOK, gin.H{"entry": entry})
}

type scheduleEntryBody struct {
	PublishAt time.Time `json:"publish_at" binding:"required"`
}

// Schedule handles POST /entries/:id/schedule. Scheduling needs either the
// policy's direct-apply outcome or an entry-level grant from an approved
// allow_schedule request.
func (h *EntryHandlers) Schedule(c *gin.Context) {
	entry, project, ok := h.loadEntryWithProject(c)
	if !ok {
		return
	}

	var body scheduleEntryBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	if !body.PublishAt.After(time.Now()) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "publish_at must be in the future"})
		return
	}

	outcome := workflow.EvaluatePolicy(middleware.CurrentRole(c), models.RequestKindAllowSchedule, project)
	if outcome != workflow.OutcomeApplyDirectly && !entry.ScheduleApproved {
		c.JSON(http.StatusForbidden, gin.H{
			"error":          "Scheduling requires approval for this entry",
			"request_kind":   string(models.RequestKindAllowSchedule),
			"submit_request": "/api/v1/requests",
		})
		return
	}

	scheduled, err := h.entries.Schedule(c.Request.Context(), entry.ID, body.PublishAt)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to schedule entry"})
		return
	}
	if !scheduled {
		c.JSON(http.StatusConflict, gin.H{"error": "Only draft entries can be scheduled"})
		return
	}

	entry, _ = h.entries.GetByID(c.Request.Context(), entry.ID)
	c.JSON(http.StatusOK, gin.H{"entry": entry})
}

// loadEntry resolves the :id path parameter to an entry
func (h *EntryHandlers) loadEntry(c *gin.Context) (*models.Entry, bool) {
	entryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid entry id"})
		return nil, false
	}

	entry, err := h.entries.GetByID(c.Request.Context(), entryID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load entry"})
		return nil, false
	}
	if entry == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Entry not found"})
		return nil, false
	}

	return entry, true
}

// loadEntryWithProject resolves the entry and the project owning its changelog
func (h *EntryHandlers) loadEntryWithProject(c *gin.Context) (*models.Entry, *models.Project, bool) {
	entry, ok := h.loadEntry(c)
	if !ok {
		return nil, nil, false
	}

	project, err := h.projects.GetByChangelogID(c.Request.Context(), entry.ChangelogID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load project"})
		return nil, nil, false
	}
	if project == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		return nil, nil, false
	}

	return entry, project, true
}
