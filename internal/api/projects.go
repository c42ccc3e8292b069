// projects.go implements project CRUD and the per-project tag listing. Project
// deletion has no handler here: it goes through the workflow as a
// delete_project request.
package api

import (
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shiplog/shiplog-server/internal/db/models"
	"github.com/shiplog/shiplog-server/internal/db/repositories"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// ProjectHandlers serves project and tag endpoints
type ProjectHandlers struct {
	projects *repositories.ProjectRepository
	tags     *repositories.TagRepository
}

// NewProjectHandlers creates project handlers
func NewProjectHandlers(projects *repositories.ProjectRepository, tags *repositories.TagRepository) *ProjectHandlers {
	return &ProjectHandlers{projects: projects, tags: tags}
}

type createProjectBody struct {
	Name             string   `json:"name" binding:"required"`
	Slug             string   `json:"slug" binding:"required"`
	Description      *string  `json:"description"`
	RequireApproval  *bool    `json:"require_approval"`
	AllowAutoPublish bool     `json:"allow_auto_publish"`
	DefaultTags      []string `json:"default_tags"`
}

// Create handles POST /projects
func (h *ProjectHandlers) Create(c *gin.Context) {
	var body createProjectBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	if !slugPattern.MatchString(body.Slug) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Slug must be lowercase letters, digits, and hyphens"})
		return
	}

	existing, err := h.projects.GetBySlug(c.Request.Context(), body.Slug)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check slug"})
		return
	}
	if existing != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "A project with this slug already exists"})
		return
	}

	// New projects require approval unless explicitly opted out
	requireApproval := true
	if body.RequireApproval != nil {
		requireApproval = *body.RequireApproval
	}

	project := &models.Project{
		Name:             body.Name,
		Slug:             body.Slug,
		Description:      body.Description,
		RequireApproval:  requireApproval,
		AllowAutoPublish: body.AllowAutoPublish,
		DefaultTags:      pq.StringArray(body.DefaultTags),
	}

	if err := h.projects.Create(c.Request.Context(), project); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create project"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"project": project})
}

// List handles GET /projects
func (h *ProjectHandlers) List(c *gin.Context) {
	limit, offset := paginationParams(c)

	projects, err := h.projects.List(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list projects"})
		return
	}

	total, err := h.projects.Count(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count projects"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"projects": projects,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}

// Get handles GET /projects/:id
func (h *ProjectHandlers) Get(c *gin.Context) {
	project, ok := h.loadProject(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{"project": project})
}

type updateProjectBody struct {
	Name             *string   `json:"name"`
	Description      *string   `json:"description"`
	RequireApproval  *bool     `json:"require_approval"`
	AllowAutoPublish *bool     `json:"allow_auto_publish"`
	DefaultTags      *[]string `json:"default_tags"`
}

// Update handles PUT /projects/:id. Only the supplied fields change.
func (h *ProjectHandlers) Update(c *gin.Context) {
	project, ok := h.loadProject(c)
	if !ok {
		return
	}

	var body updateProjectBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	if body.Name != nil {
		project.Name = *body.Name
	}
	if body.Description != nil {
		project.Description = body.Description
	}
	if body.RequireApproval != nil {
		project.RequireApproval = *body.RequireApproval
	}
	if body.AllowAutoPublish != nil {
		project.AllowAutoPublish = *body.AllowAutoPublish
	}
	if body.DefaultTags != nil {
		project.DefaultTags = pq.StringArray(*body.DefaultTags)
	}

	if err := h.projects.Update(c.Request.Context(), project); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update project"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"project": project})
}

// GetChangelog handles GET /projects/:id/changelog
func (h *ProjectHandlers) GetChangelog(c *gin.Context) {
	project, ok := h.loadProject(c)
	if !ok {
		return
	}

	changelog, err := h.projects.GetChangelog(c.Request.Context(), project.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load changelog"})
		return
	}
	if changelog == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Changelog not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"changelog": changelog})
}

// ListTags handles GET /projects/:id/tags. The response carries both the
// normalized tag entities and the project's soft default-tag list, the two
// surfaces a delete_tag request operates on.
func (h *ProjectHandlers) ListTags(c *gin.Context) {
	project, ok := h.loadProject(c)
	if !ok {
		return
	}

	tags, err := h.tags.ListByProject(c.Request.Context(), project.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list tags"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tags":         tags,
		"default_tags": project.DefaultTags,
	})
}

type createTagBody struct {
	Name  string  `json:"name" binding:"required"`
	Color *string `json:"color"`
}

// CreateTag handles POST /projects/:id/tags
func (h *ProjectHandlers) CreateTag(c *gin.Context) {
	project, ok := h.loadProject(c)
	if !ok {
		return
	}

	var body createTagBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	existing, err := h.tags.GetByName(c.Request.Context(), project.ID, body.Name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check tag"})
		return
	}
	if existing != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "A tag with this name already exists"})
		return
	}

	tag := &models.Tag{
		ProjectID: project.ID,
		Name:      body.Name,
		Color:     body.Color,
	}
	if err := h.tags.Create(c.Request.Context(), tag); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create tag"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"tag": tag})
}

// loadProject resolves the :id path parameter to a project, writing the error
// response itself when resolution fails
func (h *ProjectHandlers) loadProject(c *gin.Context) (*models.Project, bool) {
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid project id"})
		return nil, false
	}

	project, err := h.projects.GetByID(c.Request.Context(), projectID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load project"})
		return nil, false
	}
	if project == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		return nil, false
	}

	return project, true
}
