// public.go implements the unauthenticated changelog feed: the published
// entries of a project addressed by slug.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shiplog/shiplog-server/internal/db/repositories"
)

// PublicHandlers serves the public changelog feed
type PublicHandlers struct {
	projects *repositories.ProjectRepository
	entries  *repositories.EntryRepository
}

// NewPublicHandlers creates public feed handlers
func NewPublicHandlers(projects *repositories.ProjectRepository, entries *repositories.EntryRepository) *PublicHandlers {
	return &PublicHandlers{projects: projects, entries: entries}
}

// Feed handles GET /public/projects/:slug/entries, returning only published
// entries, most recently published first
func (h *PublicHandlers) Feed(c *gin.Context) {
	project, err := h.projects.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load project"})
		return
	}
	if project == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		return
	}

	changelog, err := h.projects.GetChangelog(c.Request.Context(), project.ID)
	if err != nil || changelog == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load changelog"})
		return
	}

	limit, offset := paginationParams(c)
	entries, err := h.entries.ListPublished(c.Request.Context(), changelog.ID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list entries"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"project": gin.H{
			"name": project.Name,
			"slug": project.Slug,
		},
		"entries": entries,
		"limit":   limit,
		"offset":  offset,
	})
}
