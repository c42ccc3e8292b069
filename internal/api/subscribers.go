// subscribers.go implements subscription management. Subscribe and unsubscribe
// are public (rate limited); the listing is admin-only. Email delivery itself
// is an external collaborator, this service only owns the records.
package api

import (
	"net/http"
	"net/mail"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shiplog/shiplog-server/internal/db/models"
	"github.com/shiplog/shiplog-server/internal/db/repositories"
)

// SubscriberHandlers serves subscription endpoints
type SubscriberHandlers struct {
	subscribers *repositories.SubscriberRepository
	projects    *repositories.ProjectRepository
}

// NewSubscriberHandlers creates subscriber handlers
func NewSubscriberHandlers(subscribers *repositories.SubscriberRepository, projects *repositories.ProjectRepository) *SubscriberHandlers {
	return &SubscriberHandlers{subscribers: subscribers, projects: projects}
}

type subscribeBody struct {
	Email string `json:"email" binding:"required"`
}

// Subscribe handles POST /public/projects/:slug/subscribers
func (h *SubscriberHandlers) Subscribe(c *gin.Context) {
	project, err := h.projects.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load project"})
		return
	}
	if project == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		return
	}

	var body subscribeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	if _, err := mail.ParseAddress(body.Email); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email address"})
		return
	}

	existing, err := h.subscribers.GetByEmail(c.Request.Context(), project.ID, body.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check subscription"})
		return
	}
	if existing != nil {
		// Idempotent: re-subscribing returns the existing record
		c.JSON(http.StatusOK, gin.H{"subscriber": existing})
		return
	}

	sub := &models.Subscriber{
		ProjectID: project.ID,
		Email:     body.Email,
	}
	if err := h.subscribers.Create(c.Request.Context(), sub); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to subscribe"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"subscriber": sub})
}

// Unsubscribe handles DELETE /public/subscribers/:id
func (h *SubscriberHandlers) Unsubscribe(c *gin.Context) {
	subID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid subscriber id"})
		return
	}

	deleted, err := h.subscribers.Delete(c.Request.Context(), subID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to unsubscribe"})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "Subscription not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"unsubscribed": true})
}

// List handles GET /projects/:id/subscribers (admin only)
func (h *SubscriberHandlers) List(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid project id"})
		return
	}

	limit, offset := paginationParams(c)
	subs, total, err := h.subscribers.ListByProject(c.Request.Context(), projectID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list subscribers"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"subscribers": subs,
		"total":       total,
		"limit":       limit,
		"offset":      offset,
	})
}
