// setup.go implements first-run bootstrap. On first boot main.go generates a
// one-time setup token, stores its bcrypt hash, and prints the token to the
// logs. Exchanging that token here creates the initial admin account and
// returns a JWT, after which the endpoint is permanently disabled.
package api

import (
	"net/http"
	"net/mail"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shiplog/shiplog-server/internal/auth"
	"github.com/shiplog/shiplog-server/internal/db/models"
	"github.com/shiplog/shiplog-server/internal/db/repositories"
	"golang.org/x/crypto/bcrypt"
)

// SetupHandlers serves the first-run bootstrap endpoints
type SetupHandlers struct {
	settings *repositories.SettingsRepository
	users    *repositories.UserRepository
}

// NewSetupHandlers creates setup handlers
func NewSetupHandlers(settings *repositories.SettingsRepository, users *repositories.UserRepository) *SetupHandlers {
	return &SetupHandlers{settings: settings, users: users}
}

// Status handles GET /setup/status (public)
func (h *SetupHandlers) Status(c *gin.Context) {
	settings, err := h.settings.Get(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load setup status"})
		return
	}

	completed := settings != nil && settings.SetupCompleted
	c.JSON(http.StatusOK, gin.H{"setup_completed": completed})
}

type completeSetupBody struct {
	Token string `json:"token" binding:"required"`
	Email string `json:"email" binding:"required"`
	Name  string `json:"name" binding:"required"`
}

// Complete handles POST /setup/admin. Verifies the one-time token against its
// stored bcrypt hash, creates the initial admin, and marks setup done.
func (h *SetupHandlers) Complete(c *gin.Context) {
	settings, err := h.settings.Get(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load setup state"})
		return
	}
	if settings == nil || settings.SetupCompleted || settings.SetupTokenHash == nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "Setup has already been completed"})
		return
	}

	var body completeSetupBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	if _, err := mail.ParseAddress(body.Email); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email address"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(*settings.SetupTokenHash), []byte(body.Token)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid setup token"})
		return
	}

	admin := &models.User{
		Email: body.Email,
		Name:  body.Name,
		Role:  string(auth.RoleAdmin),
	}
	if err := h.users.Create(c.Request.Context(), admin); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create admin user"})
		return
	}

	done, err := h.settings.CompleteSetup(c.Request.Context(), admin.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to complete setup"})
		return
	}
	if !done {
		// Lost a race with a concurrent setup completion
		c.JSON(http.StatusForbidden, gin.H{"error": "Setup has already been completed"})
		return
	}

	token, err := auth.GenerateJWT(admin.ID.String(), admin.Email, auth.RoleAdmin, 24*time.Hour)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user":  admin,
		"token": token,
	})
}
