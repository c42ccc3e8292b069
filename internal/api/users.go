// users.go implements admin user management: listing accounts and changing
// roles. Account identity comes from the external identity service; these
// endpoints only manage the local role consulted by the access policy.
package api

import (
	"net/http"
	"net/mail"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shiplog/shiplog-server/internal/auth"
	"github.com/shiplog/shiplog-server/internal/db/models"
	"github.com/shiplog/shiplog-server/internal/db/repositories"
	"github.com/shiplog/shiplog-server/internal/middleware"
)

// UserHandlers serves user management endpoints
type UserHandlers struct {
	users *repositories.UserRepository
}

// NewUserHandlers creates user handlers
func NewUserHandlers(users *repositories.UserRepository) *UserHandlers {
	return &UserHandlers{users: users}
}

// Me handles GET /auth/me
func (h *UserHandlers) Me(c *gin.Context) {
	if user, exists := c.Get("user"); exists {
		c.JSON(http.StatusOK, gin.H{"user": user})
		return
	}
	c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
}

// List handles GET /admin/users
func (h *UserHandlers) List(c *gin.Context) {
	limit, offset := paginationParams(c)

	users, err := h.users.List(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list users"})
		return
	}

	total, err := h.users.Count(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count users"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users":  users,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

type createUserBody struct {
	Email string `json:"email" binding:"required"`
	Name  string `json:"name" binding:"required"`
	Role  string `json:"role" binding:"required"`
}

// Create handles POST /admin/users
func (h *UserHandlers) Create(c *gin.Context) {
	var body createUserBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	if _, err := mail.ParseAddress(body.Email); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email address"})
		return
	}
	if auth.ParseRole(body.Role) != auth.Role(body.Role) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Role must be admin, staff, or viewer"})
		return
	}

	existing, err := h.users.GetByEmail(c.Request.Context(), body.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check email"})
		return
	}
	if existing != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "A user with this email already exists"})
		return
	}

	user := &models.User{
		Email: body.Email,
		Name:  body.Name,
		Role:  body.Role,
	}
	if err := h.users.Create(c.Request.Context(), user); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": user})
}

type updateRoleBody struct {
	Role string `json:"role" binding:"required"`
}

// UpdateRole handles PUT /admin/users/:id/role. Admins cannot demote
// themselves; losing the last reviewer would strand every pending request.
func (h *UserHandlers) UpdateRole(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
		return
	}

	var body updateRoleBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	if auth.ParseRole(body.Role) != auth.Role(body.Role) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Role must be admin, staff, or viewer"})
		return
	}

	if userID == middleware.CurrentUserID(c) && body.Role != string(auth.RoleAdmin) {
		c.JSON(http.StatusConflict, gin.H{"error": "Admins cannot demote themselves"})
		return
	}

	updated, err := h.users.UpdateRole(c.Request.Context(), userID, body.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update role"})
		return
	}
	if !updated {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": true})
}
