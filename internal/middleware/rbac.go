// Package middleware (rbac.go) implements role-based authorization middleware.
//
// Roles are checked at request time from the context populated by
// AuthMiddleware rather than being trusted from the JWT. When a user's role is
// updated, the change takes effect immediately on their next request without
// needing to invalidate or reissue their token.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shiplog/shiplog-server/internal/auth"
)

// RequireRole checks if the authenticated user has one of the allowed roles
func RequireRole(roles ...auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		current := CurrentRole(c)
		for _, role := range roles {
			if current == role {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error": "Insufficient permissions",
		})
	}
}

// RequireReviewer checks if the authenticated user may decide pending requests
func RequireReviewer() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !CurrentRole(c).CanReview() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "Only administrators may decide requests",
			})
			return
		}

		c.Next()
	}
}

// RequireProposer checks if the authenticated user may submit mutations
func RequireProposer() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !CurrentRole(c).CanPropose() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "Insufficient permissions",
			})
			return
		}

		c.Next()
	}
}
