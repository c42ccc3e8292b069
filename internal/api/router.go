// Package api wires together all HTTP routes for the Shiplog backend.
//
// Route grouping philosophy:
//   - Public routes (/public/, /health, /ready, /version) are unauthenticated
//     but rate limited: the changelog feed and subscribe/unsubscribe are meant
//     to be consumed by end users without credentials.
//   - Everything under /api/v1 (except setup) requires a bearer JWT and the
//     appropriate role.
package api

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/shiplog/shiplog-server/internal/auth"
	"github.com/shiplog/shiplog-server/internal/config"
	"github.com/shiplog/shiplog-server/internal/db/repositories"
	"github.com/shiplog/shiplog-server/internal/jobs"
	"github.com/shiplog/shiplog-server/internal/middleware"
	"github.com/shiplog/shiplog-server/internal/workflow"
)

// BackgroundServices holds references to background jobs and resources that
// must be stopped during graceful shutdown. The caller (cmd/server) is
// responsible for calling Shutdown() when the process receives a termination
// signal.
type BackgroundServices struct {
	publishScheduler *jobs.PublishScheduler
	rateLimiters     []*middleware.RateLimiter
}

// Shutdown stops all background goroutines. It should be called after the
// HTTP server has been shut down so that in-flight requests are drained first.
func (bg *BackgroundServices) Shutdown() {
	slog.Info("stopping background services")
	if bg.publishScheduler != nil {
		bg.publishScheduler.Stop()
	}
	for _, rl := range bg.rateLimiters {
		rl.Stop()
	}
	slog.Info("all background services stopped")
}

// NewRouter creates and configures the Gin router
func NewRouter(cfg *config.Config, db *sqlx.DB, orchestrator *workflow.Orchestrator) (*gin.Engine, *BackgroundServices) {
	router := gin.New()

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	projectRepo := repositories.NewProjectRepository(db)
	entryRepo := repositories.NewEntryRepository(db)
	tagRepo := repositories.NewTagRepository(db)
	subscriberRepo := repositories.NewSubscriberRepository(db)
	auditRepo := repositories.NewAuditRepository(db)
	settingsRepo := repositories.NewSettingsRepository(db)

	// Start the scheduled publish runner
	publishScheduler := jobs.NewPublishScheduler(entryRepo, cfg.Workflow.PublishInterval)
	publishScheduler.Start(context.Background())
	log.Printf("Publish scheduler started (interval %s)", cfg.Workflow.PublishInterval)

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(LoggerMiddleware(cfg))
	router.Use(CORSMiddleware(cfg))
	router.Use(middleware.SecurityHeadersMiddleware(middleware.APISecurityHeadersConfig()))

	// Health, readiness, and version endpoints
	router.GET("/health", healthCheckHandler(db))
	router.GET("/ready", readinessHandler(db))
	router.GET("/version", versionHandler())

	// Initialize handlers
	requestHandlers := NewRequestHandlers(orchestrator)
	projectHandlers := NewProjectHandlers(projectRepo, tagRepo)
	entryHandlers := NewEntryHandlers(entryRepo, projectRepo)
	subscriberHandlers := NewSubscriberHandlers(subscriberRepo, projectRepo)
	auditHandlers := NewAuditHandlers(auditRepo)
	publicHandlers := NewPublicHandlers(projectRepo, entryRepo)
	setupHandlers := NewSetupHandlers(settingsRepo, userRepo)
	userHandlers := NewUserHandlers(userRepo)

	// Initialize rate limiters
	generalRateLimiter := middleware.NewRateLimiter(middleware.DefaultRateLimitConfig())
	submitRateLimiter := middleware.NewRateLimiter(middleware.SubmitRateLimitConfig())

	// Public changelog surface (no auth, rate limited)
	public := router.Group("/public")
	public.Use(middleware.RateLimitMiddleware(generalRateLimiter))
	{
		public.GET("/projects/:slug/entries", publicHandlers.Feed)
		public.POST("/projects/:slug/subscribers", subscriberHandlers.Subscribe)
		public.DELETE("/subscribers/:id", subscriberHandlers.Unsubscribe)
	}

	apiV1 := router.Group("/api/v1")
	{
		// Setup endpoints (public; token-gated inside the handler)
		apiV1.GET("/setup/status", setupHandlers.Status)
		apiV1.POST("/setup/admin",
			middleware.RateLimitMiddleware(submitRateLimiter),
			setupHandlers.Complete)

		// Authenticated endpoints
		authenticated := apiV1.Group("")
		authenticated.Use(middleware.AuthMiddleware(userRepo))
		authenticated.Use(middleware.RateLimitMiddleware(generalRateLimiter))
		authenticated.Use(middleware.AuditMiddleware(auditRepo, cfg.Workflow.AuditLogReadOperations))
		{
			authenticated.GET("/auth/me", userHandlers.Me)

			// Workflow requests
			authenticated.POST("/requests",
				middleware.RateLimitMiddleware(submitRateLimiter),
				middleware.RequireProposer(),
				requestHandlers.Submit)
			authenticated.GET("/requests", requestHandlers.List)
			authenticated.GET("/requests/:id", requestHandlers.Get)
			authenticated.POST("/requests/:id/decision",
				middleware.RequireReviewer(),
				requestHandlers.Decide)

			// Projects and tags
			authenticated.POST("/projects",
				middleware.RequireRole(auth.RoleAdmin, auth.RoleStaff),
				projectHandlers.Create)
			authenticated.GET("/projects", projectHandlers.List)
			authenticated.GET("/projects/:id", projectHandlers.Get)
			authenticated.PUT("/projects/:id",
				middleware.RequireRole(auth.RoleAdmin),
				projectHandlers.Update)
			authenticated.GET("/projects/:id/changelog", projectHandlers.GetChangelog)
			authenticated.GET("/projects/:id/tags", projectHandlers.ListTags)
			authenticated.POST("/projects/:id/tags",
				middleware.RequireRole(auth.RoleAdmin, auth.RoleStaff),
				projectHandlers.CreateTag)

			// Entries
			authenticated.POST("/projects/:id/entries",
				middleware.RequireRole(auth.RoleAdmin, auth.RoleStaff),
				entryHandlers.Create)
			authenticated.GET("/projects/:id/entries", entryHandlers.List)
			authenticated.GET("/entries/:id", entryHandlers.Get)
			authenticated.PUT("/entries/:id",
				middleware.RequireRole(auth.RoleAdmin, auth.RoleStaff),
				entryHandlers.Update)
			authenticated.POST("/entries/:id/publish",
				middleware.RequireRole(auth.RoleAdmin, auth.RoleStaff),
				entryHandlers.Publish)
			authenticated.POST("/entries/:id/schedule",
				middleware.RequireRole(auth.RoleAdmin, auth.RoleStaff),
				entryHandlers.Schedule)

			// Subscribers (admin listing)
			authenticated.GET("/projects/:id/subscribers",
				middleware.RequireRole(auth.RoleAdmin),
				subscriberHandlers.List)

			// Admin: users and audit trail
			authenticated.GET("/admin/users",
				middleware.RequireRole(auth.RoleAdmin),
				userHandlers.List)
			authenticated.POST("/admin/users",
				middleware.RequireRole(auth.RoleAdmin),
				userHandlers.Create)
			authenticated.PUT("/admin/users/:id/role",
				middleware.RequireRole(auth.RoleAdmin),
				userHandlers.UpdateRole)
			authenticated.GET("/admin/audit-logs",
				middleware.RequireRole(auth.RoleAdmin),
				auditHandlers.List)
			authenticated.GET("/admin/audit-logs/:id",
				middleware.RequireRole(auth.RoleAdmin),
				auditHandlers.Get)
		}
	}

	background := &BackgroundServices{
		publishScheduler: publishScheduler,
		rateLimiters:     []*middleware.RateLimiter{generalRateLimiter, submitRateLimiter},
	}

	return router, background
}

// healthCheckHandler returns the health status of the service
func healthCheckHandler(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database connection failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// readinessHandler returns the readiness status of the service
func readinessHandler(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"ready": false,
				"error": "database not ready",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"ready": true,
			"time":  time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// versionHandler returns the API version
func versionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":     "0.1.0",
			"api_version": "v1",
		})
	}
}

// LoggerMiddleware provides structured request logging via slog
func LoggerMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		requestID, _ := c.Get(middleware.RequestIDKey)

		slog.LogAttrs(
			c.Request.Context(),
			slog.LevelInfo,
			"http request",
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.String("query", query),
			slog.Int("status", c.Writer.Status()),
			slog.Int("size", c.Writer.Size()),
			slog.Duration("latency", latency),
			slog.String("ip", c.ClientIP()),
			slog.String("request_id", fmt.Sprintf("%v", requestID)),
			slog.String("user_agent", c.Request.UserAgent()),
		)
	}
}

// CORSMiddleware handles CORS
func CORSMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		allowed := false
		for _, allowedOrigin := range cfg.Security.CORS.AllowedOrigins {
			if allowedOrigin == "*" || allowedOrigin == origin {
				allowed = true
				break
			}
		}

		if allowed {
			if origin == "" {
				c.Header("Access-Control-Allow-Origin", "*")
			} else {
				c.Header("Access-Control-Allow-Origin", origin)
			}
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Requested-With")
			c.Header("Access-Control-Max-Age", "3600")
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
