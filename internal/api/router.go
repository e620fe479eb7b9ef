// Package api wires together all HTTP routes for the package index.
//
// Route grouping philosophy:
//   - Index routes (/v1/projects/...) are publicly readable. They run behind
//     OptionalAuthMiddleware so that an admin credential, when present, can
//     see quarantined projects that anonymous clients cannot.
//   - Publishing and administration routes (/api/v1/) always require
//     authentication and the appropriate RBAC scope.
package api

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/pkgindex/pkgindex/internal/api/admin"
	"github.com/pkgindex/pkgindex/internal/api/index"
	"github.com/pkgindex/pkgindex/internal/api/projects"
	"github.com/pkgindex/pkgindex/internal/auth"
	"github.com/pkgindex/pkgindex/internal/config"
	"github.com/pkgindex/pkgindex/internal/db/repositories"
	"github.com/pkgindex/pkgindex/internal/jobs"
	"github.com/pkgindex/pkgindex/internal/lifecycle"
	"github.com/pkgindex/pkgindex/internal/middleware"
	"github.com/pkgindex/pkgindex/internal/notify"
	"github.com/pkgindex/pkgindex/internal/storage"

	// Import storage backends to register them
	_ "github.com/pkgindex/pkgindex/internal/storage/local"
	_ "github.com/pkgindex/pkgindex/internal/storage/s3"
)

// BackgroundServices holds references to background jobs and resources that must
// be stopped during graceful shutdown. The caller (cmd/server) is responsible for
// calling Shutdown() when the process receives a termination signal.
type BackgroundServices struct {
	reminderJob  *jobs.QuarantineReminder
	notifier     notify.Notifier
	rateLimiters []*middleware.RateLimiter
}

// Shutdown stops all background goroutines and flushes the notifier. It should
// be called after the HTTP server has been shut down so that in-flight requests
// are drained first.
func (bg *BackgroundServices) Shutdown() {
	slog.Info("stopping background services")
	if bg.reminderJob != nil {
		bg.reminderJob.Stop()
	}
	for _, rl := range bg.rateLimiters {
		rl.Stop()
	}
	if bg.notifier != nil {
		if err := bg.notifier.Close(); err != nil {
			slog.Error("failed to close notifier", "error", err)
		}
	}
	slog.Info("all background services stopped")
}

// NewRouter creates and configures the Gin router
func NewRouter(cfg *config.Config, db *sql.DB) (*gin.Engine, *BackgroundServices) {
	router := gin.New()

	// Initialize storage backend
	storageBackend, err := storage.NewStorage(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage backend: %v", err)
	}
	log.Printf("Initialized storage backend: %s", cfg.Storage.DefaultBackend)

	// Initialize repositories. The user repository is sqlx-based, the rest
	// work against database/sql directly.
	userRepo := repositories.NewUserRepository(sqlx.NewDb(db, "postgres"))
	apiKeyRepo := repositories.NewAPIKeyRepository(db)
	projectRepo := repositories.NewProjectRepository(db)
	transitionRepo := repositories.NewTransitionRepository(db)

	// Build the notifier fan-out from the configured channels
	notifier, err := notify.NewMultiNotifier(notifierConfigs(cfg), slog.Default())
	if err != nil {
		log.Fatalf("Failed to initialize notifiers: %v", err)
	}

	// Lifecycle service owns all status transitions
	lifecycleSvc := lifecycle.NewService(db, projectRepo, transitionRepo, notifier, slog.Default())

	// Start the quarantine review reminder job
	reminderJob := jobs.NewQuarantineReminder(projectRepo, notifier, cfg.Quarantine, slog.Default())
	go reminderJob.Start(context.Background())

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(LoggerMiddleware(cfg))
	router.Use(CORSMiddleware(cfg))
	router.Use(middleware.SecurityHeadersMiddleware(middleware.APISecurityHeadersConfig()))

	// Health check endpoint
	router.GET("/health", healthCheckHandler(db))

	// Readiness check endpoint (includes storage backend probe)
	router.GET("/ready", readinessHandler(db, storageBackend))

	// API version
	router.GET("/version", versionHandler())

	// Rate limiters, stopped via BackgroundServices.Shutdown
	generalRateLimiter := middleware.NewRateLimiter(middleware.DefaultRateLimitConfig())
	authRateLimiter := middleware.NewRateLimiter(middleware.AuthRateLimitConfig())
	uploadRateLimiter := middleware.NewRateLimiter(middleware.UploadRateLimitConfig())

	// Public index endpoints (v1). Anonymous clients never see quarantined
	// projects; authenticated admins do.
	v1 := router.Group("/v1")
	v1.Use(middleware.RateLimitMiddleware(generalRateLimiter))
	v1.Use(middleware.OptionalAuthMiddleware(userRepo, apiKeyRepo))
	{
		v1.GET("/projects", index.ListHandler(db))
		v1.GET("/projects/:name", index.GetProjectHandler(db))
		v1.GET("/projects/:name/releases", index.ListReleasesHandler(db))
		v1.GET("/projects/:name/releases/:version/download", index.DownloadHandler(db, storageBackend))
	}

	// File serving endpoint for local storage with ServeDirectly enabled
	router.GET("/v1/files/*filepath", index.ServeFileHandler(storageBackend))

	// Authenticated endpoints
	apiV1 := router.Group("/api/v1")
	apiV1.Use(middleware.RateLimitMiddleware(generalRateLimiter))
	apiV1.Use(middleware.AuthMiddleware(userRepo, apiKeyRepo))
	{
		// Project creation does not go through the quarantine guard since
		// the project does not exist yet.
		apiV1.POST("/projects",
			middleware.RequireScope(auth.ScopeProjectsWrite),
			projects.CreateHandler(db))

		// Mutations against an existing project. The quarantine guard
		// resolves and stashes the project, and rejects mutation while the
		// project is quarantined.
		projectGroup := apiV1.Group("/projects/:name")
		projectGroup.Use(middleware.RequireScope(auth.ScopeProjectsWrite))
		projectGroup.Use(middleware.QuarantineGuard(projectRepo, lifecycleSvc))
		{
			projectGroup.PATCH("", projects.UpdateHandler(db))
			projectGroup.POST("/releases",
				middleware.RateLimitMiddleware(uploadRateLimiter),
				projects.PublishHandler(db, storageBackend, cfg))
		}

		// API key self-management
		apiKeyHandlers := admin.NewAPIKeyHandlers(cfg, db)
		apiKeysGroup := apiV1.Group("/apikeys")
		apiKeysGroup.Use(middleware.RateLimitMiddleware(authRateLimiter))
		apiKeysGroup.Use(middleware.RequireScope(auth.ScopeAPIKeysManage))
		{
			apiKeysGroup.GET("", apiKeyHandlers.ListAPIKeysHandler())
			apiKeysGroup.POST("", apiKeyHandlers.CreateAPIKeyHandler())
			apiKeysGroup.DELETE("/:id", apiKeyHandlers.DeleteAPIKeyHandler())
		}

		// User management
		userHandlers := admin.NewUserHandlers(db)
		usersReadGroup := apiV1.Group("/users")
		usersReadGroup.Use(middleware.RequireScope(auth.ScopeUsersRead))
		{
			usersReadGroup.GET("", userHandlers.ListUsersHandler())
			usersReadGroup.GET("/:id", userHandlers.GetUserHandler())
		}
		usersWriteGroup := apiV1.Group("/users")
		usersWriteGroup.Use(middleware.RequireScope(auth.ScopeUsersWrite))
		{
			usersWriteGroup.POST("", userHandlers.CreateUserHandler())
			usersWriteGroup.PUT("/:id/scopes", userHandlers.UpdateUserScopesHandler())
			usersWriteGroup.DELETE("/:id", userHandlers.DeleteUserHandler())
		}

		// Lifecycle administration
		lifecycleHandlers := admin.NewLifecycleHandlers(lifecycleSvc)
		adminProjects := apiV1.Group("/admin/projects/:name")
		{
			adminProjects.POST("/quarantine",
				middleware.RequireScope(auth.ScopeQuarantineManage),
				lifecycleHandlers.QuarantineHandler())
			adminProjects.POST("/clear",
				middleware.RequireScope(auth.ScopeQuarantineManage),
				lifecycleHandlers.ClearHandler())
			adminProjects.GET("/history",
				middleware.RequireScope(auth.ScopeAuditRead),
				lifecycleHandlers.HistoryHandler())

			projectAdminHandlers := admin.NewProjectAdminHandlers(db, storageBackend)
			adminProjects.DELETE("",
				middleware.RequireScope(auth.ScopeAdmin),
				projectAdminHandlers.DeleteProjectHandler())
		}
	}

	bg := &BackgroundServices{
		reminderJob:  reminderJob,
		notifier:     notifier,
		rateLimiters: []*middleware.RateLimiter{generalRateLimiter, authRateLimiter, uploadRateLimiter},
	}

	return router, bg
}

// notifierConfigs converts the viper-bound notification channel configuration
// into notifier configs. A globally disabled notifications block yields no
// channels, which makes NewMultiNotifier return a no-op fan-out.
func notifierConfigs(cfg *config.Config) []notify.Config {
	if !cfg.Notifications.Enabled {
		return nil
	}

	configs := make([]notify.Config, 0, len(cfg.Notifications.Channels))
	for _, ch := range cfg.Notifications.Channels {
		nc := notify.Config{
			Enabled: ch.Enabled,
			Type:    ch.Type,
		}
		if ch.Kafka != nil {
			nc.Kafka = &notify.KafkaConfig{
				Brokers:      ch.Kafka.Brokers,
				Topic:        ch.Kafka.Topic,
				WriteTimeout: ch.Kafka.WriteTimeout,
			}
		}
		if ch.Webhook != nil {
			nc.Webhook = &notify.WebhookConfig{
				URL:     ch.Webhook.URL,
				Headers: ch.Webhook.Headers,
				Timeout: ch.Webhook.Timeout,
			}
		}
		if ch.File != nil {
			nc.File = &notify.FileConfig{
				Path: ch.File.Path,
			}
		}
		configs = append(configs, nc)
	}
	return configs
}

// @Summary      Health check
// @Description  Returns the health status of the service, including database connectivity.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status: healthy, time: RFC3339 timestamp"
// @Failure      503  {object}  map[string]interface{}  "status: unhealthy, error: database connection failed"
// @Router       /health [get]
// healthCheckHandler returns the health status of the service
func healthCheckHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check database connection
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

// @Summary      Readiness check
// @Description  Returns whether the service is ready to accept traffic. Checks database and storage backend connectivity.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "ready: true, time: RFC3339 timestamp"
// @Failure      503  {object}  map[string]interface{}  "ready: false, error: database not ready"
// @Router       /ready [get]
// readinessHandler returns the readiness status of the service.
// Unlike the liveness probe (/health), this also checks the storage backend so
// that a Kubernetes readiness gate fails when uploads/downloads would error.
func readinessHandler(db *sql.DB, storageBackend storage.Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		checks := gin.H{}

		// Check database connection
		if err := db.Ping(); err != nil {
			checks["database"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"ready":  false,
				"checks": checks,
				"error":  "database not ready",
			})
			return
		}
		checks["database"] = "healthy"

		// Check storage backend with a known-absent sentinel path. Exists()
		// exercises authentication and network connectivity without creating
		// any state.
		if _, err := storageBackend.Exists(c.Request.Context(), ".readiness-probe"); err != nil {
			checks["storage"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"ready":  false,
				"checks": checks,
				"error":  "storage backend not ready",
			})
			return
		}
		checks["storage"] = "healthy"

		c.JSON(http.StatusOK, gin.H{
			"ready":  true,
			"checks": checks,
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// @Summary      API version
// @Description  Returns the current API version.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "version, api_version"
// @Router       /version [get]
// versionHandler returns the API version
func versionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":     "0.1.0",
			"api_version": "v1",
		})
	}
}

// LoggerMiddleware provides structured logging
func LoggerMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		// Log the request
		if cfg.Logging.Format == "json" {
			logJSON(c, latency, path, query)
		} else {
			logText(c, latency, path, query)
		}
	}
}

// logJSON logs a request as a JSON-structured slog record.
func logJSON(c *gin.Context, latency time.Duration, path, query string) {
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

// logText logs a request as a human-readable slog text record.
func logText(c *gin.Context, latency time.Duration, path, query string) {
	// reuse the same structured output; slog will emit text format when the global
	// handler is a TextHandler (configured in telemetry.SetupLogger).
	logJSON(c, latency, path, query)
}

// CORSMiddleware handles CORS
func CORSMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		// Check if origin is allowed
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
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
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
