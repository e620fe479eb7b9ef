// Package index implements the public read-only HTTP endpoints of the package
// index: the project feed, project detail, release listing, and downloads.
// These endpoints are intentionally unauthenticated so that package clients can
// resolve and fetch releases without credentials. Quarantined projects are
// hidden from all of them unless the requester is an administrator; write
// access is handled by the projects and admin packages which enforce
// authentication.
package index

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pkgindex/pkgindex/internal/db/models"
	"github.com/pkgindex/pkgindex/internal/db/repositories"
	"github.com/pkgindex/pkgindex/internal/validation"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// requesterIsAdmin reports whether the (optionally authenticated) requester
// holds the admin scope. Anonymous requests are never admin.
func requesterIsAdmin(c *gin.Context) bool {
	v, exists := c.Get("user")
	if !exists {
		return false
	}
	user, ok := v.(*models.User)
	return ok && user != nil && user.IsAdmin()
}

// visibleTo reports whether a project may be shown to this requester.
func visibleTo(c *gin.Context, project *models.Project) bool {
	return project.LifecycleStatus.Visible() || requesterIsAdmin(c)
}

// pagination parses limit/offset query parameters with sane bounds.
func pagination(c *gin.Context) (limit, offset int) {
	limit = defaultPageSize
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if raw := c.Query("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

// @Summary      List projects
// @Description  Returns the public index feed. Quarantined projects are excluded.
// @Tags         Index
// @Produce      json
// @Param        limit   query  int  false  "Page size (default 50, max 200)"
// @Param        offset  query  int  false  "Page offset"
// @Success      200  {object}  map[string]interface{}  "projects, total, limit, offset"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /v1/projects [get]
// ListHandler serves the public index feed.
// Implements: GET /v1/projects
func ListHandler(db *sql.DB) gin.HandlerFunc {
	projectRepo := repositories.NewProjectRepository(db)

	return func(c *gin.Context) {
		limit, offset := pagination(c)

		entries, total, err := projectRepo.ListIndex(c.Request.Context(), limit, offset)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to list projects",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"projects": entries,
			"total":    total,
			"limit":    limit,
			"offset":   offset,
		})
	}
}

// @Summary      Get project
// @Description  Returns a single project by name. Quarantined projects return 404 unless the requester is an administrator.
// @Tags         Index
// @Produce      json
// @Param        name  path  string  true  "Project name"
// @Success      200  {object}  models.Project
// @Failure      404  {object}  map[string]interface{}  "Project not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /v1/projects/{name} [get]
// GetProjectHandler serves a single project detail page.
// Implements: GET /v1/projects/:name
func GetProjectHandler(db *sql.DB) gin.HandlerFunc {
	projectRepo := repositories.NewProjectRepository(db)
	releaseRepo := repositories.NewReleaseRepository(db)

	return func(c *gin.Context) {
		name := validation.NormalizeProjectName(c.Param("name"))

		project, err := projectRepo.GetProjectByName(c.Request.Context(), name)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to query project",
			})
			return
		}
		// Hidden projects are indistinguishable from missing ones
		if project == nil || !visibleTo(c, project) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Project not found",
			})
			return
		}

		releases, err := releaseRepo.ListReleases(c.Request.Context(), project.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to query releases",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"project":  project,
			"releases": releases,
		})
	}
}
