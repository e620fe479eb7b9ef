// releases.go implements the public release listing and download endpoints.
package index

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pkgindex/pkgindex/internal/db/repositories"
	"github.com/pkgindex/pkgindex/internal/safego"
	"github.com/pkgindex/pkgindex/internal/storage"
	"github.com/pkgindex/pkgindex/internal/telemetry"
	"github.com/pkgindex/pkgindex/internal/validation"
)

// downloadURLTTL bounds how long a signed download URL stays valid.
const downloadURLTTL = 15 * time.Minute

// @Summary      List releases
// @Description  Returns all releases of a project, newest first. Quarantined projects return 404 unless the requester is an administrator.
// @Tags         Index
// @Produce      json
// @Param        name  path  string  true  "Project name"
// @Success      200  {object}  map[string]interface{}  "releases"
// @Failure      404  {object}  map[string]interface{}  "Project not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /v1/projects/{name}/releases [get]
// ListReleasesHandler serves the release history of a project.
// Implements: GET /v1/projects/:name/releases
func ListReleasesHandler(db *sql.DB) gin.HandlerFunc {
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
			"project":  project.Name,
			"releases": releases,
		})
	}
}

// @Summary      Download release
// @Description  Redirects to the artifact download URL (signed URL for S3, file-serving endpoint for local storage). Quarantined projects return 404 unless the requester is an administrator.
// @Tags         Index
// @Produce      json
// @Param        name     path  string  true  "Project name"
// @Param        version  path  string  true  "Semantic version (e.g. 1.2.3)"
// @Success      302  "Redirect to the artifact URL"
// @Failure      400  {object}  map[string]interface{}  "Invalid version format"
// @Failure      404  {object}  map[string]interface{}  "Project or release not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /v1/projects/{name}/releases/{version}/download [get]
// DownloadHandler resolves a release artifact to a download URL.
// Implements: GET /v1/projects/:name/releases/:version/download
func DownloadHandler(db *sql.DB, storageBackend storage.Storage) gin.HandlerFunc {
	projectRepo := repositories.NewProjectRepository(db)
	releaseRepo := repositories.NewReleaseRepository(db)

	return func(c *gin.Context) {
		name := validation.NormalizeProjectName(c.Param("name"))
		version := c.Param("version")

		if err := validation.ValidateSemver(version); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid version format - must be valid semantic versioning",
			})
			return
		}

		project, err := projectRepo.GetProjectByName(c.Request.Context(), name)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to query project",
			})
			return
		}
		if project == nil || !visibleTo(c, project) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Project not found",
			})
			return
		}

		release, err := releaseRepo.GetRelease(c.Request.Context(), project.ID, version)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to query release",
			})
			return
		}
		if release == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Release not found",
			})
			return
		}

		downloadURL, err := storageBackend.GetURL(c.Request.Context(), release.StoragePath, downloadURLTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to generate download URL",
			})
			return
		}

		telemetry.ReleaseDownloadsTotal.WithLabelValues(project.Name).Inc()

		// Count the download without blocking the response; a background
		// context so the update survives the request ending.
		releaseID := release.ID
		safego.Go("download counter", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := releaseRepo.IncrementDownloadCount(ctx, releaseID); err != nil {
				slog.Error("failed to increment download count", "release_id", releaseID, "error", err)
			}
		})

		c.Header("X-Checksum-SHA256", release.Checksum)
		c.Redirect(http.StatusFound, downloadURL)
	}
}
