// publish.go implements the release archive upload, validation, and
// registration endpoint.
package projects

import (
	"bytes"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pkgindex/pkgindex/internal/config"
	"github.com/pkgindex/pkgindex/internal/db/models"
	"github.com/pkgindex/pkgindex/internal/db/repositories"
	"github.com/pkgindex/pkgindex/internal/middleware"
	"github.com/pkgindex/pkgindex/internal/storage"
	"github.com/pkgindex/pkgindex/internal/validation"
)

// @Summary      Publish release
// @Description  Uploads a new release of a project as a .tar.gz archive. Blocked while the project is quarantined unless the actor is an administrator. Requires projects:write scope.
// @Tags         Projects
// @Security     Bearer
// @Accept       multipart/form-data
// @Produce      json
// @Param        name     path      string  true   "Project name"
// @Param        version  formData  string  true   "Semantic version (e.g. 1.2.3)"
// @Param        summary  formData  string  false  "Short release summary"
// @Param        file     formData  file    true   "Release archive (.tar.gz, max 100MB)"
// @Success      201  {object}  map[string]interface{}  "id, project, version, checksum, size_bytes"
// @Failure      400  {object}  map[string]interface{}  "Invalid request, bad version format, or invalid archive"
// @Failure      403  {object}  map[string]interface{}  "Project is quarantined"
// @Failure      409  {object}  map[string]interface{}  "Version already exists"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/projects/{name}/releases [post]
// PublishHandler handles release uploads.
// Implements: POST /api/v1/projects/:name/releases
// Accepts multipart form with: version, summary (optional), file
func PublishHandler(db *sql.DB, storageBackend storage.Storage, cfg *config.Config) gin.HandlerFunc {
	releaseRepo := repositories.NewReleaseRepository(db)

	return func(c *gin.Context) {
		project := c.MustGet(middleware.ProjectKey).(*models.Project)

		// Parse multipart form (max 100MB)
		if err := c.Request.ParseMultipartForm(100 << 20); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Failed to parse multipart form",
			})
			return
		}

		version := c.PostForm("version")
		summary := c.PostForm("summary")

		if version == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Missing required field: version",
			})
			return
		}
		if err := validation.ValidateSemver(version); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": fmt.Sprintf("Invalid version format: %v", err),
			})
			return
		}

		file, _, err := c.Request.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Missing or invalid file upload",
			})
			return
		}
		defer file.Close()

		// Read file into buffer for validation and upload
		fileBuffer := &bytes.Buffer{}
		size, err := io.Copy(fileBuffer, file)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to read uploaded file",
			})
			return
		}

		if err := validation.ValidateArchive(bytes.NewReader(fileBuffer.Bytes()), validation.MaxArchiveSize); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": fmt.Sprintf("Invalid archive: %v", err),
			})
			return
		}

		// Check for duplicate version
		existing, err := releaseRepo.GetRelease(c.Request.Context(), project.ID, version)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to check for existing release",
			})
			return
		}
		if existing != nil {
			c.JSON(http.StatusConflict, gin.H{
				"error": fmt.Sprintf("Version %s already exists for this project", version),
			})
			return
		}

		// Storage path: projects/{name}/{version}.tar.gz
		storagePath := fmt.Sprintf("projects/%s/%s.tar.gz", project.Name, version)

		uploadResult, err := storageBackend.Upload(
			c.Request.Context(),
			storagePath,
			bytes.NewReader(fileBuffer.Bytes()),
			size,
		)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to store release archive",
			})
			return
		}

		// README extraction failures are non-fatal; the release ships without one
		readme, err := validation.ExtractReadme(bytes.NewReader(fileBuffer.Bytes()))
		if err != nil {
			slog.Warn("failed to extract README from release archive",
				"project", project.Name, "version", version, "error", err)
		}

		release := &models.Release{
			ProjectID:      project.ID,
			Version:        version,
			StoragePath:    uploadResult.Path,
			StorageBackend: cfg.Storage.DefaultBackend,
			SizeBytes:      uploadResult.Size,
			Checksum:       uploadResult.Checksum,
		}
		if summary != "" {
			release.Summary = &summary
		}
		if readme != "" {
			release.Readme = &readme
		}
		if userID, exists := c.Get("user_id"); exists {
			if uid, ok := userID.(string); ok {
				release.PublishedBy = &uid
			}
		}

		if err := releaseRepo.CreateRelease(c.Request.Context(), release); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to record release",
			})
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"id":         release.ID,
			"project":    project.Name,
			"version":    release.Version,
			"checksum":   release.Checksum,
			"size_bytes": release.SizeBytes,
		})
	}
}
