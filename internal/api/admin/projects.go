// Package admin - projects.go implements destructive project administration. Deleting a
// project removes its releases and stored artifacts but leaves the transition
// history intact, so the audit trail of a quarantined-then-deleted project
// remains queryable by its historical ID.
package admin

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pkgindex/pkgindex/internal/db/repositories"
	"github.com/pkgindex/pkgindex/internal/storage"
	"github.com/pkgindex/pkgindex/internal/validation"
)

// ProjectAdminHandlers handles destructive project operations
type ProjectAdminHandlers struct {
	db             *sql.DB
	projectRepo    *repositories.ProjectRepository
	storageBackend storage.Storage
}

// NewProjectAdminHandlers creates a new ProjectAdminHandlers instance
func NewProjectAdminHandlers(db *sql.DB, storageBackend storage.Storage) *ProjectAdminHandlers {
	return &ProjectAdminHandlers{
		db:             db,
		projectRepo:    repositories.NewProjectRepository(db),
		storageBackend: storageBackend,
	}
}

// prefixDeleter is implemented by storage backends that can remove all
// objects under a prefix in one call (the S3 backend).
type prefixDeleter interface {
	DeletePrefix(ctx context.Context, prefix string) error
}

// @Summary      Delete project
// @Description  Permanently removes a project, its releases, and stored artifacts. Transition history is preserved and remains queryable by project ID. Requires admin scope.
// @Tags         Projects
// @Security     Bearer
// @Produce      json
// @Param        name  path  string  true  "Project name"
// @Success      200  {object}  map[string]interface{}  "deleted, project_id"
// @Failure      404  {object}  map[string]interface{}  "Project not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/admin/projects/{name} [delete]
// DeleteProjectHandler removes a project and its artifacts.
// Implements: DELETE /api/v1/admin/projects/:name
func (h *ProjectAdminHandlers) DeleteProjectHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		name := validation.NormalizeProjectName(c.Param("name"))

		project, err := h.projectRepo.GetProjectByName(c.Request.Context(), name)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to query project",
			})
			return
		}
		if project == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Project not found",
			})
			return
		}

		// Delete the database rows first; releases cascade. A storage cleanup
		// failure after this point leaves orphaned objects, not broken rows.
		if err := h.projectRepo.DeleteProject(c.Request.Context(), project.ID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				// Deleted between the lookup and the delete.
				c.JSON(http.StatusNotFound, gin.H{
					"error": "Project not found",
				})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to delete project",
			})
			return
		}

		prefix := fmt.Sprintf("projects/%s/", project.Name)
		if err := h.deleteStoredArtifacts(c.Request.Context(), prefix); err != nil {
			slog.Error("failed to delete stored artifacts for project",
				"project", project.Name, "prefix", prefix, "error", err)
		}

		c.JSON(http.StatusOK, gin.H{
			"deleted":    project.Name,
			"project_id": project.ID,
		})
	}
}

// deleteStoredArtifacts removes everything under the project's storage prefix.
// The S3 backend deletes the whole prefix in one call; other backends fall
// back to deleting the prefix path itself (a directory for local storage).
func (h *ProjectAdminHandlers) deleteStoredArtifacts(ctx context.Context, prefix string) error {
	if pd, ok := h.storageBackend.(prefixDeleter); ok {
		return pd.DeletePrefix(ctx, prefix)
	}
	return h.storageBackend.Delete(ctx, prefix)
}
