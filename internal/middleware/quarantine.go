// quarantine.go enforces the mutation side of project quarantine: write
// requests against a quarantined project are rejected for everyone except
// admins, who stay exempt so they can remediate.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkgindex/pkgindex/internal/db/models"
	"github.com/pkgindex/pkgindex/internal/db/repositories"
	"github.com/pkgindex/pkgindex/internal/lifecycle"
)

// ProjectKey is the gin.Context key under which QuarantineGuard stores the
// resolved project so handlers don't have to load it again.
const ProjectKey = "project"

// QuarantineGuard resolves the :name route parameter to a project, stores it
// in the context under ProjectKey, and aborts with 403 when the project is
// quarantined and the caller is not an admin. Register it on mutating project
// routes after AuthMiddleware so the actor identity is available.
func QuarantineGuard(projectRepo *repositories.ProjectRepository, svc *lifecycle.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("name")
		if name == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error": "Project name is required",
			})
			return
		}

		project, err := projectRepo.GetProjectByName(c.Request.Context(), name)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to load project",
			})
			return
		}
		if project == nil {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"error": "Project not found",
			})
			return
		}

		var actor *models.User
		if userVal, exists := c.Get("user"); exists {
			if u, ok := userVal.(*models.User); ok {
				actor = u
			}
		}

		if err := svc.CheckMutable(project, actor); err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": err.Error(),
			})
			return
		}

		c.Set(ProjectKey, project)
		c.Next()
	}
}
