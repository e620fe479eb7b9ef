// Package projects implements the authenticated owner-facing endpoints:
// claiming a project name, editing project metadata, and publishing releases.
// Metadata edits and publishes run behind the quarantine guard middleware, so
// handlers here can assume the project in context has already passed the
// mutation check for this actor.
package projects

import (
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pkgindex/pkgindex/internal/db/models"
	"github.com/pkgindex/pkgindex/internal/db/repositories"
	"github.com/pkgindex/pkgindex/internal/middleware"
	"github.com/pkgindex/pkgindex/internal/validation"
)

// createProjectRequest is the JSON body for claiming a new project name.
type createProjectRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description"`
	Homepage    *string `json:"homepage"`
}

// updateProjectRequest is the JSON body for a metadata edit. Absent fields are
// left unchanged; the name is immutable once claimed.
type updateProjectRequest struct {
	Description *string `json:"description"`
	Homepage    *string `json:"homepage"`
}

// @Summary      Create project
// @Description  Claims a new project name for the authenticated user. Requires projects:write scope.
// @Tags         Projects
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  createProjectRequest  true  "Project to create"
// @Success      201  {object}  models.Project
// @Failure      400  {object}  map[string]interface{}  "Invalid project name"
// @Failure      409  {object}  map[string]interface{}  "Name already taken"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/projects [post]
// CreateHandler claims a new project name.
// Implements: POST /api/v1/projects
func CreateHandler(db *sql.DB) gin.HandlerFunc {
	projectRepo := repositories.NewProjectRepository(db)

	return func(c *gin.Context) {
		var req createProjectRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request body: name is required",
			})
			return
		}

		if err := validation.ValidateProjectName(req.Name); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": err.Error(),
			})
			return
		}
		name := validation.NormalizeProjectName(req.Name)

		existing, err := projectRepo.GetProjectByName(c.Request.Context(), name)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to query project",
			})
			return
		}
		if existing != nil {
			c.JSON(http.StatusConflict, gin.H{
				"error": "Project name already taken",
			})
			return
		}

		project := &models.Project{
			Name:            name,
			LifecycleStatus: models.StatusNormal,
			Description:     req.Description,
			Homepage:        req.Homepage,
		}
		if userID, exists := c.Get("user_id"); exists {
			if uid, ok := userID.(string); ok {
				project.OwnerID = &uid
			}
		}

		if err := projectRepo.CreateProject(c.Request.Context(), project); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to create project",
			})
			return
		}

		c.JSON(http.StatusCreated, project)
	}
}

// @Summary      Update project metadata
// @Description  Edits description or homepage of an owned project. Blocked while the project is quarantined unless the actor is an administrator. Requires projects:write scope.
// @Tags         Projects
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        name  path  string                true  "Project name"
// @Param        body  body  updateProjectRequest  true  "Fields to update"
// @Success      200  {object}  models.Project
// @Failure      400  {object}  map[string]interface{}  "Invalid request body"
// @Failure      403  {object}  map[string]interface{}  "Project is quarantined"
// @Failure      404  {object}  map[string]interface{}  "Project not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/projects/{name} [patch]
// UpdateHandler edits project metadata. The quarantine guard middleware has
// already resolved the project and rejected blocked mutations.
// Implements: PATCH /api/v1/projects/:name
func UpdateHandler(db *sql.DB) gin.HandlerFunc {
	projectRepo := repositories.NewProjectRepository(db)

	return func(c *gin.Context) {
		project := c.MustGet(middleware.ProjectKey).(*models.Project)

		var req updateProjectRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request body",
			})
			return
		}

		if req.Description != nil {
			project.Description = req.Description
		}
		if req.Homepage != nil {
			project.Homepage = req.Homepage
		}

		if err := projectRepo.UpdateProject(c.Request.Context(), project); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to update project",
			})
			return
		}

		c.JSON(http.StatusOK, project)
	}
}
