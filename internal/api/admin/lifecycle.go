// Package admin implements the administrative HTTP handlers for the package
// index. These handlers require authentication and appropriate RBAC scopes
// (see internal/middleware/rbac.go): unlike the public handlers in the index
// package which are intentionally unauthenticated.
package admin

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pkgindex/pkgindex/internal/lifecycle"
	"github.com/pkgindex/pkgindex/internal/validation"
)

// LifecycleHandlers handles project quarantine management endpoints
type LifecycleHandlers struct {
	svc *lifecycle.Service
}

// NewLifecycleHandlers creates a new LifecycleHandlers instance
func NewLifecycleHandlers(svc *lifecycle.Service) *LifecycleHandlers {
	return &LifecycleHandlers{svc: svc}
}

// quarantineRequest is the JSON body for placing a project in quarantine.
type quarantineRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// actorID extracts the authenticated user's ID from the request context.
func actorID(c *gin.Context) (string, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}

// writeLifecycleError maps lifecycle service errors onto HTTP responses.
func writeLifecycleError(c *gin.Context, err error) {
	var invalid *lifecycle.InvalidTransitionError
	switch {
	case errors.Is(err, lifecycle.ErrProjectNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Project not found",
		})
	case errors.Is(err, lifecycle.ErrReasonRequired):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "A reason is required to quarantine a project",
		})
	case errors.As(err, &invalid):
		c.JSON(http.StatusConflict, gin.H{
			"error": invalid.Error(),
			"from":  invalid.From,
			"to":    invalid.To,
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to update project lifecycle",
		})
	}
}

// @Summary      Quarantine project
// @Description  Places a project in quarantine: hidden from the public index, owner mutations blocked, all data preserved. Requires quarantine:manage scope.
// @Tags         Lifecycle
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        name  path  string             true  "Project name"
// @Param        body  body  quarantineRequest  true  "Reason for quarantine"
// @Success      200  {object}  models.TransitionEvent
// @Failure      400  {object}  map[string]interface{}  "Missing reason"
// @Failure      404  {object}  map[string]interface{}  "Project not found"
// @Failure      409  {object}  map[string]interface{}  "Project is already quarantined"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/admin/projects/{name}/quarantine [post]
// QuarantineHandler places a project in quarantine.
// Implements: POST /api/v1/admin/projects/:name/quarantine
func (h *LifecycleHandlers) QuarantineHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "User not authenticated",
			})
			return
		}

		var req quarantineRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "A reason is required to quarantine a project",
			})
			return
		}

		name := validation.NormalizeProjectName(c.Param("name"))
		event, err := h.svc.Quarantine(c.Request.Context(), name, actor, req.Reason)
		if err != nil {
			writeLifecycleError(c, err)
			return
		}

		c.JSON(http.StatusOK, event)
	}
}

// @Summary      Clear project quarantine
// @Description  Releases a project from quarantine after investigation. The project returns to the public index and owner mutations resume. Requires quarantine:manage scope.
// @Tags         Lifecycle
// @Security     Bearer
// @Produce      json
// @Param        name  path  string  true  "Project name"
// @Success      200  {object}  models.TransitionEvent
// @Failure      404  {object}  map[string]interface{}  "Project not found"
// @Failure      409  {object}  map[string]interface{}  "Project is not quarantined"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/admin/projects/{name}/clear [post]
// ClearHandler releases a project from quarantine.
// Implements: POST /api/v1/admin/projects/:name/clear
func (h *LifecycleHandlers) ClearHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "User not authenticated",
			})
			return
		}

		name := validation.NormalizeProjectName(c.Param("name"))
		event, err := h.svc.Clear(c.Request.Context(), name, actor)
		if err != nil {
			writeLifecycleError(c, err)
			return
		}

		c.JSON(http.StatusOK, event)
	}
}

// @Summary      Project lifecycle history
// @Description  Returns the full transition history of a project, oldest first. Accepts a project name or a raw project ID, so history of deleted projects remains reachable. Requires audit:read scope.
// @Tags         Lifecycle
// @Security     Bearer
// @Produce      json
// @Param        name  path  string  true  "Project name or ID"
// @Success      200  {object}  map[string]interface{}  "events"
// @Failure      404  {object}  map[string]interface{}  "No project and no recorded events"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/admin/projects/{name}/history [get]
// HistoryHandler returns the transition history for a project name or ID.
// Implements: GET /api/v1/admin/projects/:name/history
func (h *LifecycleHandlers) HistoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		nameOrID := c.Param("name")

		events, err := h.svc.History(c.Request.Context(), nameOrID)
		if err != nil {
			writeLifecycleError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"events": events,
		})
	}
}
