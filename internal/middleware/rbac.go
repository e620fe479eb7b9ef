// rbac.go enforces scope requirements on routes. Scopes are resolved from the
// database at request time, not embedded in tokens, so permission changes take
// effect on the user's next request without reissuing credentials.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkgindex/pkgindex/internal/auth"
)

// contextScopes reads the scope list stored by AuthMiddleware. The false
// return covers both a missing entry and a wrong type.
func contextScopes(c *gin.Context) ([]string, bool) {
	v, exists := c.Get("scopes")
	if !exists {
		return nil, false
	}
	scopes, ok := v.([]string)
	return scopes, ok
}

func forbid(c *gin.Context, body gin.H) {
	c.AbortWithStatusJSON(http.StatusForbidden, body)
}

// RequireScope rejects the request unless the caller holds scope.
func RequireScope(scope auth.Scope) gin.HandlerFunc {
	return func(c *gin.Context) {
		userScopes, ok := contextScopes(c)
		if !ok {
			forbid(c, gin.H{"error": "Insufficient permissions"})
			return
		}
		if !auth.HasScope(userScopes, scope) {
			forbid(c, gin.H{
				"error":   "Missing required scope",
				"details": "Required scope: " + string(scope),
			})
			return
		}
		c.Next()
	}
}

// RequireAnyScope passes when the caller holds at least one of scopes.
func RequireAnyScope(scopes ...auth.Scope) gin.HandlerFunc {
	return func(c *gin.Context) {
		userScopes, ok := contextScopes(c)
		if !ok {
			forbid(c, gin.H{"error": "Insufficient permissions"})
			return
		}
		if !auth.HasAnyScope(userScopes, scopes) {
			forbid(c, gin.H{"error": "Missing required scope"})
			return
		}
		c.Next()
	}
}

// RequireAllScopes passes only when the caller holds every scope listed.
func RequireAllScopes(scopes ...auth.Scope) gin.HandlerFunc {
	return func(c *gin.Context) {
		userScopes, ok := contextScopes(c)
		if !ok {
			forbid(c, gin.H{"error": "Insufficient permissions"})
			return
		}
		if !auth.HasAllScopes(userScopes, scopes) {
			forbid(c, gin.H{"error": "Missing one or more required scopes"})
			return
		}
		c.Next()
	}
}
