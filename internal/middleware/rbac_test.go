package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/pkgindex/pkgindex/internal/auth"
)

// runScoped sends a GET / through mid with ctxScopes pre-seeded into the
// context, the way AuthMiddleware would after a successful authentication.
// A nil ctxScopes leaves the context untouched.
func runScoped(mid gin.HandlerFunc, ctxScopes interface{}) *httptest.ResponseRecorder {
	r := gin.New()
	r.GET("/", func(c *gin.Context) {
		if ctxScopes != nil {
			c.Set("scopes", ctxScopes)
		}
	}, mid, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	r.ServeHTTP(w, req)
	return w
}

func TestRequireScope(t *testing.T) {
	tests := []struct {
		name      string
		required  auth.Scope
		ctxScopes interface{}
		want      int
	}{
		{"unauthenticated context", "quarantine:manage", nil, http.StatusForbidden},
		{"scopes stored with wrong type", "quarantine:manage", "not-a-slice", http.StatusForbidden},
		{"scope not granted", "quarantine:manage", []string{"projects:read"}, http.StatusForbidden},
		{"exact grant", "projects:write", []string{"projects:write"}, http.StatusOK},
		{"grant among others", "audit:read", []string{"projects:read", "audit:read", "users:read"}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := runScoped(RequireScope(tt.required), tt.ctxScopes)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}

	t.Run("forbidden body names the missing scope", func(t *testing.T) {
		w := runScoped(RequireScope("quarantine:manage"), []string{})

		var body map[string]interface{}
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("body parse error: %v", err)
		}
		if _, ok := body["error"]; !ok {
			t.Error("403 body missing 'error' field")
		}
		if details, _ := body["details"].(string); details == "" {
			t.Error("403 body missing 'details' naming the required scope")
		}
	})
}

func TestRequireAnyScope(t *testing.T) {
	tests := []struct {
		name      string
		required  []auth.Scope
		ctxScopes interface{}
		want      int
	}{
		{"unauthenticated context", []auth.Scope{"users:read", "users:write"}, nil, http.StatusForbidden},
		{"scopes stored with wrong type", []auth.Scope{"users:read"}, 42, http.StatusForbidden},
		{"none of the alternatives granted", []auth.Scope{"users:read", "users:write"}, []string{"projects:read"}, http.StatusForbidden},
		{"first alternative granted", []auth.Scope{"users:read", "users:write"}, []string{"users:read"}, http.StatusOK},
		{"second alternative granted", []auth.Scope{"users:read", "users:write"}, []string{"users:write"}, http.StatusOK},
		{"single alternative granted", []auth.Scope{"api_keys:manage"}, []string{"api_keys:manage"}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := runScoped(RequireAnyScope(tt.required...), tt.ctxScopes)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestRequireAllScopes(t *testing.T) {
	tests := []struct {
		name      string
		required  []auth.Scope
		ctxScopes interface{}
		want      int
	}{
		{"unauthenticated context", []auth.Scope{"projects:write", "audit:read"}, nil, http.StatusForbidden},
		{"scopes stored with wrong type", []auth.Scope{"projects:write"}, true, http.StatusForbidden},
		{"only one of two granted", []auth.Scope{"projects:write", "audit:read"}, []string{"projects:write"}, http.StatusForbidden},
		{"both granted", []auth.Scope{"projects:write", "audit:read"}, []string{"projects:write", "audit:read"}, http.StatusOK},
		{"superset granted", []auth.Scope{"projects:write", "audit:read"}, []string{"projects:write", "audit:read", "users:read"}, http.StatusOK},
		{"empty requirement always passes", nil, []string{}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := runScoped(RequireAllScopes(tt.required...), tt.ctxScopes)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}
