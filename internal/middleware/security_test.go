package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// headersFor runs a GET / through SecurityHeadersMiddleware with cfg and
// returns the recorded response for header inspection.
func headersFor(cfg SecurityHeadersConfig) *httptest.ResponseRecorder {
	r := gin.New()
	r.Use(SecurityHeadersMiddleware(cfg))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	r.ServeHTTP(w, req)
	return w
}

func TestDefaultSecurityHeadersConfig(t *testing.T) {
	cfg := DefaultSecurityHeadersConfig()

	if !cfg.EnableHSTS || cfg.HSTSMaxAge != 31536000 || !cfg.HSTSIncludeSubdomains {
		t.Errorf("unexpected HSTS defaults: %+v", cfg)
	}
	if cfg.HSTSPreload {
		t.Error("HSTSPreload = true, want false")
	}
	if cfg.FrameOptionsValue != "DENY" {
		t.Errorf("FrameOptionsValue = %q, want DENY", cfg.FrameOptionsValue)
	}
	if !cfg.EnableContentTypeOptions || !cfg.EnableXSSProtection {
		t.Error("content type options and XSS protection should default on")
	}
	for name, v := range map[string]string{
		"ContentSecurityPolicy": cfg.ContentSecurityPolicy,
		"ReferrerPolicy":        cfg.ReferrerPolicy,
		"PermissionsPolicy":     cfg.PermissionsPolicy,
	} {
		if v == "" {
			t.Errorf("%s is empty, want non-empty", name)
		}
	}
}

func TestAPISecurityHeadersConfig(t *testing.T) {
	cfg := APISecurityHeadersConfig()

	if !cfg.EnableHSTS {
		t.Error("EnableHSTS = false, want true")
	}
	if cfg.EnableXSSProtection {
		t.Error("EnableXSSProtection = true, want false for a JSON API")
	}
	if !strings.Contains(cfg.ContentSecurityPolicy, "default-src 'none'") {
		t.Errorf("CSP = %q, want a deny-all policy", cfg.ContentSecurityPolicy)
	}
	if cfg.ReferrerPolicy != "no-referrer" {
		t.Errorf("ReferrerPolicy = %q, want no-referrer", cfg.ReferrerPolicy)
	}
	if cfg.PermissionsPolicy != "" {
		t.Errorf("PermissionsPolicy = %q, want empty", cfg.PermissionsPolicy)
	}
}

func TestHSTSValue(t *testing.T) {
	tests := []struct {
		name string
		cfg  SecurityHeadersConfig
		want string
	}{
		{
			"subdomains without preload",
			SecurityHeadersConfig{HSTSMaxAge: 31536000, HSTSIncludeSubdomains: true},
			"max-age=31536000; includeSubDomains",
		},
		{
			"preload only",
			SecurityHeadersConfig{HSTSMaxAge: 86400, HSTSPreload: true},
			"max-age=86400; preload",
		},
		{
			"bare max-age",
			SecurityHeadersConfig{HSTSMaxAge: 3600},
			"max-age=3600",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.hstsValue(); got != tt.want {
				t.Errorf("hstsValue() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSecurityHeadersMiddleware_HSTS(t *testing.T) {
	t.Run("enabled", func(t *testing.T) {
		w := headersFor(SecurityHeadersConfig{
			EnableHSTS:            true,
			HSTSMaxAge:            31536000,
			HSTSIncludeSubdomains: true,
		})
		hsts := w.Header().Get("Strict-Transport-Security")
		if !strings.Contains(hsts, "max-age=31536000") || !strings.Contains(hsts, "includeSubDomains") {
			t.Errorf("Strict-Transport-Security = %q", hsts)
		}
	})

	t.Run("disabled", func(t *testing.T) {
		w := headersFor(SecurityHeadersConfig{EnableHSTS: false})
		if got := w.Header().Get("Strict-Transport-Security"); got != "" {
			t.Errorf("HSTS should be absent when disabled, got %q", got)
		}
	})
}

func TestSecurityHeadersMiddleware_FrameOptions(t *testing.T) {
	tests := []struct {
		name string
		cfg  SecurityHeadersConfig
		want string
	}{
		{"deny", SecurityHeadersConfig{EnableFrameOptions: true, FrameOptionsValue: "DENY"}, "DENY"},
		{"sameorigin", SecurityHeadersConfig{EnableFrameOptions: true, FrameOptionsValue: "SAMEORIGIN"}, "SAMEORIGIN"},
		{"disabled", SecurityHeadersConfig{EnableFrameOptions: false, FrameOptionsValue: "DENY"}, ""},
		{"enabled with empty value", SecurityHeadersConfig{EnableFrameOptions: true}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := headersFor(tt.cfg).Header().Get("X-Frame-Options"); got != tt.want {
				t.Errorf("X-Frame-Options = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSecurityHeadersMiddleware_ToggledHeaders(t *testing.T) {
	t.Run("nosniff on", func(t *testing.T) {
		w := headersFor(SecurityHeadersConfig{EnableContentTypeOptions: true})
		if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
			t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
		}
	})
	t.Run("nosniff off", func(t *testing.T) {
		w := headersFor(SecurityHeadersConfig{})
		if got := w.Header().Get("X-Content-Type-Options"); got != "" {
			t.Errorf("X-Content-Type-Options = %q, want absent", got)
		}
	})
	t.Run("xss protection on", func(t *testing.T) {
		w := headersFor(SecurityHeadersConfig{EnableXSSProtection: true})
		if got := w.Header().Get("X-XSS-Protection"); got != "1; mode=block" {
			t.Errorf("X-XSS-Protection = %q, want '1; mode=block'", got)
		}
	})
	t.Run("xss protection off", func(t *testing.T) {
		w := headersFor(SecurityHeadersConfig{})
		if got := w.Header().Get("X-XSS-Protection"); got != "" {
			t.Errorf("X-XSS-Protection = %q, want absent", got)
		}
	})
}

func TestSecurityHeadersMiddleware_PolicyHeaders(t *testing.T) {
	tests := []struct {
		name   string
		cfg    SecurityHeadersConfig
		header string
		want   string
	}{
		{"csp set", SecurityHeadersConfig{ContentSecurityPolicy: "default-src 'self'"}, "Content-Security-Policy", "default-src 'self'"},
		{"csp absent", SecurityHeadersConfig{}, "Content-Security-Policy", ""},
		{"referrer set", SecurityHeadersConfig{ReferrerPolicy: "no-referrer"}, "Referrer-Policy", "no-referrer"},
		{"referrer absent", SecurityHeadersConfig{}, "Referrer-Policy", ""},
		{"permissions set", SecurityHeadersConfig{PermissionsPolicy: "geolocation=()"}, "Permissions-Policy", "geolocation=()"},
		{"permissions absent", SecurityHeadersConfig{}, "Permissions-Policy", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := headersFor(tt.cfg).Header().Get(tt.header); got != tt.want {
				t.Errorf("%s = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}

func TestSecurityHeadersMiddleware_UnconditionalHeaders(t *testing.T) {
	w := headersFor(SecurityHeadersConfig{})
	tests := []struct{ header, want string }{
		{"X-Permitted-Cross-Domain-Policies", "none"},
		{"Cross-Origin-Embedder-Policy", "require-corp"},
		{"Cross-Origin-Opener-Policy", "same-origin"},
		{"Cross-Origin-Resource-Policy", "same-origin"},
	}
	for _, tt := range tests {
		if got := w.Header().Get(tt.header); got != tt.want {
			t.Errorf("%s = %q, want %q", tt.header, got, tt.want)
		}
	}
}

func TestSecurityHeadersMiddleware_APIConfigEndToEnd(t *testing.T) {
	w := headersFor(APISecurityHeadersConfig())
	if w.Code != http.StatusOK {
		t.Errorf("response code = %d, want 200", w.Code)
	}
	if w.Header().Get("Strict-Transport-Security") == "" {
		t.Error("Strict-Transport-Security missing under API config")
	}
	if got := w.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q, want DENY", got)
	}
}
