// name.go validates project names at creation and publish time. Names are
// normalized to lowercase before storage so lookups are case-insensitive.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// MaxProjectNameLength bounds project names for URL and index friendliness
	MaxProjectNameLength = 64
)

// projectNameRe matches names that start and end with an alphanumeric character
// and may contain single hyphens, underscores, or dots in between.
var projectNameRe = regexp.MustCompile(`^[a-z0-9]([a-z0-9._-]*[a-z0-9])?$`)

// NormalizeProjectName lowercases a project name for storage and lookup
func NormalizeProjectName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ValidateProjectName checks that a project name is acceptable for the index
func ValidateProjectName(name string) error {
	normalized := NormalizeProjectName(name)

	if normalized == "" {
		return fmt.Errorf("project name is required")
	}
	if len(normalized) > MaxProjectNameLength {
		return fmt.Errorf("project name exceeds %d characters", MaxProjectNameLength)
	}
	if !projectNameRe.MatchString(normalized) {
		return fmt.Errorf("project name %q must start and end with a letter or digit and contain only letters, digits, '.', '-', '_'", name)
	}
	if strings.Contains(normalized, "..") || strings.Contains(normalized, "--") || strings.Contains(normalized, "__") {
		return fmt.Errorf("project name %q must not contain repeated separators", name)
	}

	return nil
}
