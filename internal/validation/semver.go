// semver.go checks and orders release version strings. Publishing rejects
// anything go-version cannot parse, and comparison backs the latest-release
// resolution on project pages.
package validation

import (
	"fmt"

	"github.com/hashicorp/go-version"
)

// ValidateSemver reports whether v parses as a semantic version.
func ValidateSemver(v string) error {
	if _, err := version.NewVersion(v); err != nil {
		return fmt.Errorf("invalid semantic version: %w", err)
	}
	return nil
}

// CompareSemver orders two version strings: -1 when v1 < v2, 0 when equal,
// 1 when v1 > v2. Pre-releases sort before their release per semver rules.
func CompareSemver(v1Str, v2Str string) (int, error) {
	v1, err := version.NewVersion(v1Str)
	if err != nil {
		return 0, fmt.Errorf("invalid version v1: %w", err)
	}
	v2, err := version.NewVersion(v2Str)
	if err != nil {
		return 0, fmt.Errorf("invalid version v2: %w", err)
	}
	return v1.Compare(v2), nil
}
