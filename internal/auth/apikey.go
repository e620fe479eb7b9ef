// Package auth provides the credential primitives for the index: long-lived
// API keys (random token, bcrypt hash at rest) and short-lived session JWTs.
// Request-time authentication lives in internal/middleware/auth.go and builds
// on these helpers.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	// APIKeyLength is the size of the random portion in bytes.
	APIKeyLength = 32

	// DisplayPrefixLength is how much of a key the UI may show after creation.
	DisplayPrefixLength = 10

	// BcryptCost trades hashing time against brute-force resistance.
	BcryptCost = 12
)

// GenerateAPIKey mints a key of the form prefix_<random>. The full key is
// returned exactly once; only the bcrypt hash and the short display prefix
// are ever stored.
func GenerateAPIKey(prefix string) (key string, hash string, displayPrefix string, err error) {
	randomBytes := make([]byte, APIKeyLength)
	if _, err = rand.Read(randomBytes); err != nil {
		return "", "", "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	fullKey := fmt.Sprintf("%s_%s", prefix, base64.RawURLEncoding.EncodeToString(randomBytes))

	hashBytes, err := bcrypt.GenerateFromPassword([]byte(fullKey), BcryptCost)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to hash API key: %w", err)
	}

	displayPrefix = fullKey
	if len(fullKey) > DisplayPrefixLength {
		displayPrefix = fullKey[:DisplayPrefixLength]
	}

	return fullKey, string(hashBytes), displayPrefix, nil
}

// ValidateAPIKey reports whether providedKey matches the stored bcrypt hash.
func ValidateAPIKey(providedKey, storedHash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(providedKey)) == nil
}

// ExtractAPIKeyFromHeader pulls the key out of an Authorization header of the
// form "Bearer pkx_...".
func ExtractAPIKeyFromHeader(header string) (string, error) {
	if header == "" {
		return "", errors.New("authorization header is empty")
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return "", errors.New("authorization header must start with 'Bearer '")
	}

	key := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if key == "" {
		return "", errors.New("API key is empty after Bearer prefix")
	}
	return key, nil
}
