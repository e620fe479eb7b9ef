// Package models - api_key.go defines the APIKey model for long-lived bearer tokens.
package models

import "time"

// APIKey represents a long-lived bearer token. Only the bcrypt hash of the
// full key is stored; the plaintext prefix allows an indexed lookup before
// the bcrypt comparison.
type APIKey struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Name       string     `json:"name"`
	KeyHash    string     `json:"-"`
	KeyPrefix  string     `json:"key_prefix"`
	Scopes     []string   `json:"scopes"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
