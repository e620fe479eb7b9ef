// Package models - user.go defines the User model for index accounts.
package models

import "time"

// User represents an account in the index. Administrators carry the admin
// scope in their scopes list; everyone else is a regular project owner.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Scopes    []string  `json:"scopes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsAdmin reports whether the user holds the wildcard admin scope.
func (u *User) IsAdmin() bool {
	for _, s := range u.Scopes {
		if s == "admin" {
			return true
		}
	}
	return false
}
