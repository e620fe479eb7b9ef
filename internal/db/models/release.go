// Package models - release.go defines the Release model representing a published
// version of a project and its stored artifact metadata.
package models

import "time"

// Release represents a specific published version of a project.
type Release struct {
	ID             string    `json:"id"`
	ProjectID      string    `json:"project_id"`
	Version        string    `json:"version"`
	StoragePath    string    `json:"storage_path"`
	StorageBackend string    `json:"storage_backend"`
	SizeBytes      int64     `json:"size_bytes"`
	Checksum       string    `json:"checksum"`
	Summary        *string   `json:"summary,omitempty"`
	Readme         *string   `json:"readme,omitempty"`
	PublishedBy    *string   `json:"published_by,omitempty"`
	DownloadCount  int64     `json:"download_count"`
	CreatedAt      time.Time `json:"created_at"`
	// Joined fields (not stored in the releases table)
	PublishedByName *string `json:"published_by_name,omitempty"`
}
