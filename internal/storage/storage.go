// Package storage abstracts where release archives live. The index talks to
// the Storage interface only; concrete backends (local disk, S3) register
// themselves with the factory from an init() in their own package:
//
//	func init() {
//	    storage.Register("mybackend", func(cfg *config.Config) (Storage, error) {
//	        return NewMyBackend(cfg)
//	    })
//	}
//
// The router blank-imports each backend package to trigger registration, so a
// new backend needs no factory changes.
package storage

import (
	"context"
	"io"
	"time"
)

// Storage is the contract every archive backend implements.
type Storage interface {
	// Upload stores the stream at path and reports the stored size and checksum.
	Upload(ctx context.Context, path string, reader io.Reader, size int64) (*UploadResult, error)

	// Download opens the archive at path for reading. Caller closes.
	Download(ctx context.Context, path string) (io.ReadCloser, error)

	// Delete removes the archive at path.
	Delete(ctx context.Context, path string) error

	// GetURL produces a download URL. Cloud backends return a signed URL
	// honouring ttl; the local backend returns a path served by the API.
	GetURL(ctx context.Context, path string, ttl time.Duration) (string, error)

	// Exists reports whether anything is stored at path.
	Exists(ctx context.Context, path string) (bool, error)

	// GetMetadata returns size, checksum, and modification time without
	// transferring the archive body.
	GetMetadata(ctx context.Context, path string) (*FileMetadata, error)
}

// UploadResult describes a completed upload.
type UploadResult struct {
	Path     string
	Size     int64
	Checksum string // SHA256 of the stored bytes, lowercase hex
}

// FileMetadata describes a stored archive.
type FileMetadata struct {
	Path         string
	Size         int64
	Checksum     string // SHA256, lowercase hex
	LastModified time.Time
}
