// Package validation checks release uploads before anything is persisted:
// archive structure and paths, README extraction, project name format, and
// version format. A rejected upload never reaches storage or the database.
package validation

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// MaxArchiveSize is the default cap on a release archive (100MB).
const MaxArchiveSize = 100 * 1024 * 1024

// ValidateArchive verifies that reader holds a well-formed tar.gz whose
// entries stay within maxSize and contain no hostile paths. A maxSize of
// zero or less applies MaxArchiveSize.
func ValidateArchive(reader io.Reader, maxSize int64) error {
	if maxSize <= 0 {
		maxSize = MaxArchiveSize
	}

	gzReader, err := gzip.NewReader(io.LimitReader(reader, maxSize+1))
	if err != nil {
		return fmt.Errorf("invalid gzip format: %w", err)
	}
	defer gzReader.Close()

	tarReader := tar.NewReader(gzReader)
	var totalSize int64
	fileCount := 0

	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("invalid tar format: %w", err)
		}

		fileCount++
		totalSize += header.Size

		if err := validatePath(header.Name); err != nil {
			return fmt.Errorf("invalid file path in archive: %w", err)
		}
		if totalSize > maxSize {
			return fmt.Errorf("archive size exceeds maximum allowed size of %d bytes", maxSize)
		}
	}

	if fileCount == 0 {
		return fmt.Errorf("archive is empty")
	}
	return nil
}

// validatePath rejects entry names that could escape the extraction root or
// smuggle repository internals.
func validatePath(path string) error {
	path = filepath.Clean(path)

	if filepath.IsAbs(path) {
		return fmt.Errorf("absolute paths not allowed: %s", path)
	}
	// Windows drive paths (C:\...) are not IsAbs on Unix hosts but are still
	// absolute on the machine that produced the archive.
	if len(path) >= 3 && path[1] == ':' && (path[2] == '\\' || path[2] == '/') {
		return fmt.Errorf("absolute paths not allowed: %s", path)
	}
	if strings.Contains(path, "..") {
		return fmt.Errorf("path traversal not allowed: %s", path)
	}
	if strings.HasPrefix(path, ".git") {
		return fmt.Errorf("git directories not allowed in archives")
	}

	return nil
}
