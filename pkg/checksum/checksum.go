// Package checksum provides SHA-256 hashing helpers for artifact integrity
// verification. Release archives are hashed once at upload time and the
// digest is stored alongside the release record, then surfaced to download
// clients in an X-Checksum-SHA256 header so they can verify what they fetched.
// Keeping the hashing in one package gives the upload and storage layers a
// single, consistent implementation.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

// SHA256 streams the reader through a SHA-256 hasher and returns the
// hex-encoded digest.
func SHA256(reader io.Reader) (string, error) {
	h := sha256.New()

	if _, err := io.Copy(h, reader); err != nil {
		return "", fmt.Errorf("failed to calculate checksum: %w", err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// VerifySHA256 reports whether the reader's content hashes to expected.
func VerifySHA256(reader io.Reader, expected string) (bool, error) {
	actual, err := SHA256(reader)
	if err != nil {
		return false, err
	}

	return actual == expected, nil
}
