// readme.go pulls the README out of an uploaded release archive so the index
// can show it on the project page without unpacking the archive again.
package validation

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"path"
	"strings"
)

// maxReadmeSize caps how much README content is kept (1MB).
const maxReadmeSize = 1 << 20

// readmeNames are the filenames recognised as a README, matched
// case-insensitively against root-level entries.
var readmeNames = []string{"README.md", "README", "README.txt"}

// ExtractReadme scans a tar.gz archive for a root-level README and returns its
// content. Returns an empty string when the archive has no README; that is not
// an error, publishing proceeds without one.
func ExtractReadme(archiveReader io.Reader) (string, error) {
	gzReader, err := gzip.NewReader(archiveReader)
	if err != nil {
		return "", fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzReader.Close()

	tarReader := tar.NewReader(gzReader)
	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to read tar entry: %w", err)
		}
		if header.Typeflag == tar.TypeDir {
			continue
		}

		if !isRootReadme(header.Name) {
			continue
		}

		content, err := io.ReadAll(io.LimitReader(tarReader, maxReadmeSize))
		if err != nil {
			return "", fmt.Errorf("failed to read README content: %w", err)
		}
		return string(content), nil
	}

	return "", nil
}

// isRootReadme reports whether name is a README sitting at the archive root.
func isRootReadme(name string) bool {
	name = strings.TrimPrefix(name, "./")
	if strings.Contains(name, "/") {
		return false
	}
	base := path.Base(name)
	for _, candidate := range readmeNames {
		if strings.EqualFold(base, candidate) {
			return true
		}
	}
	return false
}
