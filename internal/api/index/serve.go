// serve.go handles direct file serving of release archives from local storage backends.
package index

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pkgindex/pkgindex/internal/storage"
)

// ServeFileHandler handles direct file serving for local storage.
// Implements: GET /v1/files/*filepath
// Only used when local storage has ServeDirectly: true
func ServeFileHandler(storageBackend storage.Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		filePath := c.Param("filepath")
		if filePath == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "File path is required",
			})
			return
		}

		// Remove leading slash if present
		if filePath[0] == '/' {
			filePath = filePath[1:]
		}

		exists, err := storageBackend.Exists(c.Request.Context(), filePath)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to check file existence",
			})
			return
		}
		if !exists {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "File not found",
			})
			return
		}

		metadata, err := storageBackend.GetMetadata(c.Request.Context(), filePath)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to get file metadata",
			})
			return
		}

		reader, err := storageBackend.Download(c.Request.Context(), filePath)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to read file",
			})
			return
		}
		defer reader.Close()

		c.Header("Content-Disposition", "attachment")
		c.Header("X-Checksum-SHA256", metadata.Checksum)
		c.DataFromReader(http.StatusOK, metadata.Size, "application/gzip", reader, nil)
	}
}
