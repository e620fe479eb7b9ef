package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader carries the request identifier on the wire.
	RequestIDHeader = "X-Request-ID"

	// RequestIDKey is the gin.Context key the identifier is stored under, so
	// handlers and the logging middleware can read it without touching headers.
	RequestIDKey = "request_id"
)

// RequestIDMiddleware tags every request with an identifier that appears in
// structured log lines and in the response X-Request-ID header.
//
// An inbound X-Request-ID from a proxy or gateway is trusted and reused; when
// absent a fresh UUID v4 is minted. Either way the value is placed in the
// gin.Context under RequestIDKey and echoed back to the caller, which lets a
// publisher quote the ID when reporting a failed upload.
//
// Register it ahead of the logging middleware so every log line carries the ID.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}

		c.Set(RequestIDKey, id)
		c.Header(RequestIDHeader, id)

		c.Next()
	}
}
