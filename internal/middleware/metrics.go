// Package middleware holds the Gin middleware for the index API. Everything
// here is wired up in internal/api/router.go ahead of the route handlers so
// each request passes through the full chain.
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkgindex/pkgindex/internal/telemetry"
)

// MetricsMiddleware records request count and latency for every request:
//
//   - http_requests_total{method, path, status}
//   - http_request_duration_seconds{method, path}
//
// The path label uses c.FullPath(), the matched route template, so
// /v1/projects/awesome-lib and /v1/projects/other-lib share one series.
// Requests that match no route are labelled "<no-route>" to keep 404 scans
// from exploding label cardinality.
//
// Register after gin.Recovery() and RequestIDMiddleware so statuses written by
// error handlers are the ones observed here.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "<no-route>"
		}
		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())

		telemetry.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
		telemetry.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}
