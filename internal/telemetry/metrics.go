// Package telemetry provides application-level observability for the package index.
//
// All metrics are registered against the default Prometheus registry and are
// served on the side-channel HTTP server started by main.go:
//
//	GET http://<host>:<PKGIDX_TELEMETRY_METRICS_PROMETHEUS_PORT>/metrics
//
// Default port: 9090. The endpoint is not part of the Gin router, so it is
// never affected by the quarantine visibility rules applied to the public API.
//
// HTTP metrics use c.FullPath() (route template such as /v1/projects/:name)
// rather than the raw request URL to prevent unbounded label cardinality from
// user-supplied path segments such as project names or version strings.
package telemetry

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics: labelled by method, route template, and status code.
//
// Example PromQL queries:
//   - Request rate (req/s, 5m window):  rate(http_requests_total[5m])
//   - Error rate (%):                    sum(rate(http_requests_total{status=~"5.."}[5m])) / sum(rate(http_requests_total[5m])) * 100
//   - p99 latency per route:             histogram_quantile(0.99, sum by (path, le) (rate(http_request_duration_seconds_bucket[5m])))
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed, by method, route template, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, by method and route template.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)
)

// Lifecycle metrics: recorded by the lifecycle service and mutation guard.
//
// LifecycleTransitionsTotal is a CounterVec with label {to_status} incremented
// once per committed transition. BlockedMutationsTotal counts write requests
// rejected because the target project is quarantined; a sudden spike usually
// means an automated publisher is retrying against a quarantined project.
//
// Example PromQL queries:
//   - Quarantine rate:   rate(lifecycle_transitions_total{to_status="quarantine_enter"}[1d])
//   - Blocked writes:    increase(blocked_mutations_total[1h])
var (
	LifecycleTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lifecycle_transitions_total",
			Help: "Total number of committed project lifecycle transitions, by target status.",
		},
		[]string{"to_status"},
	)

	BlockedMutationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "blocked_mutations_total",
			Help: "Total number of mutation requests rejected because the project is quarantined.",
		},
	)
)

// ReleaseDownloadsTotal is a CounterVec with label {project} incremented
// whenever a client downloads a release artifact.
//
// Example PromQL queries:
//   - Most popular projects:  topk(10, sum by (project) (release_downloads_total))
var ReleaseDownloadsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "release_downloads_total",
		Help: "Total number of release artifact downloads, by project.",
	},
	[]string{"project"},
)

// QuarantineRemindersSentTotal is a plain Counter incremented once per
// reminder notification emitted by the quarantine review background job.
// A stalled counter combined with long-quarantined projects is a useful
// alert signal for a broken notification pipeline.
var QuarantineRemindersSentTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "quarantine_reminders_sent_total",
		Help: "Total number of quarantine review reminder notifications sent.",
	},
)

// DBOpenConnections is a Gauge that tracks the number of open connections currently
// held by the sql.DB connection pool. It is sampled every 30 seconds by
// StartDBStatsCollector rather than per-request to avoid the overhead of sql.DB.Stats().
var DBOpenConnections = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "db_open_connections",
		Help: "Current number of open database connections in the pool.",
	},
)

// StartDBStatsCollector launches a background goroutine that samples sql.DB connection
// pool statistics every 30 seconds and updates the DBOpenConnections gauge.
// The goroutine exits cleanly when the database becomes unreachable (db.Ping fails),
// which happens automatically when the application shuts down and defers db.Close().
//
// Call this once, immediately after db.Connect() succeeds in main.go:
//
//	telemetry.StartDBStatsCollector(database)
func StartDBStatsCollector(db *sql.DB) {
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			if err := db.Ping(); err != nil {
				slog.Warn("db stats collector: database unreachable, stopping collector", "error", err)
				return
			}
			DBOpenConnections.Set(float64(db.Stats().OpenConnections))
		}
	}()
}
