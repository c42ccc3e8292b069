// Package telemetry provides application-level observability for Shiplog.
//
// All metrics are registered against the default Prometheus registry and served
// on the side-channel HTTP server started by main.go:
//
//	GET http://<host>:<SHIPLOG_TELEMETRY_METRICS_PROMETHEUS_PORT>/metrics
//
// Default port: 9090. The endpoint is not served by the Gin router, keeping the
// scrape path off the public ingress and out of the rate-limiting middleware.
//
// HTTP metrics use c.FullPath() (route template such as /api/v1/requests/:id)
// rather than the raw request URL to prevent unbounded label cardinality.
package telemetry

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics, labelled by method, route template, and status code.
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

// Workflow metrics: the approval pipeline's own health signals.
//
// WorkflowDecisionsTotal counts terminal transitions by kind and outcome
// (approved / rejected). WorkflowProcessorFailuresTotal counts approvals rolled
// back because the mutation failed; a non-zero rate here means admins are
// approving requests whose targets have drifted (already deleted, renamed).
var (
	WorkflowRequestsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workflow_requests_created_total",
			Help: "Total number of pending workflow requests created, by kind.",
		},
		[]string{"kind"},
	)

	WorkflowDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workflow_decisions_total",
			Help: "Total number of workflow decisions committed, by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	WorkflowDirectAppliesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workflow_direct_applies_total",
			Help: "Total number of mutations applied directly under the access policy's bypass, by kind.",
		},
		[]string{"kind"},
	)

	WorkflowProcessorFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workflow_processor_failures_total",
			Help: "Total number of approvals rolled back due to processor failure, by kind.",
		},
		[]string{"kind"},
	)
)

// EntriesPublishedTotal counts entries flipped to published, by trigger
// ("direct" for publish-now, "scheduled" for the background runner).
var EntriesPublishedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "entries_published_total",
		Help: "Total number of changelog entries published, by trigger.",
	},
	[]string{"trigger"},
)

// Database pool gauges, polled by StartDBStatsCollector.
var (
	dbConnectionsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "db_connections_open",
		Help: "Number of established connections both in use and idle.",
	})
	dbConnectionsInUse = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "db_connections_in_use",
		Help: "Number of connections currently in use.",
	})
	dbConnectionsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "db_connections_idle",
		Help: "Number of idle connections.",
	})
	dbWaitCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "db_wait_count_total",
		Help: "Total number of connections waited for.",
	})
)

// StartDBStatsCollector polls sql.DB pool statistics every 30 seconds and
// exports them as gauges. Runs for the lifetime of the process.
func StartDBStatsCollector(db *sql.DB) {
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			stats := db.Stats()
			dbConnectionsOpen.Set(float64(stats.OpenConnections))
			dbConnectionsInUse.Set(float64(stats.InUse))
			dbConnectionsIdle.Set(float64(stats.Idle))
			dbWaitCount.Set(float64(stats.WaitCount))
		}
	}()
	slog.Info("database pool stats collector started", "interval", "30s")
}
