// Package telemetry holds the Prometheus metrics of the audit service.
//
// All metrics register against the default registry and are exposed by
// Handler on the side listener configured under metrics.addr (default :9090):
//
//	GET http://<host>:9090/metrics
//
// HTTP metrics are labelled by chi route pattern, never by raw URL, so
// session and discrepancy ids do not blow up label cardinality.
package telemetry

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP metrics, labelled by method, route pattern and status code.
//
// Example PromQL:
//   - p99 latency per route: histogram_quantile(0.99, sum by (path, le) (rate(http_request_duration_seconds_bucket[5m])))
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed, by method, route pattern, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, by method and route pattern.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)
)

// Reconciliation metrics.
//
// ScansTotal counts ingested scans by classification outcome. Idempotent
// replays of a client_scan_id are not counted.
//
// Example PromQL:
//   - Misplaced share: sum(rate(audit_scans_total{outcome="misplaced"}[1h])) / sum(rate(audit_scans_total[1h]))
var (
	ScansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_scans_total",
			Help: "Total number of ingested scans, by classification outcome.",
		},
		[]string{"outcome"},
	)

	DiscrepanciesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_discrepancies_total",
			Help: "Total number of discrepancies raised, by type.",
		},
		[]string{"type"},
	)

	SessionTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_session_transitions_total",
			Help: "Total number of session status transitions, by source and target status.",
		},
		[]string{"from", "to"},
	)

	ActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_actions_total",
			Help: "Total number of remediation action deliveries, by action type and resulting status.",
		},
		[]string{"type", "status"},
	)
)

// InventoryRequestDuration observes calls to the inventory backend, by
// operation and outcome ("ok" or "error").
var InventoryRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "inventory_request_duration_seconds",
		Help:    "Latency of inventory backend calls, by operation and outcome.",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"operation", "outcome"},
)

// DBAcquiredConnections tracks connections currently checked out of the pgx pool.
var DBAcquiredConnections = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "db_acquired_connections",
		Help: "Current number of connections acquired from the database pool.",
	},
)

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveInventory records one inventory call that started at start.
func ObserveInventory(operation string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	InventoryRequestDuration.WithLabelValues(operation, outcome).Observe(time.Since(start).Seconds())
}

// StartPoolStatsCollector samples the pool every 30 seconds until ctx is done.
func StartPoolStatsCollector(ctx context.Context, pool *pgxpool.Pool) {
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				slog.Debug("pool stats collector stopped")
				return
			case <-ticker.C:
				DBAcquiredConnections.Set(float64(pool.Stat().AcquiredConns()))
			}
		}
	}()
}
