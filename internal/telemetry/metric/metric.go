// Package metric provides the Prometheus instrumentation for
// proctree: snapshot outcomes and walk latency, collector sync
// results, live task count, and the HTTP request surface.
package metric

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vatlidak/proctree-go/internal/core/domain"
)

const namespace = "proctree"

// Metrics holds all application metrics, registered on a private
// Prometheus registry.
type Metrics struct {
	registry *prometheus.Registry

	// Snapshot metrics.
	SnapshotsTotal     *prometheus.CounterVec
	SnapshotsTruncated prometheus.Counter
	WalkDuration       prometheus.Histogram
	SnapshotRecords    prometheus.Histogram

	// Collector metrics.
	CollectorSyncs      prometheus.Counter
	CollectorSyncErrors prometheus.Counter

	// HTTP metrics.
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// New creates the metrics and registers them, along with the standard
// Go runtime collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		SnapshotsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "captures_total",
			Help:      "Snapshot captures by outcome (ok, truncated, error)",
		}, []string{"outcome"}),
		SnapshotsTruncated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "truncated_total",
			Help:      "Snapshots whose capacity could not hold every task",
		}),
		WalkDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "walk_duration_seconds",
			Help:      "Time spent walking the hierarchy under the shared lock",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}),
		SnapshotRecords: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "records",
			Help:      "Records captured per snapshot",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		}),
		CollectorSyncs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "collector",
			Name:      "syncs_total",
			Help:      "Completed process-table reconciliations",
		}),
		CollectorSyncErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "collector",
			Name:      "sync_errors_total",
			Help:      "Failed process-table reconciliations",
		}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status code",
		}, []string{"method", "route", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	registry.MustRegister(
		m.SnapshotsTotal,
		m.SnapshotsTruncated,
		m.WalkDuration,
		m.SnapshotRecords,
		m.CollectorSyncs,
		m.CollectorSyncErrors,
		m.RequestsTotal,
		m.RequestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// RegisterLiveTasks exposes the registry's live task count as a gauge
// sampled at scrape time.
func (m *Metrics) RegisterLiveTasks(count func() int) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "registry",
		Name:      "tasks_live",
		Help:      "Tasks currently in the hierarchy, including the root",
	}, func() float64 {
		return float64(count())
	}))
}

// ObserveRequest records one completed HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.RequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveSnapshot records the outcome of one snapshot capture.
func (m *Metrics) ObserveSnapshot(snap *domain.Snapshot, elapsed time.Duration, err error) {
	if err != nil {
		m.SnapshotsTotal.WithLabelValues("error").Inc()
		return
	}
	outcome := "ok"
	if snap.Truncated() {
		outcome = "truncated"
		m.SnapshotsTruncated.Inc()
	}
	m.SnapshotsTotal.WithLabelValues(outcome).Inc()
	m.WalkDuration.Observe(elapsed.Seconds())
	m.SnapshotRecords.Observe(float64(len(snap.Records)))
}

// Registry returns the underlying Prometheus registry for components
// that register their own instruments (the storage layer).
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the scrape endpoint handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
