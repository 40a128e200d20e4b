// Package metrics exposes roster server metrics to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"google.golang.org/grpc/codes"

	"github.com/latoalla/roster-server/internal/api/grpc/middleware"
	"github.com/latoalla/roster-server/internal/model"
	"github.com/latoalla/roster-server/internal/roster"
	"github.com/latoalla/roster-server/internal/service"
)

const namespace = "roster"

var (
	_ roster.Observer            = (*Metrics)(nil)
	_ roster.ProjectionCounter   = (*Metrics)(nil)
	_ service.SubmissionRecorder = (*Metrics)(nil)
	_ middleware.RequestObserver = (*Metrics)(nil)
)

// Metrics owns a private registry and every collector the server reports.
type Metrics struct {
	registry *prometheus.Registry

	submissions   *prometheus.CounterVec
	projections   *prometheus.CounterVec
	mirrorRecords prometheus.Gauge
	mirrorVersion prometheus.Gauge
	mirrorStale   prometheus.Gauge
	mirrorSynced  prometheus.Gauge
	requests      *prometheus.HistogramVec
}

// New creates the collectors and registers them, along with the Go and
// process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Signup submissions by outcome.",
		}, []string{"outcome"}),
		projections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "projections_total",
			Help:      "Roster recomputations by category.",
		}, []string{"category"}),
		mirrorRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "mirror",
			Name:      "records",
			Help:      "Signups held by the latest snapshot.",
		}),
		mirrorVersion: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "mirror",
			Name:      "version",
			Help:      "Version of the latest snapshot.",
		}),
		mirrorStale: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "mirror",
			Name:      "stale",
			Help:      "1 while the change subscription is broken.",
		}),
		mirrorSynced: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "mirror",
			Name:      "synced",
			Help:      "1 once the first snapshot has been published.",
		}),
		requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "grpc",
			Name:      "request_duration_seconds",
			Help:      "gRPC request latency by method and status code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "code"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.submissions,
		m.projections,
		m.mirrorRecords,
		m.mirrorVersion,
		m.mirrorStale,
		m.mirrorSynced,
		m.requests,
	)
	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Submission(outcome string) {
	m.submissions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Projected(category model.Category) {
	m.projections.WithLabelValues(string(category)).Inc()
}

func (m *Metrics) SnapshotPublished(version uint64, records int) {
	m.mirrorVersion.Set(float64(version))
	m.mirrorRecords.Set(float64(records))
}

func (m *Metrics) StatusChanged(status roster.Status) {
	m.mirrorStale.Set(boolGauge(status.Stale))
	m.mirrorSynced.Set(boolGauge(status.Synced))
}

func (m *Metrics) ObserveRequest(method string, code codes.Code, duration time.Duration) {
	m.requests.WithLabelValues(method, code.String()).Observe(duration.Seconds())
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
