// Package observability provides Prometheus metrics and structured logging
// for the dirty-check service.
//
// Metrics are labelled by collection, so one process can watch several
// collections. All operations are safe for concurrent use.
package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/light-bringer/dirtycheck-service/internal/app/dirtycheck/engine"
)

const metricsNamespace = "dirtycheck"

// Metrics holds the service metrics.
type Metrics struct {
	// Trackers is the number of live trackers. Labels: collection
	Trackers *prometheus.GaugeVec

	// TrackerEvents counts tracker lifecycle events.
	// Labels: collection, event (created, destroyed)
	TrackerEvents *prometheus.CounterVec

	// HeadsCaptured counts baseline captures. Labels: collection
	HeadsCaptured *prometheus.CounterVec

	// Resets counts entities written back to their baseline. Labels: collection
	Resets *prometheus.CounterVec

	// SomeDirty is 1 while any tracked entity is dirty. Labels: collection
	SomeDirty *prometheus.GaugeVec

	// Evaluations counts aggregate evaluations. Labels: collection
	Evaluations *prometheus.CounterVec

	// Commits counts commit attempts. Labels: collection, status (success, conflict, error)
	Commits *prometheus.CounterVec

	// CommittedEntities counts entities persisted by commits. Labels: collection
	CommittedEntities *prometheus.CounterVec

	// CommitDuration measures commit latency. Labels: collection
	CommitDuration *prometheus.HistogramVec

	// HTTPRequests counts API requests. Labels: method, route, status
	HTTPRequests *prometheus.CounterVec
}

// NewMetrics creates the metrics and registers them with reg.
// Registering twice on the same registry panics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Trackers: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "trackers",
			Help:      "Number of live entity trackers.",
		}, []string{"collection"}),
		TrackerEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "tracker_events_total",
			Help:      "Tracker lifecycle events.",
		}, []string{"collection", "event"}),
		HeadsCaptured: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "heads_captured_total",
			Help:      "Baselines captured.",
		}, []string{"collection"}),
		Resets: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "resets_total",
			Help:      "Entities written back to their baseline.",
		}, []string{"collection"}),
		SomeDirty: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "some_dirty",
			Help:      "1 while any tracked entity differs from its baseline.",
		}, []string{"collection"}),
		Evaluations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "evaluations_total",
			Help:      "Aggregate dirty evaluations.",
		}, []string{"collection"}),
		Commits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "commit",
			Name:      "attempts_total",
			Help:      "Commit attempts by outcome.",
		}, []string{"collection", "status"}),
		CommittedEntities: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "commit",
			Name:      "entities_total",
			Help:      "Entities persisted by commits.",
		}, []string{"collection"}),
		CommitDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "commit",
			Name:      "duration_seconds",
			Help:      "Commit duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"collection"}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "API requests.",
		}, []string{"method", "route", "status"}),
	}
}

// RecordCommit records one commit attempt.
func (m *Metrics) RecordCommit(collection, status string, entities int, duration time.Duration) {
	m.Commits.WithLabelValues(collection, status).Inc()
	if entities > 0 {
		m.CommittedEntities.WithLabelValues(collection).Add(float64(entities))
	}
	m.CommitDuration.WithLabelValues(collection).Observe(duration.Seconds())
}

// RecordHTTPRequest records one API request.
func (m *Metrics) RecordHTTPRequest(method, route string, status int) {
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

// Recorder returns an engine.Recorder bound to one collection.
func (m *Metrics) Recorder(collection string) engine.Recorder {
	return &collectionRecorder{m: m, collection: collection}
}

type collectionRecorder struct {
	m          *Metrics
	collection string
}

func (r *collectionRecorder) TrackerCreated() {
	r.m.Trackers.WithLabelValues(r.collection).Inc()
	r.m.TrackerEvents.WithLabelValues(r.collection, "created").Inc()
}

func (r *collectionRecorder) TrackerDestroyed() {
	r.m.Trackers.WithLabelValues(r.collection).Dec()
	r.m.TrackerEvents.WithLabelValues(r.collection, "destroyed").Inc()
}

func (r *collectionRecorder) HeadCaptured() {
	r.m.HeadsCaptured.WithLabelValues(r.collection).Inc()
}

func (r *collectionRecorder) EntityReset() {
	r.m.Resets.WithLabelValues(r.collection).Inc()
}

func (r *collectionRecorder) SomeDirtyEvaluated(dirty bool) {
	r.m.Evaluations.WithLabelValues(r.collection).Inc()
	v := 0.0
	if dirty {
		v = 1
	}
	r.m.SomeDirty.WithLabelValues(r.collection).Set(v)
}
