// Package metrics exposes Prometheus instrumentation for the wallet
// daemon's request dispatch, mutation, and notification paths.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal      *prometheus.CounterVec
	requestDuration    *prometheus.HistogramVec
	mutationsTotal     *prometheus.CounterVec
	notificationsDropped prometheus.Counter

	metricsOnce       sync.Once
	metricsRegistered bool
)

// Metrics provides methods to record dispatcher-level events. It is a thin
// handle over the package-level collectors so call sites don't reach for
// globals directly.
type Metrics struct{}

// Init registers every collector exactly once. Call at startup before
// serving requests if Prometheus export is enabled.
func Init() {
	metricsOnce.Do(func() {
		requestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "secwallet_requests_total",
				Help: "Total number of dispatched commands, by server and status",
			},
			[]string{"server", "command", "status"},
		)

		requestDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "secwallet_request_duration_seconds",
				Help:    "Duration of command dispatch in seconds",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"server", "command"},
		)

		mutationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "secwallet_mutations_total",
				Help: "Total number of successful create/update/delete mutations, by server and action",
			},
			[]string{"server", "action"},
		)

		notificationsDropped = promauto.NewCounter(prometheus.CounterOpts{
			Name: "secwallet_notifications_dropped_total",
			Help: "Total number of notification events dropped due to queue overflow",
		})

		metricsRegistered = true
	})
}

// New returns a handle for recording metrics. Safe to use before Init; every
// recording method is a no-op until registration completes.
func New() *Metrics {
	return &Metrics{}
}

// RecordRequest records one dispatched command's outcome and latency.
func (m *Metrics) RecordRequest(server, command, status string, durationSeconds float64) {
	if !metricsRegistered {
		return
	}
	requestsTotal.WithLabelValues(server, command, status).Inc()
	requestDuration.WithLabelValues(server, command).Observe(durationSeconds)
}

// RecordMutation records one successful create/update/delete.
func (m *Metrics) RecordMutation(server, action string) {
	if !metricsRegistered {
		return
	}
	mutationsTotal.WithLabelValues(server, action).Inc()
}

// RecordNotificationDropped increments the dropped-notification counter,
// wired to internal/notify.Manager's WithOnDropped callback.
func (m *Metrics) RecordNotificationDropped() {
	if !metricsRegistered || notificationsDropped == nil {
		return
	}
	notificationsDropped.Inc()
}

// IsRegistered reports whether Init has run.
func IsRegistered() bool {
	return metricsRegistered
}
