// Package metrics owns the Prometheus registry exposed by the admin server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "folio"

// Notification outcomes recorded by NotificationOutcome.
const (
	OutcomeSent         = "sent"
	OutcomeNoRecipients = "no_recipients"
	OutcomeSkipped      = "skipped"
	OutcomeFailed       = "failed"
)

// Metrics holds the collectors folio records. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpDuration  *prometheus.HistogramVec
	httpRequests  *prometheus.CounterVec
	notifications *prometheus.CounterVec
	pathsRebuilt  prometheus.Counter
}

// New creates a registry with process and Go collectors plus folio metrics.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Admin API request duration by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Admin API requests by route and status.",
		}, []string{"method", "route", "status"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "notifications_total",
			Help:      "Notification dispatches by notification name and outcome.",
		}, []string{"notification", "outcome"}),
		pathsRebuilt: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tree",
			Name:      "url_paths_saved_total",
			Help:      "Pages whose url_path was rewritten.",
		}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpDuration,
		m.httpRequests,
		m.notifications,
		m.pathsRebuilt,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveRequest records one finished admin API request.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

// NotificationOutcome counts one notification dispatch.
func (m *Metrics) NotificationOutcome(notification, outcome string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(notification, outcome).Inc()
}

// URLPathsSaved adds n rewritten url paths.
func (m *Metrics) URLPathsSaved(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.pathsRebuilt.Add(float64(n))
}
