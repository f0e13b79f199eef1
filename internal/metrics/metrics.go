// Package metrics owns the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "stackup"

var histogramBuckets = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10}

// Metrics bundles a private registry with the service collectors. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	httpInFlight  prometheus.Gauge
	httpRequests  *prometheus.CounterVec
	httpLatency   *prometheus.HistogramVec
	rateLimitHits *prometheus.CounterVec
	wsConnections prometheus.Gauge
	chatMessages  prometheus.Counter
	readReceipts  prometheus.Counter
	applications  *prometheus.CounterVec
	notifications *prometheus.CounterVec
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Count of processed HTTP requests.",
		}, []string{"method", "route", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency distribution of HTTP handlers.",
			Buckets:   histogramBuckets,
		}, []string{"method", "route", "status"}),
		rateLimitHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rate_limit_hits_total",
			Help:      "Number of rate-limited responses.",
		}, []string{"route", "key"}),
		wsConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ws",
			Name:      "connections",
			Help:      "Open authenticated websocket connections.",
		}),
		chatMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "messages_posted_total",
			Help:      "Messages accepted and broadcast to team rooms.",
		}),
		readReceipts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "read_receipts_total",
			Help:      "Messages newly marked as read.",
		}),
		applications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "applications",
			Name:      "transitions_total",
			Help:      "Application workflow transitions by outcome.",
		}, []string{"transition"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "events_total",
			Help:      "Notification dispatcher events by type and outcome.",
		}, []string{"type", "outcome"}),
	}
	m.Registry.MustRegister(
		m.httpInFlight,
		m.httpRequests,
		m.httpLatency,
		m.rateLimitHits,
		m.wsConnections,
		m.chatMessages,
		m.readReceipts,
		m.applications,
		m.notifications,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// RequestStarted tracks an in-flight request; call the returned func when done.
func (m *Metrics) RequestStarted() func() {
	if m == nil {
		return func() {}
	}
	m.httpInFlight.Inc()
	return m.httpInFlight.Dec
}

// ObserveRequest records a finished HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{"method": method, "route": route, "status": strconv.Itoa(status)}
	m.httpRequests.With(labels).Inc()
	m.httpLatency.With(labels).Observe(duration.Seconds())
}

// RateLimitHit records a rejected request.
func (m *Metrics) RateLimitHit(route, key string) {
	if m == nil {
		return
	}
	m.rateLimitHits.With(prometheus.Labels{"route": route, "key": key}).Inc()
}

// ConnectionOpened tracks a websocket; call the returned func on close.
func (m *Metrics) ConnectionOpened() func() {
	if m == nil {
		return func() {}
	}
	m.wsConnections.Inc()
	return m.wsConnections.Dec
}

// MessagePosted counts a broadcast chat message.
func (m *Metrics) MessagePosted() {
	if m == nil {
		return
	}
	m.chatMessages.Inc()
}

// MessagesRead counts newly recorded read receipts.
func (m *Metrics) MessagesRead(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.readReceipts.Add(float64(n))
}

// ApplicationTransition counts submitted, accepted and rejected applications.
func (m *Metrics) ApplicationTransition(transition string) {
	if m == nil {
		return
	}
	m.applications.With(prometheus.Labels{"transition": transition}).Inc()
}

// Notification counts a dispatcher outcome for a notification type.
func (m *Metrics) Notification(kind, outcome string) {
	if m == nil {
		return
	}
	m.notifications.With(prometheus.Labels{"type": kind, "outcome": outcome}).Inc()
}
