package obs

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	transitions  *prometheus.CounterVec
	created      *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pickup",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests handled.",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "pickup",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests.",
				Buckets:   prometheus.ExponentialBuckets(0.002, 2, 12),
			},
			[]string{"method", "route"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pickup",
				Subsystem: "lifecycle",
				Name:      "transitions_total",
				Help:      "Request status transitions by outcome.",
			},
			[]string{"transition", "outcome"},
		),
		created: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pickup",
				Subsystem: "lifecycle",
				Name:      "requests_created_total",
				Help:      "Requests created, by whether they were auto-routed.",
			},
			[]string{"routed"},
		),
	}

	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.transitions,
		m.created,
	)
	return m
}

func (m *Metrics) RecordHTTP(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, status).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// RecordTransition counts one attempt. outcome is "ok" or the error class.
func (m *Metrics) RecordTransition(transition, outcome string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(transition, outcome).Inc()
}

func (m *Metrics) RecordCreated(routed bool) {
	if m == nil {
		return
	}
	label := "false"
	if routed {
		label = "true"
	}
	m.created.WithLabelValues(label).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
