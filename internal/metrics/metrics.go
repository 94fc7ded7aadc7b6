package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "bypass_proxy"

// Metrics tracks routing decisions and upstream outcomes.
//
// Metrics:
//   - bypass_proxy_route_decisions_total: requests by backend and capability
//   - bypass_proxy_upstream_errors_total: surfaced errors by backend and kind
//   - bypass_proxy_request_duration_seconds: handling time by backend and mode
//   - bypass_proxy_stream_frames_total: frames written to streaming callers
type Metrics struct {
	registry        *prometheus.Registry
	routeDecisions  *prometheus.CounterVec
	upstreamErrors  *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	streamFrames    *prometheus.CounterVec
}

// New creates and registers the gateway metrics with a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		routeDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "route_decisions_total",
				Help:      "Requests routed, by backend and capability",
			},
			[]string{"backend", "capability"},
		),
		upstreamErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upstream_errors_total",
				Help:      "Errors surfaced to callers, by backend and kind",
			},
			[]string{"backend", "kind"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Time to finish a proxied request, in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
			},
			[]string{"backend", "mode"},
		),
		streamFrames: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stream_frames_total",
				Help:      "Frames written to streaming callers, by backend",
			},
			[]string{"backend"},
		),
	}

	m.registry.MustRegister(
		m.routeDecisions,
		m.upstreamErrors,
		m.requestDuration,
		m.streamFrames,
	)
	return m
}

// Registry exposes the registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordRoute counts one routing decision.
func (m *Metrics) RecordRoute(backend, capability string) {
	m.routeDecisions.WithLabelValues(backend, capability).Inc()
}

// RecordError counts one error surfaced to a caller.
func (m *Metrics) RecordError(backend, kind string) {
	m.upstreamErrors.WithLabelValues(backend, kind).Inc()
}

// RecordDuration observes the time since start.
func (m *Metrics) RecordDuration(backend, mode string, start time.Time) {
	m.requestDuration.WithLabelValues(backend, mode).Observe(time.Since(start).Seconds())
}

// RecordFrame counts one frame written to a stream.
func (m *Metrics) RecordFrame(backend string) {
	m.streamFrames.WithLabelValues(backend).Inc()
}
