// Package metrics exposes gateway counters and gauges on a private
// Prometheus registry, served at /metrics by the WebSocket HTTP server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector the gateway records into.
type Metrics struct {
	registry *prometheus.Registry

	activeSessions prometheus.Gauge
	robotsOnline   prometheus.Gauge

	commandsTotal  *prometheus.CounterVec
	commandLatency *prometheus.HistogramVec

	telemetryTotal   *prometheus.CounterVec
	telemetryDropped *prometheus.CounterVec

	forwarderBatches *prometheus.CounterVec
	forwarderDropped *prometheus.CounterVec

	rateLimited prometheus.Counter
	estopActive prometheus.Gauge
}

// Latency buckets in milliseconds.
var latencyBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000}

var global *Metrics

// Init builds the registry and collectors under the given namespace.
func Init(namespace string) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: registry,

		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Currently open WebSocket sessions",
		}),

		robotsOnline: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "robots_online",
			Help:      "Robots currently online",
		}),

		commandsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "commands_total",
				Help:      "Commands processed by the safety pipeline",
			},
			[]string{"type", "verdict"},
		),

		commandLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "command_latency_ms",
				Help:      "Ingress-to-adapter latency for approved commands",
				Buckets:   latencyBuckets,
			},
			[]string{"type"},
		),

		telemetryTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "telemetry_messages_total",
				Help:      "Telemetry messages fanned out by the hub",
			},
			[]string{"topic"},
		),

		telemetryDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "telemetry_dropped_total",
				Help:      "Telemetry messages dropped on full session queues",
			},
			[]string{"topic"},
		),

		forwarderBatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "forwarder_batches_total",
				Help:      "Recording batches flushed, by buffer and outcome",
			},
			[]string{"buffer", "status"},
		),

		forwarderDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "forwarder_records_dropped_total",
				Help:      "Records dropped after sustained recording failures",
			},
			[]string{"buffer"},
		),

		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the ingress rate limit",
		}),

		estopActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "estop_active",
			Help:      "Robots with an active emergency stop",
		}),
	}

	registry.MustRegister(
		m.activeSessions,
		m.robotsOnline,
		m.commandsTotal,
		m.commandLatency,
		m.telemetryTotal,
		m.telemetryDropped,
		m.forwarderBatches,
		m.forwarderDropped,
		m.rateLimited,
		m.estopActive,
	)
	global = m
}

// SessionOpened increments the active session gauge.
func SessionOpened() {
	if global != nil {
		global.activeSessions.Inc()
	}
}

// SessionClosed decrements the active session gauge.
func SessionClosed() {
	if global != nil {
		global.activeSessions.Dec()
	}
}

// SetRobotsOnline records the online robot count.
func SetRobotsOnline(n int) {
	if global != nil {
		global.robotsOnline.Set(float64(n))
	}
}

// RecordCommand counts a pipeline verdict for a command type.
func RecordCommand(cmdType, verdict string) {
	if global != nil {
		global.commandsTotal.WithLabelValues(cmdType, verdict).Inc()
	}
}

// ObserveCommandLatency records delivery latency for an approved command.
func ObserveCommandLatency(cmdType string, ms float64) {
	if global != nil {
		global.commandLatency.WithLabelValues(cmdType).Observe(ms)
	}
}

// RecordTelemetry counts one hub fan-out on a topic.
func RecordTelemetry(topic string) {
	if global != nil {
		global.telemetryTotal.WithLabelValues(topic).Inc()
	}
}

// RecordTelemetryDrop counts a per-session queue drop on a topic.
func RecordTelemetryDrop(topic string) {
	if global != nil {
		global.telemetryDropped.WithLabelValues(topic).Inc()
	}
}

// RecordForwarderBatch counts one flush attempt per buffer.
func RecordForwarderBatch(buffer, status string) {
	if global != nil {
		global.forwarderBatches.WithLabelValues(buffer, status).Inc()
	}
}

// RecordForwarderDrop counts records dropped from an overfull buffer.
func RecordForwarderDrop(buffer string, n int) {
	if global != nil {
		global.forwarderDropped.WithLabelValues(buffer).Add(float64(n))
	}
}

// RecordRateLimited counts an ingress rejection.
func RecordRateLimited() {
	if global != nil {
		global.rateLimited.Inc()
	}
}

// SetEStopActive records how many robots hold an active stop.
func SetEStopActive(n int) {
	if global != nil {
		global.estopActive.Set(float64(n))
	}
}

// Handler serves the private registry.
func Handler() http.Handler {
	if global == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(global.registry, promhttp.HandlerOpts{})
}

// Registry exposes the registry for tests.
func Registry() *prometheus.Registry {
	if global == nil {
		return nil
	}
	return global.registry
}
