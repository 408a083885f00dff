// Package metrics exposes Concordia's Prometheus instruments.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/concordia-classroom/concordia/internal/domain/shared"
	"github.com/concordia-classroom/concordia/internal/infrastructure/messaging"
)

// ══════════════════════════════════════════════════════════════════════════════
// COLLECTOR
// One registry per process. Every instrument lives here so the rest of the
// code depends on small recorder interfaces, never on prometheus directly.
// ══════════════════════════════════════════════════════════════════════════════

// Config holds metrics configuration.
type Config struct {
	// Namespace prefixes every metric name.
	Namespace string

	// IncludeRuntime registers the Go and process collectors.
	IncludeRuntime bool

	// LatencyBuckets are the HTTP latency histogram buckets in seconds.
	LatencyBuckets []float64
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Namespace:      "concordia",
		IncludeRuntime: true,
		LatencyBuckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}
}

// Collector owns the registry and all instruments.
type Collector struct {
	registry *prometheus.Registry

	stateUpdates   prometheus.Counter
	stateFailures  prometheus.Counter
	loadFallbacks  *prometheus.CounterVec
	reportRequests *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
	httpLatency    *prometheus.HistogramVec
	eventsTotal    *prometheus.CounterVec
	handlerLatency *prometheus.HistogramVec
	handlerErrors  *prometheus.CounterVec
	publishErrors  *prometheus.CounterVec
	remoteEvents   *prometheus.CounterVec
}

// New creates a collector with a private registry.
func New(cfg Config) *Collector {
	if cfg.Namespace == "" {
		cfg.Namespace = "concordia"
	}
	if len(cfg.LatencyBuckets) == 0 {
		cfg.LatencyBuckets = prometheus.DefBuckets
	}

	ns := cfg.Namespace
	c := &Collector{
		registry: prometheus.NewRegistry(),
		stateUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "state", Name: "updates_total",
			Help: "Successful state updates.",
		}),
		stateFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "state", Name: "update_failures_total",
			Help: "State updates that failed to persist.",
		}),
		loadFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "state", Name: "load_fallbacks_total",
			Help: "Loads that fell back to the seed state, by reason.",
		}, []string{"reason"}),
		reportRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "report", Name: "requests_total",
			Help: "Report requests by outcome.",
		}, []string{"outcome"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests by route and status.",
		}, []string{"route", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns, Subsystem: "http", Name: "request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: cfg.LatencyBuckets,
		}, []string{"route"}),
		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "eventbus", Name: "published_total",
			Help: "Events published by type.",
		}, []string{"type"}),
		handlerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns, Subsystem: "eventbus", Name: "handler_duration_seconds",
			Help: "Event handler latency by type.",
		}, []string{"type"}),
		handlerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "eventbus", Name: "handler_errors_total",
			Help: "Failed event handler invocations by type.",
		}, []string{"type"}),
		publishErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "eventbus", Name: "remote_publish_errors_total",
			Help: "Events that could not be mirrored to Redis.",
		}, []string{"type"}),
		remoteEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "eventbus", Name: "remote_received_total",
			Help: "Events received from other instances.",
		}, []string{"type"}),
	}

	c.registry.MustRegister(
		c.stateUpdates, c.stateFailures, c.loadFallbacks,
		c.reportRequests,
		c.httpRequests, c.httpLatency,
		c.eventsTotal, c.handlerLatency, c.handlerErrors, c.publishErrors, c.remoteEvents,
	)
	if cfg.IncludeRuntime {
		c.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return c
}

// Registry exposes the underlying registry (tests, custom collectors).
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler returns the /metrics exposition handler.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// ──────────────────────────────────────────────────────────────────────────────
// State store
// ──────────────────────────────────────────────────────────────────────────────

// StateUpdated counts a persisted update.
func (c *Collector) StateUpdated() { c.stateUpdates.Inc() }

// StateUpdateFailed counts an update whose save failed.
func (c *Collector) StateUpdateFailed() { c.stateFailures.Inc() }

// LoadFallback counts a load that degraded to the seed state.
func (c *Collector) LoadFallback(reason string) { c.loadFallbacks.WithLabelValues(reason).Inc() }

// ──────────────────────────────────────────────────────────────────────────────
// Reports
// ──────────────────────────────────────────────────────────────────────────────

// ReportFinished counts a report request by outcome.
func (c *Collector) ReportFinished(outcome string) { c.reportRequests.WithLabelValues(outcome).Inc() }

// ──────────────────────────────────────────────────────────────────────────────
// HTTP
// ──────────────────────────────────────────────────────────────────────────────

// ObserveHTTP records one served request. route is the mux pattern, not the raw path.
func (c *Collector) ObserveHTTP(route string, status int, d time.Duration) {
	c.httpRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	c.httpLatency.WithLabelValues(route).Observe(d.Seconds())
}

// ──────────────────────────────────────────────────────────────────────────────
// Event bus
// ──────────────────────────────────────────────────────────────────────────────

// EventBusHooks adapts the collector to the messaging package's hook set.
func (c *Collector) EventBusHooks() messaging.Hooks {
	return messaging.Hooks{
		OnPublish: func(t shared.EventType) {
			c.eventsTotal.WithLabelValues(string(t)).Inc()
		},
		OnHandlerDone: func(t shared.EventType, d time.Duration, ok bool) {
			c.handlerLatency.WithLabelValues(string(t)).Observe(d.Seconds())
			if !ok {
				c.handlerErrors.WithLabelValues(string(t)).Inc()
			}
		},
		OnRemoteEvent: func(t shared.EventType) {
			c.remoteEvents.WithLabelValues(string(t)).Inc()
		},
		OnPublishError: func(t shared.EventType, _ error) {
			c.publishErrors.WithLabelValues(string(t)).Inc()
		},
	}
}
