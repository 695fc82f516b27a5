// Package metrics provides the Prometheus collectors shared by the
// screen observer host components.
//
// A nil *Metrics is valid and records nothing, so components can take
// an optional collector without branching at every call site.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Config configures the collectors.
type Config struct {
	// Namespace is the metrics namespace (default: "screenobserver").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for bridge call latency.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures the collectors.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "screenobserver",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the collectors.
type Metrics struct {
	bridgeCalls     *prometheus.CounterVec
	bridgeDuration  *prometheus.HistogramVec
	notifications   *prometheus.CounterVec
	callbackPanics  *prometheus.CounterVec
	observedTargets *prometheus.GaugeVec
	sessions        prometheus.Gauge
}

// New registers the collectors with the configured registry.
// Registering twice against the same registry panics, as promauto does.
func New(opts ...Option) *Metrics {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.Registry == nil {
		config.Registry = prometheus.DefaultRegisterer
	}
	if len(config.Buckets) == 0 {
		config.Buckets = prometheus.DefBuckets
	}

	factory := promauto.With(config.Registry)

	return &Metrics{
		bridgeCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "bridge_calls_total",
			Help:        "Total number of host to browser bridge calls",
			ConstLabels: config.ConstLabels,
		}, []string{"method", "status"}),

		bridgeDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "bridge_call_duration_seconds",
			Help:        "Bridge call round-trip duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"method"}),

		notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "notifications_total",
			Help:        "Total number of settled width notifications received from the browser",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),

		callbackPanics: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "callback_panics_total",
			Help:        "Total number of subscriber callbacks that panicked during fan-out",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),

		observedTargets: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "observed_targets",
			Help:        "Number of targets with at least one subscriber",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),

		sessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "active_sessions",
			Help:        "Number of connected browser pages",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// RecordBridgeCall records a completed bridge call.
func (m *Metrics) RecordBridgeCall(method string, err error, d time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.bridgeCalls.WithLabelValues(method, status).Inc()
	m.bridgeDuration.WithLabelValues(method).Observe(d.Seconds())
}

// RecordNotification records an inbound width notification.
func (m *Metrics) RecordNotification(kind string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(kind).Inc()
}

// RecordCallbackPanic records a recovered subscriber panic.
func (m *Metrics) RecordCallbackPanic(kind string) {
	if m == nil {
		return
	}
	m.callbackPanics.WithLabelValues(kind).Inc()
}

// TargetObserved adjusts the observed target gauge by delta.
func (m *Metrics) TargetObserved(kind string, delta int) {
	if m == nil {
		return
	}
	m.observedTargets.WithLabelValues(kind).Add(float64(delta))
}

// SessionStarted increments the active sessions gauge.
func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.sessions.Inc()
}

// SessionEnded decrements the active sessions gauge.
func (m *Metrics) SessionEnded() {
	if m == nil {
		return
	}
	m.sessions.Dec()
}
