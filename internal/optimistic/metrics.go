package optimistic

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels.
const (
	OutcomeCommitted = "committed"
	OutcomeFailed    = "failed"
	OutcomeCanceled  = "canceled"
)

// MetricsConfig configures the controller metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "optask").
	Namespace string

	// Buckets are the histogram buckets for store round trips.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures MetricsConfig.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

// Metrics counts operations by kind and outcome and times store round trips.
type Metrics struct {
	operations *prometheus.CounterVec
	roundTrip  *prometheus.HistogramVec
	inFlight   prometheus.Gauge
}

// NewMetrics registers the controller metrics.
func NewMetrics(opts ...MetricsOption) *Metrics {
	cfg := MetricsConfig{
		Namespace: "optask",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	factory := promauto.With(cfg.Registry)

	return &Metrics{
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "operations_total",
			Help:      "Optimistic operations by kind and outcome",
		}, []string{"kind", "outcome"}),
		roundTrip: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Name:      "store_round_trip_seconds",
			Help:      "Store call duration in seconds",
			Buckets:   cfg.Buckets,
		}, []string{"kind"}),
		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Name:      "operations_in_flight",
			Help:      "Operations awaiting a store result",
		}),
	}
}

func (m *Metrics) start() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

func (m *Metrics) finish(kind, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.inFlight.Dec()
	m.operations.WithLabelValues(kind, outcome).Inc()
	m.roundTrip.WithLabelValues(kind).Observe(elapsed.Seconds())
}
