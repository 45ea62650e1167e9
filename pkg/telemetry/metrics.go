package telemetry

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/hookstore/pkg/hookstore"
)

// MetricsConfig configures the Prometheus observer.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "hookstore").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for update duration.
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus observer.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
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

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "hookstore",
		// Updates are in-memory; most finish well under a millisecond.
		Buckets:  []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05, .1},
		Registry: prometheus.DefaultRegisterer,
	}
}

// Metrics is a hookstore.Observer that records Prometheus metrics.
//
// Metrics collected:
//   - hookstore_stores: Gauge of registered stores
//   - hookstore_stores_replaced_total: Counter of stores replaced under the override policy
//   - hookstore_updates_total: Counter of updates by store, op and path (fast, full or panic)
//   - hookstore_update_duration_seconds: Histogram of update duration by store
//   - hookstore_buckets_notified_total / hookstore_buckets_skipped_total: selector buckets per store
//   - hookstore_notifications_total: Counter of trigger and subscriber calls by store and kind
//   - hookstore_failures_total: Counter of trigger and subscriber failures by store and code
//   - hookstore_misuse_total: Counter of misuse warnings by store and code
type Metrics struct {
	stores          prometheus.Gauge
	storesReplaced  prometheus.Counter
	updatesTotal    *prometheus.CounterVec
	updateDuration  *prometheus.HistogramVec
	bucketsNotified *prometheus.CounterVec
	bucketsSkipped  *prometheus.CounterVec
	notifications   *prometheus.CounterVec
	failures        *prometheus.CounterVec
	misuse          *prometheus.CounterVec
}

// Prometheus creates the metrics observer and registers its collectors.
// Registering twice in the same registry panics, so build one per registry.
func Prometheus(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	factory := promauto.With(config.Registry)
	counterOpts := func(name, help string) prometheus.CounterOpts {
		return prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
		}
	}

	return &Metrics{
		stores: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "stores",
			Help:        "Number of registered stores",
			ConstLabels: config.ConstLabels,
		}),

		storesReplaced: factory.NewCounter(counterOpts(
			"stores_replaced_total", "Total number of stores replaced under the override policy")),

		updatesTotal: factory.NewCounterVec(counterOpts(
			"updates_total", "Total number of store updates"),
			[]string{"store", "op", "path"}),

		updateDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "update_duration_seconds",
			Help:        "Store update duration in seconds, notification included",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"store"}),

		bucketsNotified: factory.NewCounterVec(counterOpts(
			"buckets_notified_total", "Total number of selector buckets whose value changed"),
			[]string{"store"}),

		bucketsSkipped: factory.NewCounterVec(counterOpts(
			"buckets_skipped_total", "Total number of selector buckets skipped because their value did not change"),
			[]string{"store"}),

		notifications: factory.NewCounterVec(counterOpts(
			"notifications_total", "Total number of trigger and subscriber calls"),
			[]string{"store", "kind"}),

		failures: factory.NewCounterVec(counterOpts(
			"failures_total", "Total number of trigger and subscriber failures"),
			[]string{"store", "code"}),

		misuse: factory.NewCounterVec(counterOpts(
			"misuse_total", "Total number of misuse warnings"),
			[]string{"store", "code"}),
	}
}

// StoreCreated implements hookstore.Observer.
func (m *Metrics) StoreCreated(_ string, replaced bool) {
	if replaced {
		m.storesReplaced.Inc()
		return
	}
	m.stores.Inc()
}

// UpdateStarted implements hookstore.Observer.
func (m *Metrics) UpdateStarted(ctx context.Context, info hookstore.UpdateInfo) (context.Context, func(hookstore.UpdateResult)) {
	start := time.Now()

	return ctx, func(res hookstore.UpdateResult) {
		m.updateDuration.WithLabelValues(info.Store).Observe(time.Since(start).Seconds())

		path := "full"
		switch {
		case res.Panicked:
			path = "panic"
		case res.FastPath:
			path = "fast"
		}
		m.updatesTotal.WithLabelValues(info.Store, string(info.Op), path).Inc()

		if res.BucketsNotified > 0 {
			m.bucketsNotified.WithLabelValues(info.Store).Add(float64(res.BucketsNotified))
		}
		if res.BucketsSkipped > 0 {
			m.bucketsSkipped.WithLabelValues(info.Store).Add(float64(res.BucketsSkipped))
		}
		if res.Triggers > 0 {
			m.notifications.WithLabelValues(info.Store, "trigger").Add(float64(res.Triggers))
		}
		if res.Subscribers > 0 {
			m.notifications.WithLabelValues(info.Store, "subscriber").Add(float64(res.Subscribers))
		}
	}
}

// Misuse implements hookstore.Observer.
func (m *Metrics) Misuse(store string, err error) {
	m.misuse.WithLabelValues(store, errorCode(err)).Inc()
}

// Failed implements hookstore.Observer.
func (m *Metrics) Failed(_ context.Context, store string, err error) {
	m.failures.WithLabelValues(store, errorCode(err)).Inc()
}
