// Package metrics records Prometheus metrics for rule generation.
//
// A build runs once and exits, so the collectors live in a private registry
// that is written to a node-exporter textfile instead of being scraped.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vango-dev/edgerules/pkg/rules"
)

// Config configures the recorder.
type Config struct {
	// Namespace is the metrics namespace (default: "edgerules").
	Namespace string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels
}

// Option configures the recorder.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		if namespace != "" {
			c.Namespace = namespace
		}
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// Recorder holds the collectors for one build.
type Recorder struct {
	registry *prometheus.Registry

	routes        prometheus.Gauge
	rules         *prometheus.GaugeVec
	buildDuration prometheus.Gauge
	lastSuccess   prometheus.Gauge
	failures      prometheus.Counter
}

// New creates a recorder with its own registry.
func New(opts ...Option) *Recorder {
	cfg := Config{Namespace: "edgerules"}
	for _, opt := range opts {
		opt(&cfg)
	}

	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		routes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   cfg.Namespace,
			Name:        "routes",
			Help:        "Number of routes in the last generated route table",
			ConstLabels: cfg.ConstLabels,
		}),
		rules: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   cfg.Namespace,
			Name:        "rules",
			Help:        "Number of generated rules by weight and status",
			ConstLabels: cfg.ConstLabels,
		}, []string{"weight", "status"}),
		buildDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   cfg.Namespace,
			Name:        "build_duration_seconds",
			Help:        "Duration of the last build in seconds",
			ConstLabels: cfg.ConstLabels,
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   cfg.Namespace,
			Name:        "last_success_timestamp_seconds",
			Help:        "Unix time of the last successful build",
			ConstLabels: cfg.ConstLabels,
		}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "build_failures_total",
			Help:        "Number of failed builds",
			ConstLabels: cfg.ConstLabels,
		}),
	}
	reg.MustRegister(r.routes, r.rules, r.buildDuration, r.lastSuccess, r.failures)
	return r
}

// ObserveRules records the generated rules for a table of n routes.
func (r *Recorder) ObserveRules(n int, rs *rules.Rules) {
	r.routes.Set(float64(n))
	r.rules.Reset()
	for _, rule := range rs.Entries() {
		r.rules.WithLabelValues(strconv.Itoa(rule.Weight), strconv.Itoa(rule.Status)).Inc()
	}
}

// ObserveBuild records a finished build.
func (r *Recorder) ObserveBuild(d time.Duration, err error, now time.Time) {
	r.buildDuration.Set(d.Seconds())
	if err != nil {
		r.failures.Inc()
		return
	}
	r.lastSuccess.Set(float64(now.Unix()))
}

// Gatherer exposes the registry.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// WriteTextfile writes all metrics to path in the Prometheus text format.
// The file is replaced atomically.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
