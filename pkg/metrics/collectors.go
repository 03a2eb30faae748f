package metrics

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	validMetricName = regexp.MustCompile(`^[a-zA-Z_:][a-zA-Z0-9_:]*$`)
	validLabelName  = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
)

// CounterOpts names a counter series. The exported name is
// "{namespace}_{subsystem}_{name}".
type CounterOpts struct {
	Namespace string
	Subsystem string
	Name      string
	Help      string
	Labels    []string
}

// HistogramOpts names a histogram series. Nil Buckets selects
// prometheus.DefBuckets.
type HistogramOpts struct {
	Namespace string
	Subsystem string
	Name      string
	Help      string
	Labels    []string
	Buckets   []float64
}

// Counter is a labelled monotonically increasing series.
type Counter struct {
	vec *prometheus.CounterVec
}

// Histogram is a labelled distribution of observations.
type Histogram struct {
	vec *prometheus.HistogramVec
}

// NewCounter validates opts and registers the counter with the package registry.
func NewCounter(opts CounterOpts) (*Counter, error) {
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: opts.Namespace,
		Subsystem: opts.Subsystem,
		Name:      opts.Name,
		Help:      opts.Help,
	}, opts.Labels)
	if err := register("counter", vec, opts.Namespace, opts.Subsystem, opts.Name, opts.Labels); err != nil {
		return nil, err
	}
	return &Counter{vec: vec}, nil
}

// NewHistogram validates opts and registers the histogram with the package registry.
func NewHistogram(opts HistogramOpts) (*Histogram, error) {
	buckets := opts.Buckets
	if buckets == nil {
		buckets = prometheus.DefBuckets
	}
	vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: opts.Namespace,
		Subsystem: opts.Subsystem,
		Name:      opts.Name,
		Help:      opts.Help,
		Buckets:   buckets,
	}, opts.Labels)
	if err := register("histogram", vec, opts.Namespace, opts.Subsystem, opts.Name, opts.Labels); err != nil {
		return nil, err
	}
	return &Histogram{vec: vec}, nil
}

// Inc adds one to the series selected by labelValues.
func (c *Counter) Inc(labelValues ...string) {
	c.vec.WithLabelValues(labelValues...).Inc()
}

// WithLabelValues returns the series for labelValues.
func (c *Counter) WithLabelValues(labelValues ...string) prometheus.Counter {
	return c.vec.WithLabelValues(labelValues...)
}

// Observe records value in the series selected by labelValues.
func (h *Histogram) Observe(value float64, labelValues ...string) {
	h.vec.WithLabelValues(labelValues...).Observe(value)
}

// WithLabelValues returns the series for labelValues.
func (h *Histogram) WithLabelValues(labelValues ...string) prometheus.Observer {
	return h.vec.WithLabelValues(labelValues...)
}

func register(kind string, c prometheus.Collector, namespace, subsystem, name string, labels []string) error {
	if !IsInitialized() {
		return fmt.Errorf("metrics not initialized, call Init() first")
	}
	if err := validateMetricOpts(namespace, subsystem, name, labels); err != nil {
		return err
	}
	if err := registry.Register(c); err != nil {
		return fmt.Errorf("failed to register %s: %w", kind, err)
	}
	return nil
}

// validateMetricOpts checks the joined series name and label names against
// the Prometheus data model.
func validateMetricOpts(namespace, subsystem, name string, labels []string) error {
	full := prometheus.BuildFQName(namespace, subsystem, name)
	if !validMetricName.MatchString(full) {
		return fmt.Errorf("invalid metric name: %q", full)
	}
	for _, label := range labels {
		if strings.HasPrefix(label, "__") {
			return fmt.Errorf("label name %s is reserved (starts with __)", label)
		}
		if !validLabelName.MatchString(label) {
			return fmt.Errorf("invalid label name: %s", label)
		}
	}
	return nil
}
