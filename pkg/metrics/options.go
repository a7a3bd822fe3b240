package metrics

import (
	"slices"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures a Manager.
type Option func(*Manager)

// WithNamespace prefixes every metric name. Empty keeps "songlab".
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithSubsystem inserts a subsystem between namespace and metric name.
func WithSubsystem(subsystem string) Option {
	return func(m *Manager) {
		if subsystem != "" {
			m.subsystem = subsystem
		}
	}
}

// WithLatencyBuckets sets the millisecond buckets shared by the scoring,
// worker and HTTP latency histograms.
func WithLatencyBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.latencyBuckets = slices.Clone(buckets)
		}
	}
}

// WithSNRBuckets sets the dB buckets of the monitor SNR histogram.
func WithSNRBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.snrBuckets = slices.Clone(buckets)
		}
	}
}

// WithRefreshInterval sets how often system gauges are sampled.
func WithRefreshInterval(interval time.Duration) Option {
	return func(m *Manager) {
		if interval > 0 {
			m.refreshInterval = interval
		}
	}
}

// WithConstLabels attaches constant labels, such as the deployment, to
// every metric.
func WithConstLabels(labels map[string]string) Option {
	return func(m *Manager) {
		if labels != nil {
			m.constLabels = labels
		}
	}
}

// WithRegistry registers the metrics on reg instead of the default
// registerer.
func WithRegistry(reg prometheus.Registerer) Option {
	return func(m *Manager) {
		if reg != nil {
			m.registry = reg
		}
	}
}
