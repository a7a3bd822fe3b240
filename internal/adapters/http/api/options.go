package api

import (
	"time"

	"github.com/okian/songlab/internal/domain/monitor"
	"github.com/okian/songlab/pkg/logger"
)

const (
	defaultMaxRecentLimit  = 100
	defaultPublishInterval = 100 * time.Millisecond
)

// MonitorConfig tunes the per-connection monitors behind /v1/monitor.
type MonitorConfig struct {
	Calibration     monitor.Calibration
	TickInterval    time.Duration
	WindowSize      int
	PublishInterval time.Duration
}

type options struct {
	maxRecentLimit int
	monitor        MonitorConfig
	logger         logger.Logger
}

func defaultOptions() options {
	return options{
		maxRecentLimit: defaultMaxRecentLimit,
		monitor: MonitorConfig{
			Calibration:     monitor.DefaultCalibration(),
			TickInterval:    monitor.DefaultTickInterval,
			WindowSize:      monitor.DefaultWindowSize,
			PublishInterval: defaultPublishInterval,
		},
	}
}

// Option configures the Server.
type Option func(*options)

// WithMaxRecentLimit caps GET /v1/results?limit.
func WithMaxRecentLimit(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxRecentLimit = n
		}
	}
}

// WithMonitorConfig sets the live monitor settings. Zero fields keep their
// defaults.
func WithMonitorConfig(cfg MonitorConfig) Option {
	return func(o *options) {
		if cfg.Calibration != (monitor.Calibration{}) {
			o.monitor.Calibration = cfg.Calibration
		}
		if cfg.TickInterval > 0 {
			o.monitor.TickInterval = cfg.TickInterval
		}
		if cfg.WindowSize > 0 {
			o.monitor.WindowSize = cfg.WindowSize
		}
		if cfg.PublishInterval > 0 {
			o.monitor.PublishInterval = cfg.PublishInterval
		}
	}
}

// WithLogger sets the handler logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
