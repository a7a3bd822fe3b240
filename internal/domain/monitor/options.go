package monitor

import (
	"time"

	model "github.com/okian/songlab/internal/domain/model"
	"github.com/okian/songlab/pkg/logger"
)

// Option applies a configuration option to the Monitor.
type Option func(*Monitor)

// WithCalibration replaces the default calibration constants.
func WithCalibration(cal Calibration) Option {
	return func(m *Monitor) {
		m.cal = cal.normalized()
	}
}

// WithTickInterval sets the sampling cadence.
func WithTickInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.tickInterval = d
		}
	}
}

// WithWindowSize sets how many samples are read per tick.
func WithWindowSize(n int) Option {
	return func(m *Monitor) {
		if n > 0 {
			m.windowSize = n
		}
	}
}

// WithListener registers a callback invoked with every new snapshot, from
// the sampling goroutine. It must return quickly.
func WithListener(fn func(model.QualitySnapshot)) Option {
	return func(m *Monitor) {
		m.listener = fn
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(m *Monitor) {
		if l != nil {
			m.log = l
		}
	}
}
