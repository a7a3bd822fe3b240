// Package config defines service configuration structures and loading hooks.
//
// Conventions:
//   - Provide New(ctx) to build a Config with defaults.
//   - Keys are flat and match the koanf tags, so SONGLAB_QUEUE_SIZE and a
//     YAML `queue_size:` both set EventQueueSize.
//   - External errors are wrapped with this package's sentinels.
package config

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/okian/songlab/internal/adapters/audio"
	"github.com/okian/songlab/internal/domain/monitor"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9090".
	Addr string `koanf:"addr"`

	// EventQueueSize bounds the queue of results waiting to be scored.
	EventQueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of scoring workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets how many result IDs are remembered for idempotency.
	DedupeSize int `koanf:"dedupe_size"`

	// StoreCapacity bounds the number of reports kept in memory.
	StoreCapacity int `koanf:"store_capacity"`

	// MaxRecentLimit caps GET /v1/results?limit.
	MaxRecentLimit int `koanf:"max_recent_limit"`

	FFmpegCommand    string `koanf:"ffmpeg_command"`
	AudioInputFormat string `koanf:"audio_input_format"`
	AudioInputDevice string `koanf:"audio_input_device"`
	AudioSampleRate  int    `koanf:"audio_sample_rate"`
	AudioWindowSize  int    `koanf:"audio_window_size"`

	// MonitorTickIntervalMS is how often a monitor reads a window.
	MonitorTickIntervalMS int `koanf:"monitor_tick_interval_ms"`

	// MonitorPublishIntervalMS throttles snapshots pushed to websocket clients.
	MonitorPublishIntervalMS int `koanf:"monitor_publish_interval_ms"`

	// Signal pipeline calibration.
	LevelScale           float64 `koanf:"monitor_level_scale"`
	BufferCapacity       int     `koanf:"monitor_buffer_capacity"`
	NoiseFloorMinSamples int     `koanf:"monitor_noise_floor_min_samples"`
	NoiseFloorPercentile float64 `koanf:"monitor_noise_floor_percentile"`
	NoiseFloorEpsilon    float64 `koanf:"monitor_noise_floor_epsilon"`
	MaxSNRDB             float64 `koanf:"monitor_max_snr_db"`
	ExcellentAboveDB     float64 `koanf:"monitor_excellent_above_db"`
	GoodAboveDB          float64 `koanf:"monitor_good_above_db"`
	FairAboveDB          float64 `koanf:"monitor_fair_above_db"`
	BackgroundNoiseBelow float64 `koanf:"monitor_background_noise_below"`
	QuietLocationBelow   float64 `koanf:"monitor_quiet_location_below"`
	DistanceWindow       int     `koanf:"monitor_distance_window"`
	DistanceMeanMin      float64 `koanf:"monitor_distance_mean_min"`
	DistanceMeanMax      float64 `koanf:"monitor_distance_mean_max"`
	DistanceVarianceMax  float64 `koanf:"monitor_distance_variance_max"`
}

// New creates a Config populated with defaults. Context is accepted first
// to follow the project-wide convention and is currently unused.
func New(_ context.Context) *Config {
	cal := monitor.DefaultCalibration()
	return &Config{
		LogLevel:                 "info",
		LogFormat:                "text",
		Addr:                     ":9090",
		EventQueueSize:           10_000,
		WorkerCount:              runtime.NumCPU() * 2,
		DedupeSize:               50_000,
		StoreCapacity:            10_000,
		MaxRecentLimit:           100,
		FFmpegCommand:            audio.DefaultCommand,
		AudioInputFormat:         audio.DefaultInputFormat,
		AudioInputDevice:         audio.DefaultInputDevice,
		AudioSampleRate:          audio.DefaultSampleRate,
		AudioWindowSize:          audio.DefaultWindowSize,
		MonitorTickIntervalMS:    int(monitor.DefaultTickInterval / time.Millisecond),
		MonitorPublishIntervalMS: 100,
		LevelScale:               cal.LevelScale,
		BufferCapacity:           cal.BufferCapacity,
		NoiseFloorMinSamples:     cal.NoiseFloorMinSamples,
		NoiseFloorPercentile:     cal.NoiseFloorPercentile,
		NoiseFloorEpsilon:        cal.NoiseFloorEpsilon,
		MaxSNRDB:                 cal.MaxSNRDB,
		ExcellentAboveDB:         cal.ExcellentAboveDB,
		GoodAboveDB:              cal.GoodAboveDB,
		FairAboveDB:              cal.FairAboveDB,
		BackgroundNoiseBelow:     cal.BackgroundNoiseBelow,
		QuietLocationBelow:       cal.QuietLocationBelow,
		DistanceWindow:           cal.DistanceWindow,
		DistanceMeanMin:          cal.DistanceMeanMin,
		DistanceMeanMax:          cal.DistanceMeanMax,
		DistanceVarianceMax:      cal.DistanceVarianceMax,
	}
}

// Validate rejects values the service cannot run with.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	positive := []struct {
		key string
		val int
	}{
		{"queue_size", c.EventQueueSize},
		{"worker_count", c.WorkerCount},
		{"dedupe_size", c.DedupeSize},
		{"store_capacity", c.StoreCapacity},
		{"max_recent_limit", c.MaxRecentLimit},
		{"audio_sample_rate", c.AudioSampleRate},
		{"audio_window_size", c.AudioWindowSize},
		{"monitor_tick_interval_ms", c.MonitorTickIntervalMS},
		{"monitor_publish_interval_ms", c.MonitorPublishIntervalMS},
		{"monitor_buffer_capacity", c.BufferCapacity},
		{"monitor_noise_floor_min_samples", c.NoiseFloorMinSamples},
		{"monitor_distance_window", c.DistanceWindow},
	}
	for _, p := range positive {
		if p.val <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidConfig, p.key, p.val)
		}
	}
	if c.LevelScale <= 0 {
		return fmt.Errorf("%w: monitor_level_scale must be positive", ErrInvalidConfig)
	}
	if c.NoiseFloorPercentile < 0 || c.NoiseFloorPercentile >= 1 {
		return fmt.Errorf("%w: monitor_noise_floor_percentile must be in [0,1)", ErrInvalidConfig)
	}
	if !(c.ExcellentAboveDB >= c.GoodAboveDB && c.GoodAboveDB >= c.FairAboveDB) {
		return fmt.Errorf("%w: quality thresholds must be ordered excellent >= good >= fair", ErrInvalidConfig)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	}
	return nil
}

// Calibration converts the monitor_* keys into a monitor calibration.
func (c *Config) Calibration() monitor.Calibration {
	return monitor.Calibration{
		LevelScale:           c.LevelScale,
		BufferCapacity:       c.BufferCapacity,
		NoiseFloorMinSamples: c.NoiseFloorMinSamples,
		NoiseFloorPercentile: c.NoiseFloorPercentile,
		NoiseFloorEpsilon:    c.NoiseFloorEpsilon,
		MaxSNRDB:             c.MaxSNRDB,
		ExcellentAboveDB:     c.ExcellentAboveDB,
		GoodAboveDB:          c.GoodAboveDB,
		FairAboveDB:          c.FairAboveDB,
		BackgroundNoiseBelow: c.BackgroundNoiseBelow,
		QuietLocationBelow:   c.QuietLocationBelow,
		DistanceWindow:       c.DistanceWindow,
		DistanceMeanMin:      c.DistanceMeanMin,
		DistanceMeanMax:      c.DistanceMeanMax,
		DistanceVarianceMax:  c.DistanceVarianceMax,
	}
}

// FFmpeg returns the microphone capture settings.
func (c *Config) FFmpeg() audio.FFmpegConfig {
	return audio.FFmpegConfig{
		Command:     c.FFmpegCommand,
		InputFormat: c.AudioInputFormat,
		InputDevice: c.AudioInputDevice,
		SampleRate:  c.AudioSampleRate,
		WindowSize:  c.AudioWindowSize,
	}
}

// TickInterval returns the monitor tick as a duration.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.MonitorTickIntervalMS) * time.Millisecond
}

// PublishInterval returns the websocket publish throttle as a duration.
func (c *Config) PublishInterval() time.Duration {
	return time.Duration(c.MonitorPublishIntervalMS) * time.Millisecond
}
