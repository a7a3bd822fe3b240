// Package monitor judges the quality of a live audio input. It keeps a
// short history of loudness readings, estimates a noise floor and SNR from
// it, and publishes a QualitySnapshot after every sampling tick.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	model "github.com/okian/songlab/internal/domain/model"
	"github.com/okian/songlab/pkg/logger"
)

// Default runtime settings.
const (
	DefaultTickInterval = 16 * time.Millisecond
	DefaultWindowSize   = 2048
)

// session is one acquisition of a stream. The stream is closed exactly once
// whichever side ends the session first.
type session struct {
	stream   Stream
	cancel   context.CancelFunc
	done     chan struct{}
	once     sync.Once
	closeErr error

	// notifying is set while the listener runs on the sampling goroutine.
	notifying atomic.Bool
}

func (s *session) release() error {
	s.once.Do(func() {
		s.closeErr = s.stream.Close()
	})
	return s.closeErr
}

// Monitor samples one stream at a time.
type Monitor struct {
	cal          Calibration
	tickInterval time.Duration
	windowSize   int
	listener     func(model.QualitySnapshot)
	log          logger.Logger

	// tickMu serializes ticks with each other and with cancellation, so
	// no tick starts once Stop has cancelled the session.
	tickMu sync.Mutex
	buf    *rollingBuffer

	mu       sync.RWMutex
	snap     model.QualitySnapshot
	sess     *session
	starting bool
	err      error
}

// New creates a monitor with the given options.
func New(opts ...Option) *Monitor {
	m := &Monitor{
		cal:          DefaultCalibration(),
		tickInterval: DefaultTickInterval,
		windowSize:   DefaultWindowSize,
		log:          logger.Discard(),
		snap:         model.NewQualitySnapshot(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.buf = newRollingBuffer(m.cal.BufferCapacity)
	return m
}

// Calibration returns the active calibration.
func (m *Monitor) Calibration() Calibration {
	return m.cal
}

// Start acquires a stream from src and begins sampling it. On failure the
// snapshot only records the lost mic permission and the error wraps
// ErrPermission or ErrDevice.
func (m *Monitor) Start(ctx context.Context, src Source) error {
	if src == nil {
		return fmt.Errorf("start monitor: %w", ErrNilSource)
	}

	m.mu.Lock()
	if m.sess != nil || m.starting {
		m.mu.Unlock()
		return ErrAlreadyRunning
	}
	m.starting = true
	m.mu.Unlock()

	stream, err := src.Open(ctx)
	if err == nil && stream == nil {
		err = errors.New("source returned no stream")
	}
	if err != nil {
		if FailureKind(err) == "" {
			err = fmt.Errorf("%w: %w", ErrDevice, err)
		}
		m.mu.Lock()
		m.starting = false
		m.snap.Environment.MicPermission = false
		m.err = err
		m.mu.Unlock()
		m.log.Warn(ctx, "audio input unavailable", logger.String("kind", FailureKind(err)), logger.Error(err))
		return fmt.Errorf("start monitor: %w", err)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s := &session{stream: stream, cancel: cancel, done: make(chan struct{})}

	m.tickMu.Lock()
	m.buf.reset()
	m.tickMu.Unlock()

	m.mu.Lock()
	m.starting = false
	m.sess = s
	m.err = nil
	m.snap = model.NewQualitySnapshot()
	m.snap.Environment.MicPermission = true
	m.mu.Unlock()

	m.log.Info(ctx, "monitor started",
		logger.Duration("tick_interval", m.tickInterval),
		logger.Int("window_size", m.windowSize),
	)

	go m.run(loopCtx, s)
	return nil
}

func (m *Monitor) run(ctx context.Context, s *session) {
	defer close(s.done)

	ticker := time.NewTicker(m.tickInterval)
	defer ticker.Stop()

	window := make([]float64, m.windowSize)
	for {
		select {
		case <-ctx.Done():
			m.finish(s, nil)
			return
		case <-ticker.C:
		}

		snap, published, err := m.step(ctx, s, window)
		if err != nil {
			if ctx.Err() != nil {
				m.finish(s, nil)
				return
			}
			if errors.Is(err, io.EOF) {
				m.log.Info(ctx, "audio stream ended")
				m.finish(s, nil)
				return
			}
			m.log.Error(ctx, "audio stream failed", logger.Error(err))
			m.finish(s, fmt.Errorf("read window: %w", err))
			return
		}
		if published && m.listener != nil {
			s.notifying.Store(true)
			m.listener(snap)
			s.notifying.Store(false)
		}
	}
}

// step performs one read and tick while holding tickMu.
func (m *Monitor) step(ctx context.Context, s *session, window []float64) (model.QualitySnapshot, bool, error) {
	m.tickMu.Lock()
	defer m.tickMu.Unlock()

	if err := ctx.Err(); err != nil {
		return model.QualitySnapshot{}, false, err
	}
	n, err := s.stream.ReadWindow(window)
	if err != nil {
		return model.QualitySnapshot{}, false, err
	}
	if n <= 0 {
		return model.QualitySnapshot{}, false, nil
	}
	return m.tickLocked(window[:n])
}

// finish releases the session's stream and clears it if it is still current.
func (m *Monitor) finish(s *session, err error) {
	if cerr := s.release(); cerr != nil && err == nil {
		err = fmt.Errorf("close stream: %w", cerr)
	}
	m.mu.Lock()
	if m.sess == s {
		m.sess = nil
	}
	if err != nil {
		m.err = err
	}
	m.mu.Unlock()
}

// Tick runs one sampling step over samples and returns the new snapshot. A
// window without a single finite sample leaves the state unchanged.
func (m *Monitor) Tick(samples []float64) model.QualitySnapshot {
	m.tickMu.Lock()
	snap, _, _ := m.tickLocked(samples)
	m.tickMu.Unlock()
	return snap
}

func (m *Monitor) tickLocked(samples []float64) (model.QualitySnapshot, bool, error) {
	level, ok := RMSLevel(samples, m.cal.LevelScale)
	if !ok {
		return m.Snapshot(), false, nil
	}
	m.buf.push(level)
	levels := m.buf.values()

	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snap
	snap.Level = level
	snap.NoiseFloor = nil
	snap.SNRDB = nil
	snap.Quality = model.QualityUnknown
	snap.Environment.BackgroundNoise = false
	snap.Environment.QuietLocation = false

	if floor, ok := NoiseFloor(levels, m.cal); ok {
		snap.NoiseFloor = &floor
		snap.Environment.BackgroundNoise = floor < m.cal.BackgroundNoiseBelow
		snap.Environment.QuietLocation = floor < m.cal.QuietLocationBelow

		peak, _ := Peak(levels)
		if db, ok := SNR(peak, floor, m.cal); ok {
			snap.SNRDB = &db
			snap.Quality = Classify(db, m.cal)
		}
	}
	snap.Environment.PhoneDistance = PhoneDistance(levels, m.cal)

	m.snap = snap
	return snap.Clone(), true, nil
}

// Stop cancels sampling, waits for the running tick to finish and releases
// the stream. Calling it again, or before Start, does nothing. A listener may
// call Stop; the sampling goroutine then exits after the listener returns.
func (m *Monitor) Stop() error {
	m.mu.Lock()
	s := m.sess
	m.sess = nil
	m.mu.Unlock()
	if s == nil {
		return nil
	}

	// No read is in flight while the listener runs, so the stream can be
	// released without waiting for the loop.
	if s.notifying.Load() {
		s.cancel()
		if err := s.release(); err != nil {
			return fmt.Errorf("stop monitor: %w", err)
		}
		return nil
	}

	m.tickMu.Lock()
	s.cancel()
	m.tickMu.Unlock()

	<-s.done
	if err := s.release(); err != nil {
		return fmt.Errorf("stop monitor: %w", err)
	}
	return nil
}

// Snapshot returns a copy of the latest snapshot.
func (m *Monitor) Snapshot() model.QualitySnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap.Clone()
}

// Running reports whether a stream is being sampled.
func (m *Monitor) Running() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sess != nil
}

// Err returns the last acquisition or stream failure, if any.
func (m *Monitor) Err() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.err
}

// Done is closed when the current session ends, or is nil when idle.
func (m *Monitor) Done() <-chan struct{} {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.sess == nil {
		return nil
	}
	return m.sess.done
}
