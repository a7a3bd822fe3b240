package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	monitor "github.com/okian/songlab/internal/domain/monitor"
)

// Capture defaults.
const (
	DefaultCommand      = "ffmpeg"
	DefaultInputFormat  = "pulse"
	DefaultInputDevice  = "default"
	DefaultSampleRate   = 16000
	DefaultStartupGrace = 250 * time.Millisecond
	DefaultStopGrace    = 1200 * time.Millisecond

	readChunkBytes = 4096
)

// FFmpegConfig describes how the microphone is captured.
type FFmpegConfig struct {
	Command      string
	InputFormat  string
	InputDevice  string
	SampleRate   int
	WindowSize   int
	StartupGrace time.Duration
	StopGrace    time.Duration
}

func (c FFmpegConfig) withDefaults() FFmpegConfig {
	if c.Command == "" {
		c.Command = DefaultCommand
	}
	if c.InputFormat == "" {
		c.InputFormat = DefaultInputFormat
	}
	if c.InputDevice == "" {
		c.InputDevice = DefaultInputDevice
	}
	if c.SampleRate <= 0 {
		c.SampleRate = DefaultSampleRate
	}
	if c.WindowSize <= 0 {
		c.WindowSize = DefaultWindowSize
	}
	if c.StartupGrace <= 0 {
		c.StartupGrace = DefaultStartupGrace
	}
	if c.StopGrace <= 0 {
		c.StopGrace = DefaultStopGrace
	}
	return c
}

// FFmpegSource captures mono PCM from the system microphone through an
// ffmpeg subprocess.
type FFmpegSource struct {
	cfg FFmpegConfig
}

// NewFFmpegSource creates a capture source; zero fields take defaults.
func NewFFmpegSource(cfg FFmpegConfig) *FFmpegSource {
	return &FFmpegSource{cfg: cfg.withDefaults()}
}

// Args returns the ffmpeg arguments used for capture.
func (s *FFmpegSource) Args() []string {
	return []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", s.cfg.InputFormat,
		"-i", s.cfg.InputDevice,
		"-ac", "1",
		"-ar", strconv.Itoa(s.cfg.SampleRate),
		"-f", "s16le",
		"-",
	}
}

// Open starts ffmpeg and a pump that keeps the latest window up to date.
// A process that exits during the startup grace period is reported as a
// permission or device failure depending on what it printed.
func (s *FFmpegSource) Open(ctx context.Context) (monitor.Stream, error) {
	cmd := exec.CommandContext(ctx, s.cfg.Command, s.Args()...) //nolint:gosec // command comes from configuration
	stderr := &syncBuffer{}
	cmd.Stderr = stderr
	cmd.WaitDelay = s.cfg.StopGrace

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: ffmpeg stdout pipe: %w", monitor.ErrDevice, err)
	}
	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: ffmpeg not found: %w", monitor.ErrDevice, err)
		}
		if errors.Is(err, os.ErrPermission) {
			return nil, fmt.Errorf("%w: start ffmpeg: %w", monitor.ErrPermission, err)
		}
		return nil, fmt.Errorf("%w: start ffmpeg: %w", monitor.ErrDevice, err)
	}

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
		close(waitErr)
	}()

	select {
	case err := <-waitErr:
		return nil, classifyEarlyExit(err, stderr.String())
	case <-time.After(s.cfg.StartupGrace):
	}

	st := &ffmpegStream{
		WindowBuffer: NewWindowBuffer(s.cfg.WindowSize),
		stdout:       stdout,
		stderr:       stderr,
		process:      cmd.Process,
		waitErr:      waitErr,
		stopGrace:    s.cfg.StopGrace,
		pumpDone:     make(chan struct{}),
	}
	go st.pump()
	return st, nil
}

// classifyEarlyExit maps an ffmpeg startup failure onto a monitor error.
func classifyEarlyExit(err error, stderr string) error {
	detail := strings.TrimSpace(stderr)
	kind := monitor.ErrDevice
	lower := strings.ToLower(detail)
	for _, hint := range []string{"permission", "denied", "access"} {
		if strings.Contains(lower, hint) {
			kind = monitor.ErrPermission
			break
		}
	}
	if err == nil {
		return fmt.Errorf("%w: ffmpeg exited before capture started: %s", kind, detail)
	}
	return fmt.Errorf("%w: ffmpeg exited before capture started: %w: %s", kind, err, detail)
}

type ffmpegStream struct {
	*WindowBuffer

	stdout    io.ReadCloser
	stderr    *syncBuffer
	process   *os.Process
	waitErr   <-chan error
	stopGrace time.Duration
	pumpDone  chan struct{}

	stopOnce sync.Once
	stopErr  error
}

func (s *ffmpegStream) pump() {
	defer close(s.pumpDone)
	buf := make([]byte, readChunkBytes)
	for {
		n, err := s.stdout.Read(buf)
		if n > 0 {
			_, _ = s.WritePCM16(buf[:n])
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, os.ErrClosed) {
				s.CloseWithError(io.EOF)
			} else {
				s.CloseWithError(fmt.Errorf("ffmpeg capture: %w", err))
			}
			return
		}
	}
}

// Close interrupts ffmpeg, kills it after the grace period and releases
// the pipe. Only the first call does anything.
func (s *ffmpegStream) Close() error {
	s.stopOnce.Do(func() {
		s.WindowBuffer.CloseWithError(io.EOF)
		if s.process != nil {
			_ = s.process.Signal(os.Interrupt)
		}

		select {
		case err, ok := <-s.waitErr:
			if ok {
				s.stopErr = normalizeStopErr(err)
			}
		case <-time.After(s.stopGrace):
			if s.process != nil {
				_ = s.process.Kill()
			}
			if err, ok := <-s.waitErr; ok {
				s.stopErr = normalizeStopErr(err)
			}
		}

		if err := s.stdout.Close(); err != nil && !errors.Is(err, os.ErrClosed) && s.stopErr == nil {
			s.stopErr = err
		}
		<-s.pumpDone

		if s.stopErr != nil {
			if detail := strings.TrimSpace(s.stderr.String()); detail != "" {
				s.stopErr = fmt.Errorf("%w: %s", s.stopErr, detail)
			}
		}
	})
	return s.stopErr
}

// normalizeStopErr drops the exit status of a process we asked to stop.
func normalizeStopErr(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

// syncBuffer is a bytes.Buffer safe for the exec copier and readers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
