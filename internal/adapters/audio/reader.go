package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	monitor "github.com/okian/songlab/internal/domain/monitor"
)

// ReaderSource replays recorded PCM16LE audio. By default every read
// consumes a whole window, so a replay runs as fast as the monitor ticks.
// WithRealtime paces it to the recording's sample rate instead.
type ReaderSource struct {
	open func() (io.ReadCloser, error)
	rate int
	now  func() time.Time
}

// ReaderOption configures a ReaderSource.
type ReaderOption func(*ReaderSource)

// WithRealtime makes each read consume only the samples that would have
// arrived at sampleRate since the previous one. The returned window slides
// over the recording like a live capture. Non-positive rates are ignored.
func WithRealtime(sampleRate int) ReaderOption {
	return func(s *ReaderSource) {
		if sampleRate > 0 {
			s.rate = sampleRate
		}
	}
}

func newReaderSource(open func() (io.ReadCloser, error), opts []ReaderOption) *ReaderSource {
	s := &ReaderSource{open: open, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewReaderSource serves windows from r. Close is forwarded when r is an
// io.Closer.
func NewReaderSource(r io.Reader, opts ...ReaderOption) *ReaderSource {
	return newReaderSource(func() (io.ReadCloser, error) {
		if rc, ok := r.(io.ReadCloser); ok {
			return rc, nil
		}
		return io.NopCloser(r), nil
	}, opts)
}

// NewFileSource serves windows from a raw PCM16LE file.
func NewFileSource(path string, opts ...ReaderOption) *ReaderSource {
	return newReaderSource(func() (io.ReadCloser, error) {
		f, err := os.Open(path) //nolint:gosec // path comes from the operator
		switch {
		case errors.Is(err, os.ErrPermission):
			return nil, fmt.Errorf("%w: %w", monitor.ErrPermission, err)
		case err != nil:
			return nil, fmt.Errorf("%w: %w", monitor.ErrDevice, err)
		}
		return f, nil
	}, opts)
}

// Open implements monitor.Source.
func (s *ReaderSource) Open(context.Context) (monitor.Stream, error) {
	rc, err := s.open()
	if err != nil {
		return nil, err
	}
	if s.rate > 0 {
		return &pacedStream{r: rc, rate: s.rate, now: s.now}, nil
	}
	return &readerStream{r: rc}, nil
}

type readerStream struct {
	r   io.ReadCloser
	buf []byte
	eof bool
}

func (s *readerStream) ReadWindow(dst []float64) (int, error) {
	if s.eof {
		return 0, io.EOF
	}
	if cap(s.buf) < 2*len(dst) {
		s.buf = make([]byte, 2*len(dst))
	}
	buf := s.buf[:2*len(dst)]
	n, err := io.ReadFull(s.r, buf)
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		s.eof = true
		if n < 2 {
			return 0, io.EOF
		}
	case err != nil:
		return 0, fmt.Errorf("read pcm: %w", err)
	}
	return DecodePCM16(buf[:n], dst), nil
}

func (s *readerStream) Close() error {
	return s.r.Close()
}

// pacedStream releases samples at a fixed rate measured from the first read.
type pacedStream struct {
	r       io.ReadCloser
	rate    int
	now     func() time.Time
	start   time.Time
	due     int64
	win     *WindowBuffer
	buf     []byte
	scratch []float64
	eof     bool
}

func (s *pacedStream) ReadWindow(dst []float64) (int, error) {
	if s.eof {
		return 0, io.EOF
	}
	if s.win == nil {
		s.win = NewWindowBuffer(len(dst))
		s.buf = make([]byte, 2*len(dst))
		s.scratch = make([]float64, len(dst))
		s.start = s.now()
	}

	total := int64(s.now().Sub(s.start)) * int64(s.rate) / int64(time.Second)
	pending := total - s.due
	if pending <= 0 {
		return 0, nil
	}
	s.due = total

	// Samples that would scroll out of the window before this read are skipped.
	if skip := pending - int64(len(dst)); skip > 0 {
		if _, err := io.CopyN(io.Discard, s.r, 2*skip); err != nil {
			return s.fail(err)
		}
		pending = int64(len(dst))
	}

	n, err := io.ReadFull(s.r, s.buf[:2*pending])
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return 0, fmt.Errorf("read pcm: %w", err)
	}
	if err != nil {
		s.eof = true
		if n < 2 {
			return 0, io.EOF
		}
	}
	s.win.Write(s.scratch[:DecodePCM16(s.buf[:n], s.scratch)])
	return s.win.ReadWindow(dst)
}

func (s *pacedStream) fail(err error) (int, error) {
	if errors.Is(err, io.EOF) {
		s.eof = true
		return 0, io.EOF
	}
	return 0, fmt.Errorf("read pcm: %w", err)
}

func (s *pacedStream) Close() error {
	return s.r.Close()
}
