package audio

import (
	"io"
	"sync"
)

// DefaultWindowSize is the number of samples kept by a WindowBuffer.
const DefaultWindowSize = 2048

// WindowBuffer keeps the most recent samples written by a producer so a
// monitor can read the current window without blocking. It implements
// monitor.Stream.
type WindowBuffer struct {
	mu      sync.Mutex
	ring    []float64
	pos     int
	filled  int
	fresh   bool
	odd     []byte
	scratch []float64
	err     error
	closed  bool
}

// NewWindowBuffer creates a buffer holding size samples.
func NewWindowBuffer(size int) *WindowBuffer {
	if size <= 0 {
		size = DefaultWindowSize
	}
	return &WindowBuffer{ring: make([]float64, size)}
}

// Write appends samples, overwriting the oldest ones.
func (w *WindowBuffer) Write(samples []float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.appendLocked(samples)
}

func (w *WindowBuffer) appendLocked(samples []float64) {
	if w.closed || len(samples) == 0 {
		return
	}
	if len(samples) > len(w.ring) {
		samples = samples[len(samples)-len(w.ring):]
	}
	for _, s := range samples {
		w.ring[w.pos] = s
		w.pos = (w.pos + 1) % len(w.ring)
	}
	w.filled += len(samples)
	if w.filled > len(w.ring) {
		w.filled = len(w.ring)
	}
	w.fresh = true
}

// WritePCM16 decodes little-endian 16-bit PCM and appends it. A sample
// split across two calls is reassembled. It always consumes all of p.
func (w *WindowBuffer) WritePCM16(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return 0, io.ErrClosedPipe
	}

	data := p
	if len(w.odd) > 0 {
		data = append(append([]byte(nil), w.odd...), p...)
		w.odd = w.odd[:0]
	}
	if len(data)%2 == 1 {
		w.odd = append(w.odd, data[len(data)-1])
		data = data[:len(data)-1]
	}
	if need := len(data) / 2; cap(w.scratch) < need {
		w.scratch = make([]float64, need)
	}
	n := DecodePCM16(data, w.scratch[:len(data)/2])
	w.appendLocked(w.scratch[:n])
	return len(p), nil
}

// ReadWindow copies the newest samples, oldest first, into dst. It returns
// 0 when nothing was written since the previous read, and the close error
// once the buffer is closed and drained.
func (w *WindowBuffer) ReadWindow(dst []float64) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.fresh {
		if w.closed {
			return 0, w.err
		}
		return 0, nil
	}
	w.fresh = false

	n := len(dst)
	if n > w.filled {
		n = w.filled
	}
	start := (w.pos - n + len(w.ring)) % len(w.ring)
	for i := 0; i < n; i++ {
		dst[i] = w.ring[(start+i)%len(w.ring)]
	}
	return n, nil
}

// CloseWithError stops accepting samples. Once drained, ReadWindow returns
// err, or io.EOF when err is nil.
func (w *WindowBuffer) CloseWithError(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if err == nil {
		err = io.EOF
	}
	w.closed = true
	w.err = err
}

// Close is CloseWithError(nil).
func (w *WindowBuffer) Close() error {
	w.CloseWithError(nil)
	return nil
}
