package monitor

import "context"

// Stream is an open audio input.
type Stream interface {
	// ReadWindow copies the most recent window of samples, normalised to
	// [-1,1], into dst and returns how many were written. It must not block.
	// io.EOF ends monitoring cleanly.
	ReadWindow(dst []float64) (int, error)
	Close() error
}

// Source opens audio inputs. Open failures should wrap ErrPermission or
// ErrDevice.
type Source interface {
	Open(ctx context.Context) (Stream, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (Stream, error)

// Open calls f.
func (f SourceFunc) Open(ctx context.Context) (Stream, error) {
	return f(ctx)
}
