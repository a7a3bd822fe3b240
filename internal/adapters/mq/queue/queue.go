// Package queue holds analysis results waiting to be scored.
//
// The in-memory queue is a bounded channel: producers never block, and a
// full queue is reported back so the caller can shed load.
package queue

import (
	"context"
	"sync"

	"github.com/okian/songlab/internal/domain/model"
	"github.com/okian/songlab/pkg/metrics"
)

const defaultQueueCapacity = 10000

// Submission is the payload flowing through the queue.
type Submission = model.Submission

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a submission. It returns false if the queue is full or
	// closed and the submission was not enqueued.
	Enqueue(ctx context.Context, s Submission) bool

	// Dequeue returns a channel that receives submissions as they become
	// available. The channel is closed when the queue is closed.
	Dequeue(ctx context.Context) <-chan Submission

	// Len returns the current number of queued submissions.
	Len(ctx context.Context) int

	// Capacity returns the maximum number of queued submissions.
	Capacity() int

	// Close stops accepting submissions and closes the dequeue channels
	// once they are drained.
	Close() error

	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	items    chan Submission
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.items = make(chan Submission, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0)
	return q
}

// Enqueue adds a submission to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, s Submission) bool { //nolint:gocritic // hugeParam: passed by value for channel semantics
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "closed")
		return false
	}

	select {
	case q.items <- s:
		metrics.RecordQueueEnqueue()
		q.observe()
		return true
	case <-ctx.Done():
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return false
	default:
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "queue_full")
		return false
	}
}

// Dequeue returns a channel that receives submissions as they become
// available. Each call starts its own forwarding goroutine, so several
// consumers share the queue.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Submission {
	out := make(chan Submission)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case s, ok := <-q.items:
				if !ok {
					return
				}
				select {
				case out <- s:
					metrics.RecordQueueDequeue()
					q.observe()
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// Len returns the current number of queued submissions.
func (q *InMemoryQueue) Len(context.Context) int {
	q.observe()
	return len(q.items)
}

// Capacity returns the queue bound.
func (q *InMemoryQueue) Capacity() int { return q.capacity }

func (q *InMemoryQueue) observe() {
	size := len(q.items)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
}

// Close gracefully shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	close(q.items)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
