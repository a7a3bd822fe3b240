// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	eventqueue "github.com/okian/songlab/internal/adapters/mq/queue"
	workerpool "github.com/okian/songlab/internal/adapters/mq/worker"
	"github.com/okian/songlab/internal/adapters/repository"
	"github.com/okian/songlab/internal/domain/dedupe"
	"github.com/okian/songlab/internal/domain/model"
	"github.com/okian/songlab/internal/domain/scoring"
	"github.com/okian/songlab/pkg/logger"
	"github.com/okian/songlab/pkg/metrics"
)

const (
	defaultQueueSize     = 10000
	defaultDedupeSize    = 50000
	defaultStoreCapacity = 10000
)

// ErrNotStarted is returned by store lookups before Start.
var ErrNotStarted = errors.New("service not started")

// Service implements the API dependencies for the vocal report pipeline.
type Service struct {
	mu sync.RWMutex

	// Core components
	store     *repository.MemoryStore
	deduper   dedupe.Deduper
	queue     *eventqueue.InMemoryQueue
	evaluator *scoring.Evaluator
	pool      *workerpool.Pool

	// Configuration
	workerCount   int
	queueSize     int
	dedupeSize    int
	storeCapacity int
	axes          []model.AxisConfig

	// State
	started   bool
	startedAt time.Time

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the submission queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the deduplication cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithStoreCapacity bounds how many scored reports are retained.
func WithStoreCapacity(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.storeCapacity = n
		}
	}
}

// WithAxes replaces the default scoring axes.
func WithAxes(axes []model.AxisConfig) Option {
	return func(s *Service) {
		if len(axes) > 0 {
			s.axes = axes
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:   runtime.NumCPU() * 2,
		queueSize:     defaultQueueSize,
		dedupeSize:    defaultDedupeSize,
		storeCapacity: defaultStoreCapacity,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Current().Named("service")
	}

	var evalOpts []scoring.Option
	if s.axes != nil {
		evalOpts = append(evalOpts, scoring.WithAxes(s.axes))
	}
	s.evaluator = scoring.NewEvaluator(evalOpts...)
	return s
}

// Start initializes and starts the service components. Calling Start on a
// running service is a no-op.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting scoring service...")

	s.store = repository.NewMemoryStore(repository.WithCapacity(s.storeCapacity))
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.evaluator, s.store,
		workerpool.WithPoolLogger(s.logger.Named("workers")))
	s.pool.Start(ctx)

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "scoring service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Int("storeCapacity", s.storeCapacity),
	)
	return nil
}

// Stop shuts the worker pool down and closes the queue. Reports already
// stored stay readable until the next Start.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	s.logger.Info(ctx, "stopping scoring service...")
	err := s.pool.Shutdown(ctx)
	s.started = false
	if err != nil {
		s.logger.Warn(ctx, "worker pool shutdown incomplete", logger.Error(err))
		return err
	}
	s.logger.Info(ctx, "scoring service stopped", logger.Any("processed", s.pool.Processed()))
	return nil
}

// SeenAndRecord atomically checks if a result id was seen and records it if
// not. Returns true if the id was already seen.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	s.mu.RLock()
	d := s.deduper
	s.mu.RUnlock()
	if d == nil {
		return false
	}
	return d.SeenAndRecord(ctx, id)
}

// Unrecord removes a result id from the seen list, allowing it to be retried.
func (s *Service) Unrecord(ctx context.Context, id string) {
	s.mu.RLock()
	d := s.deduper
	s.mu.RUnlock()
	if d != nil {
		d.Unrecord(ctx, id)
	}
}

// Size returns the current number of entries in the deduper.
func (s *Service) Size() int64 {
	s.mu.RLock()
	d := s.deduper
	s.mu.RUnlock()
	if d == nil {
		return 0
	}
	return d.Size()
}

// Evaluate scores a result synchronously. It does not touch the store.
func (s *Service) Evaluate(res model.AnalysisResult) model.Report {
	return s.evaluator.Evaluate(res)
}

// Enqueue submits a result for asynchronous scoring. It returns false when
// the service is stopped or the queue is full.
func (s *Service) Enqueue(ctx context.Context, sub model.Submission) bool { //nolint:gocritic // hugeParam: passed by value for channel semantics
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return false
	}
	if sub.ReceivedAt.IsZero() {
		sub.ReceivedAt = time.Now()
	}
	s.logger.Debug(ctx, "enqueueing result", logger.String("resultID", sub.ResultID))
	return s.queue.Enqueue(ctx, sub)
}

// Get returns a scored report by result id.
func (s *Service) Get(ctx context.Context, id string) (model.Report, error) {
	s.mu.RLock()
	st := s.store
	s.mu.RUnlock()
	if st == nil {
		return model.Report{}, ErrNotStarted
	}
	return st.Get(ctx, id)
}

// Recent returns up to n scored reports, newest first.
func (s *Service) Recent(ctx context.Context, n int) ([]model.Report, error) {
	s.mu.RLock()
	st := s.store
	s.mu.RUnlock()
	if st == nil {
		return nil, ErrNotStarted
	}
	return st.Recent(ctx, n)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":       s.started,
		"workerCount":   s.workerCount,
		"queueSize":     s.queueSize,
		"dedupeSize":    s.dedupeSize,
		"storeCapacity": s.storeCapacity,
		"axes":          len(s.evaluator.Axes()),
	}

	if s.store != nil {
		stats["storedReports"] = s.store.Len(ctx)
		if oldest := s.store.Oldest(); !oldest.IsZero() {
			stats["oldestReport"] = oldest.UTC().Format(time.RFC3339)
		}
	}
	if s.deduper != nil {
		stats["seenResults"] = s.deduper.Size()
	}
	if s.pool != nil {
		stats["processed"] = s.pool.Processed()
	}

	if s.started {
		queueLen := s.queue.Len(ctx)
		stats["queueLength"] = queueLen
		stats["queueCapacity"] = s.queue.Capacity()
		stats["uptimeSeconds"] = int64(time.Since(s.startedAt).Seconds())

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateWorkerCount(s.pool.Size())
	}

	return stats
}
