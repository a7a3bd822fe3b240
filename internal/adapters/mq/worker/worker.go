// Package worker scores queued analysis results and stores the reports.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/songlab/internal/domain/model"
	"github.com/okian/songlab/internal/domain/scoring"
	"github.com/okian/songlab/pkg/logger"
	"github.com/okian/songlab/pkg/metrics"
)

const (
	defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()
	poolShutdownTimeout     = 30 * time.Second
)

// Submission abstracts what workers read off the queue.
type Submission = model.Submission

// Scorer turns an analysis result into a report. *scoring.Evaluator
// satisfies it.
type Scorer interface {
	Evaluate(res model.AnalysisResult) model.Report
}

// Saver persists scored reports.
type Saver interface {
	Save(ctx context.Context, r model.Report) error
}

// Queue defines how workers receive submissions.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Submission
}

// Worker processes submissions until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown stops the worker after the submission in flight.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue  Queue
	scorer Scorer
	saver  Saver
	name   string

	processed *atomic.Int64

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, scorer Scorer, saver Saver, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     queue,
		scorer:    scorer,
		saver:     saver,
		name:      "worker",
		processed: &atomic.Int64{},
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Current().Named("worker")
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	ch := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case sub, ok := <-ch:
			if !ok {
				return
			}
			if err := w.process(ctx, sub); err != nil {
				w.logger.Error(ctx, "error processing submission", logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Processed returns how many reports this worker stored.
func (w *InMemoryWorker) Processed() int64 {
	return w.processed.Load()
}

func (w *InMemoryWorker) process(ctx context.Context, sub Submission) error { //nolint:gocritic // hugeParam: passed by value for channel semantics
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	scoreStart := time.Now()
	report := w.scorer.Evaluate(sub.Result)
	metrics.RecordScoringLatency(float64(time.Since(scoreStart).Microseconds()) / 1000)
	report.ResultID = sub.ResultID

	for _, axis := range scoring.FallbackAxes(report) {
		metrics.RecordScoringFallback(axis)
	}

	if err := w.saver.Save(ctx, report); err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "save_error")
		w.logger.Error(ctx, "saving report failed",
			logger.String("resultID", sub.ResultID),
			logger.Error(err),
		)
		return fmt.Errorf("save report %s: %w", sub.ResultID, err)
	}

	metrics.RecordReportScored()
	w.processed.Add(1)
	w.logger.Debug(ctx, "report scored",
		logger.String("resultID", sub.ResultID),
		logger.String("typeCode", report.TypeCode),
		logger.Duration("queued", start.Sub(sub.ReceivedAt)),
	)
	return nil
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	processed atomic.Int64

	logger logger.Logger
}

// NewPool creates a new worker pool. A count below one picks a size from
// the number of CPUs. Workers log through the pool logger.
func NewPool(workerCount int, queue Queue, scorer Scorer, saver Saver, opts ...PoolOption) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   queue,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logger.Current().Named("worker-pool")
	}
	for i := 0; i < workerCount; i++ {
		p.workers[i] = NewInMemoryWorker(queue, scorer, saver,
			WithLogger(p.logger),
			WithName("worker-"+strconv.Itoa(i)),
			withCounter(&p.processed),
		)
	}

	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Processed returns how many reports the pool stored.
func (p *Pool) Processed() int64 { return p.processed.Load() }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue, lets workers drain what they already took,
// and waits for them up to the context deadline.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		if err := w.Shutdown(shutdownCtx); err != nil {
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	metrics.UpdateWorkerCount(0)
	return nil
}
