// Package worker runs the pair selection on queued chunks.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/httcp/internal/adapters/mq/queue"
	"github.com/okian/httcp/internal/domain/model"
	"github.com/okian/httcp/internal/domain/selection"
	"github.com/okian/httcp/pkg/logger"
	"github.com/okian/httcp/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Selector runs the selection on one chunk of events.
type Selector interface {
	Select(b *model.Batch) (*selection.Result, error)
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker processes jobs until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown stops the worker after the job in flight.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker consumes jobs from a Queue and replies on each job's
// Reply channel.
type InMemoryWorker struct {
	queue    Queue
	selector Selector
	name     string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, sel Selector, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		selector: sel,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			w.process(ctx, job)
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) process(ctx context.Context, job queue.Job) {
	metrics.AddWorkerActive(1)
	defer metrics.AddWorkerActive(-1)

	start := time.Now()
	res, err := w.selector.Select(job.Chunk)
	took := time.Since(start)
	metrics.RecordWorkerProcessingLatency(float64(took.Microseconds()) / 1000)

	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "selection_error")
		w.logger.Error(ctx, "selection failed",
			logger.String("batch_id", job.BatchID),
			logger.Int("chunk", job.Index),
			logger.Error(err),
		)
		err = fmt.Errorf("chunk %d: %w", job.Index, err)
	} else {
		metrics.RecordSelectionLatency(float64(took.Microseconds()) / 1000)
		w.logger.Debug(ctx, "chunk selected",
			logger.String("batch_id", job.BatchID),
			logger.Int("chunk", job.Index),
			logger.Int("events", res.Len()),
			logger.Duration("took", took),
		)
	}

	if job.Reply != nil {
		job.Reply <- queue.Reply{Index: job.Index, Result: res, Err: err}
	}
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	processed atomic.Int64
	logger    logger.Logger
}

// NewPool creates a pool of workerCount workers sharing q and sel.
// A non-positive count uses one worker per CPU.
func NewPool(workerCount int, q Queue, sel Selector) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := range p.workers {
		p.workers[i] = NewInMemoryWorker(q, countingSelector{sel: sel, n: &p.processed},
			WithName("worker-"+strconv.Itoa(i)))
	}
	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Processed returns the number of jobs handled since start.
func (p *Pool) Processed() int64 {
	return p.processed.Load()
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
}

// Shutdown closes the queue and waits for the workers to drain it.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			return fmt.Errorf("worker %d: %w", i, shutdownCtx.Err())
		}
	}
	p.logger.Info(ctx, "worker pool stopped", logger.Int64("processed", p.processed.Load()))
	return nil
}

type countingSelector struct {
	sel Selector
	n   *atomic.Int64
}

func (c countingSelector) Select(b *model.Batch) (*selection.Result, error) {
	defer c.n.Add(1)
	return c.sel.Select(b)
}
