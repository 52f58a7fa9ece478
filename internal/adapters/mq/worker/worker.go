// Package worker runs partition scans on a fixed pool of goroutines fed by
// the in-memory job queue.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/okian/pitwall/internal/adapters/mq/queue"
	"github.com/okian/pitwall/internal/domain/aggregate"
	"github.com/okian/pitwall/internal/domain/model"
	"github.com/okian/pitwall/pkg/logger"
	"github.com/okian/pitwall/pkg/metrics"
)

var (
	// ErrEnqueue is returned when a job cannot be placed on the queue.
	ErrEnqueue = errors.New("enqueue partition job failed")
	// ErrIncomplete is returned when the workers stop before every queued
	// partition was scanned.
	ErrIncomplete = errors.New("partition scan incomplete")
)

// Job is what workers read off the queue.
type Job = queue.Job

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Job
}

// Processor handles one partition. Implementations must only touch state
// owned by that partition.
type Processor interface {
	Process(ctx context.Context, p model.Partition) error
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, p model.Partition) error

// Process implements Processor.
func (f ProcessorFunc) Process(ctx context.Context, p model.Partition) error { return f(ctx, p) }

// InMemoryWorker drains a queue, processing one partition at a time.
type InMemoryWorker struct {
	queue     Queue
	processor Processor
	name      string
	processed int

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, p Processor, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		processor: p,
		name:      "worker",
		logger:    logger.Nop(),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Run processes jobs until the queue is drained, ctx is cancelled or a job
// fails. It returns the first job error.
func (w *InMemoryWorker) Run(ctx context.Context) error {
	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case job, ok := <-jobs:
			if !ok {
				return nil
			}
			if err := w.processJob(ctx, job); err != nil {
				return err
			}
		}
	}
}

// Processed returns the number of partitions this worker completed.
func (w *InMemoryWorker) Processed() int { return w.processed }

func (w *InMemoryWorker) processJob(ctx context.Context, job Job) error { //nolint:gocritic // hugeParam: Job is passed by value for channel semantics
	if err := w.processor.Process(ctx, job); err != nil {
		metrics.RecordScanError()
		metrics.RecordErrorByComponent("worker", "scan_error")
		w.logger.Error(ctx, "partition scan failed",
			logger.String("worker", w.name),
			logger.String("partition", job.String()),
			logger.Error(err),
		)
		return fmt.Errorf("scan %s: %w", job, err)
	}
	w.processed++
	return nil
}

// Pool runs partition scans across a fixed number of workers. It implements
// aggregate.Executor.
type Pool struct {
	size   int
	logger logger.Logger
}

// NewPool creates a new worker pool. A non-positive count uses NumCPU.
func NewPool(workerCount int, opts ...PoolOption) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	p := &Pool{size: workerCount, logger: logger.Nop()}
	for _, opt := range opts {
		opt(p)
	}
	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Size returns the configured number of workers.
func (p *Pool) Size() int { return p.size }

// Execute enqueues every partition, closes the queue and waits for the
// workers to drain it. The first failing scan cancels the rest.
func (p *Pool) Execute(ctx context.Context, parts []model.Partition, scan aggregate.ScanFunc) error {
	if len(parts) == 0 {
		return nil
	}
	start := time.Now()

	q := queue.NewInMemoryQueue(queue.WithCapacity(len(parts)))
	for _, part := range parts {
		if !q.Enqueue(ctx, part) {
			_ = q.Close()
			return fmt.Errorf("%w: %s", ErrEnqueue, part)
		}
	}
	if err := q.Close(); err != nil {
		return err
	}
	queued := q.Len(ctx)

	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	n := min(p.size, len(parts))
	workers := make([]*InMemoryWorker, n)
	var wg sync.WaitGroup
	for i := range workers {
		workers[i] = NewInMemoryWorker(q, ProcessorFunc(scan),
			WithName("worker-"+strconv.Itoa(i)),
			WithLogger(p.logger),
		)
		wg.Add(1)
		go func(w *InMemoryWorker) {
			defer wg.Done()
			if err := w.Run(runCtx); err != nil {
				cancel(err)
			}
		}(workers[i])
	}
	wg.Wait()

	if err := context.Cause(runCtx); err != nil {
		return err
	}

	scanned := 0
	for _, w := range workers {
		scanned += w.Processed()
	}
	if scanned != queued || q.Len(ctx) != 0 {
		return fmt.Errorf("%w: %d of %d partitions", ErrIncomplete, scanned, queued)
	}

	p.logger.Debug(ctx, "partitions scanned",
		logger.Int("queued", queued),
		logger.Int("scanned", scanned),
		logger.Int("workers", n),
		logger.Duration("took", time.Since(start)),
	)
	return nil
}
