// Package worker runs the asynchronous recompute pipeline.
//
// Workers drain the task queue and re-derive team totals and ranks. A
// recompute failure is logged and counted, never surfaced to the submission
// that triggered it; the next explicit tabulation re-derives the same result.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/EMDC-Fall-2025/backend-sub000/internal/adapters/mq/queue"
	"github.com/EMDC-Fall-2025/backend-sub000/internal/domain/model"
	"github.com/EMDC-Fall-2025/backend-sub000/internal/domain/pending"
	"github.com/EMDC-Fall-2025/backend-sub000/pkg/logger"
	"github.com/EMDC-Fall-2025/backend-sub000/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 4 // multiplier for runtime.NumCPU()
	workerShutdownTimeout   = 5 * time.Second
	poolShutdownTimeout     = 30 * time.Second
)

// Task abstracts what workers read off the queue.
type Task = model.RecomputeTask

// Recomputer re-derives totals and ranks for the task's scope.
type Recomputer interface {
	// RecomputeTeam recomputes one team's totals and its contest's ranks.
	RecomputeTeam(ctx context.Context, contestID, teamID string) error
	// RecomputeContest recomputes every team in the contest.
	RecomputeContest(ctx context.Context, contestID string) error
}

// Queue defines how workers receive tasks.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Task
}

// Worker processes recompute tasks using the provided interfaces.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for processing recompute tasks.
type InMemoryWorker struct {
	queue      Queue
	recomputer Recomputer
	tracker    pending.Tracker
	name       string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, r Recomputer, tracker pending.Tracker, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:      q,
		recomputer: r,
		tracker:    tracker,
		name:       "worker",
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
		logger:     logger.Get().Named("worker"),
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
	defer func() {
		close(w.done)
	}()

	taskChan := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case task, ok := <-taskChan:
			if !ok {
				return
			}

			if err := w.processTask(ctx, task); err != nil {
				w.logger.Error(ctx, "error processing recompute task", logger.Error(err))
			}
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

// processTask handles a single recompute. The pending key is cleared whether
// the recompute succeeded or not, so a later submission can enqueue again.
func (w *InMemoryWorker) processTask(ctx context.Context, task queue.Task) error {
	start := time.Now()
	defer func() {
		latency := time.Since(start).Milliseconds()
		metrics.RecordWorkerProcessingLatency(float64(latency))
		metrics.RecordRecomputeLatency(float64(latency))
	}()

	if w.tracker != nil {
		defer func() {
			w.tracker.Clear(ctx, task.CoalesceKey())
			metrics.UpdatePendingRecomputes(w.tracker.Size())
		}()
	}

	var err error
	if task.TeamID != "" {
		err = w.recomputer.RecomputeTeam(ctx, task.ContestID, task.TeamID)
	} else {
		err = w.recomputer.RecomputeContest(ctx, task.ContestID)
	}
	if err != nil {
		metrics.RecordRecomputeError()
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "recompute_error")
		w.logger.Error(ctx, "recompute failed",
			logger.String("taskID", task.TaskID),
			logger.String("contestID", task.ContestID),
			logger.String("teamID", task.TeamID),
			logger.Error(err),
		)
		return fmt.Errorf("recompute task %s: %w", task.TaskID, err)
	}

	return nil
}

// Pool manages multiple workers.
type Pool struct {
	workers    []*InMemoryWorker
	queue      Queue
	recomputer Recomputer
	tracker    pending.Tracker

	shutdown chan struct{}

	logger logger.Logger
}

// NewPool creates a new worker pool.
func NewPool(workerCount int, q Queue, r Recomputer, tracker pending.Tracker) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	pool := &Pool{
		workers:    make([]*InMemoryWorker, workerCount),
		queue:      q,
		recomputer: r,
		tracker:    tracker,
		shutdown:   make(chan struct{}),
		logger:     logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(
			q,
			r,
			tracker,
			WithName("worker-"+strconv.Itoa(i)),
		)
	}

	metrics.UpdateWorkerCount(workerCount)

	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Stop gracefully stops all workers.
func (p *Pool) Stop() {
	close(p.shutdown)

	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-time.After(workerShutdownTimeout):
		}
	}
}

// Shutdown closes the queue and waits for every worker to drain or for the
// timeout to pass.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	close(p.shutdown)

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}

	return nil
}
