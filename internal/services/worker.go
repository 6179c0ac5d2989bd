package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// ErrPoolStopped is returned for work submitted after Stop.
var ErrPoolStopped = errors.New("worker pool stopped")

// Worker runs blocking extraction jobs on a fixed number of goroutines so a
// slow document cannot take more than its share of the process.
type Worker interface {
	Start(ctx context.Context)
	Stop()
	Run(ctx context.Context, job func(ctx context.Context) (any, error)) (any, error)
}

type workerJob struct {
	ctx    context.Context
	fn     func(ctx context.Context) (any, error)
	result chan workerResult
}

type workerResult struct {
	value any
	err   error
}

type worker struct {
	jobQueue    chan workerJob
	concurrency int
	wg          sync.WaitGroup
	stopChan    chan struct{}
	stopOnce    sync.Once
	log         *zap.Logger
}

func NewWorker(concurrency int, log *zap.Logger) Worker {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &worker{
		jobQueue:    make(chan workerJob, concurrency*4),
		concurrency: concurrency,
		stopChan:    make(chan struct{}),
		log:         log,
	}
}

// Start implements Worker.
func (w *worker) Start(ctx context.Context) {
	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.processJobs(ctx, i+1)
	}
	w.log.Info("worker.started", zap.Int("concurrency", w.concurrency))
}

// Stop implements Worker.
func (w *worker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopChan)
		w.wg.Wait()
		w.log.Info("worker.stopped")
	})
}

// Run queues job and waits for its result or for ctx to end, whichever comes
// first. Time spent waiting for a free slot counts against ctx. When ctx ends
// first the job's own context is cancelled and its result is dropped.
func (w *worker) Run(ctx context.Context, job func(ctx context.Context) (any, error)) (any, error) {
	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	j := workerJob{ctx: jobCtx, fn: job, result: make(chan workerResult, 1)}

	select {
	case w.jobQueue <- j:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-w.stopChan:
		return nil, ErrPoolStopped
	}

	select {
	case res := <-j.result:
		return res.value, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-w.stopChan:
		return nil, ErrPoolStopped
	}
}

func (w *worker) processJobs(ctx context.Context, workerID int) {
	defer w.wg.Done()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		case j := <-w.jobQueue:
			if j.ctx.Err() != nil {
				j.result <- workerResult{err: j.ctx.Err()}
				continue
			}
			j.result <- w.execute(j, workerID)
		}
	}
}

// execute shields the pool from parser panics on hostile input.
func (w *worker) execute(j workerJob, workerID int) (res workerResult) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Warn("worker.job_panicked", zap.Int("worker_id", workerID), zap.Any("panic", r))
			res = workerResult{err: fmt.Errorf("extraction panicked: %v", r)}
		}
	}()
	value, err := j.fn(j.ctx)
	return workerResult{value: value, err: err}
}
