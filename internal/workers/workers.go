package workers

import (
	"context"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/sirprodigle/navfix/internal/logger"
)

// Task processes one document.
type Task func(ctx context.Context, path string) error

// WorkerPool runs a Task over a batch of documents with bounded concurrency.
// The first failing task cancels the rest of the batch.
type WorkerPool struct {
	logger      *logger.Logger
	concurrency int

	completed atomic.Int32
	failed    atomic.Int32
}

func NewWorkerPool(concurrency int, log *logger.Logger) *WorkerPool {
	if concurrency < 1 {
		concurrency = runtime.NumCPU()
	}
	if log == nil {
		log = logger.Discard()
	}
	return &WorkerPool{
		logger:      log,
		concurrency: concurrency,
	}
}

// Run blocks until every path has been processed or a task fails. It returns
// the first task error.
func (wp *WorkerPool) Run(ctx context.Context, paths []string, task Task) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(wp.concurrency)

	wp.logger.Debug("Processing %d documents with %d workers", len(paths), wp.concurrency)

	for _, path := range paths {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			wp.logger.Trace("Processing %s", path)
			if err := task(gctx, path); err != nil {
				wp.failed.Add(1)
				return err
			}
			wp.completed.Add(1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	// A parent cancellation that arrived before any task started is not
	// reported by the group.
	return ctx.Err()
}

// GetStats reports how many tasks finished and failed across all runs.
func (wp *WorkerPool) GetStats() WorkerPoolStats {
	return WorkerPoolStats{
		Completed: wp.completed.Load(),
		Failed:    wp.failed.Load(),
	}
}

type WorkerPoolStats struct {
	Completed int32
	Failed    int32
}
