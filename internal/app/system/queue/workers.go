// internal/app/system/queue/workers.go
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/cohorthub/internal/app/system/metrics"
	"github.com/dalemusser/cohorthub/internal/app/system/timeouts"
	"github.com/dalemusser/cohorthub/internal/domain/models"
	"go.uber.org/zap"
)

// TaskHandler processes one leased task. It must be idempotent: the queue
// may deliver the same task more than once.
type TaskHandler func(ctx context.Context, task models.SyncTask) error

// Workers polls the queue with a bounded pool of goroutines.
type Workers struct {
	queue   *Queue
	handler TaskHandler
	policy  RetryPolicy
	log     *zap.Logger

	count int
	poll  time.Duration
	lease time.Duration

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewWorkers builds a worker pool.
//
//   - count: concurrent workers (bounded concurrency for the fan-out)
//   - poll: idle sleep between empty claims
func NewWorkers(q *Queue, handler TaskHandler, policy RetryPolicy, count int, poll time.Duration, log *zap.Logger) *Workers {
	if count < 1 {
		count = 1
	}
	return &Workers{
		queue:   q,
		handler: handler,
		policy:  policy,
		log:     log,
		count:   count,
		poll:    poll,
		lease:   timeouts.Batch + 30*time.Second,
		stopCh:  make(chan struct{}),
	}
}

// Start launches the pool.
func (w *Workers) Start() {
	for i := 0; i < w.count; i++ {
		w.wg.Add(1)
		go w.run(i)
	}
	w.log.Info("sync workers started",
		zap.Int("count", w.count),
		zap.Duration("poll", w.poll))
}

// Stop signals all workers to stop and waits for in-flight tasks to finish.
func (w *Workers) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("sync workers stopped")
}

func (w *Workers) run(id int) {
	defer w.wg.Done()
	log := w.log.With(zap.Int("worker", id))

	for {
		select {
		case <-w.stopCh:
			return
		default:
		}

		claimCtx, cancel := context.WithTimeout(context.Background(), timeouts.Short)
		task, err := w.queue.Claim(claimCtx, w.lease)
		cancel()
		if err != nil {
			log.Error("task claim failed", zap.Error(err))
			w.sleep()
			continue
		}
		if task == nil {
			w.sleep()
			continue
		}

		w.process(log, *task)
	}
}

func (w *Workers) process(log *zap.Logger, task models.SyncTask) {
	ctx, cancel := context.WithTimeout(context.Background(), timeouts.Batch)
	defer cancel()

	err := w.handler(ctx, task)
	if err != nil {
		metrics.SyncTasksTotal.WithLabelValues(task.Mode, "error").Inc()
		log.Warn("sync task failed",
			zap.String("task_id", task.ID),
			zap.String("administration_id", task.AdministrationID),
			zap.String("mode", task.Mode),
			zap.Int("attempt", task.Attempts),
			zap.Error(err))

		rctx, rcancel := context.WithTimeout(context.Background(), timeouts.Short)
		defer rcancel()
		if rerr := w.queue.Retry(rctx, task, w.policy, err); rerr != nil {
			log.Error("task retry scheduling failed", zap.String("task_id", task.ID), zap.Error(rerr))
		}
		return
	}

	metrics.SyncTasksTotal.WithLabelValues(task.Mode, "ok").Inc()
	dctx, dcancel := context.WithTimeout(context.Background(), timeouts.Short)
	defer dcancel()
	if err := w.queue.Done(dctx, task.ID); err != nil {
		// The task stays leased and will be redelivered once the lease
		// lapses; idempotent processing makes that harmless.
		log.Error("task completion write failed", zap.String("task_id", task.ID), zap.Error(err))
	}
}

func (w *Workers) sleep() {
	select {
	case <-w.stopCh:
	case <-time.After(w.poll):
	}
}
