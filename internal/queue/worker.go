package queue

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff"
)

// Worker consumes one queue, retrying each job with exponential backoff
// before marking it failed. A failed job is logged and dropped; it never
// touches state persisted by upstream stages.
type Worker[T any] struct {
	queue      *Queue[T]
	handle     func(context.Context, T) error
	logger     *slog.Logger
	maxRetries uint64
}

// NewWorker wires a handler to a queue.
func NewWorker[T any](q *Queue[T], handle func(context.Context, T) error, logger *slog.Logger, maxRetries int) *Worker[T] {
	if logger == nil {
		logger = slog.Default()
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Worker[T]{
		queue:      q,
		handle:     handle,
		logger:     logger.With("queue", q.Name()),
		maxRetries: uint64(maxRetries),
	}
}

// Run consumes jobs until the queue is closed and drained, or the
// context is cancelled.
func (w *Worker[T]) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-w.queue.jobs:
			if !ok {
				return
			}
			w.process(ctx, job)
		}
	}
}

func (w *Worker[T]) process(ctx context.Context, job T) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	policy.MaxElapsedTime = 0

	operation := func() error {
		return w.handle(ctx, job)
	}

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, w.maxRetries), ctx))
	if err != nil {
		w.logger.Error("job failed", "error", err)
	}
}
