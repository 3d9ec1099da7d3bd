package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestEnqueueAfterClose(t *testing.T) {
	t.Parallel()

	q := New[ClassifyJob]("classify-impacts", 4)
	q.Close()

	if err := q.Enqueue(ClassifyJob{ChangeEventID: uuid.New()}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestEnqueueFull(t *testing.T) {
	t.Parallel()

	q := New[TaskGenJob]("generate-tasks", 1)
	if err := q.Enqueue(TaskGenJob{ImpactID: uuid.New()}); err != nil {
		t.Fatalf("first enqueue: %v", err)
	}
	if err := q.Enqueue(TaskGenJob{ImpactID: uuid.New()}); !errors.Is(err, ErrFull) {
		t.Fatalf("expected ErrFull, got %v", err)
	}
}

func TestWorkerDrainsOnClose(t *testing.T) {
	t.Parallel()

	q := New[ClassifyJob]("classify-impacts", 8)
	var handled atomic.Int32

	worker := NewWorker(q, func(ctx context.Context, job ClassifyJob) error {
		handled.Add(1)
		return nil
	}, nil, 0)

	for i := 0; i < 5; i++ {
		if err := q.Enqueue(ClassifyJob{ChangeEventID: uuid.New()}); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}
	q.Close()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Run(context.Background())
	}()
	wg.Wait()

	if handled.Load() != 5 {
		t.Fatalf("expected 5 handled jobs, got %d", handled.Load())
	}
}

func TestWorkerRetriesThenGivesUp(t *testing.T) {
	t.Parallel()

	q := New[AlertJob]("sev1-alert", 4)
	var attempts atomic.Int32

	worker := NewWorker(q, func(ctx context.Context, job AlertJob) error {
		attempts.Add(1)
		return errors.New("gateway down")
	}, nil, 2)

	if err := q.Enqueue(AlertJob{ChangeEventID: uuid.New()}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	q.Close()

	done := make(chan struct{})
	go func() {
		worker.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatalf("worker did not finish")
	}

	// initial attempt plus two retries
	if attempts.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts.Load())
	}
}

func TestSetLifecycle(t *testing.T) {
	t.Parallel()

	set := NewSet(4)
	if set.Classify.Name() != "classify-impacts" || set.Tasks.Name() != "generate-tasks" || set.Alerts.Name() != "sev1-alert" {
		t.Fatalf("unexpected queue names")
	}

	set.Close()
	set.Close() // idempotent

	if err := set.Classify.Enqueue(ClassifyJob{}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed after set close, got %v", err)
	}
}
