package queue

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ClassifyJob asks the classification worker to assess one change event.
type ClassifyJob struct {
	ChangeEventID uuid.UUID
}

// TaskGenJob asks the task worker to generate work for one impact.
type TaskGenJob struct {
	ImpactID uuid.UUID
}

// AlertJob asks the notification worker to announce SEV1 impacts.
type AlertJob struct {
	ChangeEventID uuid.UUID
	ImpactIDs     []uuid.UUID
}

var (
	// ErrClosed is returned when enqueuing after shutdown began.
	ErrClosed = errors.New("queue closed")
	// ErrFull is returned when the queue buffer is exhausted.
	ErrFull = errors.New("queue full")
)

// Queue is a named, bounded in-process work queue. Producers enqueue and
// return immediately; one worker consumes at its own pace.
type Queue[T any] struct {
	name string

	mu     sync.RWMutex
	jobs   chan T
	closed bool
}

// New builds a queue with the given buffer size.
func New[T any](name string, size int) *Queue[T] {
	if size <= 0 {
		size = 64
	}
	return &Queue[T]{name: name, jobs: make(chan T, size)}
}

// Name identifies the queue in logs.
func (q *Queue[T]) Name() string { return q.name }

// Jobs exposes the receive side of the queue.
func (q *Queue[T]) Jobs() <-chan T { return q.jobs }

// Enqueue adds a job without blocking.
func (q *Queue[T]) Enqueue(job T) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrClosed
	}
	select {
	case q.jobs <- job:
		return nil
	default:
		return ErrFull
	}
}

// Close stops accepting jobs; the worker drains what remains.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.jobs)
}

// Set bundles the three pipeline queues with a shared lifecycle: built
// once at process start, drained and closed on shutdown.
type Set struct {
	Classify *Queue[ClassifyJob]
	Tasks    *Queue[TaskGenJob]
	Alerts   *Queue[AlertJob]
}

// NewSet constructs the queue handles passed into the orchestrator.
func NewSet(size int) *Set {
	return &Set{
		Classify: New[ClassifyJob]("classify-impacts", size),
		Tasks:    New[TaskGenJob]("generate-tasks", size),
		Alerts:   New[AlertJob]("sev1-alert", size),
	}
}

// Close shuts down all queues.
func (s *Set) Close() {
	s.Classify.Close()
	s.Tasks.Close()
	s.Alerts.Close()
}
