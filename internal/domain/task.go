package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Owner identifies who executes a remediation task.
type Owner string

const (
	OwnerHamada Owner = "HAMADA" // face recordings, camera work
	OwnerEman   Owner = "EMAN"   // screen recordings, demo videos
	OwnerEditor Owner = "EDITOR" // slides, worksheets, policy notes
)

// OwnerForAction routes an action to the role that performs it.
func OwnerForAction(action PredictedAction) Owner {
	switch action {
	case ActionFaceReshoot:
		return OwnerHamada
	case ActionScreenRedo:
		return OwnerEman
	default:
		return OwnerEditor
	}
}

// TaskStatus is the workflow state of a remediation task.
type TaskStatus string

const (
	TaskOpen       TaskStatus = "OPEN"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskBlocked    TaskStatus = "BLOCKED"
	TaskDone       TaskStatus = "DONE"
)

// ErrInvalidTransition is returned for a task status move outside the
// allowed graph. DONE is terminal; OPEN cannot jump to BLOCKED or DONE.
var ErrInvalidTransition = errors.New("invalid task transition")

// ErrMissingBlockReason flags a move to BLOCKED without a reason.
var ErrMissingBlockReason = errors.New("blocked task requires a reason")

var taskTransitions = map[TaskStatus]map[TaskStatus]bool{
	TaskOpen:       {TaskInProgress: true},
	TaskInProgress: {TaskBlocked: true, TaskDone: true},
	TaskBlocked:    {TaskInProgress: true},
	TaskDone:       {},
}

// Task is one concrete unit of remediation work derived from an
// approved impact.
type Task struct {
	ID          uuid.UUID
	ImpactID    uuid.UUID
	Action      PredictedAction
	Title       string
	Description string
	Owner       Owner
	DueDate     time.Time
	Status      TaskStatus
	Progress    int
	EvidenceURL string
	BlockReason string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Transition moves the task along the allowed status graph. A move to
// BLOCKED records the reason and fails without one; leaving BLOCKED
// clears it.
func (t *Task) Transition(next TaskStatus, blockReason string) error {
	if !taskTransitions[t.Status][next] {
		return fmt.Errorf("task %s: %s -> %s: %w", t.ID, t.Status, next, ErrInvalidTransition)
	}
	if next == TaskBlocked && blockReason == "" {
		return fmt.Errorf("task %s: %w", t.ID, ErrMissingBlockReason)
	}
	t.Status = next
	switch next {
	case TaskBlocked:
		t.BlockReason = blockReason
	case TaskInProgress:
		t.BlockReason = ""
	case TaskDone:
		t.Progress = 100
	}
	return nil
}

// SetProgress updates completion percentage; only meaningful while the
// task is IN_PROGRESS.
func (t *Task) SetProgress(pct int) error {
	if t.Status != TaskInProgress {
		return fmt.Errorf("task %s: progress on %s task: %w", t.ID, t.Status, ErrInvalidTransition)
	}
	if pct < 0 || pct > 100 {
		return fmt.Errorf("task %s: progress %d out of range", t.ID, pct)
	}
	t.Progress = pct
	return nil
}
