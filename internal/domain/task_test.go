package domain

import (
	"errors"
	"testing"
)

func TestOwnerForAction(t *testing.T) {
	t.Parallel()

	cases := map[PredictedAction]Owner{
		ActionFaceReshoot: OwnerHamada,
		ActionScreenRedo:  OwnerEman,
		ActionSlidesEdit:  OwnerEditor,
		ActionPolicyNote:  OwnerEditor,
	}
	for action, want := range cases {
		if got := OwnerForAction(action); got != want {
			t.Fatalf("OwnerForAction(%s) = %s, want %s", action, got, want)
		}
	}
}

func TestTaskTransitions(t *testing.T) {
	t.Parallel()

	task := Task{Status: TaskOpen}

	if err := task.Transition(TaskDone, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("OPEN -> DONE must be invalid, got %v", err)
	}
	if err := task.Transition(TaskBlocked, "reason"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("OPEN -> BLOCKED must be invalid, got %v", err)
	}

	if err := task.Transition(TaskInProgress, ""); err != nil {
		t.Fatalf("OPEN -> IN_PROGRESS: %v", err)
	}

	if err := task.Transition(TaskBlocked, ""); !errors.Is(err, ErrMissingBlockReason) {
		t.Fatalf("blocking without reason must fail, got %v", err)
	}
	if err := task.Transition(TaskBlocked, "waiting on vendor fix"); err != nil {
		t.Fatalf("IN_PROGRESS -> BLOCKED: %v", err)
	}
	if task.BlockReason != "waiting on vendor fix" {
		t.Fatalf("block reason not stored")
	}

	if err := task.Transition(TaskDone, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("BLOCKED -> DONE must be invalid, got %v", err)
	}
	if err := task.Transition(TaskInProgress, ""); err != nil {
		t.Fatalf("BLOCKED -> IN_PROGRESS: %v", err)
	}
	if task.BlockReason != "" {
		t.Fatalf("unblocking must clear the reason")
	}

	if err := task.Transition(TaskDone, ""); err != nil {
		t.Fatalf("IN_PROGRESS -> DONE: %v", err)
	}
	if task.Progress != 100 {
		t.Fatalf("DONE must pin progress to 100, got %d", task.Progress)
	}
	if err := task.Transition(TaskInProgress, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("DONE is terminal, got %v", err)
	}
}

func TestSetProgress(t *testing.T) {
	t.Parallel()

	task := Task{Status: TaskOpen}
	if err := task.SetProgress(10); err == nil {
		t.Fatalf("progress on OPEN task must fail")
	}

	task.Status = TaskInProgress
	if err := task.SetProgress(101); err == nil {
		t.Fatalf("progress above 100 must fail")
	}
	if err := task.SetProgress(-1); err == nil {
		t.Fatalf("negative progress must fail")
	}
	if err := task.SetProgress(60); err != nil {
		t.Fatalf("set progress: %v", err)
	}
	if task.Progress != 60 {
		t.Fatalf("progress = %d", task.Progress)
	}
}
