package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"UpdateSentinel/internal/domain"
	"UpdateSentinel/internal/ports"
	"UpdateSentinel/internal/queue"
)

// defaultSlaHours backs severities missing from the stored SLA table.
var defaultSlaHours = map[domain.Severity]int{
	domain.Sev1: 8,
	domain.Sev2: 48,
	domain.Sev3: 168,
}

// TaskGenerator turns one approved impact into concrete remediation
// tasks with owners and SLA due dates.
type TaskGenerator struct {
	store   ports.Store
	planner ports.TaskPlanner
	logger  *slog.Logger

	// location is the business timezone used for due-date arithmetic.
	location *time.Location
	now      func() time.Time
}

// NewTaskGenerator constructs the task-generation worker handler.
func NewTaskGenerator(store ports.Store, planner ports.TaskPlanner, logger *slog.Logger, location *time.Location) *TaskGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	if location == nil {
		location = time.UTC
	}
	return &TaskGenerator{
		store:    store,
		planner:  planner,
		logger:   logger.With("component", "taskgen"),
		location: location,
		now:      time.Now,
	}
}

// HandleTaskGen drafts and persists tasks for one approved impact.
// Generation is idempotent: an impact that already has tasks is left
// alone, so re-enqueued jobs cannot duplicate work.
func (g *TaskGenerator) HandleTaskGen(ctx context.Context, job queue.TaskGenJob) error {
	impact, err := g.store.ImpactByID(ctx, job.ImpactID)
	if err != nil {
		return fmt.Errorf("load impact: %w", err)
	}
	if impact.Status != domain.ImpactApproved {
		g.logger.Info("skipping task generation for undecided impact",
			"impact", impact.ID, "status", string(impact.Status))
		return nil
	}

	existing, err := g.store.TasksByImpact(ctx, impact.ID)
	if err != nil {
		return fmt.Errorf("load existing tasks: %w", err)
	}
	if len(existing) > 0 {
		g.logger.Info("tasks already generated", "impact", impact.ID, "count", len(existing))
		return nil
	}

	slaHours, err := g.store.SlaHours(ctx)
	if err != nil {
		return fmt.Errorf("load sla config: %w", err)
	}

	drafts, err := g.planner.PlanTasks(ctx, impact, slaHours)
	if err != nil {
		return fmt.Errorf("plan tasks for impact %s: %w", impact.ID, err)
	}

	dueDate := g.dueDate(impact.Severity, slaHours)
	for _, draft := range drafts {
		task, err := g.store.CreateTask(ctx, domain.Task{
			ImpactID:    impact.ID,
			Action:      draft.Action,
			Title:       draft.Title,
			Description: draft.Description,
			Owner:       domain.OwnerForAction(draft.Action),
			DueDate:     dueDate,
			Status:      domain.TaskOpen,
		})
		if err != nil {
			return fmt.Errorf("persist task: %w", err)
		}
		g.logger.Info("task created",
			"task", task.ID,
			"impact", impact.ID,
			"owner", string(task.Owner),
			"due", task.DueDate)
	}
	return nil
}

// dueDate adds the severity's patch budget to the current time in the
// business timezone.
func (g *TaskGenerator) dueDate(severity domain.Severity, slaHours map[domain.Severity]int) time.Time {
	hours, ok := slaHours[severity]
	if !ok || hours <= 0 {
		hours = defaultSlaHours[severity]
	}
	if hours <= 0 {
		hours = defaultSlaHours[domain.Sev3]
	}
	return g.now().In(g.location).Add(time.Duration(hours) * time.Hour)
}
