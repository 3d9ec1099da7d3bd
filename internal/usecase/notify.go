package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"UpdateSentinel/internal/domain"
	"UpdateSentinel/internal/ports"
	"UpdateSentinel/internal/queue"
)

// Alerter sends SEV1 notifications and the weekly digest.
type Alerter struct {
	store     ports.Store
	mailer    ports.Mailer
	logger    *slog.Logger
	recipient string
}

// NewAlerter constructs the notification handler.
func NewAlerter(store ports.Store, mailer ports.Mailer, logger *slog.Logger, recipient string) *Alerter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Alerter{
		store:     store,
		mailer:    mailer,
		logger:    logger.With("component", "alerter"),
		recipient: recipient,
	}
}

// HandleAlert announces the SEV1 impacts of one change event. Delivery
// is best-effort; the pipeline never blocks on notifications.
func (a *Alerter) HandleAlert(ctx context.Context, job queue.AlertJob) error {
	if a.mailer == nil || a.recipient == "" {
		a.logger.Info("alerting not configured, dropping alert", "event", job.ChangeEventID)
		return nil
	}

	event, err := a.store.ChangeEventByID(ctx, job.ChangeEventID)
	if err != nil {
		return fmt.Errorf("load change event: %w", err)
	}

	var body strings.Builder
	fmt.Fprintf(&body, "Critical vendor change detected.\n\n")
	fmt.Fprintf(&body, "Title: %s\nURL: %s\nPublished: %s\n\n%s\n\nAffected assets:\n",
		event.Title, event.URL, event.PublishedAt.Format(time.RFC1123), event.Summary)

	for _, id := range job.ImpactIDs {
		impact, err := a.store.ImpactByID(ctx, id)
		if err != nil {
			a.logger.Error("alert impact lookup failed", "impact", id, "error", err)
			continue
		}
		fmt.Fprintf(&body, "- asset %s: %s (%s, confidence %.2f)\n",
			impact.AssetID, impact.Action, impact.Severity, impact.Confidence)
	}

	subject := fmt.Sprintf("[SEV1] %s", event.Title)
	if err := a.mailer.Send(ctx, a.recipient, subject, body.String()); err != nil {
		return fmt.Errorf("send alert: %w", err)
	}

	a.logger.Info("alert sent", "event", event.ID, "impacts", len(job.ImpactIDs))
	return nil
}

// WeeklyDigest mails a summary of the last seven days: detected
// changes, impacts awaiting review, and open tasks.
func (a *Alerter) WeeklyDigest(ctx context.Context, now time.Time) error {
	if a.mailer == nil || a.recipient == "" {
		a.logger.Info("alerting not configured, skipping digest")
		return nil
	}

	events, err := a.store.ChangeEventsSince(ctx, now.Add(-7*24*time.Hour))
	if err != nil {
		return fmt.Errorf("load recent events: %w", err)
	}
	pending, err := a.store.PendingImpacts(ctx)
	if err != nil {
		return fmt.Errorf("load pending impacts: %w", err)
	}
	open, err := a.store.TasksByStatus(ctx, domain.TaskOpen)
	if err != nil {
		return fmt.Errorf("load open tasks: %w", err)
	}

	var body strings.Builder
	fmt.Fprintf(&body, "Weekly monitoring digest — %s\n\n", now.Format("2006-01-02"))
	fmt.Fprintf(&body, "Changes detected this week: %d\n", len(events))
	for _, event := range events {
		fmt.Fprintf(&body, "- [%s] %s\n  %s\n", event.ChangeType, event.Title, event.URL)
	}
	fmt.Fprintf(&body, "\nImpacts awaiting review: %d\n", len(pending))
	fmt.Fprintf(&body, "Open tasks: %d\n", len(open))
	for _, task := range open {
		fmt.Fprintf(&body, "- %s (owner %s, due %s)\n",
			task.Title, task.Owner, task.DueDate.Format("2006-01-02"))
	}

	subject := fmt.Sprintf("Weekly change digest %s", now.Format("2006-01-02"))
	if err := a.mailer.Send(ctx, a.recipient, subject, body.String()); err != nil {
		return fmt.Errorf("send digest: %w", err)
	}

	a.logger.Info("weekly digest sent",
		"events", len(events),
		"pendingImpacts", len(pending),
		"openTasks", len(open))
	return nil
}
