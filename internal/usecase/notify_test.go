package usecase

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"UpdateSentinel/internal/domain"
	"UpdateSentinel/internal/infrastructure/storage"
	"UpdateSentinel/internal/queue"
)

type fakeMailer struct {
	to      []string
	subject []string
	body    []string
	err     error
}

func (f *fakeMailer) Send(ctx context.Context, to, subject, body string) error {
	if f.err != nil {
		return f.err
	}
	f.to = append(f.to, to)
	f.subject = append(f.subject, subject)
	f.body = append(f.body, body)
	return nil
}

func TestHandleAlertBuildsSubjectAndBody(t *testing.T) {
	t.Parallel()

	store := storage.NewMemory()
	event, asset := seedEventAndAsset(t, store, "Connector API removed", "the connector API is gone")
	ctx := context.Background()

	impact, _ := store.CreateImpact(ctx, domain.Impact{
		ChangeEventID: event.ID,
		AssetID:       asset.ID,
		Action:        domain.ActionScreenRedo,
		Severity:      domain.Sev1,
		Confidence:    0.95,
	})

	mailer := &fakeMailer{}
	alerter := NewAlerter(store, mailer, nil, "ops@course.local")

	err := alerter.HandleAlert(ctx, queue.AlertJob{ChangeEventID: event.ID, ImpactIDs: []uuid.UUID{impact.ID}})
	if err != nil {
		t.Fatalf("handle alert: %v", err)
	}

	if len(mailer.subject) != 1 {
		t.Fatalf("expected one mail, got %d", len(mailer.subject))
	}
	if !strings.HasPrefix(mailer.subject[0], "[SEV1]") {
		t.Fatalf("subject must carry the severity tag, got %q", mailer.subject[0])
	}
	if !strings.Contains(mailer.body[0], "Connector API removed") {
		t.Fatalf("body must mention the change title")
	}
	if !strings.Contains(mailer.body[0], "SCREEN_REDO") {
		t.Fatalf("body must list the affected action")
	}
}

func TestHandleAlertUnconfiguredIsNoop(t *testing.T) {
	t.Parallel()

	store := storage.NewMemory()
	alerter := NewAlerter(store, nil, nil, "")

	err := alerter.HandleAlert(context.Background(), queue.AlertJob{})
	if err != nil {
		t.Fatalf("unconfigured alerter must not error: %v", err)
	}
}

func TestWeeklyDigestContents(t *testing.T) {
	t.Parallel()

	store := storage.NewMemory()
	event, _ := seedEventAndAsset(t, store, "Projects go GA", "projects are generally available")
	ctx := context.Background()
	now := time.Now()

	if _, err := store.CreateTask(ctx, domain.Task{
		ImpactID: event.ID,
		Action:   domain.ActionSlidesEdit,
		Title:    "Refresh module 3 slides",
		Owner:    domain.OwnerEditor,
		DueDate:  now.Add(48 * time.Hour),
	}); err != nil {
		t.Fatalf("create task: %v", err)
	}

	mailer := &fakeMailer{}
	alerter := NewAlerter(store, mailer, nil, "ops@course.local")

	if err := alerter.WeeklyDigest(ctx, now); err != nil {
		t.Fatalf("weekly digest: %v", err)
	}

	if len(mailer.body) != 1 {
		t.Fatalf("expected one digest mail, got %d", len(mailer.body))
	}
	body := mailer.body[0]
	if !strings.Contains(body, "Projects go GA") {
		t.Fatalf("digest must list this week's changes")
	}
	if !strings.Contains(body, "Refresh module 3 slides") {
		t.Fatalf("digest must list open tasks")
	}
	if mailer.to[0] != "ops@course.local" {
		t.Fatalf("digest recipient = %q", mailer.to[0])
	}
}
