package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"UpdateSentinel/internal/domain"
	"UpdateSentinel/internal/infrastructure/storage"
	"UpdateSentinel/internal/queue"
)

type fakeImpactClassifier struct {
	predictions []domain.ImpactPrediction
	err         error
}

func (f *fakeImpactClassifier) Classify(ctx context.Context, summary domain.ChangeSummary, assets []domain.AssetProfile, rules []domain.DecisionRule) ([]domain.ImpactPrediction, error) {
	return f.predictions, f.err
}

func seedEventAndAsset(t *testing.T, store *storage.Memory, title, summary string, entities ...string) (domain.ChangeEvent, domain.Asset) {
	t.Helper()
	ctx := context.Background()

	vendor, _ := store.CreateVendor(ctx, domain.Vendor{Name: "OpenAI"})
	source, _ := store.CreateSource(ctx, domain.Source{
		VendorID: vendor.ID, Name: "notes", URL: "https://o.example/notes",
		Type: domain.SourceRSS, IsActive: true, BridgeToggle: true,
	})
	mod, _ := store.CreateModule(ctx, domain.Module{Code: "M3", Title: "Prompting"})
	asset, err := store.CreateAsset(ctx, domain.Asset{
		ModuleID: mod.ID, LessonCode: "M3-L1",
		AssetType: domain.AssetScreenDemo, Sensitivity: domain.SensitivityHigh,
	})
	if err != nil {
		t.Fatalf("create asset: %v", err)
	}

	event, err := store.CreateChangeEvent(ctx, domain.ChangeEvent{
		VendorID: vendor.ID, SourceID: source.ID,
		Title: title, PublishedAt: time.Now(),
		Raw: "raw", Summary: summary, ChangeType: domain.ChangeUI,
		Entities: entities,
	})
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	return event, asset
}

func TestHandleClassifyAutoApproval(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		confidence float64
		severity   domain.Severity
		wantStatus domain.ImpactStatus
	}{
		{"high confidence approves", 0.81, domain.Sev2, domain.ImpactApproved},
		{"sev1 approves regardless", 0.5, domain.Sev1, domain.ImpactApproved},
		{"threshold is exclusive", 0.8, domain.Sev2, domain.ImpactPending},
		{"low confidence stays pending", 0.5, domain.Sev2, domain.ImpactPending},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			store := storage.NewMemory()
			event, asset := seedEventAndAsset(t, store, "sidebar redesign", "the sidebar moved")
			queues := queue.NewSet(16)
			defer queues.Close()

			classifier := NewClassifier(store, &fakeImpactClassifier{
				predictions: []domain.ImpactPrediction{{
					AssetID:    asset.ID,
					Action:     domain.ActionScreenRedo,
					Severity:   tc.severity,
					Confidence: tc.confidence,
					Reasons:    []string{"ui moved"},
				}},
			}, queues, nil)

			if err := classifier.HandleClassify(context.Background(), queue.ClassifyJob{ChangeEventID: event.ID}); err != nil {
				t.Fatalf("handle classify: %v", err)
			}

			impacts, _ := store.Impacts(context.Background())
			if len(impacts) != 1 {
				t.Fatalf("expected 1 impact, got %d", len(impacts))
			}
			got := impacts[0]
			if got.Status != tc.wantStatus {
				t.Fatalf("status = %s, want %s", got.Status, tc.wantStatus)
			}
			if tc.wantStatus == domain.ImpactApproved && got.DecidedBy != autoDecider {
				t.Fatalf("auto-approved impact must record %q, got %q", autoDecider, got.DecidedBy)
			}

			wantTaskJobs := 0
			if tc.wantStatus == domain.ImpactApproved {
				wantTaskJobs = 1
			}
			if got := drainTaskJobs(queues); got != wantTaskJobs {
				t.Fatalf("task jobs = %d, want %d", got, wantTaskJobs)
			}

			wantAlerts := 0
			if tc.severity == domain.Sev1 {
				wantAlerts = 1
			}
			if got := drainAlertJobs(queues); got != wantAlerts {
				t.Fatalf("alert jobs = %d, want %d", got, wantAlerts)
			}
		})
	}
}

func TestHandleClassifyRuleOverride(t *testing.T) {
	t.Parallel()

	store := storage.NewMemory()
	event, asset := seedEventAndAsset(t, store, "Free tier limits reduced", "free tier message cap lowered")
	ctx := context.Background()

	if _, err := store.CreateDecisionRule(ctx, domain.DecisionRule{
		Pattern:  "free tier",
		Action:   domain.ActionSlidesEdit,
		Severity: domain.Sev2,
		Modules:  []string{"M3"},
		IsActive: true,
	}); err != nil {
		t.Fatalf("create rule: %v", err)
	}

	queues := queue.NewSet(16)
	defer queues.Close()

	// Model suggests a low-priority action; the rule must win.
	classifier := NewClassifier(store, &fakeImpactClassifier{
		predictions: []domain.ImpactPrediction{{
			AssetID:    asset.ID,
			Action:     domain.ActionPolicyNote,
			Severity:   domain.Sev3,
			Confidence: 0.4,
		}},
	}, queues, nil)

	if err := classifier.HandleClassify(ctx, queue.ClassifyJob{ChangeEventID: event.ID}); err != nil {
		t.Fatalf("handle classify: %v", err)
	}

	impacts, _ := store.Impacts(ctx)
	if len(impacts) != 1 {
		t.Fatalf("expected 1 impact, got %d", len(impacts))
	}
	if impacts[0].Action != domain.ActionSlidesEdit {
		t.Fatalf("rule action must override, got %s", impacts[0].Action)
	}
	if impacts[0].Severity != domain.Sev2 {
		t.Fatalf("rule severity must override, got %s", impacts[0].Severity)
	}
}

func TestHandleClassifyRuleMatchesEntities(t *testing.T) {
	t.Parallel()

	store := storage.NewMemory()
	// The pattern appears only in the extracted entities, not in the
	// title or summary.
	event, asset := seedEventAndAsset(t, store,
		"Plan changes announced", "paid quotas adjusted across plans", "Free Tier")
	ctx := context.Background()

	if _, err := store.CreateDecisionRule(ctx, domain.DecisionRule{
		Pattern:  "free tier",
		Action:   domain.ActionSlidesEdit,
		Severity: domain.Sev2,
		Modules:  []string{"M3"},
		IsActive: true,
	}); err != nil {
		t.Fatalf("create rule: %v", err)
	}

	queues := queue.NewSet(16)
	defer queues.Close()

	classifier := NewClassifier(store, &fakeImpactClassifier{
		predictions: []domain.ImpactPrediction{{
			AssetID:    asset.ID,
			Action:     domain.ActionPolicyNote,
			Severity:   domain.Sev3,
			Confidence: 0.4,
		}},
	}, queues, nil)

	if err := classifier.HandleClassify(ctx, queue.ClassifyJob{ChangeEventID: event.ID}); err != nil {
		t.Fatalf("handle classify: %v", err)
	}

	impacts, _ := store.Impacts(ctx)
	if len(impacts) != 1 {
		t.Fatalf("expected 1 impact, got %d", len(impacts))
	}
	if impacts[0].Action != domain.ActionSlidesEdit || impacts[0].Severity != domain.Sev2 {
		t.Fatalf("rule matching an entity must override, got %s/%s", impacts[0].Action, impacts[0].Severity)
	}
}

func TestHandleClassifyRuleScopedToOtherModule(t *testing.T) {
	t.Parallel()

	store := storage.NewMemory()
	event, asset := seedEventAndAsset(t, store, "Free tier limits reduced", "cap lowered")
	ctx := context.Background()

	if _, err := store.CreateDecisionRule(ctx, domain.DecisionRule{
		Pattern:  "free tier",
		Action:   domain.ActionFaceReshoot,
		Severity: domain.Sev1,
		Modules:  []string{"M7"},
		IsActive: true,
	}); err != nil {
		t.Fatalf("create rule: %v", err)
	}

	queues := queue.NewSet(16)
	defer queues.Close()

	classifier := NewClassifier(store, &fakeImpactClassifier{
		predictions: []domain.ImpactPrediction{{
			AssetID:    asset.ID,
			Action:     domain.ActionPolicyNote,
			Severity:   domain.Sev3,
			Confidence: 0.4,
		}},
	}, queues, nil)

	if err := classifier.HandleClassify(ctx, queue.ClassifyJob{ChangeEventID: event.ID}); err != nil {
		t.Fatalf("handle classify: %v", err)
	}

	impacts, _ := store.Impacts(ctx)
	if impacts[0].Action != domain.ActionPolicyNote {
		t.Fatalf("rule scoped to another module must not override, got %s", impacts[0].Action)
	}
}

func TestHandleClassifyNoAssets(t *testing.T) {
	t.Parallel()

	store := storage.NewMemory()
	ctx := context.Background()
	vendor, _ := store.CreateVendor(ctx, domain.Vendor{Name: "OpenAI"})
	source, _ := store.CreateSource(ctx, domain.Source{
		VendorID: vendor.ID, Name: "notes", URL: "https://o.example/notes",
		Type: domain.SourceRSS, IsActive: true, BridgeToggle: true,
	})
	event, _ := store.CreateChangeEvent(ctx, domain.ChangeEvent{
		VendorID: vendor.ID, SourceID: source.ID,
		Title: "anything", PublishedAt: time.Now(), Raw: "raw",
	})

	queues := queue.NewSet(16)
	defer queues.Close()

	classifier := NewClassifier(store, &fakeImpactClassifier{}, queues, nil)
	if err := classifier.HandleClassify(ctx, queue.ClassifyJob{ChangeEventID: event.ID}); err != nil {
		t.Fatalf("empty catalog must not error: %v", err)
	}

	impacts, _ := store.Impacts(ctx)
	if len(impacts) != 0 {
		t.Fatalf("expected no impacts, got %d", len(impacts))
	}
}

func TestHandleClassifyUnknownEvent(t *testing.T) {
	t.Parallel()

	store := storage.NewMemory()
	queues := queue.NewSet(16)
	defer queues.Close()

	classifier := NewClassifier(store, &fakeImpactClassifier{}, queues, nil)
	err := classifier.HandleClassify(context.Background(), queue.ClassifyJob{ChangeEventID: uuid.New()})
	if err == nil {
		t.Fatalf("expected error for unknown change event")
	}
}

func drainTaskJobs(queues *queue.Set) int {
	count := 0
	for {
		select {
		case _, ok := <-queues.Tasks.Jobs():
			if !ok {
				return count
			}
			count++
		default:
			return count
		}
	}
}

func drainAlertJobs(queues *queue.Set) int {
	count := 0
	for {
		select {
		case _, ok := <-queues.Alerts.Jobs():
			if !ok {
				return count
			}
			count++
		default:
			return count
		}
	}
}
