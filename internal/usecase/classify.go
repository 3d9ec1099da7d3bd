package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"UpdateSentinel/internal/domain"
	"UpdateSentinel/internal/ports"
	"UpdateSentinel/internal/queue"
)

// autoDecider is recorded as the approver on impacts that bypass review.
const autoDecider = "auto-approval"

// Classifier runs the impact-assessment stage: one change event in,
// zero or more persisted impacts out.
type Classifier struct {
	store      ports.Store
	classifier ports.ImpactClassifier
	queues     *queue.Set
	logger     *slog.Logger

	now func() time.Time
}

// NewClassifier constructs the classification worker handler.
func NewClassifier(store ports.Store, classifier ports.ImpactClassifier, queues *queue.Set, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{
		store:      store,
		classifier: classifier,
		queues:     queues,
		logger:     logger.With("component", "classifier"),
		now:        time.Now,
	}
}

// HandleClassify assesses one change event against the asset catalog,
// applies decision-rule overrides, persists the impacts, auto-approves
// the qualifying ones, and fans out follow-up jobs.
func (c *Classifier) HandleClassify(ctx context.Context, job queue.ClassifyJob) error {
	event, err := c.store.ChangeEventByID(ctx, job.ChangeEventID)
	if err != nil {
		return fmt.Errorf("load change event: %w", err)
	}

	profiles, err := c.store.AssetProfiles(ctx)
	if err != nil {
		return fmt.Errorf("load asset profiles: %w", err)
	}
	if len(profiles) == 0 {
		c.logger.Info("no assets cataloged, skipping classification", "event", event.ID)
		return nil
	}

	rules, err := c.store.ActiveDecisionRules(ctx)
	if err != nil {
		return fmt.Errorf("load decision rules: %w", err)
	}

	summary := domain.ChangeSummary{
		Summary:    event.Summary,
		ChangeType: event.ChangeType,
		Entities:   event.Entities,
		Risks:      event.Risks,
		SummaryAr:  event.SummaryAr,
	}

	predictions, err := c.classifier.Classify(ctx, summary, profiles, rules)
	if err != nil {
		return fmt.Errorf("classify event %s: %w", event.ID, err)
	}

	predictions = applyRuleOverrides(predictions, rules, profiles, event)

	var sev1IDs []uuid.UUID
	for _, prediction := range predictions {
		impact, err := c.store.CreateImpact(ctx, domain.Impact{
			ChangeEventID: event.ID,
			AssetID:       prediction.AssetID,
			Action:        prediction.Action,
			Severity:      prediction.Severity,
			Confidence:    prediction.Confidence,
			Reasons:       prediction.Reasons,
			Status:        domain.ImpactPending,
		})
		if err != nil {
			return fmt.Errorf("persist impact: %w", err)
		}

		if impact.Severity == domain.Sev1 {
			sev1IDs = append(sev1IDs, impact.ID)
		}

		if !impact.AutoApproves() {
			continue
		}
		if err := c.approveAndQueue(ctx, impact); err != nil {
			c.logger.Error("auto-approval failed", "impact", impact.ID, "error", err)
		}
	}

	if len(sev1IDs) > 0 {
		err := c.queues.Alerts.Enqueue(queue.AlertJob{ChangeEventID: event.ID, ImpactIDs: sev1IDs})
		if err != nil {
			c.logger.Error("enqueue alert failed", "event", event.ID, "error", err)
		}
	}

	c.logger.Info("event classified",
		"event", event.ID,
		"impacts", len(predictions),
		"sev1", len(sev1IDs))
	return nil
}

func (c *Classifier) approveAndQueue(ctx context.Context, impact domain.Impact) error {
	if err := impact.Approve(autoDecider, c.now()); err != nil {
		return err
	}
	if _, err := c.store.SaveImpactDecision(ctx, impact); err != nil {
		return fmt.Errorf("save decision: %w", err)
	}
	if err := c.queues.Tasks.Enqueue(queue.TaskGenJob{ImpactID: impact.ID}); err != nil {
		return fmt.Errorf("enqueue task generation: %w", err)
	}
	return nil
}

// applyRuleOverrides forces a matching rule's action and severity onto
// the model's predictions. Rules are deterministic and win over the
// generic heuristics; a rule with listed modules only touches assets in
// those modules.
func applyRuleOverrides(predictions []domain.ImpactPrediction, rules []domain.DecisionRule, profiles []domain.AssetProfile, event domain.ChangeEvent) []domain.ImpactPrediction {
	if len(rules) == 0 {
		return predictions
	}

	moduleByAsset := make(map[uuid.UUID]string, len(profiles))
	for _, profile := range profiles {
		moduleByAsset[profile.ID] = profile.ModuleCode
	}

	haystack := strings.ToLower(strings.Join(append([]string{event.Title, event.Summary}, event.Entities...), " "))
	for _, rule := range rules {
		if !strings.Contains(haystack, strings.ToLower(rule.Pattern)) {
			continue
		}
		for idx := range predictions {
			if !ruleCoversModule(rule, moduleByAsset[predictions[idx].AssetID]) {
				continue
			}
			predictions[idx].Action = rule.Action
			predictions[idx].Severity = rule.Severity
			predictions[idx].Reasons = append(predictions[idx].Reasons,
				fmt.Sprintf("decision rule %q", rule.Pattern))
		}
	}
	return predictions
}

func ruleCoversModule(rule domain.DecisionRule, moduleCode string) bool {
	if len(rule.Modules) == 0 {
		return true
	}
	for _, code := range rule.Modules {
		if code == moduleCode {
			return true
		}
	}
	return false
}
