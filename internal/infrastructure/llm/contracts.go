package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"UpdateSentinel/internal/domain"
	"UpdateSentinel/internal/ports"
)

var (
	_ ports.Summarizer       = (*Client)(nil)
	_ ports.ImpactClassifier = (*Client)(nil)
	_ ports.TaskPlanner      = (*Client)(nil)
)

const summarizeSystem = "You are an expert AI tool analyst specializing in educational content impact assessment. Always respond with valid JSON."

type changeSummaryWire struct {
	Summary    string   `json:"summary"`
	ChangeType string   `json:"change_type"`
	Entities   []string `json:"entities"`
	Risks      []string `json:"risks"`
	SummaryAr  string   `json:"summary_ar"`
}

// Summarize turns raw change content into a structured bilingual summary.
func (c *Client) Summarize(ctx context.Context, raw, vendorName string) (domain.ChangeSummary, error) {
	prompt := fmt.Sprintf(`Analyze this AI tool update from %s and provide a structured summary.

Raw content:
%s

Respond with JSON in this exact format:
{
  "summary": "concise English summary of the change",
  "change_type": "capability|ui|policy|pricing|api|deprecation",
  "entities": ["list", "of", "affected", "features"],
  "risks": ["potential", "risks", "for", "course", "content"],
  "summary_ar": "Arabic translation of the summary"
}`, vendorName, raw)

	var wire changeSummaryWire
	if err := c.completeJSON(ctx, "summarize", summarizeSystem, prompt, 0.1, &wire); err != nil {
		return domain.ChangeSummary{}, err
	}

	summary := domain.ChangeSummary{
		Summary:    strings.TrimSpace(wire.Summary),
		ChangeType: domain.ChangeType(wire.ChangeType),
		Entities:   wire.Entities,
		Risks:      wire.Risks,
		SummaryAr:  strings.TrimSpace(wire.SummaryAr),
	}
	if summary.Summary == "" {
		return domain.ChangeSummary{}, &SchemaError{Contract: "summarize", Reason: "empty summary"}
	}
	if !domain.KnownChangeType(summary.ChangeType) {
		return domain.ChangeSummary{}, &SchemaError{Contract: "summarize", Reason: fmt.Sprintf("unknown change_type %q", wire.ChangeType)}
	}
	return summary, nil
}

const classifySystem = "You are an expert course maintenance classifier. Analyze tool changes and predict their impact on educational assets. Always respond with valid JSON."

// classifyHeuristics is the fixed tie-break policy embedded in every
// classification request.
const classifyHeuristics = `Heuristics:
- Core feature rename or reordered steps -> SCREEN_REDO; if name spoken on camera/marketing -> also FACE_RESHOOT
- New mandatory safety/policy -> POLICY_NOTE (SEV1 if blocking)
- Cosmetic UI -> SLIDES_EDIT (SEV3) unless demo breaks
- New recommended capability -> SCREEN_REDO (SEV2)
- Connector deprecated (M2/M3/M4) -> SCREEN_REDO (SEV1)
- Reader/Research limits change -> SLIDES_EDIT (SEV2) + worksheet tweak
- Free tier/pricing change -> POLICY_NOTE (SEV2)`

type impactWire struct {
	Impacts []struct {
		AssetID         string   `json:"asset_id"`
		PredictedAction string   `json:"predicted_action"`
		Severity        string   `json:"severity"`
		Confidence      float64  `json:"confidence"`
		Reasons         []string `json:"reasons"`
	} `json:"impacts"`
}

type assetPromptView struct {
	ID             string   `json:"id"`
	ModuleCode     string   `json:"module_code"`
	AssetType      string   `json:"asset_type"`
	Sensitivity    string   `json:"sensitivity"`
	ToolDependency string   `json:"tool_dependency"`
	TriggerTags    []string `json:"trigger_tags"`
}

type rulePromptView struct {
	Pattern  string   `json:"pattern"`
	Action   string   `json:"action"`
	Severity string   `json:"severity"`
	Modules  []string `json:"modules"`
}

type summaryPromptView struct {
	Summary    string   `json:"summary"`
	ChangeType string   `json:"change_type"`
	Entities   []string `json:"entities"`
	Risks      []string `json:"risks"`
	SummaryAr  string   `json:"summary_ar"`
}

// Classify predicts per-asset impacts for a change summary. Assets the
// model judges unaffected are simply absent from the result.
func (c *Client) Classify(ctx context.Context, summary domain.ChangeSummary, assets []domain.AssetProfile, rules []domain.DecisionRule) ([]domain.ImpactPrediction, error) {
	known := make(map[uuid.UUID]bool, len(assets))
	assetViews := make([]assetPromptView, 0, len(assets))
	for _, a := range assets {
		known[a.ID] = true
		assetViews = append(assetViews, assetPromptView{
			ID:             a.ID.String(),
			ModuleCode:     a.ModuleCode,
			AssetType:      string(a.AssetType),
			Sensitivity:    string(a.Sensitivity),
			ToolDependency: a.ToolDependency,
			TriggerTags:    a.TriggerTags,
		})
	}

	ruleViews := make([]rulePromptView, 0, len(rules))
	for _, r := range rules {
		ruleViews = append(ruleViews, rulePromptView{
			Pattern:  r.Pattern,
			Action:   string(r.Action),
			Severity: string(r.Severity),
			Modules:  r.Modules,
		})
	}

	summaryJSON, _ := json.MarshalIndent(summaryPromptView{
		Summary:    summary.Summary,
		ChangeType: string(summary.ChangeType),
		Entities:   summary.Entities,
		Risks:      summary.Risks,
		SummaryAr:  summary.SummaryAr,
	}, "", "  ")
	assetsJSON, _ := json.MarshalIndent(assetViews, "", "  ")
	rulesJSON, _ := json.MarshalIndent(ruleViews, "", "  ")

	prompt := fmt.Sprintf(`Classify the impact of this AI tool change on course assets.

Change Summary:
%s

Course Assets:
%s

Decision Rules:
%s

%s

Respond with JSON array of impacts:
{
  "impacts": [
    {
      "asset_id": "asset_uuid",
      "predicted_action": "FACE_RESHOOT|SCREEN_REDO|SLIDES_EDIT|POLICY_NOTE",
      "severity": "SEV1|SEV2|SEV3",
      "confidence": 0.95,
      "reasons": ["explanation", "of", "impact"]
    }
  ]
}

Only include assets that are actually affected.`, summaryJSON, assetsJSON, rulesJSON, classifyHeuristics)

	var wire impactWire
	if err := c.completeJSON(ctx, "classify", classifySystem, prompt, 0.2, &wire); err != nil {
		return nil, err
	}

	predictions := make([]domain.ImpactPrediction, 0, len(wire.Impacts))
	for _, item := range wire.Impacts {
		assetID, err := uuid.Parse(item.AssetID)
		if err != nil {
			return nil, &SchemaError{Contract: "classify", Reason: fmt.Sprintf("bad asset_id %q", item.AssetID)}
		}
		if !known[assetID] {
			return nil, &SchemaError{Contract: "classify", Reason: fmt.Sprintf("asset_id %s not in catalog", assetID)}
		}
		action := domain.PredictedAction(item.PredictedAction)
		if !domain.KnownAction(action) {
			return nil, &SchemaError{Contract: "classify", Reason: fmt.Sprintf("unknown predicted_action %q", item.PredictedAction)}
		}
		severity := domain.Severity(item.Severity)
		if !domain.KnownSeverity(severity) {
			return nil, &SchemaError{Contract: "classify", Reason: fmt.Sprintf("unknown severity %q", item.Severity)}
		}
		if item.Confidence < 0 || item.Confidence > 1 {
			return nil, &SchemaError{Contract: "classify", Reason: fmt.Sprintf("confidence %v out of range", item.Confidence)}
		}
		predictions = append(predictions, domain.ImpactPrediction{
			AssetID:    assetID,
			Action:     action,
			Severity:   severity,
			Confidence: item.Confidence,
			Reasons:    item.Reasons,
		})
	}
	return predictions, nil
}

const planSystem = "You are a project manager for course content updates. Generate specific, actionable tasks with realistic timelines. Always respond with valid JSON."

type taskWire struct {
	Tasks []struct {
		Action         string `json:"action"`
		Title          string `json:"title"`
		Description    string `json:"description"`
		EstimatedHours int    `json:"estimated_hours"`
	} `json:"tasks"`
}

// PlanTasks drafts remediation work for one approved impact. Owners and
// due dates are assigned downstream from the action and SLA budget.
func (c *Client) PlanTasks(ctx context.Context, impact domain.Impact, slaHours map[domain.Severity]int) ([]ports.TaskDraft, error) {
	impactJSON, _ := json.MarshalIndent(map[string]any{
		"asset_id":         impact.AssetID.String(),
		"predicted_action": string(impact.Action),
		"severity":         string(impact.Severity),
		"confidence":       impact.Confidence,
		"reasons":          impact.Reasons,
	}, "", "  ")
	slaJSON, _ := json.Marshal(slaHours)

	prompt := fmt.Sprintf(`Generate concrete tasks for this course content impact.

Impact:
%s

SLA Configuration (severity: hours):
%s

Task owners:
- HAMADA: Face recordings, camera work
- EMAN: Screen recordings, demo videos
- EDITOR: Slides, worksheets, policy notes

Respond with JSON:
{
  "tasks": [
    {
      "action": "FACE_RESHOOT|SCREEN_REDO|SLIDES_EDIT|POLICY_NOTE",
      "title": "specific task title",
      "description": "detailed description of what needs to be done",
      "estimated_hours": 4
    }
  ]
}`, impactJSON, slaJSON)

	var wire taskWire
	if err := c.completeJSON(ctx, "plan-tasks", planSystem, prompt, 0.3, &wire); err != nil {
		return nil, err
	}
	if len(wire.Tasks) == 0 {
		return nil, &SchemaError{Contract: "plan-tasks", Reason: "no tasks in response"}
	}

	drafts := make([]ports.TaskDraft, 0, len(wire.Tasks))
	for _, item := range wire.Tasks {
		action := domain.PredictedAction(item.Action)
		if !domain.KnownAction(action) {
			return nil, &SchemaError{Contract: "plan-tasks", Reason: fmt.Sprintf("unknown action %q", item.Action)}
		}
		if strings.TrimSpace(item.Title) == "" {
			return nil, &SchemaError{Contract: "plan-tasks", Reason: "empty task title"}
		}
		drafts = append(drafts, ports.TaskDraft{
			Action:         action,
			Title:          item.Title,
			Description:    item.Description,
			EstimatedHours: item.EstimatedHours,
		})
	}
	return drafts, nil
}
