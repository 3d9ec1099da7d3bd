package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"UpdateSentinel/internal/domain"
)

// SourceFetcher normalizes one vendor source into candidate items.
type SourceFetcher interface {
	Fetch(ctx context.Context, source domain.Source) ([]domain.Candidate, error)
	RobotsAllowed(ctx context.Context, rawURL string) bool
}

// Summarizer turns raw change content into a structured bilingual summary.
type Summarizer interface {
	Summarize(ctx context.Context, raw, vendorName string) (domain.ChangeSummary, error)
}

// ImpactClassifier maps a change summary, the asset catalog, and the
// active decision rules to per-asset impact predictions. An asset judged
// unaffected produces no prediction.
type ImpactClassifier interface {
	Classify(ctx context.Context, summary domain.ChangeSummary, assets []domain.AssetProfile, rules []domain.DecisionRule) ([]domain.ImpactPrediction, error)
}

// TaskDraft is the planner output before the owner and due date are
// fixed by SLA arithmetic.
type TaskDraft struct {
	Action         domain.PredictedAction
	Title          string
	Description    string
	EstimatedHours int
}

// TaskPlanner drafts concrete remediation work for approved impacts.
type TaskPlanner interface {
	PlanTasks(ctx context.Context, impact domain.Impact, slaHours map[domain.Severity]int) ([]TaskDraft, error)
}

// Mailer dispatches fire-and-forget notifications.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Scheduler controls when recurring jobs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}

// CatalogStore persists the read-mostly reference entities.
type CatalogStore interface {
	Vendors(ctx context.Context) ([]domain.Vendor, error)
	VendorByID(ctx context.Context, id uuid.UUID) (domain.Vendor, error)
	CreateVendor(ctx context.Context, v domain.Vendor) (domain.Vendor, error)
	UpdateVendor(ctx context.Context, v domain.Vendor) (domain.Vendor, error)
	DeleteVendor(ctx context.Context, id uuid.UUID) error

	Sources(ctx context.Context) ([]domain.Source, error)
	SourceByID(ctx context.Context, id uuid.UUID) (domain.Source, error)
	CreateSource(ctx context.Context, s domain.Source) (domain.Source, error)
	UpdateSource(ctx context.Context, s domain.Source) (domain.Source, error)
	MarkSourceChecked(ctx context.Context, id uuid.UUID, at time.Time) error

	Modules(ctx context.Context) ([]domain.Module, error)
	CreateModule(ctx context.Context, m domain.Module) (domain.Module, error)

	Assets(ctx context.Context) ([]domain.Asset, error)
	AssetProfiles(ctx context.Context) ([]domain.AssetProfile, error)
	CreateAsset(ctx context.Context, a domain.Asset) (domain.Asset, error)

	ActiveDecisionRules(ctx context.Context) ([]domain.DecisionRule, error)
	CreateDecisionRule(ctx context.Context, r domain.DecisionRule) (domain.DecisionRule, error)
	SlaHours(ctx context.Context) (map[domain.Severity]int, error)
}

// EventStore persists detected change events.
type EventStore interface {
	CreateChangeEvent(ctx context.Context, e domain.ChangeEvent) (domain.ChangeEvent, error)
	ChangeEventByID(ctx context.Context, id uuid.UUID) (domain.ChangeEvent, error)
	ChangeEvents(ctx context.Context, limit int) ([]domain.ChangeEvent, error)
	ChangeEventsSince(ctx context.Context, since time.Time) ([]domain.ChangeEvent, error)
	FingerprintsBySource(ctx context.Context, sourceID uuid.UUID) (map[string]bool, error)
}

// ImpactStore persists impact predictions and their review decisions.
type ImpactStore interface {
	CreateImpact(ctx context.Context, i domain.Impact) (domain.Impact, error)
	ImpactByID(ctx context.Context, id uuid.UUID) (domain.Impact, error)
	Impacts(ctx context.Context) ([]domain.Impact, error)
	PendingImpacts(ctx context.Context) ([]domain.Impact, error)
	// SaveImpactDecision stores a status transition performed via
	// domain.Impact.Approve/Reject. Single-row update.
	SaveImpactDecision(ctx context.Context, i domain.Impact) (domain.Impact, error)
}

// TaskStore persists generated remediation tasks.
type TaskStore interface {
	CreateTask(ctx context.Context, t domain.Task) (domain.Task, error)
	TaskByID(ctx context.Context, id uuid.UUID) (domain.Task, error)
	Tasks(ctx context.Context) ([]domain.Task, error)
	TasksByStatus(ctx context.Context, status domain.TaskStatus) ([]domain.Task, error)
	TasksByOwner(ctx context.Context, owner domain.Owner) ([]domain.Task, error)
	TasksByImpact(ctx context.Context, impactID uuid.UUID) ([]domain.Task, error)
	SaveTask(ctx context.Context, t domain.Task) (domain.Task, error)
}

// DashboardStats aggregates headline counts for the stats endpoint.
type DashboardStats struct {
	TotalVendors   int `json:"totalVendors"`
	ActiveSources  int `json:"activeSources"`
	RecentEvents   int `json:"recentEvents"`
	PendingImpacts int `json:"pendingImpacts"`
	OpenTasks      int `json:"openTasks"`
}

// Store is the full persistence collaborator.
type Store interface {
	CatalogStore
	EventStore
	ImpactStore
	TaskStore
	Stats(ctx context.Context, now time.Time) (DashboardStats, error)
}
