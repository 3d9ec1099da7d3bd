package domain

import (
	"time"

	"github.com/google/uuid"
)

// Module is a curriculum unit (M1..M9). Static reference data.
type Module struct {
	ID        uuid.UUID
	Code      string
	Title     string
	Hours     int
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AssetType enumerates the kinds of course content under maintenance.
type AssetType string

const (
	AssetSlides     AssetType = "SLIDES"
	AssetToolClip   AssetType = "TOOL_CLIP"
	AssetScreenDemo AssetType = "SCREEN_DEMO"
)

// Sensitivity grades how fragile an asset is to upstream tool changes.
type Sensitivity string

const (
	SensitivityHigh   Sensitivity = "High"
	SensitivityMedium Sensitivity = "Medium"
	SensitivityLow    Sensitivity = "Low"
)

// Asset is one piece of course content belonging to a module.
type Asset struct {
	ID             uuid.UUID
	ModuleID       uuid.UUID
	LessonCode     string
	AssetType      AssetType
	Sensitivity    Sensitivity
	ToolDependency string
	TriggerTags    []string
	Link           string
	Version        string
	LastReviewed   time.Time
	NextDue        time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// AssetProfile is the classifier-facing view of an asset, flattened with
// its module code.
type AssetProfile struct {
	ID             uuid.UUID
	ModuleCode     string
	AssetType      AssetType
	Sensitivity    Sensitivity
	ToolDependency string
	TriggerTags    []string
}

// DecisionRule is an operator-authored override pattern that biases
// automated classification. A matching rule's action and severity win
// over the generic heuristics for assets in its listed modules.
type DecisionRule struct {
	ID        uuid.UUID
	Pattern   string
	Action    PredictedAction
	Severity  Severity
	Modules   []string
	Notes     string
	IsActive  bool
	CreatedAt time.Time
}

// SlaConfig holds the per-severity response-time budget in hours.
type SlaConfig struct {
	ID               uuid.UUID
	Severity         Severity
	PatchWithinHours int
	Comms            string
}
