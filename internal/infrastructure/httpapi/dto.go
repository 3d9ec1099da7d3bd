package httpapi

import (
	"time"

	"github.com/google/uuid"

	"UpdateSentinel/internal/domain"
)

type vendorDTO struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Website     string    `json:"website,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toVendorDTO(v domain.Vendor) vendorDTO {
	return vendorDTO{
		ID:          v.ID,
		Name:        v.Name,
		Description: v.Description,
		Website:     v.Website,
		CreatedAt:   v.CreatedAt,
		UpdatedAt:   v.UpdatedAt,
	}
}

type vendorRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Website     string `json:"website"`
}

type sourceDTO struct {
	ID           uuid.UUID  `json:"id"`
	VendorID     uuid.UUID  `json:"vendorId"`
	Name         string     `json:"name"`
	URL          string     `json:"url"`
	Type         string     `json:"type"`
	CSSSelector  string     `json:"cssSelector,omitempty"`
	IsActive     bool       `json:"isActive"`
	BridgeToggle bool       `json:"bridgeToggle"`
	LastChecked  *time.Time `json:"lastChecked,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

func toSourceDTO(s domain.Source) sourceDTO {
	dto := sourceDTO{
		ID:           s.ID,
		VendorID:     s.VendorID,
		Name:         s.Name,
		URL:          s.URL,
		Type:         string(s.Type),
		CSSSelector:  s.CSSSelector,
		IsActive:     s.IsActive,
		BridgeToggle: s.BridgeToggle,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
	if !s.LastChecked.IsZero() {
		checked := s.LastChecked
		dto.LastChecked = &checked
	}
	return dto
}

type sourceRequest struct {
	VendorID     uuid.UUID `json:"vendorId"`
	Name         string    `json:"name"`
	URL          string    `json:"url"`
	Type         string    `json:"type"`
	CSSSelector  string    `json:"cssSelector"`
	IsActive     *bool     `json:"isActive"`
	BridgeToggle *bool     `json:"bridgeToggle"`
}

type moduleDTO struct {
	ID    uuid.UUID `json:"id"`
	Code  string    `json:"code"`
	Title string    `json:"title"`
	Hours int       `json:"hours"`
	Notes string    `json:"notes,omitempty"`
}

func toModuleDTO(m domain.Module) moduleDTO {
	return moduleDTO{ID: m.ID, Code: m.Code, Title: m.Title, Hours: m.Hours, Notes: m.Notes}
}

type moduleRequest struct {
	Code  string `json:"code"`
	Title string `json:"title"`
	Hours int    `json:"hours"`
	Notes string `json:"notes"`
}

type assetDTO struct {
	ID             uuid.UUID `json:"id"`
	ModuleID       uuid.UUID `json:"moduleId"`
	LessonCode     string    `json:"lessonCode"`
	AssetType      string    `json:"assetType"`
	Sensitivity    string    `json:"sensitivity"`
	ToolDependency string    `json:"toolDependency,omitempty"`
	TriggerTags    []string  `json:"triggerTags,omitempty"`
	Link           string    `json:"link,omitempty"`
	Version        string    `json:"version"`
}

func toAssetDTO(a domain.Asset) assetDTO {
	return assetDTO{
		ID:             a.ID,
		ModuleID:       a.ModuleID,
		LessonCode:     a.LessonCode,
		AssetType:      string(a.AssetType),
		Sensitivity:    string(a.Sensitivity),
		ToolDependency: a.ToolDependency,
		TriggerTags:    a.TriggerTags,
		Link:           a.Link,
		Version:        a.Version,
	}
}

type assetRequest struct {
	ModuleID       uuid.UUID `json:"moduleId"`
	LessonCode     string    `json:"lessonCode"`
	AssetType      string    `json:"assetType"`
	Sensitivity    string    `json:"sensitivity"`
	ToolDependency string    `json:"toolDependency"`
	TriggerTags    []string  `json:"triggerTags"`
	Link           string    `json:"link"`
}

type eventDTO struct {
	ID          uuid.UUID `json:"id"`
	VendorID    uuid.UUID `json:"vendorId"`
	SourceID    uuid.UUID `json:"sourceId"`
	Title       string    `json:"title"`
	URL         string    `json:"url,omitempty"`
	PublishedAt time.Time `json:"publishedAt"`
	Summary     string    `json:"summary,omitempty"`
	ChangeType  string    `json:"changeType,omitempty"`
	Entities    []string  `json:"entities,omitempty"`
	Risks       []string  `json:"risks,omitempty"`
	SummaryAr   string    `json:"summaryAr,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toEventDTO(e domain.ChangeEvent) eventDTO {
	return eventDTO{
		ID:          e.ID,
		VendorID:    e.VendorID,
		SourceID:    e.SourceID,
		Title:       e.Title,
		URL:         e.URL,
		PublishedAt: e.PublishedAt,
		Summary:     e.Summary,
		ChangeType:  string(e.ChangeType),
		Entities:    e.Entities,
		Risks:       e.Risks,
		SummaryAr:   e.SummaryAr,
		CreatedAt:   e.CreatedAt,
	}
}

type impactDTO struct {
	ID            uuid.UUID  `json:"id"`
	ChangeEventID uuid.UUID  `json:"changeEventId"`
	AssetID       uuid.UUID  `json:"assetId"`
	Action        string     `json:"action"`
	Severity      string     `json:"severity"`
	Confidence    float64    `json:"confidence"`
	Reasons       []string   `json:"reasons,omitempty"`
	Status        string     `json:"status"`
	DecidedBy     string     `json:"decidedBy,omitempty"`
	DecidedAt     *time.Time `json:"decidedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

func toImpactDTO(i domain.Impact) impactDTO {
	dto := impactDTO{
		ID:            i.ID,
		ChangeEventID: i.ChangeEventID,
		AssetID:       i.AssetID,
		Action:        string(i.Action),
		Severity:      string(i.Severity),
		Confidence:    i.Confidence,
		Reasons:       i.Reasons,
		Status:        string(i.Status),
		DecidedBy:     i.DecidedBy,
		CreatedAt:     i.CreatedAt,
	}
	if !i.DecidedAt.IsZero() {
		decided := i.DecidedAt
		dto.DecidedAt = &decided
	}
	return dto
}

type taskDTO struct {
	ID          uuid.UUID `json:"id"`
	ImpactID    uuid.UUID `json:"impactId"`
	Action      string    `json:"action"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Owner       string    `json:"owner"`
	DueDate     time.Time `json:"dueDate"`
	Status      string    `json:"status"`
	Progress    int       `json:"progress"`
	EvidenceURL string    `json:"evidenceUrl,omitempty"`
	BlockReason string    `json:"blockReason,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toTaskDTO(t domain.Task) taskDTO {
	return taskDTO{
		ID:          t.ID,
		ImpactID:    t.ImpactID,
		Action:      string(t.Action),
		Title:       t.Title,
		Description: t.Description,
		Owner:       string(t.Owner),
		DueDate:     t.DueDate,
		Status:      string(t.Status),
		Progress:    t.Progress,
		EvidenceURL: t.EvidenceURL,
		BlockReason: t.BlockReason,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

type decisionRequest struct {
	DecidedBy string `json:"decidedBy"`
}

type taskUpdateRequest struct {
	Status      string `json:"status"`
	Progress    *int   `json:"progress"`
	EvidenceURL string `json:"evidenceUrl"`
	BlockReason string `json:"blockReason"`
}

type webhookRequest struct {
	ChangeEventID uuid.UUID `json:"changeEventId"`
}
