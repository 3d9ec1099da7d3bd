package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"UpdateSentinel/internal/domain"
	"UpdateSentinel/internal/ports"
)

// ErrNotFound is returned for lookups of absent rows.
var ErrNotFound = fmt.Errorf("not found")

// Memory is an in-process implementation of ports.Store. It backs tests
// and the "memory" DSN for local runs.
type Memory struct {
	mu sync.RWMutex

	vendors map[uuid.UUID]domain.Vendor
	sources map[uuid.UUID]domain.Source
	modules map[uuid.UUID]domain.Module
	assets  map[uuid.UUID]domain.Asset
	rules   map[uuid.UUID]domain.DecisionRule
	sla     map[domain.Severity]int
	events  map[uuid.UUID]domain.ChangeEvent
	impacts map[uuid.UUID]domain.Impact
	tasks   map[uuid.UUID]domain.Task
}

var _ ports.Store = (*Memory)(nil)

// NewMemory builds an empty store seeded with default SLA budgets.
func NewMemory() *Memory {
	return &Memory{
		vendors: map[uuid.UUID]domain.Vendor{},
		sources: map[uuid.UUID]domain.Source{},
		modules: map[uuid.UUID]domain.Module{},
		assets:  map[uuid.UUID]domain.Asset{},
		rules:   map[uuid.UUID]domain.DecisionRule{},
		sla: map[domain.Severity]int{
			domain.Sev1: 8,
			domain.Sev2: 48,
			domain.Sev3: 168,
		},
		events:  map[uuid.UUID]domain.ChangeEvent{},
		impacts: map[uuid.UUID]domain.Impact{},
		tasks:   map[uuid.UUID]domain.Task{},
	}
}

// SetSlaHours overrides the budget for one severity.
func (m *Memory) SetSlaHours(severity domain.Severity, hours int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sla[severity] = hours
}

// Vendors lists all vendors sorted by name.
func (m *Memory) Vendors(ctx context.Context) ([]domain.Vendor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Vendor, 0, len(m.vendors))
	for _, v := range m.vendors {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) VendorByID(ctx context.Context, id uuid.UUID) (domain.Vendor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.vendors[id]
	if !ok {
		return domain.Vendor{}, fmt.Errorf("vendor %s: %w", id, ErrNotFound)
	}
	return v, nil
}

func (m *Memory) CreateVendor(ctx context.Context, v domain.Vendor) (domain.Vendor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.vendors {
		if existing.Name == v.Name {
			return domain.Vendor{}, fmt.Errorf("vendor name %q already exists", v.Name)
		}
	}
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	now := time.Now()
	v.CreatedAt = now
	v.UpdatedAt = now
	m.vendors[v.ID] = v
	return v, nil
}

func (m *Memory) UpdateVendor(ctx context.Context, v domain.Vendor) (domain.Vendor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.vendors[v.ID]
	if !ok {
		return domain.Vendor{}, fmt.Errorf("vendor %s: %w", v.ID, ErrNotFound)
	}
	v.CreatedAt = existing.CreatedAt
	v.UpdatedAt = time.Now()
	m.vendors[v.ID] = v
	return v, nil
}

func (m *Memory) DeleteVendor(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.vendors[id]; !ok {
		return fmt.Errorf("vendor %s: %w", id, ErrNotFound)
	}
	delete(m.vendors, id)
	return nil
}

// Sources lists all sources sorted by name.
func (m *Memory) Sources(ctx context.Context) ([]domain.Source, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Source, 0, len(m.sources))
	for _, s := range m.sources {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) SourceByID(ctx context.Context, id uuid.UUID) (domain.Source, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sources[id]
	if !ok {
		return domain.Source{}, fmt.Errorf("source %s: %w", id, ErrNotFound)
	}
	return s, nil
}

func (m *Memory) CreateSource(ctx context.Context, s domain.Source) (domain.Source, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.sources {
		if existing.VendorID == s.VendorID && existing.URL == s.URL {
			return domain.Source{}, fmt.Errorf("source %s already exists for vendor", s.URL)
		}
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	now := time.Now()
	s.CreatedAt = now
	s.UpdatedAt = now
	m.sources[s.ID] = s
	return s, nil
}

func (m *Memory) UpdateSource(ctx context.Context, s domain.Source) (domain.Source, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.sources[s.ID]
	if !ok {
		return domain.Source{}, fmt.Errorf("source %s: %w", s.ID, ErrNotFound)
	}
	s.CreatedAt = existing.CreatedAt
	s.LastChecked = existing.LastChecked
	s.UpdatedAt = time.Now()
	m.sources[s.ID] = s
	return s, nil
}

func (m *Memory) MarkSourceChecked(ctx context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sources[id]
	if !ok {
		return fmt.Errorf("source %s: %w", id, ErrNotFound)
	}
	s.LastChecked = at
	m.sources[id] = s
	return nil
}

// Modules lists modules sorted by code.
func (m *Memory) Modules(ctx context.Context) ([]domain.Module, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Module, 0, len(m.modules))
	for _, mod := range m.modules {
		out = append(out, mod)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (m *Memory) CreateModule(ctx context.Context, mod domain.Module) (domain.Module, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.modules {
		if existing.Code == mod.Code {
			return domain.Module{}, fmt.Errorf("module code %q already exists", mod.Code)
		}
	}
	if mod.ID == uuid.Nil {
		mod.ID = uuid.New()
	}
	now := time.Now()
	mod.CreatedAt = now
	mod.UpdatedAt = now
	m.modules[mod.ID] = mod
	return mod, nil
}

// Assets lists assets sorted by lesson code.
func (m *Memory) Assets(ctx context.Context) ([]domain.Asset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Asset, 0, len(m.assets))
	for _, a := range m.assets {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LessonCode < out[j].LessonCode })
	return out, nil
}

// AssetProfiles returns the classifier-facing asset view joined with
// module codes.
func (m *Memory) AssetProfiles(ctx context.Context) ([]domain.AssetProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.AssetProfile, 0, len(m.assets))
	for _, a := range m.assets {
		profile := domain.AssetProfile{
			ID:             a.ID,
			AssetType:      a.AssetType,
			Sensitivity:    a.Sensitivity,
			ToolDependency: a.ToolDependency,
			TriggerTags:    a.TriggerTags,
		}
		if mod, ok := m.modules[a.ModuleID]; ok {
			profile.ModuleCode = mod.Code
		}
		out = append(out, profile)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (m *Memory) CreateAsset(ctx context.Context, a domain.Asset) (domain.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Version == "" {
		a.Version = "v1.0"
	}
	now := time.Now()
	a.CreatedAt = now
	a.UpdatedAt = now
	m.assets[a.ID] = a
	return a, nil
}

// CreateDecisionRule registers an operator override pattern.
func (m *Memory) CreateDecisionRule(ctx context.Context, r domain.DecisionRule) (domain.DecisionRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	r.CreatedAt = time.Now()
	m.rules[r.ID] = r
	return r, nil
}

func (m *Memory) ActiveDecisionRules(ctx context.Context) ([]domain.DecisionRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.DecisionRule, 0, len(m.rules))
	for _, r := range m.rules {
		if r.IsActive {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Pattern < out[j].Pattern })
	return out, nil
}

func (m *Memory) SlaHours(ctx context.Context) (map[domain.Severity]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[domain.Severity]int, len(m.sla))
	for k, v := range m.sla {
		out[k] = v
	}
	return out, nil
}

// CreateChangeEvent persists a detected change. Events are immutable
// after creation.
func (m *Memory) CreateChangeEvent(ctx context.Context, e domain.ChangeEvent) (domain.ChangeEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.CreatedAt = time.Now()
	m.events[e.ID] = e
	return e, nil
}

func (m *Memory) ChangeEventByID(ctx context.Context, id uuid.UUID) (domain.ChangeEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.events[id]
	if !ok {
		return domain.ChangeEvent{}, fmt.Errorf("change event %s: %w", id, ErrNotFound)
	}
	return e, nil
}

// ChangeEvents lists events newest first, optionally limited.
func (m *Memory) ChangeEvents(ctx context.Context, limit int) ([]domain.ChangeEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.ChangeEvent, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PublishedAt.After(out[j].PublishedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) ChangeEventsSince(ctx context.Context, since time.Time) ([]domain.ChangeEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.ChangeEvent, 0)
	for _, e := range m.events {
		if !e.CreatedAt.Before(since) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// FingerprintsBySource recomputes fingerprints from stored raw content
// at dedup time; the hash itself is never a column.
func (m *Memory) FingerprintsBySource(ctx context.Context, sourceID uuid.UUID) (map[string]bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := map[string]bool{}
	for _, e := range m.events {
		if e.SourceID == sourceID {
			out[domain.Fingerprint(e.Raw)] = true
		}
	}
	return out, nil
}

func (m *Memory) CreateImpact(ctx context.Context, i domain.Impact) (domain.Impact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	if i.Status == "" {
		i.Status = domain.ImpactPending
	}
	i.CreatedAt = time.Now()
	m.impacts[i.ID] = i
	return i, nil
}

func (m *Memory) ImpactByID(ctx context.Context, id uuid.UUID) (domain.Impact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i, ok := m.impacts[id]
	if !ok {
		return domain.Impact{}, fmt.Errorf("impact %s: %w", id, ErrNotFound)
	}
	return i, nil
}

func (m *Memory) Impacts(ctx context.Context) ([]domain.Impact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Impact, 0, len(m.impacts))
	for _, i := range m.impacts {
		out = append(out, i)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) PendingImpacts(ctx context.Context) ([]domain.Impact, error) {
	all, _ := m.Impacts(ctx)
	out := make([]domain.Impact, 0, len(all))
	for _, i := range all {
		if i.Status == domain.ImpactPending {
			out = append(out, i)
		}
	}
	return out, nil
}

// SaveImpactDecision stores an approve/reject transition. The status
// check happens in the domain; this is a single-row overwrite.
func (m *Memory) SaveImpactDecision(ctx context.Context, i domain.Impact) (domain.Impact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.impacts[i.ID]; !ok {
		return domain.Impact{}, fmt.Errorf("impact %s: %w", i.ID, ErrNotFound)
	}
	m.impacts[i.ID] = i
	return i, nil
}

func (m *Memory) CreateTask(ctx context.Context, t domain.Task) (domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.Status == "" {
		t.Status = domain.TaskOpen
	}
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now
	m.tasks[t.ID] = t
	return t, nil
}

func (m *Memory) TaskByID(ctx context.Context, id uuid.UUID) (domain.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tasks[id]
	if !ok {
		return domain.Task{}, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return t, nil
}

func (m *Memory) Tasks(ctx context.Context) ([]domain.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) TasksByStatus(ctx context.Context, status domain.TaskStatus) ([]domain.Task, error) {
	all, _ := m.Tasks(ctx)
	out := make([]domain.Task, 0, len(all))
	for _, t := range all {
		if t.Status == status {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *Memory) TasksByOwner(ctx context.Context, owner domain.Owner) ([]domain.Task, error) {
	all, _ := m.Tasks(ctx)
	out := make([]domain.Task, 0, len(all))
	for _, t := range all {
		if t.Owner == owner {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *Memory) TasksByImpact(ctx context.Context, impactID uuid.UUID) ([]domain.Task, error) {
	all, _ := m.Tasks(ctx)
	out := make([]domain.Task, 0, len(all))
	for _, t := range all {
		if t.ImpactID == impactID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *Memory) SaveTask(ctx context.Context, t domain.Task) (domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tasks[t.ID]; !ok {
		return domain.Task{}, fmt.Errorf("task %s: %w", t.ID, ErrNotFound)
	}
	t.UpdatedAt = time.Now()
	m.tasks[t.ID] = t
	return t, nil
}

// Stats aggregates the dashboard headline counts.
func (m *Memory) Stats(ctx context.Context, now time.Time) (ports.DashboardStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := ports.DashboardStats{TotalVendors: len(m.vendors)}
	for _, s := range m.sources {
		if s.IsActive {
			stats.ActiveSources++
		}
	}
	weekAgo := now.Add(-7 * 24 * time.Hour)
	for _, e := range m.events {
		if !e.CreatedAt.Before(weekAgo) {
			stats.RecentEvents++
		}
	}
	for _, i := range m.impacts {
		if i.Status == domain.ImpactPending {
			stats.PendingImpacts++
		}
	}
	for _, t := range m.tasks {
		if t.Status == domain.TaskOpen {
			stats.OpenTasks++
		}
	}
	return stats, nil
}
