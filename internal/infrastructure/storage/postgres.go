package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"UpdateSentinel/internal/domain"
	"UpdateSentinel/internal/ports"
)

// Postgres persists the full catalog, event, impact, and task state.
type Postgres struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

var _ ports.Store = (*Postgres)(nil)

// NewPostgres wires a sql.DB implementation.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// EnsureSchema creates missing tables. Idempotent, runs at startup.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS vendors (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			description TEXT NOT NULL DEFAULT '',
			website TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS sources (
			id UUID PRIMARY KEY,
			vendor_id UUID NOT NULL REFERENCES vendors(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			url TEXT NOT NULL,
			type TEXT NOT NULL,
			css_selector TEXT NOT NULL DEFAULT '',
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			bridge_toggle BOOLEAN NOT NULL DEFAULT TRUE,
			last_checked TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (vendor_id, url)
		)`,
		`CREATE TABLE IF NOT EXISTS modules (
			id UUID PRIMARY KEY,
			code TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL,
			hours INTEGER NOT NULL DEFAULT 0,
			notes TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS assets (
			id UUID PRIMARY KEY,
			module_id UUID NOT NULL REFERENCES modules(id) ON DELETE CASCADE,
			lesson_code TEXT NOT NULL,
			asset_type TEXT NOT NULL,
			sensitivity TEXT NOT NULL,
			tool_dependency TEXT NOT NULL DEFAULT '',
			trigger_tags TEXT[] NOT NULL DEFAULT '{}',
			link TEXT NOT NULL DEFAULT '',
			version TEXT NOT NULL DEFAULT 'v1.0',
			last_reviewed TIMESTAMPTZ,
			next_due TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS decision_rules (
			id UUID PRIMARY KEY,
			pattern TEXT NOT NULL,
			action TEXT NOT NULL,
			severity TEXT NOT NULL,
			modules TEXT[] NOT NULL DEFAULT '{}',
			notes TEXT NOT NULL DEFAULT '',
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS sla_configs (
			id UUID PRIMARY KEY,
			severity TEXT NOT NULL UNIQUE,
			patch_within_hours INTEGER NOT NULL,
			comms TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS change_events (
			id UUID PRIMARY KEY,
			vendor_id UUID NOT NULL REFERENCES vendors(id) ON DELETE CASCADE,
			source_id UUID NOT NULL REFERENCES sources(id) ON DELETE CASCADE,
			title TEXT NOT NULL,
			url TEXT NOT NULL DEFAULT '',
			published_at TIMESTAMPTZ NOT NULL,
			raw TEXT NOT NULL,
			summary TEXT NOT NULL DEFAULT '',
			change_type TEXT NOT NULL DEFAULT '',
			entities TEXT[] NOT NULL DEFAULT '{}',
			risks TEXT[] NOT NULL DEFAULT '{}',
			summary_ar TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS impacts (
			id UUID PRIMARY KEY,
			change_event_id UUID NOT NULL REFERENCES change_events(id) ON DELETE CASCADE,
			asset_id UUID NOT NULL REFERENCES assets(id) ON DELETE CASCADE,
			action TEXT NOT NULL,
			severity TEXT NOT NULL,
			confidence DOUBLE PRECISION NOT NULL,
			reasons TEXT[] NOT NULL DEFAULT '{}',
			status TEXT NOT NULL DEFAULT 'PENDING',
			decided_by TEXT NOT NULL DEFAULT '',
			decided_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id UUID PRIMARY KEY,
			impact_id UUID NOT NULL REFERENCES impacts(id) ON DELETE CASCADE,
			action TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			owner TEXT NOT NULL,
			due_date TIMESTAMPTZ NOT NULL,
			status TEXT NOT NULL DEFAULT 'OPEN',
			progress INTEGER NOT NULL DEFAULT 0,
			evidence_url TEXT NOT NULL DEFAULT '',
			block_reason TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`INSERT INTO sla_configs (id, severity, patch_within_hours, comms)
			VALUES
				(gen_random_uuid(), 'SEV1', 8, 'notify stakeholders immediately'),
				(gen_random_uuid(), 'SEV2', 48, 'mention in weekly digest'),
				(gen_random_uuid(), 'SEV3', 168, 'batch with next review cycle')
			ON CONFLICT (severity) DO NOTHING`,
	}

	for _, stmt := range statements {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

const vendorColumns = "id, name, description, website, created_at, updated_at"

func scanVendor(row sq.RowScanner) (domain.Vendor, error) {
	var v domain.Vendor
	err := row.Scan(&v.ID, &v.Name, &v.Description, &v.Website, &v.CreatedAt, &v.UpdatedAt)
	return v, err
}

func (p *Postgres) Vendors(ctx context.Context) ([]domain.Vendor, error) {
	rows, err := p.sb.Select(vendorColumns).From("vendors").OrderBy("name").
		RunWith(p.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query vendors: %w", err)
	}
	defer rows.Close()

	var out []domain.Vendor
	for rows.Next() {
		v, err := scanVendor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan vendor: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (p *Postgres) VendorByID(ctx context.Context, id uuid.UUID) (domain.Vendor, error) {
	row := p.sb.Select(vendorColumns).From("vendors").Where(sq.Eq{"id": id}).
		RunWith(p.db).QueryRowContext(ctx)
	v, err := scanVendor(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Vendor{}, fmt.Errorf("vendor %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return domain.Vendor{}, fmt.Errorf("query vendor: %w", err)
	}
	return v, nil
}

func (p *Postgres) CreateVendor(ctx context.Context, v domain.Vendor) (domain.Vendor, error) {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	now := time.Now()
	v.CreatedAt = now
	v.UpdatedAt = now

	_, err := p.sb.Insert("vendors").
		Columns("id", "name", "description", "website", "created_at", "updated_at").
		Values(v.ID, v.Name, v.Description, v.Website, v.CreatedAt, v.UpdatedAt).
		RunWith(p.db).ExecContext(ctx)
	if err != nil {
		return domain.Vendor{}, fmt.Errorf("insert vendor: %w", err)
	}
	return v, nil
}

func (p *Postgres) UpdateVendor(ctx context.Context, v domain.Vendor) (domain.Vendor, error) {
	v.UpdatedAt = time.Now()
	res, err := p.sb.Update("vendors").
		Set("name", v.Name).
		Set("description", v.Description).
		Set("website", v.Website).
		Set("updated_at", v.UpdatedAt).
		Where(sq.Eq{"id": v.ID}).
		RunWith(p.db).ExecContext(ctx)
	if err != nil {
		return domain.Vendor{}, fmt.Errorf("update vendor: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return domain.Vendor{}, fmt.Errorf("vendor %s: %w", v.ID, ErrNotFound)
	}
	return p.VendorByID(ctx, v.ID)
}

func (p *Postgres) DeleteVendor(ctx context.Context, id uuid.UUID) error {
	res, err := p.sb.Delete("vendors").Where(sq.Eq{"id": id}).
		RunWith(p.db).ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("delete vendor: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("vendor %s: %w", id, ErrNotFound)
	}
	return nil
}

const sourceColumns = "id, vendor_id, name, url, type, css_selector, is_active, bridge_toggle, last_checked, created_at, updated_at"

func scanSource(row sq.RowScanner) (domain.Source, error) {
	var s domain.Source
	var lastChecked sql.NullTime
	err := row.Scan(&s.ID, &s.VendorID, &s.Name, &s.URL, &s.Type, &s.CSSSelector,
		&s.IsActive, &s.BridgeToggle, &lastChecked, &s.CreatedAt, &s.UpdatedAt)
	if lastChecked.Valid {
		s.LastChecked = lastChecked.Time
	}
	return s, err
}

func (p *Postgres) Sources(ctx context.Context) ([]domain.Source, error) {
	rows, err := p.sb.Select(sourceColumns).From("sources").OrderBy("name").
		RunWith(p.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	defer rows.Close()

	var out []domain.Source
	for rows.Next() {
		s, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *Postgres) SourceByID(ctx context.Context, id uuid.UUID) (domain.Source, error) {
	row := p.sb.Select(sourceColumns).From("sources").Where(sq.Eq{"id": id}).
		RunWith(p.db).QueryRowContext(ctx)
	s, err := scanSource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Source{}, fmt.Errorf("source %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return domain.Source{}, fmt.Errorf("query source: %w", err)
	}
	return s, nil
}

func (p *Postgres) CreateSource(ctx context.Context, s domain.Source) (domain.Source, error) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	now := time.Now()
	s.CreatedAt = now
	s.UpdatedAt = now

	_, err := p.sb.Insert("sources").
		Columns("id", "vendor_id", "name", "url", "type", "css_selector", "is_active", "bridge_toggle", "created_at", "updated_at").
		Values(s.ID, s.VendorID, s.Name, s.URL, s.Type, s.CSSSelector, s.IsActive, s.BridgeToggle, s.CreatedAt, s.UpdatedAt).
		RunWith(p.db).ExecContext(ctx)
	if err != nil {
		return domain.Source{}, fmt.Errorf("insert source: %w", err)
	}
	return s, nil
}

func (p *Postgres) UpdateSource(ctx context.Context, s domain.Source) (domain.Source, error) {
	s.UpdatedAt = time.Now()
	res, err := p.sb.Update("sources").
		Set("name", s.Name).
		Set("url", s.URL).
		Set("type", s.Type).
		Set("css_selector", s.CSSSelector).
		Set("is_active", s.IsActive).
		Set("bridge_toggle", s.BridgeToggle).
		Set("updated_at", s.UpdatedAt).
		Where(sq.Eq{"id": s.ID}).
		RunWith(p.db).ExecContext(ctx)
	if err != nil {
		return domain.Source{}, fmt.Errorf("update source: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return domain.Source{}, fmt.Errorf("source %s: %w", s.ID, ErrNotFound)
	}
	return p.SourceByID(ctx, s.ID)
}

func (p *Postgres) MarkSourceChecked(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := p.sb.Update("sources").
		Set("last_checked", at).
		Where(sq.Eq{"id": id}).
		RunWith(p.db).ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("mark source checked: %w", err)
	}
	return nil
}

func (p *Postgres) Modules(ctx context.Context) ([]domain.Module, error) {
	rows, err := p.sb.Select("id, code, title, hours, notes, created_at, updated_at").
		From("modules").OrderBy("code").
		RunWith(p.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query modules: %w", err)
	}
	defer rows.Close()

	var out []domain.Module
	for rows.Next() {
		var m domain.Module
		if err := rows.Scan(&m.ID, &m.Code, &m.Title, &m.Hours, &m.Notes, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan module: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (p *Postgres) CreateModule(ctx context.Context, m domain.Module) (domain.Module, error) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	now := time.Now()
	m.CreatedAt = now
	m.UpdatedAt = now

	_, err := p.sb.Insert("modules").
		Columns("id", "code", "title", "hours", "notes", "created_at", "updated_at").
		Values(m.ID, m.Code, m.Title, m.Hours, m.Notes, m.CreatedAt, m.UpdatedAt).
		RunWith(p.db).ExecContext(ctx)
	if err != nil {
		return domain.Module{}, fmt.Errorf("insert module: %w", err)
	}
	return m, nil
}

func (p *Postgres) Assets(ctx context.Context) ([]domain.Asset, error) {
	rows, err := p.sb.Select("id, module_id, lesson_code, asset_type, sensitivity, tool_dependency, trigger_tags, link, version, last_reviewed, next_due, created_at, updated_at").
		From("assets").OrderBy("lesson_code").
		RunWith(p.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query assets: %w", err)
	}
	defer rows.Close()

	var out []domain.Asset
	for rows.Next() {
		var a domain.Asset
		var tags pq.StringArray
		var lastReviewed, nextDue sql.NullTime
		if err := rows.Scan(&a.ID, &a.ModuleID, &a.LessonCode, &a.AssetType, &a.Sensitivity,
			&a.ToolDependency, &tags, &a.Link, &a.Version, &lastReviewed, &nextDue,
			&a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		a.TriggerTags = tags
		if lastReviewed.Valid {
			a.LastReviewed = lastReviewed.Time
		}
		if nextDue.Valid {
			a.NextDue = nextDue.Time
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// AssetProfiles joins assets with their module codes for the classifier.
func (p *Postgres) AssetProfiles(ctx context.Context) ([]domain.AssetProfile, error) {
	rows, err := p.sb.Select("a.id, m.code, a.asset_type, a.sensitivity, a.tool_dependency, a.trigger_tags").
		From("assets a").
		Join("modules m ON m.id = a.module_id").
		OrderBy("a.id").
		RunWith(p.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query asset profiles: %w", err)
	}
	defer rows.Close()

	var out []domain.AssetProfile
	for rows.Next() {
		var profile domain.AssetProfile
		var tags pq.StringArray
		if err := rows.Scan(&profile.ID, &profile.ModuleCode, &profile.AssetType,
			&profile.Sensitivity, &profile.ToolDependency, &tags); err != nil {
			return nil, fmt.Errorf("scan asset profile: %w", err)
		}
		profile.TriggerTags = tags
		out = append(out, profile)
	}
	return out, rows.Err()
}

func (p *Postgres) CreateAsset(ctx context.Context, a domain.Asset) (domain.Asset, error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Version == "" {
		a.Version = "v1.0"
	}
	now := time.Now()
	a.CreatedAt = now
	a.UpdatedAt = now

	_, err := p.sb.Insert("assets").
		Columns("id", "module_id", "lesson_code", "asset_type", "sensitivity", "tool_dependency", "trigger_tags", "link", "version", "created_at", "updated_at").
		Values(a.ID, a.ModuleID, a.LessonCode, a.AssetType, a.Sensitivity, a.ToolDependency,
			pq.StringArray(a.TriggerTags), a.Link, a.Version, a.CreatedAt, a.UpdatedAt).
		RunWith(p.db).ExecContext(ctx)
	if err != nil {
		return domain.Asset{}, fmt.Errorf("insert asset: %w", err)
	}
	return a, nil
}

func (p *Postgres) ActiveDecisionRules(ctx context.Context) ([]domain.DecisionRule, error) {
	rows, err := p.sb.Select("id, pattern, action, severity, modules, notes, is_active, created_at").
		From("decision_rules").
		Where(sq.Eq{"is_active": true}).
		OrderBy("pattern").
		RunWith(p.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query decision rules: %w", err)
	}
	defer rows.Close()

	var out []domain.DecisionRule
	for rows.Next() {
		var r domain.DecisionRule
		var modules pq.StringArray
		if err := rows.Scan(&r.ID, &r.Pattern, &r.Action, &r.Severity, &modules,
			&r.Notes, &r.IsActive, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan decision rule: %w", err)
		}
		r.Modules = modules
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *Postgres) CreateDecisionRule(ctx context.Context, r domain.DecisionRule) (domain.DecisionRule, error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	r.CreatedAt = time.Now()

	_, err := p.sb.Insert("decision_rules").
		Columns("id", "pattern", "action", "severity", "modules", "notes", "is_active", "created_at").
		Values(r.ID, r.Pattern, r.Action, r.Severity, pq.StringArray(r.Modules), r.Notes, r.IsActive, r.CreatedAt).
		RunWith(p.db).ExecContext(ctx)
	if err != nil {
		return domain.DecisionRule{}, fmt.Errorf("insert decision rule: %w", err)
	}
	return r, nil
}

func (p *Postgres) SlaHours(ctx context.Context) (map[domain.Severity]int, error) {
	rows, err := p.sb.Select("severity, patch_within_hours").From("sla_configs").
		RunWith(p.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query sla configs: %w", err)
	}
	defer rows.Close()

	out := map[domain.Severity]int{}
	for rows.Next() {
		var severity domain.Severity
		var hours int
		if err := rows.Scan(&severity, &hours); err != nil {
			return nil, fmt.Errorf("scan sla config: %w", err)
		}
		out[severity] = hours
	}
	return out, rows.Err()
}

const eventColumns = "id, vendor_id, source_id, title, url, published_at, raw, summary, change_type, entities, risks, summary_ar, created_at"

func scanChangeEvent(row sq.RowScanner) (domain.ChangeEvent, error) {
	var e domain.ChangeEvent
	var entities, risks pq.StringArray
	err := row.Scan(&e.ID, &e.VendorID, &e.SourceID, &e.Title, &e.URL, &e.PublishedAt,
		&e.Raw, &e.Summary, &e.ChangeType, &entities, &risks, &e.SummaryAr, &e.CreatedAt)
	e.Entities = entities
	e.Risks = risks
	return e, err
}

func (p *Postgres) CreateChangeEvent(ctx context.Context, e domain.ChangeEvent) (domain.ChangeEvent, error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.CreatedAt = time.Now()

	_, err := p.sb.Insert("change_events").
		Columns("id", "vendor_id", "source_id", "title", "url", "published_at", "raw",
			"summary", "change_type", "entities", "risks", "summary_ar", "created_at").
		Values(e.ID, e.VendorID, e.SourceID, e.Title, e.URL, e.PublishedAt, e.Raw,
			e.Summary, e.ChangeType, pq.StringArray(e.Entities), pq.StringArray(e.Risks),
			e.SummaryAr, e.CreatedAt).
		RunWith(p.db).ExecContext(ctx)
	if err != nil {
		return domain.ChangeEvent{}, fmt.Errorf("insert change event: %w", err)
	}
	return e, nil
}

func (p *Postgres) ChangeEventByID(ctx context.Context, id uuid.UUID) (domain.ChangeEvent, error) {
	row := p.sb.Select(eventColumns).From("change_events").Where(sq.Eq{"id": id}).
		RunWith(p.db).QueryRowContext(ctx)
	e, err := scanChangeEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ChangeEvent{}, fmt.Errorf("change event %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return domain.ChangeEvent{}, fmt.Errorf("query change event: %w", err)
	}
	return e, nil
}

func (p *Postgres) ChangeEvents(ctx context.Context, limit int) ([]domain.ChangeEvent, error) {
	query := p.sb.Select(eventColumns).From("change_events").OrderBy("published_at DESC")
	if limit > 0 {
		query = query.Limit(uint64(limit))
	}
	rows, err := query.RunWith(p.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query change events: %w", err)
	}
	defer rows.Close()
	return collectChangeEvents(rows)
}

func (p *Postgres) ChangeEventsSince(ctx context.Context, since time.Time) ([]domain.ChangeEvent, error) {
	rows, err := p.sb.Select(eventColumns).From("change_events").
		Where(sq.GtOrEq{"created_at": since}).
		OrderBy("created_at").
		RunWith(p.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query change events since: %w", err)
	}
	defer rows.Close()
	return collectChangeEvents(rows)
}

func collectChangeEvents(rows *sql.Rows) ([]domain.ChangeEvent, error) {
	var out []domain.ChangeEvent
	for rows.Next() {
		e, err := scanChangeEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan change event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// FingerprintsBySource recomputes fingerprints from stored raw content;
// the hash is derived state and is never a column.
func (p *Postgres) FingerprintsBySource(ctx context.Context, sourceID uuid.UUID) (map[string]bool, error) {
	rows, err := p.sb.Select("raw").From("change_events").
		Where(sq.Eq{"source_id": sourceID}).
		RunWith(p.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query fingerprints: %w", err)
	}
	defer rows.Close()

	out := map[string]bool{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan raw: %w", err)
		}
		out[domain.Fingerprint(raw)] = true
	}
	return out, rows.Err()
}

const impactColumns = "id, change_event_id, asset_id, action, severity, confidence, reasons, status, decided_by, decided_at, created_at"

func scanImpact(row sq.RowScanner) (domain.Impact, error) {
	var i domain.Impact
	var reasons pq.StringArray
	var decidedAt sql.NullTime
	err := row.Scan(&i.ID, &i.ChangeEventID, &i.AssetID, &i.Action, &i.Severity,
		&i.Confidence, &reasons, &i.Status, &i.DecidedBy, &decidedAt, &i.CreatedAt)
	i.Reasons = reasons
	if decidedAt.Valid {
		i.DecidedAt = decidedAt.Time
	}
	return i, err
}

func (p *Postgres) CreateImpact(ctx context.Context, i domain.Impact) (domain.Impact, error) {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	if i.Status == "" {
		i.Status = domain.ImpactPending
	}
	i.CreatedAt = time.Now()

	_, err := p.sb.Insert("impacts").
		Columns("id", "change_event_id", "asset_id", "action", "severity", "confidence", "reasons", "status", "decided_by", "created_at").
		Values(i.ID, i.ChangeEventID, i.AssetID, i.Action, i.Severity, i.Confidence,
			pq.StringArray(i.Reasons), i.Status, i.DecidedBy, i.CreatedAt).
		RunWith(p.db).ExecContext(ctx)
	if err != nil {
		return domain.Impact{}, fmt.Errorf("insert impact: %w", err)
	}
	return i, nil
}

func (p *Postgres) ImpactByID(ctx context.Context, id uuid.UUID) (domain.Impact, error) {
	row := p.sb.Select(impactColumns).From("impacts").Where(sq.Eq{"id": id}).
		RunWith(p.db).QueryRowContext(ctx)
	i, err := scanImpact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Impact{}, fmt.Errorf("impact %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return domain.Impact{}, fmt.Errorf("query impact: %w", err)
	}
	return i, nil
}

func (p *Postgres) Impacts(ctx context.Context) ([]domain.Impact, error) {
	return p.impactsWhere(ctx, nil)
}

func (p *Postgres) PendingImpacts(ctx context.Context) ([]domain.Impact, error) {
	return p.impactsWhere(ctx, sq.Eq{"status": domain.ImpactPending})
}

func (p *Postgres) impactsWhere(ctx context.Context, cond any) ([]domain.Impact, error) {
	query := p.sb.Select(impactColumns).From("impacts").OrderBy("created_at DESC")
	if cond != nil {
		query = query.Where(cond)
	}
	rows, err := query.RunWith(p.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query impacts: %w", err)
	}
	defer rows.Close()

	var out []domain.Impact
	for rows.Next() {
		i, err := scanImpact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan impact: %w", err)
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

func (p *Postgres) SaveImpactDecision(ctx context.Context, i domain.Impact) (domain.Impact, error) {
	res, err := p.sb.Update("impacts").
		Set("status", i.Status).
		Set("decided_by", i.DecidedBy).
		Set("decided_at", i.DecidedAt).
		Where(sq.Eq{"id": i.ID}).
		RunWith(p.db).ExecContext(ctx)
	if err != nil {
		return domain.Impact{}, fmt.Errorf("save impact decision: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return domain.Impact{}, fmt.Errorf("impact %s: %w", i.ID, ErrNotFound)
	}
	return i, nil
}

const taskColumns = "id, impact_id, action, title, description, owner, due_date, status, progress, evidence_url, block_reason, created_at, updated_at"

func scanTask(row sq.RowScanner) (domain.Task, error) {
	var t domain.Task
	err := row.Scan(&t.ID, &t.ImpactID, &t.Action, &t.Title, &t.Description, &t.Owner,
		&t.DueDate, &t.Status, &t.Progress, &t.EvidenceURL, &t.BlockReason,
		&t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func (p *Postgres) CreateTask(ctx context.Context, t domain.Task) (domain.Task, error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.Status == "" {
		t.Status = domain.TaskOpen
	}
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now

	_, err := p.sb.Insert("tasks").
		Columns("id", "impact_id", "action", "title", "description", "owner", "due_date", "status", "progress", "evidence_url", "block_reason", "created_at", "updated_at").
		Values(t.ID, t.ImpactID, t.Action, t.Title, t.Description, t.Owner, t.DueDate,
			t.Status, t.Progress, t.EvidenceURL, t.BlockReason, t.CreatedAt, t.UpdatedAt).
		RunWith(p.db).ExecContext(ctx)
	if err != nil {
		return domain.Task{}, fmt.Errorf("insert task: %w", err)
	}
	return t, nil
}

func (p *Postgres) TaskByID(ctx context.Context, id uuid.UUID) (domain.Task, error) {
	row := p.sb.Select(taskColumns).From("tasks").Where(sq.Eq{"id": id}).
		RunWith(p.db).QueryRowContext(ctx)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Task{}, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return domain.Task{}, fmt.Errorf("query task: %w", err)
	}
	return t, nil
}

func (p *Postgres) Tasks(ctx context.Context) ([]domain.Task, error) {
	return p.tasksWhere(ctx, nil)
}

func (p *Postgres) TasksByStatus(ctx context.Context, status domain.TaskStatus) ([]domain.Task, error) {
	return p.tasksWhere(ctx, sq.Eq{"status": status})
}

func (p *Postgres) TasksByOwner(ctx context.Context, owner domain.Owner) ([]domain.Task, error) {
	return p.tasksWhere(ctx, sq.Eq{"owner": owner})
}

func (p *Postgres) TasksByImpact(ctx context.Context, impactID uuid.UUID) ([]domain.Task, error) {
	return p.tasksWhere(ctx, sq.Eq{"impact_id": impactID})
}

func (p *Postgres) tasksWhere(ctx context.Context, cond any) ([]domain.Task, error) {
	query := p.sb.Select(taskColumns).From("tasks").OrderBy("created_at DESC")
	if cond != nil {
		query = query.Where(cond)
	}
	rows, err := query.RunWith(p.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var out []domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (p *Postgres) SaveTask(ctx context.Context, t domain.Task) (domain.Task, error) {
	t.UpdatedAt = time.Now()
	res, err := p.sb.Update("tasks").
		Set("status", t.Status).
		Set("progress", t.Progress).
		Set("evidence_url", t.EvidenceURL).
		Set("block_reason", t.BlockReason).
		Set("updated_at", t.UpdatedAt).
		Where(sq.Eq{"id": t.ID}).
		RunWith(p.db).ExecContext(ctx)
	if err != nil {
		return domain.Task{}, fmt.Errorf("save task: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return domain.Task{}, fmt.Errorf("task %s: %w", t.ID, ErrNotFound)
	}
	return t, nil
}

// Stats aggregates the dashboard headline counts in one round trip.
func (p *Postgres) Stats(ctx context.Context, now time.Time) (ports.DashboardStats, error) {
	weekAgo := now.Add(-7 * 24 * time.Hour)

	query := `SELECT
		(SELECT COUNT(*) FROM vendors),
		(SELECT COUNT(*) FROM sources WHERE is_active),
		(SELECT COUNT(*) FROM change_events WHERE created_at >= $1),
		(SELECT COUNT(*) FROM impacts WHERE status = 'PENDING'),
		(SELECT COUNT(*) FROM tasks WHERE status = 'OPEN')`

	var stats ports.DashboardStats
	err := p.db.QueryRowContext(ctx, query, weekAgo).Scan(
		&stats.TotalVendors,
		&stats.ActiveSources,
		&stats.RecentEvents,
		&stats.PendingImpacts,
		&stats.OpenTasks,
	)
	if err != nil {
		return ports.DashboardStats{}, fmt.Errorf("query stats: %w", err)
	}
	return stats, nil
}
