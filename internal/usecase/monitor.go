package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"UpdateSentinel/internal/domain"
	"UpdateSentinel/internal/ports"
	"UpdateSentinel/internal/queue"
)

// ErrSweepInProgress is returned when a sweep is requested while an
// earlier one still runs. Overlapping sweeps would double-detect.
var ErrSweepInProgress = errors.New("sweep already in progress")

// errRobotsDisallowed marks a policy skip. It never reaches callers;
// run() distinguishes it from real source failures.
var errRobotsDisallowed = errors.New("disallowed by robots.txt")

// SweepReport summarizes one monitoring pass.
type SweepReport struct {
	SourcesProcessed   int `json:"processedSources"`
	ChangesFound       int `json:"foundChanges"`
	TotalActiveSources int `json:"totalActiveSources"`
}

// MonitorDeps wires the driven adapters into the sweep orchestrator.
type MonitorDeps struct {
	Store      ports.Store
	Fetcher    ports.SourceFetcher
	Summarizer ports.Summarizer
	Queues     *queue.Set
	Logger     *slog.Logger

	// FetchTimeout bounds the work spent on a single source.
	FetchTimeout time.Duration
	// ManualProbe makes on-demand runs fetch and count without
	// summarizing or persisting.
	ManualProbe bool
}

// Monitor implements the change-detection sweep over all pollable
// sources.
type Monitor struct {
	store      ports.Store
	fetcher    ports.SourceFetcher
	summarizer ports.Summarizer
	queues     *queue.Set
	logger     *slog.Logger

	fetchTimeout time.Duration
	manualProbe  bool

	running sync.Mutex
}

// NewMonitor constructs the sweep orchestrator.
func NewMonitor(deps MonitorDeps) *Monitor {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := deps.FetchTimeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Monitor{
		store:        deps.Store,
		fetcher:      deps.Fetcher,
		summarizer:   deps.Summarizer,
		queues:       deps.Queues,
		logger:       logger.With("component", "monitor"),
		fetchTimeout: timeout,
		manualProbe:  deps.ManualProbe,
	}
}

// Sweep visits every pollable source once: fetch, dedup, summarize,
// persist, and enqueue classification. A failing source is logged and
// skipped; the sweep continues with the rest.
func (m *Monitor) Sweep(ctx context.Context, now time.Time) (SweepReport, error) {
	if !m.running.TryLock() {
		return SweepReport{}, ErrSweepInProgress
	}
	defer m.running.Unlock()

	return m.run(ctx, now, false)
}

// ManualRun is the on-demand trigger. In probe mode it fetches and
// counts new items without writing anything; in full mode it behaves
// exactly like a scheduled sweep.
func (m *Monitor) ManualRun(ctx context.Context, now time.Time) (SweepReport, error) {
	if !m.running.TryLock() {
		return SweepReport{}, ErrSweepInProgress
	}
	defer m.running.Unlock()

	return m.run(ctx, now, m.manualProbe)
}

func (m *Monitor) run(ctx context.Context, now time.Time, probe bool) (SweepReport, error) {
	sources, err := m.store.Sources(ctx)
	if err != nil {
		return SweepReport{}, fmt.Errorf("load sources: %w", err)
	}

	var report SweepReport
	for _, source := range sources {
		if !source.Pollable() {
			continue
		}
		report.TotalActiveSources++

		found, err := m.sweepSource(ctx, source, now, probe)
		if errors.Is(err, errRobotsDisallowed) {
			m.logger.Info("source skipped by robots.txt",
				"source", source.Name,
				"url", source.URL)
			continue
		}
		if err != nil {
			m.logger.Error("source sweep failed",
				"source", source.Name,
				"url", source.URL,
				"error", err)
			continue
		}

		report.SourcesProcessed++
		report.ChangesFound += found
	}

	m.logger.Info("sweep finished",
		"processed", report.SourcesProcessed,
		"found", report.ChangesFound,
		"probe", probe)
	return report, nil
}

func (m *Monitor) sweepSource(ctx context.Context, source domain.Source, now time.Time, probe bool) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, m.fetchTimeout)
	defer cancel()

	if !m.fetcher.RobotsAllowed(ctx, source.URL) {
		return 0, errRobotsDisallowed
	}

	candidates, err := m.fetcher.Fetch(ctx, source)
	if err != nil {
		return 0, fmt.Errorf("fetch: %w", err)
	}

	seen, err := m.store.FingerprintsBySource(ctx, source.ID)
	if err != nil {
		return 0, fmt.Errorf("load fingerprints: %w", err)
	}

	found := 0
	for _, candidate := range candidates {
		if seen[candidate.Fingerprint] {
			continue
		}
		seen[candidate.Fingerprint] = true
		found++

		if probe {
			continue
		}
		if err := m.ingest(ctx, source, candidate); err != nil {
			m.logger.Error("ingest failed",
				"source", source.Name,
				"title", candidate.Title,
				"error", err)
		}
	}

	if !probe {
		if err := m.store.MarkSourceChecked(ctx, source.ID, now); err != nil {
			m.logger.Error("mark source checked failed", "source", source.Name, "error", err)
		}
	}
	return found, nil
}

// ingest summarizes one new candidate, persists the change event, and
// hands it to the classification queue. Enqueue happens only after the
// event is durably stored, so a lost job can be replayed from the API.
func (m *Monitor) ingest(ctx context.Context, source domain.Source, candidate domain.Candidate) error {
	summary, err := m.summarizer.Summarize(ctx, candidate.Raw, source.Name)
	if err != nil {
		return fmt.Errorf("summarize: %w", err)
	}

	event, err := m.store.CreateChangeEvent(ctx, domain.ChangeEvent{
		VendorID:    source.VendorID,
		SourceID:    source.ID,
		Title:       candidate.Title,
		URL:         candidate.URL,
		PublishedAt: candidate.PublishedAt,
		Raw:         candidate.Raw,
		Summary:     summary.Summary,
		ChangeType:  summary.ChangeType,
		Entities:    summary.Entities,
		Risks:       summary.Risks,
		SummaryAr:   summary.SummaryAr,
	})
	if err != nil {
		return fmt.Errorf("persist change event: %w", err)
	}

	if err := m.queues.Classify.Enqueue(queue.ClassifyJob{ChangeEventID: event.ID}); err != nil {
		m.logger.Error("enqueue classify failed", "event", event.ID, "error", err)
	}

	m.logger.Info("change detected",
		"source", source.Name,
		"title", event.Title,
		"changeType", string(event.ChangeType))
	return nil
}

// Reclassify re-injects an already persisted change event into the
// classification queue. Used by the webhook endpoint.
func (m *Monitor) Reclassify(ctx context.Context, event domain.ChangeEvent) error {
	if _, err := m.store.ChangeEventByID(ctx, event.ID); err != nil {
		return fmt.Errorf("lookup change event: %w", err)
	}
	return m.queues.Classify.Enqueue(queue.ClassifyJob{ChangeEventID: event.ID})
}
