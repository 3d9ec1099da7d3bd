package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"UpdateSentinel/internal/ports"
)

// Schedule wires the cron-like drivers with the sweep and digest jobs.
type Schedule struct {
	daily   ports.Scheduler
	weekly  ports.Scheduler
	monitor *Monitor
	alerter *Alerter
	logger  *slog.Logger
}

// NewSchedule returns a helper to start/stop the recurring jobs.
func NewSchedule(daily, weekly ports.Scheduler, monitor *Monitor, alerter *Alerter, logger *slog.Logger) *Schedule {
	if logger == nil {
		logger = slog.Default()
	}
	return &Schedule{
		daily:   daily,
		weekly:  weekly,
		monitor: monitor,
		alerter: alerter,
		logger:  logger.With("component", "schedule"),
	}
}

// Start registers the daily sweep and the weekly digest.
func (s *Schedule) Start(ctx context.Context) error {
	if s.daily != nil && s.monitor != nil {
		job := func(trigger time.Time) {
			if _, err := s.monitor.Sweep(ctx, trigger); err != nil && !errors.Is(err, ErrSweepInProgress) {
				s.logger.Error("scheduled sweep failed", "error", err)
			}
		}
		if err := s.daily.Start(ctx, job); err != nil {
			return err
		}
	}

	if s.weekly != nil && s.alerter != nil {
		job := func(trigger time.Time) {
			if err := s.alerter.WeeklyDigest(ctx, trigger); err != nil {
				s.logger.Error("weekly digest failed", "error", err)
			}
		}
		if err := s.weekly.Start(ctx, job); err != nil {
			return err
		}
	}
	return nil
}

// Stop gracefully tears down both drivers.
func (s *Schedule) Stop(ctx context.Context) error {
	var firstErr error
	for _, driver := range []ports.Scheduler{s.daily, s.weekly} {
		if driver == nil {
			continue
		}
		if err := driver.Stop(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
