package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"UpdateSentinel/internal/ports"
)

// WallClock fires a job at a fixed wall-clock time in the business
// timezone: every day, or once a week on a given weekday.
type WallClock struct {
	hour     int
	minute   int
	weekday  *time.Weekday
	location *time.Location
	stop     chan struct{}
}

var _ ports.Scheduler = (*WallClock)(nil)

// NewDaily builds a scheduler firing every day at "HH:MM".
func NewDaily(at string, location *time.Location) (*WallClock, error) {
	hour, minute, err := parseClock(at)
	if err != nil {
		return nil, err
	}
	if location == nil {
		location = time.UTC
	}
	return &WallClock{hour: hour, minute: minute, location: location}, nil
}

// NewWeekly builds a scheduler firing once a week at "HH:MM" on the
// given weekday.
func NewWeekly(weekday time.Weekday, at string, location *time.Location) (*WallClock, error) {
	wc, err := NewDaily(at, location)
	if err != nil {
		return nil, err
	}
	wc.weekday = &weekday
	return wc, nil
}

// Start launches the trigger goroutine. Calling Start twice is a no-op.
func (w *WallClock) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}
	if w.stop != nil {
		return nil
	}

	w.stop = make(chan struct{})
	stop := w.stop
	go func() {
		for {
			wait := time.Until(w.next(time.Now().In(w.location)))
			timer := time.NewTimer(wait)
			select {
			case t := <-timer.C:
				job(t.In(w.location))
			case <-ctx.Done():
				timer.Stop()
				return
			case <-stop:
				timer.Stop()
				return
			}
		}
	}()
	return nil
}

// Stop halts the trigger goroutine.
func (w *WallClock) Stop(ctx context.Context) error {
	if w.stop == nil {
		return nil
	}
	close(w.stop)
	w.stop = nil
	return nil
}

// next computes the first fire time strictly after now. Day stepping
// uses AddDate so DST transitions keep the wall-clock time.
func (w *WallClock) next(now time.Time) time.Time {
	candidate := time.Date(now.Year(), now.Month(), now.Day(), w.hour, w.minute, 0, 0, w.location)
	for !candidate.After(now) || (w.weekday != nil && candidate.Weekday() != *w.weekday) {
		candidate = candidate.AddDate(0, 0, 1)
		candidate = time.Date(candidate.Year(), candidate.Month(), candidate.Day(), w.hour, w.minute, 0, 0, w.location)
	}
	return candidate
}

func parseClock(at string) (hour, minute int, err error) {
	parsed, err := time.Parse("15:04", strings.TrimSpace(at))
	if err != nil {
		return 0, 0, fmt.Errorf("parse clock %q: %w", at, err)
	}
	return parsed.Hour(), parsed.Minute(), nil
}

// ParseWeekday resolves a configured weekday name.
func ParseWeekday(name string) (time.Weekday, error) {
	for day := time.Sunday; day <= time.Saturday; day++ {
		if strings.EqualFold(day.String(), name) {
			return day, nil
		}
	}
	return time.Sunday, fmt.Errorf("unknown weekday %q", name)
}
