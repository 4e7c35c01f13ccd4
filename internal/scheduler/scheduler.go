// Package scheduler provides the clock and timers used by FieldOps effects.
//
// Repeating timers (such as the deep-link settle window) and calendar jobs
// (such as the nightly history refresh) share one cron instance.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler provides cron-based job scheduling and implements capability.Clock.
type Scheduler struct {
	cron *cron.Cron
	now  func() time.Time
}

// NewScheduler creates and starts a cron scheduler.
func NewScheduler() *Scheduler {
	// Use standard 5-field cron parser (min, hour, dom, month, dow) and enable recovery
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	c := cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger)))
	c.Start()
	return &Scheduler{cron: c, now: time.Now}
}

// AddJob schedules a task using the provided cron expression.
// It returns an error if the expression is invalid.
func (s *Scheduler) AddJob(expr string, task func()) error {
	_, err := s.cron.AddFunc(expr, task)
	return err
}

// Now returns the current wall-clock time.
func (s *Scheduler) Now() time.Time {
	return s.now()
}

// Every calls tick once per interval until ctx is done. Intervals are rounded
// down to whole seconds with a one second minimum.
func (s *Scheduler) Every(ctx context.Context, interval time.Duration, tick func()) {
	id := s.cron.Schedule(cron.Every(interval), cron.FuncJob(tick))
	slog.Debug("Scheduler.Every: timer started", "entry", id, "interval", interval)
	<-ctx.Done()
	s.cron.Remove(id)
	slog.Debug("Scheduler.Every: timer stopped", "entry", id)
}

// Entries reports how many jobs and timers are scheduled.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// Stop stops the cron scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
