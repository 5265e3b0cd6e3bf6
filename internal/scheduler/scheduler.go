// Package scheduler triggers the daily refresh at a fixed local wall-clock
// time.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Job is the work the scheduler runs once per day. The date argument is the
// current date in the scheduler's timezone, formatted YYYY-MM-DD.
type Job func(ctx context.Context, date string)

// Scheduler fires a Job at hour:minute in the configured location every day.
type Scheduler struct {
	hour     int
	minute   int
	location *time.Location
	job      Job
	logger   *zap.Logger
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// New creates a scheduler. location must not be nil.
func New(hour, minute int, location *time.Location, job Job, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		hour:     hour,
		minute:   minute,
		location: location,
		job:      job,
		logger:   logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the scheduling loop in a goroutine. Call Stop to shut it
// down.
func (s *Scheduler) Start(ctx context.Context) {
	go s.run(ctx)
}

// Stop terminates the loop and waits for it to exit. A job already running is
// not interrupted beyond its context.
func (s *Scheduler) Stop() {
	close(s.stopCh)
	<-s.doneCh
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.doneCh)
	for {
		now := time.Now().In(s.location)
		next := s.nextRun(now)
		s.logger.Info("next refresh scheduled",
			zap.Time("at", next),
			zap.Duration("in", next.Sub(now)),
		)
		timer := time.NewTimer(next.Sub(now))
		select {
		case <-timer.C:
			date := time.Now().In(s.location).Format("2006-01-02")
			s.job(ctx, date)
		case <-s.stopCh:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}

// nextRun returns the next hour:minute instant strictly after now.
func (s *Scheduler) nextRun(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), s.hour, s.minute, 0, 0, s.location)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
