// Package jobs runs the periodic maintenance tasks of the service.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// CacheSweeper removes stale analysis cache entries
type CacheSweeper interface {
	Sweep(ctx context.Context) error
}

// Scheduler runs the analysis cache sweep on a cron schedule
type Scheduler struct {
	cron     *cron.Cron
	sweeper  CacheSweeper
	schedule string
}

// NewScheduler creates a scheduler evaluating schedule in loc
func NewScheduler(sweeper CacheSweeper, schedule string, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		sweeper:  sweeper,
		schedule: schedule,
	}
}

// Start registers the jobs and starts the cron loop. ctx is handed to every run.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.schedule, func() { s.sweep(ctx) }); err != nil {
		return fmt.Errorf("invalid analysis sweep schedule %q: %w", s.schedule, err)
	}
	s.cron.Start()
	log.WithField("schedule", s.schedule).Info("Scheduler started")
	return nil
}

// Stop stops the cron loop and waits for running jobs
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Scheduler stopped")
}

func (s *Scheduler) sweep(ctx context.Context) {
	start := time.Now()
	if err := s.sweeper.Sweep(ctx); err != nil {
		log.WithError(err).Error("[CRON] Analysis cache sweep failed")
		return
	}
	log.WithField("duration", time.Since(start)).Debug("[CRON] Analysis cache sweep finished")
}
