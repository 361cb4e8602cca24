// Package scheduler runs periodic maintenance jobs.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/kartikbazzad/bunbase/bunpress/internal/logger"
)

// SessionCleaner removes expired sessions.
type SessionCleaner interface {
	CleanupExpiredSessions(ctx context.Context) (int64, error)
}

// Scheduler wraps gocron scheduler for managing periodic tasks.
type Scheduler struct {
	scheduler gocron.Scheduler
}

// NewScheduler creates a new scheduler instance.
func NewScheduler() (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	return &Scheduler{scheduler: s}, nil
}

// Start begins the scheduler.
func (s *Scheduler) Start() {
	logger.Info("Starting scheduler", "jobs", len(s.scheduler.Jobs()))
	s.scheduler.Start()
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() error {
	logger.Info("Stopping scheduler")
	return s.scheduler.Shutdown()
}

// ScheduleSessionCleanup purges expired sessions every interval and
// returns the job ID.
func (s *Scheduler) ScheduleSessionCleanup(interval time.Duration, cleaner SessionCleaner) (string, error) {
	job, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(runSessionCleanup, cleaner),
		gocron.WithName("session-cleanup"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create session cleanup job: %w", err)
	}
	return job.ID().String(), nil
}

func runSessionCleanup(cleaner SessionCleaner) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	removed, err := cleaner.CleanupExpiredSessions(ctx)
	if err != nil {
		logger.Error("Session cleanup failed", "error", err)
		return
	}
	if removed > 0 {
		logger.Info("Expired sessions removed", "count", removed)
	}
}

// Sweeper drops stale in-memory entries, such as idle rate limit buckets.
type Sweeper interface {
	Sweep() int
}

// ScheduleSweep runs every sweeper at the given interval.
func (s *Scheduler) ScheduleSweep(name string, interval time.Duration, sweepers ...Sweeper) (string, error) {
	job, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			removed := 0
			for _, sw := range sweepers {
				removed += sw.Sweep()
			}
			if removed > 0 {
				logger.Debug("Sweep finished", "job", name, "removed", removed)
			}
		}),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create %s job: %w", name, err)
	}
	return job.ID().String(), nil
}
