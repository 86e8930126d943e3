package backup

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Scheduler runs periodic backups of the active instance on a cron
// expression and enforces retention after every run.
type Scheduler struct {
	coordinator *Coordinator
	policy      RetentionPolicy
	cron        *cron.Cron
}

// NewScheduler creates a scheduler around an existing coordinator.
func NewScheduler(coordinator *Coordinator, policy RetentionPolicy) *Scheduler {
	return &Scheduler{
		coordinator: coordinator,
		policy:      policy,
		cron:        cron.New(),
	}
}

// Start validates the schedule, registers the job and starts the cron
// loop. It returns immediately; Run blocks instead if that fits better.
func (s *Scheduler) Start(schedule string) error {
	if _, err := s.cron.AddFunc(schedule, s.runOnce); err != nil {
		return fmt.Errorf("invalid backup schedule %q: %w", schedule, err)
	}
	s.cron.Start()
	slog.Info("backup scheduler started", "schedule", schedule, "retention", s.policy.String())
	return nil
}

// Run starts the scheduler and blocks until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context, schedule string) error {
	if err := s.Start(schedule); err != nil {
		return err
	}
	<-ctx.Done()
	s.Stop()
	return ctx.Err()
}

// Stop halts the cron loop, waiting for an in-flight backup to finish.
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	slog.Info("backup scheduler stopped")
}

func (s *Scheduler) runOnce() {
	archive, err := s.coordinator.Backup("", "scheduled", nil)
	if err != nil {
		slog.Error("scheduled backup failed", "error", err)
		return
	}
	slog.Info("scheduled backup complete", "archive", archive)

	if _, err := s.coordinator.EnforceRetention(s.policy); err != nil {
		slog.Warn("retention enforcement failed", "error", err)
	}
}
