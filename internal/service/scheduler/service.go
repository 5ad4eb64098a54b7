// Package scheduler runs the nightly badge sweep over all known users.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mindmap-app/mindmap-api/internal/config"
	prommetrics "github.com/mindmap-app/mindmap-api/internal/metrics"
	"github.com/mindmap-app/mindmap-api/internal/service/badges"
	"github.com/mindmap-app/mindmap-api/pkg/logger"
)

// BadgeChecker runs one user's badge evaluation.
type BadgeChecker interface {
	CheckUnlocks(ctx context.Context, userUID string) (*badges.UnlockResult, error)
}

// UserLister enumerates the users the sweep visits.
type UserLister interface {
	ListUIDs() ([]string, error)
}

// Service schedules the nightly badge sweep.
type Service struct {
	config       *config.Config
	userLister   UserLister
	badgeChecker BadgeChecker
	log          *logger.Logger
	cron         *cron.Cron
}

// NewService creates a new scheduler service.
func NewService(cfg *config.Config, userLister UserLister, badgeChecker BadgeChecker, log *logger.Logger) *Service {
	return &Service{
		config:       cfg,
		userLister:   userLister,
		badgeChecker: badgeChecker,
		log:          log,
	}
}

// Start initializes and starts the cron scheduler.
func (s *Service) Start() error {
	if !s.config.Scheduler.Enabled {
		s.log.Info().Msg("Scheduler is disabled in configuration")
		return nil
	}

	location, err := s.config.Scheduler.GetLocation()
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", s.config.Scheduler.Timezone, err)
	}

	s.cron = cron.New(cron.WithLocation(location))

	expr := s.config.Scheduler.BadgeSweepCron
	if expr == "" {
		expr = "0 3 * * *"
	}

	_, err = s.cron.AddFunc(expr, func() {
		s.runBadgeSweep(context.Background())
	})
	if err != nil {
		return fmt.Errorf("failed to register badge sweep job: %w", err)
	}

	s.cron.Start()

	entries := s.cron.Entries()
	nextRun := ""
	if len(entries) > 0 {
		nextRun = entries[0].Next.Format(time.RFC3339)
	}

	s.log.Info().
		Str("schedule", expr).
		Str("timezone", s.config.Scheduler.Timezone).
		Str("next_run", nextRun).
		Msg("Badge sweep scheduler started")

	return nil
}

// Stop halts the scheduler, waiting for a running job to finish.
func (s *Service) Stop() {
	if s.cron == nil {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Badge sweep scheduler stopped")
}

// runBadgeSweep evaluates badges for every known user. Per-user failures are
// logged and counted but never stop the sweep.
func (s *Service) runBadgeSweep(ctx context.Context) {
	start := time.Now()

	s.log.Info().Msg("Running nightly badge sweep")

	uids, err := s.userLister.ListUIDs()
	if err != nil {
		s.log.Error().
			Err(err).
			Msg("Failed to list users for badge sweep")
		prommetrics.RecordBadgeSweepRun("error")
		return
	}

	failures := 0
	unlocks := 0
	for _, uid := range uids {
		result, err := s.badgeChecker.CheckUnlocks(ctx, uid)
		if err != nil {
			failures++
			s.log.Error().
				Err(err).
				Str("user_uid", uid).
				Msg("Badge sweep failed for user")
			continue
		}
		unlocks += len(result.NewlyUnlocked)
	}

	status := "success"
	if failures > 0 {
		status = "partial"
	}
	prommetrics.RecordBadgeSweepRun(status)

	s.log.Info().
		Int("users", len(uids)).
		Int("unlocks", unlocks).
		Int("failures", failures).
		Dur("duration", time.Since(start)).
		Msg("Nightly badge sweep completed")
}
