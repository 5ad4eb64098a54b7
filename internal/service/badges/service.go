// Package badges provides the badge unlock evaluator.
package badges

import (
	"context"
	"fmt"
	"time"

	"github.com/mindmap-app/mindmap-api/internal/cache"
	prommetrics "github.com/mindmap-app/mindmap-api/internal/metrics"
	"github.com/mindmap-app/mindmap-api/internal/models"
	"github.com/mindmap-app/mindmap-api/internal/repository"
	"github.com/mindmap-app/mindmap-api/internal/service/stats"
	"github.com/mindmap-app/mindmap-api/pkg/logger"
)

// BadgeRepository interface for badge catalog and unlock operations.
type BadgeRepository interface {
	GetAll() ([]models.Badge, error)
	GetUnlockedBadgeIDs(userUID string) (map[uint]bool, error)
	Unlock(userUID string, badgeID uint) error
	GetUserBadges(userUID string) ([]models.UserBadge, error)
}

// JournalRepository interface for the entry reads special badges need.
type JournalRepository interface {
	FreeformEntries(userUID string) ([]models.FreeformJournal, error)
	RecentGuidedEntries(userUID string, limit int) ([]models.GuidedJournal, error)
	CategoriesByTheme(themeSlug string) ([]models.Category, error)
}

// StatsRefresher recomputes user_stats from the journal tables.
type StatsRefresher interface {
	Refresh(ctx context.Context, userUID string) (*models.UserStats, error)
}

// UnlockResult is the outcome of one check-unlock evaluation.
type UnlockResult struct {
	NewlyUnlocked []models.Badge    `json:"newly_unlocked"`
	Stats         *models.UserStats `json:"stats"`
}

// Service evaluates badge unlock rules against refreshed user statistics.
type Service struct {
	badgeRepo      BadgeRepository
	journalRepo    JournalRepository
	statsRefresher StatsRefresher
	cache          cache.Cache
	refreshTimeout time.Duration
	log            *logger.Logger
}

// NewService creates a new badge service.
func NewService(
	badgeRepo *repository.BadgeRepository,
	journalRepo *repository.JournalRepository,
	statsService *stats.Service,
	c cache.Cache,
	refreshTimeout time.Duration,
	log *logger.Logger,
) *Service {
	return NewServiceWithInterfaces(badgeRepo, journalRepo, statsService, c, refreshTimeout, log)
}

// NewServiceWithInterfaces creates a new badge service with interface
// dependencies (useful for testing).
func NewServiceWithInterfaces(
	badgeRepo BadgeRepository,
	journalRepo JournalRepository,
	statsRefresher StatsRefresher,
	c cache.Cache,
	refreshTimeout time.Duration,
	log *logger.Logger,
) *Service {
	if refreshTimeout <= 0 {
		refreshTimeout = 30 * time.Second
	}
	return &Service{
		badgeRepo:      badgeRepo,
		journalRepo:    journalRepo,
		statsRefresher: statsRefresher,
		cache:          c,
		refreshTimeout: refreshTimeout,
		log:            log,
	}
}

// CheckUnlocks refreshes the user's statistics and evaluates every badge
// the user has not unlocked yet, in catalog order. A failure in one badge
// check never aborts the others; only the stats refresh is fatal for the
// whole evaluation.
func (s *Service) CheckUnlocks(ctx context.Context, userUID string) (*UnlockResult, error) {
	start := time.Now()

	userStats, err := s.refreshStats(ctx, userUID)
	if err != nil {
		prommetrics.RecordBadgeCheck("error", time.Since(start))
		return nil, fmt.Errorf("failed to refresh user stats: %w", err)
	}

	badges, err := s.badgeRepo.GetAll()
	if err != nil {
		prommetrics.RecordBadgeCheck("error", time.Since(start))
		return nil, fmt.Errorf("failed to load badge catalog: %w", err)
	}

	unlocked, err := s.badgeRepo.GetUnlockedBadgeIDs(userUID)
	if err != nil {
		prommetrics.RecordBadgeCheck("error", time.Since(start))
		return nil, fmt.Errorf("failed to load unlocked badges: %w", err)
	}

	var newlyUnlocked []models.Badge

	for _, badge := range badges {
		if unlocked[badge.ID] {
			// Unlocked badges are never re-evaluated.
			continue
		}

		qualifies, err := s.evaluateBadge(ctx, &badge, userStats, userUID)
		if err != nil {
			s.log.Error().
				Err(err).
				Str("user_uid", userUID).
				Str("badge", badge.Name).
				Msg("Failed to evaluate badge")
			continue
		}
		if !qualifies {
			continue
		}

		if err := s.badgeRepo.Unlock(userUID, badge.ID); err != nil {
			s.log.Error().
				Err(err).
				Str("user_uid", userUID).
				Str("badge", badge.Name).
				Msg("Failed to record badge unlock")
			continue
		}

		prommetrics.RecordBadgeUnlocked(string(badge.BadgeType))
		newlyUnlocked = append(newlyUnlocked, badge)

		s.log.Info().
			Str("user_uid", userUID).
			Str("badge", badge.Name).
			Str("badge_type", string(badge.BadgeType)).
			Msg("Badge unlocked")
	}

	if s.cache != nil {
		// The snapshot is stale after a refresh regardless of unlock outcome.
		if err := s.cache.Delete(ctx, cache.StatsKey(userUID)); err != nil {
			s.log.Warn().Err(err).Str("user_uid", userUID).Msg("Failed to invalidate stats cache")
		}
	}

	prommetrics.RecordBadgeCheck("success", time.Since(start))

	return &UnlockResult{NewlyUnlocked: newlyUnlocked, Stats: userStats}, nil
}

// GetUserBadges retrieves all badges unlocked by a user.
func (s *Service) GetUserBadges(_ context.Context, userUID string) ([]models.UserBadge, error) {
	return s.badgeRepo.GetUserBadges(userUID)
}

// GetBadgeCatalog retrieves all available badges.
func (s *Service) GetBadgeCatalog(_ context.Context) ([]models.Badge, error) {
	return s.badgeRepo.GetAll()
}

// refreshStats runs the stats aggregation under a hard deadline. A timeout
// is fatal for the evaluation request, never silently ignored.
func (s *Service) refreshStats(ctx context.Context, userUID string) (*models.UserStats, error) {
	ctx, cancel := context.WithTimeout(ctx, s.refreshTimeout)
	defer cancel()

	type result struct {
		stats *models.UserStats
		err   error
	}
	done := make(chan result, 1)
	go func() {
		st, err := s.statsRefresher.Refresh(ctx, userUID)
		done <- result{st, err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("stats refresh exceeded %s: %w", s.refreshTimeout, ctx.Err())
	case r := <-done:
		return r.stats, r.err
	}
}
