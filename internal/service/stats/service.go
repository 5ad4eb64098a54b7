// Package stats recomputes the derived per-user journaling statistics from
// the raw journal tables. The badge evaluator refreshes these before every
// evaluation.
package stats

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"gorm.io/datatypes"

	"github.com/mindmap-app/mindmap-api/internal/cache"
	"github.com/mindmap-app/mindmap-api/internal/models"
	"github.com/mindmap-app/mindmap-api/pkg/logger"
)

const statsCacheTTL = time.Hour

// JournalRepository provides the raw entry reads the aggregation needs.
type JournalRepository interface {
	FreeformEntries(userUID string) ([]models.FreeformJournal, error)
	GuidedEntries(userUID string) ([]models.GuidedJournal, error)
}

// StatsRepository persists the recomputed rows.
type StatsRepository interface {
	EnsureExists(userUID string) (*models.UserStats, error)
	Save(stats *models.UserStats) error
}

// Service aggregates journal rows into user_stats.
type Service struct {
	journalRepo JournalRepository
	statsRepo   StatsRepository
	cache       cache.Cache
	log         *logger.Logger
	now         func() time.Time
}

// NewService creates a new stats service. c may be nil, in which case every
// snapshot read recomputes.
func NewService(journalRepo JournalRepository, statsRepo StatsRepository, c cache.Cache, log *logger.Logger) *Service {
	return &Service{
		journalRepo: journalRepo,
		statsRepo:   statsRepo,
		cache:       c,
		log:         log,
		now:         time.Now,
	}
}

// Snapshot returns the user's stats, serving a cached snapshot when one is
// present and otherwise recomputing and caching the result. The badge
// evaluator invalidates this key after its own refresh, so a snapshot is
// never staler than the last evaluation.
func (s *Service) Snapshot(ctx context.Context, userUID string) (*models.UserStats, error) {
	if cached := s.cachedSnapshot(ctx, userUID); cached != nil {
		return cached, nil
	}

	stats, err := s.Refresh(ctx, userUID)
	if err != nil {
		return nil, err
	}

	s.cacheSnapshot(ctx, userUID, stats)
	return stats, nil
}

// Refresh recomputes and persists the stats row for a user, returning the
// refreshed row. The context is checked between steps so a caller-imposed
// deadline cuts the refresh short.
func (s *Service) Refresh(ctx context.Context, userUID string) (*models.UserStats, error) {
	stats, err := s.statsRepo.EnsureExists(userUID)
	if err != nil {
		return nil, err
	}

	freeform, err := s.journalRepo.FreeformEntries(userUID)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	guided, err := s.journalRepo.GuidedEntries(userUID)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stats.FreeformEntries = len(freeform)
	stats.GuidedEntries = len(guided)
	stats.TotalEntries = len(freeform) + len(guided)

	themeCounts := datatypes.JSONMap{}
	categoryCounts := datatypes.JSONMap{}
	longest := 0
	var entryDates []time.Time

	for _, e := range freeform {
		if wc := CountContentWords(e.Content); wc > longest {
			longest = wc
		}
		entryDates = append(entryDates, e.DateCreated)
	}
	for _, e := range guided {
		if wc := CountContentWords(e.Content); wc > longest {
			longest = wc
		}
		entryDates = append(entryDates, e.DateCreated)
		if e.ThemeSlug != "" {
			themeCounts[e.ThemeSlug] = mapCount(themeCounts, e.ThemeSlug) + 1
		}
		if e.CategorySlug != "" {
			categoryCounts[e.CategorySlug] = mapCount(categoryCounts, e.CategorySlug) + 1
		}
	}

	stats.ThemeCounts = themeCounts
	stats.CategoryCounts = categoryCounts
	stats.LongestEntryWords = longest

	current, high := computeStreaks(entryDates, s.now())
	stats.CurrentStreak = current
	if high > stats.AllTimeHighStreak {
		stats.AllTimeHighStreak = high
	}

	if err := s.statsRepo.Save(stats); err != nil {
		return nil, err
	}

	s.log.Debug().
		Str("user_uid", userUID).
		Int("total_entries", stats.TotalEntries).
		Int("current_streak", stats.CurrentStreak).
		Int("longest_entry_words", stats.LongestEntryWords).
		Msg("User stats refreshed")

	return stats, nil
}

// cachedSnapshot returns the cached stats row, or nil. Cache failures only
// degrade to a recompute.
func (s *Service) cachedSnapshot(ctx context.Context, userUID string) *models.UserStats {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, cache.StatsKey(userUID))
	if err != nil {
		s.log.Warn().Err(err).Str("user_uid", userUID).Msg("Stats cache read failed")
		return nil
	}
	if raw == "" {
		return nil
	}
	var stats models.UserStats
	if err := json.Unmarshal([]byte(raw), &stats); err != nil {
		s.log.Warn().Err(err).Str("user_uid", userUID).Msg("Stats cache entry is corrupt")
		return nil
	}
	return &stats
}

func (s *Service) cacheSnapshot(ctx context.Context, userUID string, stats *models.UserStats) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cache.StatsKey(userUID), string(raw), statsCacheTTL); err != nil {
		s.log.Warn().Err(err).Str("user_uid", userUID).Msg("Stats cache write failed")
	}
}

// computeStreaks derives the current consecutive-day streak and the longest
// run from the set of entry dates. The current streak counts only if the
// latest entry is from today or yesterday.
func computeStreaks(dates []time.Time, now time.Time) (current, high int) {
	if len(dates) == 0 {
		return 0, 0
	}

	seen := make(map[string]bool, len(dates))
	var days []time.Time
	for _, d := range dates {
		day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
		key := day.Format("2006-01-02")
		if !seen[key] {
			seen[key] = true
			days = append(days, day)
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	run := 1
	high = 1
	for i := 1; i < len(days); i++ {
		if days[i].Sub(days[i-1]) == 24*time.Hour {
			run++
		} else {
			run = 1
		}
		if run > high {
			high = run
		}
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	latest := days[len(days)-1]
	gap := today.Sub(latest)
	if gap != 0 && gap != 24*time.Hour {
		return 0, high
	}
	return run, high
}

func mapCount(m datatypes.JSONMap, key string) int {
	v, ok := m[key]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	default:
		return 0
	}
}
