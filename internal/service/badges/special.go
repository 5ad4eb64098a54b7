package badges

import (
	"context"
	"sort"
	"time"

	"github.com/mindmap-app/mindmap-api/internal/models"
	"github.com/mindmap-app/mindmap-api/internal/service/stats"
)

const (
	// Inner Voyager: one entry of at least this many words.
	innerVoyagerWordThreshold = 500

	// Reflection Star: this many consecutive days whose combined guided
	// entries cover at least this many distinct themes, looking at the
	// most recent guided entries only.
	reflectionStarDays      = 3
	reflectionStarThemes    = 3
	reflectionStarRecentMax = 10
)

// checkInnerVoyager unlocks when the user has written a single entry of 500
// words or more. The cached longest_entry_words stat is trusted first; if
// it is short, the freeform entries are re-counted directly, since the stat
// can lag behind a recently written entry. Finding a qualifying entry that
// way triggers a stats reconciliation.
func (s *Service) checkInnerVoyager(ctx context.Context, userStats *models.UserStats, userUID string) (bool, error) {
	if userStats.LongestEntryWords >= innerVoyagerWordThreshold {
		return true, nil
	}

	entries, err := s.journalRepo.FreeformEntries(userUID)
	if err != nil {
		return false, err
	}

	for _, entry := range entries {
		if stats.CountContentWords(entry.Content) < innerVoyagerWordThreshold {
			continue
		}

		// The cached stat missed this entry; reconcile it in place so the
		// caller returns up-to-date numbers. Reconciliation failure does
		// not block the unlock.
		refreshed, err := s.statsRefresher.Refresh(ctx, userUID)
		if err != nil {
			s.log.Warn().
				Err(err).
				Str("user_uid", userUID).
				Msg("Failed to reconcile stats after word-count fallback")
		} else {
			*userStats = *refreshed
		}
		return true, nil
	}

	return false, nil
}

// checkReflectionStar unlocks when, within the user's ten most recent
// guided entries, there are three calendar-consecutive days whose union of
// theme slugs across all three days covers at least three distinct themes.
func (s *Service) checkReflectionStar(userUID string) (bool, error) {
	entries, err := s.journalRepo.RecentGuidedEntries(userUID, reflectionStarRecentMax)
	if err != nil {
		return false, err
	}
	if len(entries) == 0 {
		return false, nil
	}

	// Group theme slugs by calendar day.
	themesByDay := make(map[time.Time]map[string]bool)
	for _, entry := range entries {
		day := time.Date(entry.DateCreated.Year(), entry.DateCreated.Month(), entry.DateCreated.Day(), 0, 0, 0, 0, time.UTC)
		if themesByDay[day] == nil {
			themesByDay[day] = make(map[string]bool)
		}
		if entry.ThemeSlug != "" {
			themesByDay[day][entry.ThemeSlug] = true
		}
	}

	days := make([]time.Time, 0, len(themesByDay))
	for day := range themesByDay {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].After(days[j]) })

	// Slide over windows of three days, requiring each neighboring pair to
	// be exactly one calendar day apart.
	for i := 0; i+reflectionStarDays <= len(days); i++ {
		window := days[i : i+reflectionStarDays]
		consecutive := true
		for j := 0; j < len(window)-1; j++ {
			if window[j].Sub(window[j+1]) != 24*time.Hour {
				consecutive = false
				break
			}
		}
		if !consecutive {
			continue
		}

		union := make(map[string]bool)
		for _, day := range window {
			for slug := range themesByDay[day] {
				union[slug] = true
			}
		}
		if len(union) >= reflectionStarThemes {
			return true, nil
		}
	}

	return false, nil
}
