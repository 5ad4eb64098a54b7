package badges

import (
	"context"
	"fmt"

	"github.com/mindmap-app/mindmap-api/internal/models"
)

// evaluateBadge dispatches on the badge's rule kind. The switch is closed
// over models.BadgeType; unknown kinds are logged no-ops so a catalog row
// from a newer deployment never fails an evaluation.
func (s *Service) evaluateBadge(ctx context.Context, badge *models.Badge, userStats *models.UserStats, userUID string) (bool, error) {
	switch badge.BadgeType {
	case models.BadgeTypeStreak:
		return userStats.CurrentStreak >= badge.RequiredValue, nil

	case models.BadgeTypeCount:
		return userStats.TotalEntries >= badge.RequiredValue, nil

	case models.BadgeTypeThemeSpecific:
		return s.checkThemeSpecific(badge, userStats), nil

	case models.BadgeTypeThemeVariety:
		return userStats.DistinctThemes() >= badge.RequiredValue, nil

	case models.BadgeTypeThemeComplete:
		return s.checkThemeComplete(badge, userStats)

	case models.BadgeTypeSpecial:
		return s.checkSpecial(ctx, badge, userStats, userUID)

	default:
		s.log.Warn().
			Str("badge", badge.Name).
			Str("badge_type", string(badge.BadgeType)).
			Msg("Unknown badge type, skipping")
		return false, nil
	}
}

// checkThemeSpecific requires the count for the badge's first required theme
// to reach the threshold. A badge with no required themes is never
// unlockable.
func (s *Service) checkThemeSpecific(badge *models.Badge, userStats *models.UserStats) bool {
	if len(badge.RequiredThemes) == 0 {
		return false
	}
	return userStats.ThemeCount(badge.RequiredThemes[0]) >= badge.RequiredValue
}

// checkThemeComplete requires every required theme to be "complete": the
// theme has at least two categories in the taxonomy and at least two of
// them carry a non-zero entry count. A badge with no required themes is
// never unlockable.
func (s *Service) checkThemeComplete(badge *models.Badge, userStats *models.UserStats) (bool, error) {
	if len(badge.RequiredThemes) == 0 {
		return false, nil
	}

	completed := 0
	for _, themeSlug := range badge.RequiredThemes {
		categories, err := s.journalRepo.CategoriesByTheme(themeSlug)
		if err != nil {
			return false, fmt.Errorf("failed to load categories for theme %s: %w", themeSlug, err)
		}
		if len(categories) < 2 {
			continue
		}

		nonZero := 0
		for _, cat := range categories {
			if userStats.CategoryCount(cat.Slug) > 0 {
				nonZero++
			}
		}
		if nonZero >= 2 {
			completed++
		}
	}

	return completed == len(badge.RequiredThemes), nil
}

// checkSpecial dispatches the name-keyed special badges.
func (s *Service) checkSpecial(ctx context.Context, badge *models.Badge, userStats *models.UserStats, userUID string) (bool, error) {
	switch badge.Name {
	case models.BadgeInnerVoyager:
		return s.checkInnerVoyager(ctx, userStats, userUID)
	case models.BadgeReflectionStar:
		return s.checkReflectionStar(userUID)
	default:
		s.log.Warn().
			Str("badge", badge.Name).
			Msg("Special badge has no registered rule, skipping")
		return false, nil
	}
}
