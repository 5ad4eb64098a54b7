package repository

import (
	"fmt"

	"gorm.io/datatypes"

	"github.com/mindmap-app/mindmap-api/internal/models"
)

// StatsRepository handles user_stats database operations.
type StatsRepository struct {
	db *DB
}

// NewStatsRepository creates a new stats repository.
func NewStatsRepository(db *DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// EnsureExists creates a zeroed user_stats row for the user if one is not
// present yet and returns the row either way.
func (r *StatsRepository) EnsureExists(userUID string) (*models.UserStats, error) {
	stats := models.UserStats{
		UserUID:        userUID,
		ThemeCounts:    datatypes.JSONMap{},
		CategoryCounts: datatypes.JSONMap{},
	}
	err := r.db.Where("user_uid = ?", userUID).FirstOrCreate(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to ensure user stats for %s: %w", userUID, err)
	}
	return &stats, nil
}

// Get retrieves the stats row for a user.
func (r *StatsRepository) Get(userUID string) (*models.UserStats, error) {
	var stats models.UserStats
	if err := r.db.Where("user_uid = ?", userUID).First(&stats).Error; err != nil {
		return nil, fmt.Errorf("failed to get user stats for %s: %w", userUID, err)
	}
	return &stats, nil
}

// Save persists a recomputed stats row.
func (r *StatsRepository) Save(stats *models.UserStats) error {
	if err := r.db.Save(stats).Error; err != nil {
		return fmt.Errorf("failed to save user stats for %s: %w", stats.UserUID, err)
	}
	return nil
}
