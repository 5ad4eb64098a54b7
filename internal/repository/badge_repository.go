package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mindmap-app/mindmap-api/internal/models"
)

// BadgeRepository handles badge catalog and unlock database operations.
type BadgeRepository struct {
	db *DB
}

// NewBadgeRepository creates a new badge repository.
func NewBadgeRepository(db *DB) *BadgeRepository {
	return &BadgeRepository{db: db}
}

// GetAll retrieves the full badge catalog in ascending badge id order.
// Evaluation order follows this ordering.
func (r *BadgeRepository) GetAll() ([]models.Badge, error) {
	var badges []models.Badge
	err := r.db.Order("id ASC").Find(&badges).Error
	return badges, err
}

// GetByName retrieves a badge by its unique name.
func (r *BadgeRepository) GetByName(name string) (*models.Badge, error) {
	var badge models.Badge
	if err := r.db.Where("name = ?", name).First(&badge).Error; err != nil {
		return nil, err
	}
	return &badge, nil
}

// GetUnlockedBadgeIDs returns the set of badge ids the user has already
// unlocked.
func (r *BadgeRepository) GetUnlockedBadgeIDs(userUID string) (map[uint]bool, error) {
	var ids []uint
	err := r.db.Model(&models.UserBadge{}).
		Where("user_uid = ?", userUID).
		Pluck("badge_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get unlocked badges for %s: %w", userUID, err)
	}

	unlocked := make(map[uint]bool, len(ids))
	for _, id := range ids {
		unlocked[id] = true
	}
	return unlocked, nil
}

// Unlock records a badge unlock. A concurrent unlock of the same pair is
// treated as success; a badge is never unlocked twice.
func (r *BadgeRepository) Unlock(userUID string, badgeID uint) error {
	userBadge := &models.UserBadge{
		UserUID:    userUID,
		BadgeID:    badgeID,
		UnlockedAt: time.Now().UTC(),
	}
	err := r.db.Create(userBadge).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil
	}
	return err
}

// GetUserBadges retrieves all badges unlocked by a user, newest first.
func (r *BadgeRepository) GetUserBadges(userUID string) ([]models.UserBadge, error) {
	var userBadges []models.UserBadge
	err := r.db.
		Where("user_uid = ?", userUID).
		Preload("Badge").
		Order("unlocked_at DESC").
		Find(&userBadges).Error
	return userBadges, err
}

// SeedCatalog upserts catalog badges by name. Run at startup from
// configuration so new badges appear without manual SQL.
func (r *BadgeRepository) SeedCatalog(badges []models.Badge) error {
	for i := range badges {
		err := r.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"description", "icon", "badge_type", "required_value", "required_themes"}),
		}).Create(&badges[i]).Error
		if err != nil {
			return fmt.Errorf("failed to seed badge %q: %w", badges[i].Name, err)
		}
	}
	return nil
}
