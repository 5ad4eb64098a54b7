package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mindmap-app/mindmap-api/internal/models"
)

// ErrRecapExists is returned by Create when another request already
// persisted a recap for the same user and window.
var ErrRecapExists = errors.New("recap already exists for window")

// RecapRepository handles weekly recap database operations.
type RecapRepository struct {
	db *DB
}

// NewRecapRepository creates a new recap repository.
func NewRecapRepository(db *DB) *RecapRepository {
	return &RecapRepository{db: db}
}

// GetByWindow retrieves the recap for a user and date window. Returns
// (nil, nil) when none exists.
func (r *RecapRepository) GetByWindow(userUID string, start, end time.Time) (*models.Recap, error) {
	var recap models.Recap
	err := r.db.
		Where("user_uid = ? AND range_start = ? AND range_end = ?", userUID, start, end).
		First(&recap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query recap for %s: %w", userUID, err)
	}
	return &recap, nil
}

// Create inserts a recap row. The unique constraint on
// (user_uid, range_start, range_end) closes the race between concurrent
// generations; losing the race surfaces as ErrRecapExists so the caller can
// fetch the winning row.
func (r *RecapRepository) Create(recap *models.Recap) error {
	err := r.db.Create(recap).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrRecapExists
	}
	if err != nil {
		return fmt.Errorf("failed to insert recap for %s: %w", recap.UserUID, err)
	}
	return nil
}

// GetRecent retrieves a user's recaps, newest window first.
func (r *RecapRepository) GetRecent(userUID string, limit int) ([]models.Recap, error) {
	var recaps []models.Recap
	err := r.db.
		Where("user_uid = ?", userUID).
		Order("range_end DESC").
		Limit(limit).
		Find(&recaps).Error
	return recaps, err
}
