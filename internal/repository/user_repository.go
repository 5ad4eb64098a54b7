package repository

import (
	"fmt"

	"github.com/mindmap-app/mindmap-api/internal/models"
)

// UserRepository handles user-related database operations.
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetByUID retrieves a user by auth-provider UID.
func (r *UserRepository) GetByUID(uid string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("uid = ?", uid).First(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to get user %s: %w", uid, err)
	}
	return &user, nil
}

// ListUIDs returns the UIDs of all known users. Used by the nightly badge
// sweep.
func (r *UserRepository) ListUIDs() ([]string, error) {
	var uids []string
	if err := r.db.Model(&models.User{}).Pluck("uid", &uids).Error; err != nil {
		return nil, fmt.Errorf("failed to list user uids: %w", err)
	}
	return uids, nil
}
