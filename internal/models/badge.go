package models

import (
	"time"

	"gorm.io/datatypes"
)

// BadgeType identifies which unlock rule applies to a badge. New rule kinds
// are added here so the evaluator switch stays exhaustive.
type BadgeType string

// Badge rule kinds.
const (
	BadgeTypeStreak        BadgeType = "streak"
	BadgeTypeCount         BadgeType = "count"
	BadgeTypeThemeSpecific BadgeType = "theme_specific"
	BadgeTypeThemeVariety  BadgeType = "theme_variety"
	BadgeTypeThemeComplete BadgeType = "theme_complete"
	BadgeTypeSpecial       BadgeType = "special"
)

// Names of the special-cased badges. Special badges dispatch on their name
// because their rules do not fit the threshold model.
const (
	BadgeInnerVoyager   = "Inner Voyager"
	BadgeReflectionStar = "Reflection Star"
)

// Badge is a catalog row describing an achievement and its unlock rule.
type Badge struct {
	ID             uint                        `gorm:"primaryKey" json:"id"`
	Name           string                      `gorm:"uniqueIndex;not null;size:100" json:"name"`
	Description    string                      `gorm:"type:text" json:"description"`
	Icon           string                      `gorm:"size:50" json:"icon"`
	BadgeType      BadgeType                   `gorm:"column:badge_type;not null;size:30;index" json:"badge_type"`
	RequiredValue  int                         `gorm:"not null;default:0" json:"required_value"`
	RequiredThemes datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"required_themes"`
	CreatedAt      time.Time                   `json:"created_at"`
	UpdatedAt      time.Time                   `json:"updated_at"`
}

// TableName specifies the table name for Badge model.
func (Badge) TableName() string {
	return "badges"
}

// UserBadge records a badge unlocked by a user. The (user_uid, badge_id)
// pair is unique; a badge once unlocked is never revoked.
type UserBadge struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserUID    string    `gorm:"column:user_uid;not null;size:36;uniqueIndex:idx_user_badge" json:"user_uid"`
	BadgeID    uint      `gorm:"not null;uniqueIndex:idx_user_badge" json:"badge_id"`
	Badge      Badge     `gorm:"foreignKey:BadgeID" json:"badge,omitempty"`
	UnlockedAt time.Time `gorm:"not null" json:"unlocked_at"`
}

// TableName specifies the table name for UserBadge model.
func (UserBadge) TableName() string {
	return "user_badges"
}
