// Package models defines domain models for the MindMap insights API.
package models

import (
	"time"

	"gorm.io/datatypes"
)

// User represents a journaling user. The UID comes from the hosted auth
// provider and is the identity carried in session tokens.
type User struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UID         string    `gorm:"column:uid;uniqueIndex;not null;size:36" json:"uid"`
	Email       string    `gorm:"size:255" json:"email"`
	DisplayName string    `gorm:"size:100" json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName specifies the table name for User model.
func (User) TableName() string {
	return "users"
}

// UserStats holds the derived per-user journaling statistics, one row per
// user. It is recomputed from the journal tables before every badge
// evaluation and is never deleted.
type UserStats struct {
	ID                uint              `gorm:"primaryKey" json:"id"`
	UserUID           string            `gorm:"column:user_uid;uniqueIndex;not null;size:36" json:"user_uid"`
	CurrentStreak     int               `gorm:"not null;default:0" json:"current_streak"`
	AllTimeHighStreak int               `gorm:"not null;default:0" json:"all_time_high_streak"`
	TotalEntries      int               `gorm:"not null;default:0" json:"total_entries"`
	FreeformEntries   int               `gorm:"not null;default:0" json:"freeform_entries"`
	GuidedEntries     int               `gorm:"not null;default:0" json:"guided_entries"`
	LongestEntryWords int               `gorm:"not null;default:0" json:"longest_entry_words"`
	ThemeCounts       datatypes.JSONMap `gorm:"type:jsonb" json:"theme_counts"`
	CategoryCounts    datatypes.JSONMap `gorm:"type:jsonb" json:"category_counts"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// TableName specifies the table name for UserStats model.
func (UserStats) TableName() string {
	return "user_stats"
}

// ThemeCount returns the entry count recorded for a theme slug.
func (s *UserStats) ThemeCount(slug string) int {
	return jsonMapCount(s.ThemeCounts, slug)
}

// CategoryCount returns the entry count recorded for a category slug.
func (s *UserStats) CategoryCount(slug string) int {
	return jsonMapCount(s.CategoryCounts, slug)
}

// DistinctThemes returns the number of distinct theme slugs with a recorded
// count.
func (s *UserStats) DistinctThemes() int {
	return len(s.ThemeCounts)
}

// jsonMapCount reads a numeric value out of a JSONMap. Values arrive as
// float64 after a JSON round trip and as int when set in-process.
func jsonMapCount(m datatypes.JSONMap, key string) int {
	v, ok := m[key]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	default:
		return 0
	}
}
