package models

import "time"

// Recap is the once-per-week synthesized narrative for one user and one
// Sunday–Saturday window. The (user_uid, range_start, range_end) triple is
// unique; concurrent generation races are resolved by this constraint.
type Recap struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserUID       string    `gorm:"column:user_uid;not null;size:36;uniqueIndex:idx_recap_window" json:"user_uid"`
	RangeStart    time.Time `gorm:"type:date;not null;uniqueIndex:idx_recap_window" json:"date_range_start"`
	RangeEnd      time.Time `gorm:"type:date;not null;uniqueIndex:idx_recap_window" json:"date_range_end"`
	WeeklySummary string    `gorm:"type:text" json:"weekly_summary"`
	Mood          string    `gorm:"type:text" json:"mood"`
	Feeling       string    `gorm:"type:text" json:"feeling"`
	Contributing  string    `gorm:"type:text" json:"contributing"`
	Moments       string    `gorm:"type:text" json:"moments"`
	Cope          string    `gorm:"type:text" json:"cope"`
	Remember      string    `gorm:"type:text" json:"remember"`
	CreatedAt     time.Time `json:"created_at"`
}

// TableName specifies the table name for Recap model.
func (Recap) TableName() string {
	return "recaps"
}
