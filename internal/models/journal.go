package models

import (
	"time"

	"gorm.io/datatypes"
)

// Journal entry kinds as reported in recap summaries.
const (
	JournalTypeFreeform = "freeform"
	JournalTypeGuided   = "guided"
)

// FreeformJournal is an unstructured journal entry. Content is the raw
// structured payload written by the client; it is either a single object or
// a list of objects whose text lives under answer/text/content/response
// keys.
type FreeformJournal struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	UserUID     string         `gorm:"column:user_uid;not null;size:36;index" json:"user_uid"`
	Content     datatypes.JSON `gorm:"type:jsonb" json:"content"`
	Summary     *string        `gorm:"type:text" json:"summary,omitempty"`
	DateCreated time.Time      `gorm:"type:date;not null;index" json:"date_created"`
	TimeCreated string         `gorm:"size:8;not null" json:"time_created"` // HH:MM:SS
	CreatedAt   time.Time      `json:"created_at"`
}

// TableName specifies the table name for FreeformJournal model.
func (FreeformJournal) TableName() string {
	return "freeform_journals"
}

// GuidedJournal is a prompted journal entry tagged with a theme/category
// pair from the two-level taxonomy.
type GuidedJournal struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	UserUID      string         `gorm:"column:user_uid;not null;size:36;index" json:"user_uid"`
	ThemeSlug    string         `gorm:"not null;size:50;index" json:"theme_slug"`
	CategorySlug string         `gorm:"not null;size:50;index" json:"category_slug"`
	Content      datatypes.JSON `gorm:"type:jsonb" json:"content"`
	Summary      *string        `gorm:"type:text" json:"summary,omitempty"`
	DateCreated  time.Time      `gorm:"type:date;not null;index" json:"date_created"`
	TimeCreated  string         `gorm:"size:8;not null" json:"time_created"`
	CreatedAt    time.Time      `json:"created_at"`
}

// TableName specifies the table name for GuidedJournal model.
func (GuidedJournal) TableName() string {
	return "guided_journals"
}

// Theme is the top level of the guided-journal taxonomy.
type Theme struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Slug string `gorm:"uniqueIndex;not null;size:50" json:"slug"`
	Name string `gorm:"not null;size:100" json:"name"`
}

// TableName specifies the table name for Theme model.
func (Theme) TableName() string {
	return "themes"
}

// Category is the second level of the taxonomy; each category belongs to a
// theme.
type Category struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Slug      string `gorm:"uniqueIndex;not null;size:50" json:"slug"`
	ThemeSlug string `gorm:"not null;size:50;index" json:"theme_slug"`
	Name      string `gorm:"not null;size:100" json:"name"`
}

// TableName specifies the table name for Category model.
func (Category) TableName() string {
	return "categories"
}

// JournalSummary is the transient merged view of one entry's summary used
// as recap input. It is never persisted.
type JournalSummary struct {
	JournalID   uint      `json:"journal_id"`
	Summary     string    `json:"journal_summary"`
	DateCreated time.Time `json:"date_created"`
	TimeCreated string    `json:"time_created"`
	JournalType string    `json:"journal_type"`
}
