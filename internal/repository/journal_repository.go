package repository

import (
	"fmt"
	"sort"
	"time"

	"github.com/mindmap-app/mindmap-api/internal/models"
	"github.com/mindmap-app/mindmap-api/pkg/crypto"
)

// JournalRepository handles reads over the freeform and guided journal
// tables. When a field cipher is configured, entry summaries are stored
// encrypted and transparently decrypted on read.
type JournalRepository struct {
	db     *DB
	cipher *crypto.FieldCipher
}

// NewJournalRepository creates a new journal repository. cipher may be nil,
// in which case summaries are stored in plaintext.
func NewJournalRepository(db *DB, cipher *crypto.FieldCipher) *JournalRepository {
	return &JournalRepository{db: db, cipher: cipher}
}

// CreateFreeform stores a freeform entry, encrypting its summary if a
// cipher is configured.
func (r *JournalRepository) CreateFreeform(entry *models.FreeformJournal) error {
	if err := r.sealSummary(&entry.Summary); err != nil {
		return err
	}
	return r.db.Create(entry).Error
}

// CreateGuided stores a guided entry, encrypting its summary if a cipher is
// configured.
func (r *JournalRepository) CreateGuided(entry *models.GuidedJournal) error {
	if err := r.sealSummary(&entry.Summary); err != nil {
		return err
	}
	return r.db.Create(entry).Error
}

// SummariesInWindow gathers the summaries of both journal kinds inside a
// date window, merged and sorted newest first by creation date then time.
// Entries without a summary are skipped.
func (r *JournalRepository) SummariesInWindow(userUID string, start, end time.Time) ([]models.JournalSummary, error) {
	var freeform []models.FreeformJournal
	err := r.db.
		Where("user_uid = ? AND summary IS NOT NULL AND date_created BETWEEN ? AND ?", userUID, start, end).
		Find(&freeform).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query freeform summaries: %w", err)
	}

	var guided []models.GuidedJournal
	err = r.db.
		Where("user_uid = ? AND summary IS NOT NULL AND date_created BETWEEN ? AND ?", userUID, start, end).
		Find(&guided).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query guided summaries: %w", err)
	}

	merged := make([]models.JournalSummary, 0, len(freeform)+len(guided))
	for _, e := range freeform {
		summary, err := r.openSummary(e.Summary)
		if err != nil {
			return nil, err
		}
		merged = append(merged, models.JournalSummary{
			JournalID:   e.ID,
			Summary:     summary,
			DateCreated: e.DateCreated,
			TimeCreated: e.TimeCreated,
			JournalType: models.JournalTypeFreeform,
		})
	}
	for _, e := range guided {
		summary, err := r.openSummary(e.Summary)
		if err != nil {
			return nil, err
		}
		merged = append(merged, models.JournalSummary{
			JournalID:   e.ID,
			Summary:     summary,
			DateCreated: e.DateCreated,
			TimeCreated: e.TimeCreated,
			JournalType: models.JournalTypeGuided,
		})
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if !merged[i].DateCreated.Equal(merged[j].DateCreated) {
			return merged[i].DateCreated.After(merged[j].DateCreated)
		}
		return merged[i].TimeCreated > merged[j].TimeCreated
	})

	return merged, nil
}

// FreeformEntries retrieves all freeform entries for a user.
func (r *JournalRepository) FreeformEntries(userUID string) ([]models.FreeformJournal, error) {
	var entries []models.FreeformJournal
	err := r.db.Where("user_uid = ?", userUID).Find(&entries).Error
	return entries, err
}

// GuidedEntries retrieves all guided entries for a user.
func (r *JournalRepository) GuidedEntries(userUID string) ([]models.GuidedJournal, error) {
	var entries []models.GuidedJournal
	err := r.db.Where("user_uid = ?", userUID).Find(&entries).Error
	return entries, err
}

// RecentGuidedEntries retrieves the most recent guided entries for a user,
// newest first.
func (r *JournalRepository) RecentGuidedEntries(userUID string, limit int) ([]models.GuidedJournal, error) {
	var entries []models.GuidedJournal
	err := r.db.
		Where("user_uid = ?", userUID).
		Order("date_created DESC, time_created DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

// CategoriesByTheme retrieves the categories belonging to a theme slug.
func (r *JournalRepository) CategoriesByTheme(themeSlug string) ([]models.Category, error) {
	var categories []models.Category
	err := r.db.Where("theme_slug = ?", themeSlug).Find(&categories).Error
	return categories, err
}

func (r *JournalRepository) sealSummary(summary **string) error {
	if r.cipher == nil || *summary == nil {
		return nil
	}
	sealed, err := r.cipher.Encrypt(**summary)
	if err != nil {
		return fmt.Errorf("failed to encrypt summary: %w", err)
	}
	*summary = &sealed
	return nil
}

func (r *JournalRepository) openSummary(summary *string) (string, error) {
	if summary == nil {
		return "", nil
	}
	if r.cipher == nil {
		return *summary, nil
	}
	plaintext, err := r.cipher.Decrypt(*summary)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt summary: %w", err)
	}
	return plaintext, nil
}
