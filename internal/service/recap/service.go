// Package recap implements the weekly recap pipeline: window computation,
// summary gathering, LLM synthesis, and exactly-once persistence.
package recap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mindmap-app/mindmap-api/internal/cache"
	"github.com/mindmap-app/mindmap-api/internal/llm"
	prommetrics "github.com/mindmap-app/mindmap-api/internal/metrics"
	"github.com/mindmap-app/mindmap-api/internal/models"
	"github.com/mindmap-app/mindmap-api/internal/repository"
	"github.com/mindmap-app/mindmap-api/pkg/logger"
)

const recapCacheTTL = 24 * time.Hour

// RecapRepository interface for recap persistence.
type RecapRepository interface {
	GetByWindow(userUID string, start, end time.Time) (*models.Recap, error)
	Create(recap *models.Recap) error
	GetRecent(userUID string, limit int) ([]models.Recap, error)
}

// JournalRepository interface for the window's summary reads.
type JournalRepository interface {
	SummariesInWindow(userUID string, start, end time.Time) ([]models.JournalSummary, error)
}

// PrepareResult is the outcome of the prepare phase.
type PrepareResult struct {
	ExistingRecap bool          `json:"existing_recap"`
	DateRange     DateRange     `json:"date_range"`
	Recap         *models.Recap `json:"recap,omitempty"`
	HasEntries    bool          `json:"has_entries"`
	EntryCount    int           `json:"entry_count"`
	AnalysisData  string        `json:"analysis_data,omitempty"`
}

// AnalyzeResult is the outcome of the analyze phase. Skipped is set when a
// concurrent request persisted the window first.
type AnalyzeResult struct {
	HasEntries bool          `json:"has_entries"`
	Skipped    bool          `json:"skipped"`
	Recap      *models.Recap `json:"recap,omitempty"`
	Analysis   *Analysis     `json:"analysis,omitempty"`
	DateRange  DateRange     `json:"date_range"`
}

// Service orchestrates the two recap phases.
type Service struct {
	recapRepo   RecapRepository
	journalRepo JournalRepository
	completer   llm.Completer
	cache       cache.Cache
	log         *logger.Logger
	now         func() time.Time
}

// NewService creates a new recap service.
func NewService(
	recapRepo *repository.RecapRepository,
	journalRepo *repository.JournalRepository,
	completer llm.Completer,
	c cache.Cache,
	log *logger.Logger,
) *Service {
	return NewServiceWithInterfaces(recapRepo, journalRepo, completer, c, log)
}

// NewServiceWithInterfaces creates a new recap service with interface
// dependencies (useful for testing).
func NewServiceWithInterfaces(
	recapRepo RecapRepository,
	journalRepo JournalRepository,
	completer llm.Completer,
	c cache.Cache,
	log *logger.Logger,
) *Service {
	return &Service{
		recapRepo:   recapRepo,
		journalRepo: journalRepo,
		completer:   completer,
		cache:       c,
		log:         log,
		now:         time.Now,
	}
}

// Prepare computes the last completed week, short-circuits on an existing
// recap (cache first, then database), and otherwise gathers the window's
// journal summaries for analysis.
func (s *Service) Prepare(ctx context.Context, userUID string) (*PrepareResult, error) {
	window := LastCompletedWeek(s.now())
	dr := window.DateRange()

	if cached := s.cachedRecap(ctx, userUID, dr); cached != nil {
		prommetrics.RecordRecap("existing")
		return &PrepareResult{ExistingRecap: true, DateRange: dr, Recap: cached, HasEntries: true}, nil
	}

	existing, err := s.recapRepo.GetByWindow(userUID, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing recap: %w", err)
	}
	if existing != nil {
		s.cacheRecap(ctx, userUID, dr, existing)
		prommetrics.RecordRecap("existing")
		return &PrepareResult{ExistingRecap: true, DateRange: dr, Recap: existing, HasEntries: true}, nil
	}

	summaries, err := s.journalRepo.SummariesInWindow(userUID, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("failed to gather journal summaries: %w", err)
	}
	if len(summaries) == 0 {
		prommetrics.RecordRecap("no_entries")
		return &PrepareResult{DateRange: dr, HasEntries: false}, nil
	}

	s.log.Debug().
		Str("user_uid", userUID).
		Int("entries", len(summaries)).
		Str("range_start", dr.StartDate).
		Str("range_end", dr.EndDate).
		Msg("Recap window prepared")

	return &PrepareResult{
		DateRange:    dr,
		HasEntries:   true,
		EntryCount:   len(summaries),
		AnalysisData: buildAnalysisData(summaries),
	}, nil
}

// Analyze sends the prepared summaries through the model once, parses the
// completion, and persists the recap. A concurrent insert for the same
// window is resolved by returning the winning row with Skipped set.
func (s *Service) Analyze(ctx context.Context, userUID, data string, dr DateRange) (*AnalyzeResult, error) {
	if data == "" {
		prommetrics.RecordRecap("no_entries")
		return &AnalyzeResult{HasEntries: false, DateRange: dr}, nil
	}

	window, err := ParseDateRange(dr)
	if err != nil {
		return nil, fmt.Errorf("invalid date range: %w", err)
	}

	completion, err := s.completer.Complete(ctx, systemPrompt, buildPrompt(data, window))
	if err != nil {
		prommetrics.RecordRecap("error")
		return nil, fmt.Errorf("recap synthesis failed: %w", err)
	}

	analysis, err := parseAnalysis(completion)
	if err != nil {
		prommetrics.RecordRecap("error")
		return nil, err
	}

	// The prepare-phase check may be minutes stale by now; re-check right
	// before the insert.
	existing, err := s.recapRepo.GetByWindow(userUID, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("failed to re-check existing recap: %w", err)
	}
	if existing != nil {
		prommetrics.RecordRecap("existing")
		return &AnalyzeResult{HasEntries: true, Skipped: true, Recap: existing, DateRange: dr}, nil
	}

	recap := &models.Recap{
		UserUID:       userUID,
		RangeStart:    window.Start,
		RangeEnd:      window.End,
		WeeklySummary: analysis.Summary,
		Mood:          string(analysis.Mood),
		Feeling:       analysis.Feeling,
		Contributing:  analysis.Contributing,
		Moments:       analysis.Moments,
		Cope:          analysis.Cope,
		Remember:      analysis.Remember,
	}

	if err := s.recapRepo.Create(recap); err != nil {
		if errors.Is(err, repository.ErrRecapExists) {
			winner, ferr := s.recapRepo.GetByWindow(userUID, window.Start, window.End)
			if ferr != nil {
				return nil, fmt.Errorf("failed to fetch recap after lost insert race: %w", ferr)
			}
			prommetrics.RecordRecap("existing")
			return &AnalyzeResult{HasEntries: true, Skipped: true, Recap: winner, DateRange: dr}, nil
		}
		prommetrics.RecordRecap("error")
		return nil, err
	}

	s.cacheRecap(ctx, userUID, dr, recap)
	prommetrics.RecordRecap("generated")

	s.log.Info().
		Str("user_uid", userUID).
		Str("range_start", dr.StartDate).
		Str("range_end", dr.EndDate).
		Msg("Weekly recap generated")

	return &AnalyzeResult{HasEntries: true, Recap: recap, Analysis: analysis, DateRange: dr}, nil
}

// GetRecent returns a user's latest recaps, newest window first.
func (s *Service) GetRecent(_ context.Context, userUID string, limit int) ([]models.Recap, error) {
	return s.recapRepo.GetRecent(userUID, limit)
}

// cachedRecap returns the cached recap for a window, or nil. Cache failures
// only degrade to the database path.
func (s *Service) cachedRecap(ctx context.Context, userUID string, dr DateRange) *models.Recap {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, cache.RecapKey(userUID, dr.StartDate, dr.EndDate))
	if err != nil {
		s.log.Warn().Err(err).Str("user_uid", userUID).Msg("Recap cache read failed")
		return nil
	}
	if raw == "" {
		return nil
	}
	var recap models.Recap
	if err := json.Unmarshal([]byte(raw), &recap); err != nil {
		s.log.Warn().Err(err).Str("user_uid", userUID).Msg("Recap cache entry is corrupt")
		return nil
	}
	return &recap
}

func (s *Service) cacheRecap(ctx context.Context, userUID string, dr DateRange, recap *models.Recap) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(recap)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cache.RecapKey(userUID, dr.StartDate, dr.EndDate), string(raw), recapCacheTTL); err != nil {
		s.log.Warn().Err(err).Str("user_uid", userUID).Msg("Recap cache write failed")
	}
}
