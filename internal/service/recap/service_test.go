package recap

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mindmap-app/mindmap-api/internal/models"
	"github.com/mindmap-app/mindmap-api/internal/repository"
	"github.com/mindmap-app/mindmap-api/pkg/logger"
	"github.com/mindmap-app/mindmap-api/test/mocks"
)

// Mock repositories for testing
type mockRecapRepository struct {
	recaps      []*models.Recap
	createErr   error
	createCalls int
}

func (m *mockRecapRepository) GetByWindow(userUID string, start, end time.Time) (*models.Recap, error) {
	for _, r := range m.recaps {
		if r.UserUID == userUID && r.RangeStart.Equal(start) && r.RangeEnd.Equal(end) {
			return r, nil
		}
	}
	return nil, nil
}

func (m *mockRecapRepository) Create(recap *models.Recap) error {
	m.createCalls++
	if m.createErr != nil {
		return m.createErr
	}
	recap.ID = uint(len(m.recaps) + 1)
	m.recaps = append(m.recaps, recap)
	return nil
}

func (m *mockRecapRepository) GetRecent(userUID string, limit int) ([]models.Recap, error) {
	var result []models.Recap
	for _, r := range m.recaps {
		if r.UserUID == userUID && len(result) < limit {
			result = append(result, *r)
		}
	}
	return result, nil
}

type mockJournalRepository struct {
	summaries []models.JournalSummary
}

func (m *mockJournalRepository) SummariesInWindow(userUID string, start, end time.Time) ([]models.JournalSummary, error) {
	return m.summaries, nil
}

// Test setup helper. "Today" is pinned to Wednesday 2024-06-12, so the
// window under test is always 2024-06-02 to 2024-06-08.
func setupTestService() (*Service, *mockRecapRepository, *mockJournalRepository, *mocks.MockCompleter, *mocks.MockCache) {
	recapRepo := &mockRecapRepository{}
	journalRepo := &mockJournalRepository{}
	completer := &mocks.MockCompleter{Response: validAnalysisJSON}
	c := mocks.NewMockCache()
	log := logger.New("debug", "text", "stdout")

	service := NewServiceWithInterfaces(recapRepo, journalRepo, completer, c, log)
	service.now = func() time.Time {
		return time.Date(2024, 6, 12, 10, 0, 0, 0, time.UTC)
	}

	return service, recapRepo, journalRepo, completer, c
}

func testWindow() Window {
	return Window{
		Start: time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 6, 8, 0, 0, 0, 0, time.UTC),
	}
}

func TestPrepare_NoEntries(t *testing.T) {
	service, _, _, _, _ := setupTestService()

	result, err := service.Prepare(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}

	if result.HasEntries {
		t.Error("Expected HasEntries false for empty window")
	}
	if result.ExistingRecap {
		t.Error("Expected no existing recap")
	}
	if result.DateRange.StartDate != "2024-06-02" || result.DateRange.EndDate != "2024-06-08" {
		t.Errorf("Unexpected window: %+v", result.DateRange)
	}
}

func TestPrepare_ReadyForAnalysis(t *testing.T) {
	service, _, journalRepo, _, _ := setupTestService()

	journalRepo.summaries = []models.JournalSummary{
		{JournalID: 2, Summary: "Felt lighter after the run.", DateCreated: time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC), JournalType: models.JournalTypeFreeform},
		{JournalID: 1, Summary: "Worried about the deadline.", DateCreated: time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), JournalType: models.JournalTypeGuided},
	}

	result, err := service.Prepare(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}

	if !result.HasEntries {
		t.Fatal("Expected HasEntries true")
	}
	if result.EntryCount != 2 {
		t.Errorf("Expected 2 entries, got %d", result.EntryCount)
	}
	if result.AnalysisData == "" {
		t.Fatal("Expected analysis data")
	}
	for _, fragment := range []string{"Felt lighter after the run.", "Worried about the deadline.", "2024-06-05", "freeform"} {
		if !strings.Contains(result.AnalysisData, fragment) {
			t.Errorf("Analysis data missing %q:\n%s", fragment, result.AnalysisData)
		}
	}
}

func TestPrepare_ExistingRecapFromDB(t *testing.T) {
	service, recapRepo, journalRepo, _, c := setupTestService()

	window := testWindow()
	recapRepo.recaps = append(recapRepo.recaps, &models.Recap{
		ID:            7,
		UserUID:       "user-1",
		RangeStart:    window.Start,
		RangeEnd:      window.End,
		WeeklySummary: "Already written.",
	})
	journalRepo.summaries = []models.JournalSummary{{Summary: "ignored"}}

	result, err := service.Prepare(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}

	if !result.ExistingRecap {
		t.Fatal("Expected ExistingRecap true")
	}
	if result.Recap == nil || result.Recap.WeeklySummary != "Already written." {
		t.Errorf("Expected the stored recap, got %+v", result.Recap)
	}
	if result.AnalysisData != "" {
		t.Error("Existing recap must short-circuit summary gathering")
	}
	// The DB hit should have populated the cache.
	if c.Len() != 1 {
		t.Errorf("Expected 1 cached entry, got %d", c.Len())
	}
}

func TestPrepare_ExistingRecapFromCache(t *testing.T) {
	service, recapRepo, _, _, c := setupTestService()

	cached, _ := json.Marshal(models.Recap{ID: 9, UserUID: "user-1", WeeklySummary: "From cache."})
	window := testWindow()
	dr := window.DateRange()
	_ = c.Set(context.Background(), "recap:user-1:"+dr.StartDate+":"+dr.EndDate, string(cached), time.Hour)

	result, err := service.Prepare(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}

	if !result.ExistingRecap {
		t.Fatal("Expected ExistingRecap true from cache")
	}
	if result.Recap.WeeklySummary != "From cache." {
		t.Errorf("Expected cached recap, got %+v", result.Recap)
	}
	if len(recapRepo.recaps) != 0 && recapRepo.createCalls != 0 {
		t.Error("Cache hit must not touch the database")
	}
}

func TestAnalyze_NoData(t *testing.T) {
	service, _, _, completer, _ := setupTestService()

	result, err := service.Analyze(context.Background(), "user-1", "", testWindow().DateRange())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if result.HasEntries {
		t.Error("Expected HasEntries false")
	}
	if len(completer.Calls()) != 0 {
		t.Error("Model must not be called without entries")
	}
}

func TestAnalyze_GeneratesRecap(t *testing.T) {
	service, recapRepo, _, completer, _ := setupTestService()

	result, err := service.Analyze(context.Background(), "user-1", "entry data", testWindow().DateRange())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if calls := completer.Calls(); len(calls) != 1 {
		t.Errorf("Expected exactly one model call, got %d", len(calls))
	}
	if result.Skipped {
		t.Error("Expected a fresh recap, not a skip")
	}
	if result.Recap == nil {
		t.Fatal("Expected a persisted recap")
	}
	if result.Recap.WeeklySummary != "A steady week." {
		t.Errorf("Unexpected summary: %q", result.Recap.WeeklySummary)
	}
	if result.Recap.Mood != "calm, hopeful" {
		t.Errorf("Unexpected mood: %q", result.Recap.Mood)
	}
	if result.Analysis == nil {
		t.Error("Expected parsed analysis in the result")
	}
	if len(recapRepo.recaps) != 1 {
		t.Errorf("Expected 1 stored recap, got %d", len(recapRepo.recaps))
	}
}

func TestAnalyze_PreInsertRecheckSkips(t *testing.T) {
	service, recapRepo, _, _, _ := setupTestService()

	window := testWindow()
	recapRepo.recaps = append(recapRepo.recaps, &models.Recap{
		ID:         3,
		UserUID:    "user-1",
		RangeStart: window.Start,
		RangeEnd:   window.End,
	})

	result, err := service.Analyze(context.Background(), "user-1", "entry data", window.DateRange())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if !result.Skipped {
		t.Error("Expected Skipped when the window already has a recap")
	}
	if result.Recap == nil || result.Recap.ID != 3 {
		t.Errorf("Expected the winning row, got %+v", result.Recap)
	}
	if recapRepo.createCalls != 0 {
		t.Error("Must not attempt a duplicate insert")
	}
}

func TestAnalyze_LostInsertRace(t *testing.T) {
	service, recapRepo, _, _, _ := setupTestService()

	// The re-check sees nothing, but the insert loses to a concurrent
	// request. The winner appears for the post-failure fetch.
	window := testWindow()
	winner := &models.Recap{ID: 5, UserUID: "user-1", RangeStart: window.Start, RangeEnd: window.End}
	recapRepo.createErr = repository.ErrRecapExists

	callCount := 0
	service.recapRepo = &racingRecapRepo{inner: recapRepo, winner: winner, missOnFirst: &callCount}

	result, err := service.Analyze(context.Background(), "user-1", "entry data", window.DateRange())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if !result.Skipped {
		t.Error("Expected Skipped after losing the insert race")
	}
	if result.Recap == nil || result.Recap.ID != 5 {
		t.Errorf("Expected the winner row, got %+v", result.Recap)
	}
}

// racingRecapRepo misses the first GetByWindow and returns the winner on
// subsequent calls, simulating a concurrent insert between the re-check and
// the Create.
type racingRecapRepo struct {
	inner       *mockRecapRepository
	winner      *models.Recap
	missOnFirst *int
}

func (r *racingRecapRepo) GetByWindow(userUID string, start, end time.Time) (*models.Recap, error) {
	*r.missOnFirst++
	if *r.missOnFirst == 1 {
		return nil, nil
	}
	return r.winner, nil
}

func (r *racingRecapRepo) Create(recap *models.Recap) error {
	return r.inner.Create(recap)
}

func (r *racingRecapRepo) GetRecent(userUID string, limit int) ([]models.Recap, error) {
	return r.inner.GetRecent(userUID, limit)
}

func TestAnalyze_ParseFailureIsFatal(t *testing.T) {
	service, recapRepo, _, completer, _ := setupTestService()

	completer.Response = "I am sorry, something went wrong."

	_, err := service.Analyze(context.Background(), "user-1", "entry data", testWindow().DateRange())
	if err == nil {
		t.Fatal("Expected error for unparseable completion")
	}
	if recapRepo.createCalls != 0 {
		t.Error("Parse failure must not persist anything")
	}
}

func TestAnalyze_CompleterError(t *testing.T) {
	service, _, _, completer, _ := setupTestService()

	completer.Err = errors.New("upstream unavailable")

	_, err := service.Analyze(context.Background(), "user-1", "entry data", testWindow().DateRange())
	if err == nil {
		t.Fatal("Expected error when the model call fails")
	}
}
