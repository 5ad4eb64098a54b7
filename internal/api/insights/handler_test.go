//nolint:noctx // Test file uses http.NewRequest for simplicity
package insights

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/mindmap-app/mindmap-api/internal/api/middleware"
	"github.com/mindmap-app/mindmap-api/internal/models"
	"github.com/mindmap-app/mindmap-api/internal/service/badges"
	"github.com/mindmap-app/mindmap-api/internal/service/recap"
	"github.com/mindmap-app/mindmap-api/pkg/logger"
)

const testUserUID = "3f1c5a0e-8f1e-4c70-9b4e-2b8a4f6d9c11"

// Mock Badge Service
type mockBadgeService struct {
	unlockResult *badges.UnlockResult
	unlockErr    error
	userBadges   []models.UserBadge
	catalog      []models.Badge
}

func (m *mockBadgeService) CheckUnlocks(ctx context.Context, userUID string) (*badges.UnlockResult, error) {
	if m.unlockErr != nil {
		return nil, m.unlockErr
	}
	return m.unlockResult, nil
}

func (m *mockBadgeService) GetUserBadges(ctx context.Context, userUID string) ([]models.UserBadge, error) {
	return m.userBadges, nil
}

func (m *mockBadgeService) GetBadgeCatalog(ctx context.Context) ([]models.Badge, error) {
	return m.catalog, nil
}

// Mock Recap Service
type mockRecapService struct {
	prepareResult *recap.PrepareResult
	analyzeResult *recap.AnalyzeResult
	recentRecaps  []models.Recap
	prepareErr    error
	analyzeErr    error
	analyzedData  string
	recentLimit   int
}

func (m *mockRecapService) Prepare(ctx context.Context, userUID string) (*recap.PrepareResult, error) {
	if m.prepareErr != nil {
		return nil, m.prepareErr
	}
	return m.prepareResult, nil
}

func (m *mockRecapService) Analyze(ctx context.Context, userUID, data string, dr recap.DateRange) (*recap.AnalyzeResult, error) {
	m.analyzedData = data
	if m.analyzeErr != nil {
		return nil, m.analyzeErr
	}
	return m.analyzeResult, nil
}

func (m *mockRecapService) GetRecent(ctx context.Context, userUID string, limit int) ([]models.Recap, error) {
	m.recentLimit = limit
	if len(m.recentRecaps) > limit {
		return m.recentRecaps[:limit], nil
	}
	return m.recentRecaps, nil
}

// Mock Stats Service
type mockStatsService struct {
	stats *models.UserStats
	err   error
}

func (m *mockStatsService) Snapshot(ctx context.Context, userUID string) (*models.UserStats, error) {
	return m.stats, m.err
}

// Test Setup
func setupTestHandler() (*Handler, *mockBadgeService, *mockRecapService, *mockStatsService) {
	badgeService := &mockBadgeService{}
	recapService := &mockRecapService{}
	statsService := &mockStatsService{}
	log := logger.New("debug", "text", "stdout")

	handler := NewHandlerWithInterfaces(badgeService, recapService, statsService, true, log)

	return handler, badgeService, recapService, statsService
}

func setupRouter(handler *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	// Stand-in for the auth middleware: inject a fixed authenticated user.
	router.Use(func(c *gin.Context) {
		c.Set(middleware.UserUIDKey, testUserUID)
	})

	api := router.Group("/api/v1")
	api.POST("/badges/check-unlock", handler.CheckUnlock)
	api.GET("/badges", handler.GetBadgeCatalog)
	api.POST("/recap", handler.PrepareRecap)
	api.POST("/recap/analyze", handler.AnalyzeRecap)
	api.GET("/users/me/badges", handler.GetMyBadges)
	api.GET("/users/me/recaps", handler.GetMyRecaps)
	api.GET("/users/me/stats", handler.GetMyStats)

	return router
}

// Tests

func TestCheckUnlock_Success(t *testing.T) {
	handler, badgeService, _, _ := setupTestHandler()
	router := setupRouter(handler)

	badgeService.unlockResult = &badges.UnlockResult{
		NewlyUnlocked: []models.Badge{{ID: 1, Name: "First Entry", BadgeType: models.BadgeTypeCount}},
		Stats:         &models.UserStats{UserUID: testUserUID, TotalEntries: 1},
	}

	req, _ := http.NewRequest("POST", "/api/v1/badges/check-unlock", http.NoBody)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)

	assert.Equal(t, true, response["success"])
	unlocked := response["newly_unlocked"].([]interface{})
	assert.Len(t, unlocked, 1)
	assert.NotNil(t, response["stats"])
}

func TestCheckUnlock_ServiceError(t *testing.T) {
	handler, badgeService, _, _ := setupTestHandler()
	router := setupRouter(handler)

	badgeService.unlockErr = fmt.Errorf("stats refresh exceeded 30s")

	req, _ := http.NewRequest("POST", "/api/v1/badges/check-unlock", http.NoBody)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, "Failed to evaluate badges", response["error"])
	// Development mode carries the underlying detail.
	assert.Contains(t, response["detail"], "stats refresh")
}

func TestPrepareRecap_Existing(t *testing.T) {
	handler, _, recapService, _ := setupTestHandler()
	router := setupRouter(handler)

	recapService.prepareResult = &recap.PrepareResult{
		ExistingRecap: true,
		HasEntries:    true,
		DateRange:     recap.DateRange{StartDate: "2024-06-02", EndDate: "2024-06-08"},
		Recap:         &models.Recap{ID: 4, UserUID: testUserUID, WeeklySummary: "Done already."},
	}

	req, _ := http.NewRequest("POST", "/api/v1/recap", http.NoBody)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)

	assert.Equal(t, true, response["existing_recap"])
	assert.NotNil(t, response["recap"])
	assert.Nil(t, response["analysis_data"])
}

func TestPrepareRecap_ReadyForAnalysis(t *testing.T) {
	handler, _, recapService, _ := setupTestHandler()
	router := setupRouter(handler)

	recapService.prepareResult = &recap.PrepareResult{
		HasEntries:   true,
		EntryCount:   3,
		DateRange:    recap.DateRange{StartDate: "2024-06-02", EndDate: "2024-06-08"},
		AnalysisData: "[2024-06-05, freeform entry] Felt lighter.",
	}

	req, _ := http.NewRequest("POST", "/api/v1/recap", http.NoBody)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)

	assert.Equal(t, false, response["existing_recap"])
	assert.Equal(t, true, response["has_entries"])
	assert.Equal(t, float64(3), response["entry_count"])
	assert.NotEmpty(t, response["analysis_data"])
}

func TestPrepareRecap_NoEntries(t *testing.T) {
	handler, _, recapService, _ := setupTestHandler()
	router := setupRouter(handler)

	recapService.prepareResult = &recap.PrepareResult{
		HasEntries: false,
		DateRange:  recap.DateRange{StartDate: "2024-06-02", EndDate: "2024-06-08"},
	}

	req, _ := http.NewRequest("POST", "/api/v1/recap", http.NoBody)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, false, response["has_entries"])
}

func TestAnalyzeRecap_Success(t *testing.T) {
	handler, _, recapService, _ := setupTestHandler()
	router := setupRouter(handler)

	recapService.analyzeResult = &recap.AnalyzeResult{
		HasEntries: true,
		Recap:      &models.Recap{ID: 1, UserUID: testUserUID, WeeklySummary: "A steady week."},
		Analysis:   &recap.Analysis{Summary: "A steady week."},
		DateRange:  recap.DateRange{StartDate: "2024-06-02", EndDate: "2024-06-08"},
	}

	body, _ := json.Marshal(map[string]interface{}{
		"data":       "entry data",
		"date_range": map[string]string{"start_date": "2024-06-02", "end_date": "2024-06-08"},
	})
	req, _ := http.NewRequest("POST", "/api/v1/recap/analyze", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)

	assert.NotNil(t, response["recap"])
	assert.NotNil(t, response["analysis"])
	assert.Equal(t, "entry data", recapService.analyzedData)
}

func TestAnalyzeRecap_Skipped(t *testing.T) {
	handler, _, recapService, _ := setupTestHandler()
	router := setupRouter(handler)

	recapService.analyzeResult = &recap.AnalyzeResult{
		HasEntries: true,
		Skipped:    true,
		Recap:      &models.Recap{ID: 2, UserUID: testUserUID},
		DateRange:  recap.DateRange{StartDate: "2024-06-02", EndDate: "2024-06-08"},
	}

	body, _ := json.Marshal(map[string]interface{}{
		"data":       "entry data",
		"date_range": map[string]string{"start_date": "2024-06-02", "end_date": "2024-06-08"},
	})
	req, _ := http.NewRequest("POST", "/api/v1/recap/analyze", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, true, response["skipped"])
	assert.NotNil(t, response["recap"])
}

func TestAnalyzeRecap_NoEntries(t *testing.T) {
	handler, _, recapService, _ := setupTestHandler()
	router := setupRouter(handler)

	recapService.analyzeResult = &recap.AnalyzeResult{
		HasEntries: false,
		DateRange:  recap.DateRange{StartDate: "2024-06-02", EndDate: "2024-06-08"},
	}

	body, _ := json.Marshal(map[string]interface{}{
		"data":       "",
		"date_range": map[string]string{"start_date": "2024-06-02", "end_date": "2024-06-08"},
	})
	req, _ := http.NewRequest("POST", "/api/v1/recap/analyze", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, false, response["has_entries"])
}

func TestAnalyzeRecap_MissingBody(t *testing.T) {
	handler, _, _, _ := setupTestHandler()
	router := setupRouter(handler)

	req, _ := http.NewRequest("POST", "/api/v1/recap/analyze", bytes.NewReader([]byte("not json")))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetBadgeCatalog_Success(t *testing.T) {
	handler, badgeService, _, _ := setupTestHandler()
	router := setupRouter(handler)

	badgeService.catalog = []models.Badge{
		{ID: 1, Name: "First Entry", BadgeType: models.BadgeTypeCount},
		{ID: 2, Name: "7 Day Streak", BadgeType: models.BadgeTypeStreak},
	}

	req, _ := http.NewRequest("GET", "/api/v1/badges", http.NoBody)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, float64(2), response["total_badges"])
}

func TestGetMyBadges_Success(t *testing.T) {
	handler, badgeService, _, _ := setupTestHandler()
	router := setupRouter(handler)

	badgeService.userBadges = []models.UserBadge{
		{ID: 1, UserUID: testUserUID, BadgeID: 1, UnlockedAt: time.Now()},
	}

	req, _ := http.NewRequest("GET", "/api/v1/users/me/badges", http.NoBody)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, float64(1), response["total_badges"])
}

func TestGetMyRecaps_Success(t *testing.T) {
	handler, _, recapService, _ := setupTestHandler()
	router := setupRouter(handler)

	recapService.recentRecaps = []models.Recap{
		{ID: 2, UserUID: testUserUID, WeeklySummary: "Latest week."},
		{ID: 1, UserUID: testUserUID, WeeklySummary: "Week before."},
	}

	req, _ := http.NewRequest("GET", "/api/v1/users/me/recaps", http.NoBody)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, float64(2), response["total_recaps"])
	assert.Equal(t, defaultRecapHistory, recapService.recentLimit)
}

func TestGetMyRecaps_LimitClamped(t *testing.T) {
	handler, _, recapService, _ := setupTestHandler()
	router := setupRouter(handler)

	req, _ := http.NewRequest("GET", "/api/v1/users/me/recaps?limit=500", http.NoBody)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, maxRecapHistory, recapService.recentLimit)
}

func TestGetMyRecaps_InvalidLimit(t *testing.T) {
	handler, _, _, _ := setupTestHandler()
	router := setupRouter(handler)

	req, _ := http.NewRequest("GET", "/api/v1/users/me/recaps?limit=zero", http.NoBody)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetMyStats_Success(t *testing.T) {
	handler, _, _, statsService := setupTestHandler()
	router := setupRouter(handler)

	statsService.stats = &models.UserStats{UserUID: testUserUID, TotalEntries: 12, CurrentStreak: 4}

	req, _ := http.NewRequest("GET", "/api/v1/users/me/stats", http.NoBody)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)

	stats := response["stats"].(map[string]interface{})
	assert.Equal(t, float64(12), stats["total_entries"])
	assert.Equal(t, float64(4), stats["current_streak"])
}
