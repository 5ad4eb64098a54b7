// Package insights provides REST API handlers for badge evaluation, the
// weekly recap pipeline, and user statistics.
package insights

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mindmap-app/mindmap-api/internal/api/middleware"
	"github.com/mindmap-app/mindmap-api/internal/models"
	"github.com/mindmap-app/mindmap-api/internal/service/badges"
	"github.com/mindmap-app/mindmap-api/internal/service/recap"
	"github.com/mindmap-app/mindmap-api/internal/service/stats"
	"github.com/mindmap-app/mindmap-api/pkg/logger"
)

// BadgeService interface for badge operations.
type BadgeService interface {
	CheckUnlocks(ctx context.Context, userUID string) (*badges.UnlockResult, error)
	GetUserBadges(ctx context.Context, userUID string) ([]models.UserBadge, error)
	GetBadgeCatalog(ctx context.Context) ([]models.Badge, error)
}

// RecapService interface for the two recap phases and the recap history.
type RecapService interface {
	Prepare(ctx context.Context, userUID string) (*recap.PrepareResult, error)
	Analyze(ctx context.Context, userUID, data string, dr recap.DateRange) (*recap.AnalyzeResult, error)
	GetRecent(ctx context.Context, userUID string, limit int) ([]models.Recap, error)
}

// StatsService interface for the user stats snapshot.
type StatsService interface {
	Snapshot(ctx context.Context, userUID string) (*models.UserStats, error)
}

// Handler handles insights API requests.
type Handler struct {
	badgeService BadgeService
	recapService RecapService
	statsService StatsService
	development  bool
	log          *logger.Logger
}

// NewHandler creates a new insights handler.
func NewHandler(badgeService *badges.Service, recapService *recap.Service, statsService *stats.Service, development bool, log *logger.Logger) *Handler {
	return NewHandlerWithInterfaces(badgeService, recapService, statsService, development, log)
}

// NewHandlerWithInterfaces creates a new insights handler with interface
// dependencies (useful for testing).
func NewHandlerWithInterfaces(badgeService BadgeService, recapService RecapService, statsService StatsService, development bool, log *logger.Logger) *Handler {
	return &Handler{
		badgeService: badgeService,
		recapService: recapService,
		statsService: statsService,
		development:  development,
		log:          log,
	}
}

// CheckUnlock refreshes the caller's stats and evaluates their locked badges.
// POST /api/v1/badges/check-unlock.
func (h *Handler) CheckUnlock(c *gin.Context) {
	userUID := middleware.UserUID(c)

	result, err := h.badgeService.CheckUnlocks(c.Request.Context(), userUID)
	if err != nil {
		h.log.Error().Err(err).Str("user_uid", userUID).Msg("Badge check failed")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to evaluate badges", err)
		return
	}

	h.log.Info().
		Str("user_uid", userUID).
		Int("newly_unlocked", len(result.NewlyUnlocked)).
		Msg("Badge check completed")

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"newly_unlocked": result.NewlyUnlocked,
		"stats":          result.Stats,
	})
}

// PrepareRecap runs the recap prepare phase for the last completed week.
// POST /api/v1/recap.
func (h *Handler) PrepareRecap(c *gin.Context) {
	userUID := middleware.UserUID(c)

	result, err := h.recapService.Prepare(c.Request.Context(), userUID)
	if err != nil {
		h.log.Error().Err(err).Str("user_uid", userUID).Msg("Recap prepare failed")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to prepare recap", err)
		return
	}

	resp := gin.H{
		"existing_recap": result.ExistingRecap,
		"date_range":     result.DateRange,
		"has_entries":    result.HasEntries,
	}
	if result.Recap != nil {
		resp["recap"] = result.Recap
	}
	if result.AnalysisData != "" {
		resp["analysis_data"] = result.AnalysisData
		resp["entry_count"] = result.EntryCount
	}

	c.JSON(http.StatusOK, resp)
}

// analyzeRequest is the analyze phase request body.
type analyzeRequest struct {
	Data      string          `json:"data"`
	DateRange recap.DateRange `json:"date_range" binding:"required"`
}

// AnalyzeRecap runs the recap analyze phase on prepared summary data.
// POST /api/v1/recap/analyze.
func (h *Handler) AnalyzeRecap(c *gin.Context) {
	userUID := middleware.UserUID(c)

	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	result, err := h.recapService.Analyze(c.Request.Context(), userUID, req.Data, req.DateRange)
	if err != nil {
		h.log.Error().Err(err).Str("user_uid", userUID).Msg("Recap analyze failed")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to analyze recap", err)
		return
	}

	if !result.HasEntries {
		c.JSON(http.StatusOK, gin.H{"has_entries": false, "date_range": result.DateRange})
		return
	}
	if result.Skipped {
		c.JSON(http.StatusOK, gin.H{
			"skipped":    true,
			"recap":      result.Recap,
			"date_range": result.DateRange,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"recap":      result.Recap,
		"analysis":   result.Analysis,
		"date_range": result.DateRange,
	})
}

// GetBadgeCatalog returns all available badges.
// GET /api/v1/badges.
func (h *Handler) GetBadgeCatalog(c *gin.Context) {
	catalog, err := h.badgeService.GetBadgeCatalog(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get badge catalog")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve badge catalog", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"badges":       catalog,
		"total_badges": len(catalog),
		"generated_at": time.Now().UTC(),
	})
}

// GetMyBadges returns the caller's unlocked badges.
// GET /api/v1/users/me/badges.
func (h *Handler) GetMyBadges(c *gin.Context) {
	userUID := middleware.UserUID(c)

	userBadges, err := h.badgeService.GetUserBadges(c.Request.Context(), userUID)
	if err != nil {
		h.log.Error().Err(err).Str("user_uid", userUID).Msg("Failed to get user badges")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve user badges", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"badges":       userBadges,
		"total_badges": len(userBadges),
		"generated_at": time.Now().UTC(),
	})
}

// recapHistoryLimit bounds in the history endpoint.
const (
	defaultRecapHistory = 6
	maxRecapHistory     = 26
)

// GetMyRecaps returns the caller's past recaps, newest window first.
// GET /api/v1/users/me/recaps.
func (h *Handler) GetMyRecaps(c *gin.Context) {
	userUID := middleware.UserUID(c)

	limit := defaultRecapHistory
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			h.errorResponse(c, http.StatusBadRequest, "Invalid limit parameter", err)
			return
		}
		limit = parsed
	}
	if limit > maxRecapHistory {
		limit = maxRecapHistory
	}

	recaps, err := h.recapService.GetRecent(c.Request.Context(), userUID, limit)
	if err != nil {
		h.log.Error().Err(err).Str("user_uid", userUID).Msg("Failed to get recap history")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve recaps", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"recaps":       recaps,
		"total_recaps": len(recaps),
		"generated_at": time.Now().UTC(),
	})
}

// GetMyStats returns the caller's statistics, served from the cached
// snapshot when one is fresh.
// GET /api/v1/users/me/stats.
func (h *Handler) GetMyStats(c *gin.Context) {
	userUID := middleware.UserUID(c)

	stats, err := h.statsService.Snapshot(c.Request.Context(), userUID)
	if err != nil {
		h.log.Error().Err(err).Str("user_uid", userUID).Msg("Failed to refresh user stats")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve user statistics", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stats":        stats,
		"generated_at": time.Now().UTC(),
	})
}

// errorResponse sends a standardized error response. Development mode
// includes the underlying error detail.
func (h *Handler) errorResponse(c *gin.Context, statusCode int, message string, err error) {
	resp := gin.H{
		"error":     message,
		"timestamp": time.Now().UTC(),
	}
	if h.development && err != nil {
		resp["detail"] = err.Error()
	}
	c.JSON(statusCode, resp)
}
