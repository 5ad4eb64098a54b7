// Package api wires the HTTP routes for the insights API.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mindmap-app/mindmap-api/internal/api/insights"
	"github.com/mindmap-app/mindmap-api/internal/api/middleware"
	"github.com/mindmap-app/mindmap-api/internal/config"
	"github.com/mindmap-app/mindmap-api/internal/repository"
)

// NewRouter builds the gin engine with all routes registered.
func NewRouter(cfg *config.Config, handler *insights.Handler, db *repository.DB) *gin.Engine {
	if !cfg.Server.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		if err := db.Health(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"timestamp": time.Now().UTC(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
		})
	})

	if cfg.Metrics.Prometheus.Enabled {
		path := cfg.Metrics.Prometheus.Path
		if path == "" {
			path = "/metrics"
		}
		router.GET(path, gin.WrapH(promhttp.Handler()))
	}

	v1 := router.Group("/api/v1")
	v1.Use(middleware.Auth(cfg.Auth.JWTSecret))
	{
		v1.POST("/badges/check-unlock", handler.CheckUnlock)
		v1.GET("/badges", handler.GetBadgeCatalog)

		v1.POST("/recap", handler.PrepareRecap)
		v1.POST("/recap/analyze", handler.AnalyzeRecap)

		v1.GET("/users/me/badges", handler.GetMyBadges)
		v1.GET("/users/me/recaps", handler.GetMyRecaps)
		v1.GET("/users/me/stats", handler.GetMyStats)
	}

	return router
}
