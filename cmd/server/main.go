// Command server runs the MindMap insights API: badge evaluation, weekly
// recaps, and user statistics.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gorm.io/datatypes"

	"github.com/mindmap-app/mindmap-api/internal/api"
	"github.com/mindmap-app/mindmap-api/internal/api/insights"
	"github.com/mindmap-app/mindmap-api/internal/cache"
	"github.com/mindmap-app/mindmap-api/internal/config"
	"github.com/mindmap-app/mindmap-api/internal/llm"
	"github.com/mindmap-app/mindmap-api/internal/models"
	"github.com/mindmap-app/mindmap-api/internal/repository"
	"github.com/mindmap-app/mindmap-api/internal/service/badges"
	"github.com/mindmap-app/mindmap-api/internal/service/recap"
	"github.com/mindmap-app/mindmap-api/internal/service/scheduler"
	"github.com/mindmap-app/mindmap-api/internal/service/stats"
	"github.com/mindmap-app/mindmap-api/pkg/crypto"
	"github.com/mindmap-app/mindmap-api/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)

	db, err := repository.NewDB(&cfg.Database.Postgres, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := db.AutoMigrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	var cipher *crypto.FieldCipher
	if cfg.Encryption.Key != "" {
		cipher, err = crypto.NewFieldCipher(cfg.Encryption.Key)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize field encryption")
		}
	} else {
		log.Warn().Msg("Field encryption is disabled; journal summaries are stored in plaintext")
	}

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	statsRepo := repository.NewStatsRepository(db)
	badgeRepo := repository.NewBadgeRepository(db)
	journalRepo := repository.NewJournalRepository(db, cipher)
	recapRepo := repository.NewRecapRepository(db)

	if err := badgeRepo.SeedCatalog(catalogFromConfig(cfg.Badges)); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed badge catalog")
	}

	// The cache is an optimization; a missing Redis degrades to DB reads.
	var c cache.Cache
	redisCache, err := cache.NewRedisCache(&cfg.Database.Redis, log)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, continuing without cache")
	} else {
		c = redisCache
		defer redisCache.Close()
	}

	// Services.
	statsService := stats.NewService(journalRepo, statsRepo, c, log)
	badgeService := badges.NewService(badgeRepo, journalRepo, statsService, c, cfg.Stats.RefreshTimeout(), log)
	llmClient := llm.NewClient(&cfg.LLM, log)
	recapService := recap.NewService(recapRepo, journalRepo, llmClient, c, log)

	sched := scheduler.NewService(cfg, userRepo, badgeService, log)
	if err := sched.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start scheduler")
	}
	defer sched.Stop()

	handler := insights.NewHandler(badgeService, recapService, statsService, cfg.Server.IsDevelopment(), log)
	router := api.NewRouter(cfg, handler, db)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Forced shutdown")
	}
}

// catalogFromConfig converts configured badges into catalog rows.
func catalogFromConfig(configured []config.BadgeConfig) []models.Badge {
	catalog := make([]models.Badge, 0, len(configured))
	for _, b := range configured {
		catalog = append(catalog, models.Badge{
			Name:           b.Name,
			Description:    b.Description,
			Icon:           b.Icon,
			BadgeType:      models.BadgeType(b.BadgeType),
			RequiredValue:  b.RequiredValue,
			RequiredThemes: datatypes.NewJSONSlice(b.RequiredThemes),
		})
	}
	return catalog
}
