// Package main is the entry point for the StockPulse backend. It wires the
// databases, market data and text-generation clients, module services, the
// background task runner, scheduled jobs, and the HTTP server.
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/stockpulse/stockpulse/internal/clientdata"
	"github.com/stockpulse/stockpulse/internal/clients/openai"
	"github.com/stockpulse/stockpulse/internal/clients/yahoo"
	"github.com/stockpulse/stockpulse/internal/config"
	"github.com/stockpulse/stockpulse/internal/database"
	"github.com/stockpulse/stockpulse/internal/modules/analysis"
	"github.com/stockpulse/stockpulse/internal/modules/recommendations"
	"github.com/stockpulse/stockpulse/internal/modules/scoring"
	"github.com/stockpulse/stockpulse/internal/modules/stocks"
	"github.com/stockpulse/stockpulse/internal/modules/tasks"
	"github.com/stockpulse/stockpulse/internal/reliability"
	"github.com/stockpulse/stockpulse/internal/scheduler"
	"github.com/stockpulse/stockpulse/internal/server"
	"github.com/stockpulse/stockpulse/pkg/logger"
)

// taskRetention is how long finished analysis tasks are kept.
const taskRetention = 7 * 24 * time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Msg("Starting StockPulse")

	// Databases
	databases := openDatabases(cfg, log)
	marketDB := databases["market"]
	analysisDB := databases["analysis"]
	cacheDB := databases["cache"]

	// External clients
	yahooClient := yahoo.New(cfg.AllowSyntheticFallback, log)
	openaiClient := openai.New(openai.Config{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.OpenAIModel,
	}, log)
	if !openaiClient.Configured() {
		log.Warn().Msg("No OpenAI API key configured, analysis endpoints will return errors")
	}

	// Stocks module
	stockRepo := stocks.NewStockRepository(marketDB.Conn(), log)
	priceRepo := stocks.NewPriceRepository(marketDB.Conn(), log)
	stockService := stocks.NewService(stockRepo, priceRepo, yahooClient, cfg.HistoryPeriodDays, log)

	// Client cache backs the chart endpoint and is swept by a cleanup job
	cacheRepo := clientdata.NewRepository(cacheDB.Conn())
	stockService.SetChartCache(cacheRepo)

	// Analysis module
	analysisRepo := analysis.NewRepository(analysisDB.Conn(), log)
	analysisService := analysis.NewService(stockService, analysisRepo, openaiClient, log)

	// Scoring and recommendations
	scoringService := scoring.NewService(stockRepo, analysisRepo, priceRepo, cfg.RecommendationTTL, log)
	recommendationRepo := recommendations.NewRepository(analysisDB.Conn(), log)
	recommendationService := recommendations.NewService(recommendationRepo, scoringService, log)

	// Background task runner
	taskRepo := tasks.NewRepository(cacheDB.Conn(), log)
	runner := tasks.NewRunner(taskRepo, analysisService, recommendationService, stockRepo, cfg.TaskWorkers, log)

	runnerCtx, stopRunner := context.WithCancel(context.Background())
	runner.Start(runnerCtx)

	// Maintenance and backups
	maintenance := reliability.NewMaintenanceService(databases, cfg.DataDir, log)

	sched := scheduler.New(log)
	registerJobs(sched, cfg, databases, stockService, analysisRepo, recommendationRepo, taskRepo, cacheRepo, maintenance, log)
	sched.Start()

	// HTTP server
	srv := server.New(server.Config{
		Log:     log,
		Port:    cfg.Port,
		DevMode: cfg.DevMode,
		DataDir: cfg.DataDir,
		Handlers: []server.RouteRegistrar{
			stocks.NewHandler(stockService, log),
			analysis.NewHandler(analysisService, log),
			recommendations.NewHandler(recommendationService, log),
			tasks.NewHandler(taskRepo, runner, log),
		},
		MarketDB:   marketDB,
		AnalysisDB: analysisDB,
		CacheDB:    cacheDB,
	})

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	// Wait for shutdown signal or server failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	case err := <-serverErr:
		log.Error().Err(err).Msg("HTTP server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}

	sched.Stop()

	stopRunner()
	runner.Wait()

	for name, db := range databases {
		if err := db.Close(); err != nil {
			log.Error().Err(err).Str("database", name).Msg("Failed to close database")
		}
	}

	log.Info().Msg("Shutdown complete")
}

// openDatabases opens and migrates the three application databases.
func openDatabases(cfg *config.Config, log zerolog.Logger) map[string]*database.DB {
	specs := []struct {
		name    string
		profile database.DatabaseProfile
	}{
		{"market", database.ProfileStandard},
		{"analysis", database.ProfileStandard},
		{"cache", database.ProfileCache},
	}

	databases := make(map[string]*database.DB, len(specs))
	for _, spec := range specs {
		db, err := database.New(database.Config{
			Path:    filepath.Join(cfg.DataDir, spec.name+".db"),
			Profile: spec.profile,
			Name:    spec.name,
		})
		if err != nil {
			log.Fatal().Err(err).Str("database", spec.name).Msg("Failed to open database")
		}
		if err := db.Migrate(); err != nil {
			log.Fatal().Err(err).Str("database", spec.name).Msg("Failed to migrate database")
		}
		databases[spec.name] = db
		log.Info().Str("database", spec.name).Str("path", db.Path()).Msg("Database ready")
	}

	return databases
}

// registerJobs wires all recurring background jobs into the scheduler.
func registerJobs(
	sched *scheduler.Scheduler,
	cfg *config.Config,
	databases map[string]*database.DB,
	stockService *stocks.Service,
	analysisRepo *analysis.Repository,
	recommendationRepo *recommendations.Repository,
	taskRepo *tasks.Repository,
	cacheRepo *clientdata.Repository,
	maintenance *reliability.MaintenanceService,
	log zerolog.Logger,
) {
	jobs := []struct {
		schedule string
		job      scheduler.Job
	}{
		// Weekdays after US market close (UTC)
		{"0 30 21 * * MON-FRI", scheduler.NewMarketRefreshJob(stockService, log)},
		{"0 15 * * * *", scheduler.NewExpiryCleanupJob("analysis_cleanup", analysisRepo, log)},
		{"0 20 * * * *", scheduler.NewExpiryCleanupJob("recommendation_cleanup", recommendationRepo, log)},
		{"0 25 * * * *", scheduler.NewTaskCleanupJob(taskRepo, taskRetention, log)},
		{"0 */30 * * * *", scheduler.NewCacheCleanupJob(cacheRepo, log)},
		{"0 0 2 * * *", scheduler.NewMaintenanceJob(maintenance)},
		{"0 0 3 * * SUN", scheduler.NewVacuumJob(maintenance)},
	}

	if cfg.Backup.Enabled() {
		client, err := reliability.NewObjectClient(context.Background(), cfg.Backup, log)
		if err != nil {
			log.Error().Err(err).Msg("Failed to initialize backup storage, backups disabled")
		} else {
			backupService := reliability.NewBackupService(databases, client, cfg.DataDir, cfg.Backup.Keep, log)
			jobs = append(jobs, struct {
				schedule string
				job      scheduler.Job
			}{"0 0 4 * * *", scheduler.NewBackupJob(backupService)})
		}
	} else {
		log.Info().Msg("Remote backups not configured")
	}

	for _, entry := range jobs {
		if err := sched.AddJob(entry.schedule, entry.job); err != nil {
			log.Error().Err(err).Str("job", entry.job.Name()).Msg("Failed to register job")
		}
	}
}
