package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/flipsight/flipsight/internal/clientdata"
	"github.com/flipsight/flipsight/internal/clients/llm"
	"github.com/flipsight/flipsight/internal/clients/wikiprices"
	"github.com/flipsight/flipsight/internal/config"
	"github.com/flipsight/flipsight/internal/database"
	"github.com/flipsight/flipsight/internal/events"
	"github.com/flipsight/flipsight/internal/modules/assistant"
	assistanthandlers "github.com/flipsight/flipsight/internal/modules/assistant/handlers"
	"github.com/flipsight/flipsight/internal/modules/blocklist"
	blocklisthandlers "github.com/flipsight/flipsight/internal/modules/blocklist/handlers"
	"github.com/flipsight/flipsight/internal/modules/charts"
	chartshandlers "github.com/flipsight/flipsight/internal/modules/charts/handlers"
	"github.com/flipsight/flipsight/internal/modules/flips"
	flipshandlers "github.com/flipsight/flipsight/internal/modules/flips/handlers"
	"github.com/flipsight/flipsight/internal/modules/forecast"
	forecasthandlers "github.com/flipsight/flipsight/internal/modules/forecast/handlers"
	"github.com/flipsight/flipsight/internal/modules/items"
	itemshandlers "github.com/flipsight/flipsight/internal/modules/items/handlers"
	"github.com/flipsight/flipsight/internal/modules/query"
	queryhandlers "github.com/flipsight/flipsight/internal/modules/query/handlers"
	"github.com/flipsight/flipsight/internal/ratelimit"
	"github.com/flipsight/flipsight/internal/scheduler"
	"github.com/flipsight/flipsight/internal/server"
	"github.com/flipsight/flipsight/pkg/logger"
)

const version = "1.0.0"

func main() {
	// Load configuration first so it can drive the log level
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New(logger.Config{Level: "info", Pretty: true})
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Str("version", version).Msg("Starting flipsight")

	// Databases
	flipsDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "flips.db"),
		Profile: database.ProfileStandard,
		Name:    "flips",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open flips database")
	}
	defer flipsDB.Close()

	catalogDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "catalog.db"),
		Profile: database.ProfileCache,
		Name:    "catalog",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open catalog database")
	}
	defer catalogDB.Close()

	for _, db := range []*database.DB{flipsDB, catalogDB} {
		if err := db.Migrate(); err != nil {
			log.Fatal().Err(err).Str("database", db.Name()).Msg("Failed to run migrations")
		}
	}

	// Clients
	pricesCache := clientdata.NewRepository(catalogDB.Conn())
	pricesClient := wikiprices.NewClient(cfg.PricesAPIURL, cfg.HTTPAgent, pricesCache, log)
	llmClient := llm.NewClient(cfg.LLMAPIURL, cfg.LLMAPIKey, cfg.LLMModel, log)

	// Event bus feeding the websocket endpoint
	bus := events.NewBus(log)

	// Services
	itemsService := items.NewService(pricesClient, bus, log)

	flipsRepo := flips.NewRepository(flipsDB, log)
	flipsService := flips.NewService(flipsRepo, bus, cfg.CSVImportDir, log)

	patternCatalog, err := query.LoadDefaultCatalog(cfg.QueryPatternsPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load query pattern catalog")
	}
	queryService := query.NewService(patternCatalog, flipsService, itemsService, log)

	blocklistService := blocklist.NewService(itemsService, bus, log)
	chartsService := charts.NewService(flipsService, log)
	forecastService := forecast.NewService(flipsService, log)
	assistantService := assistant.NewService(llmClient, flipsDB, log)

	sqlLimiter := ratelimit.NewKeyedLimiter(
		cfg.SQLRateLimit,
		time.Duration(cfg.SQLRateWindowSeconds)*time.Second,
	)

	// The item dictionary must be usable before serving: without it the
	// matcher, blocklist evaluator and price lookups have nothing to read.
	if err := itemsService.Sync(); err != nil {
		log.Fatal().Err(err).Msg("Initial item catalog sync failed")
	}

	// Pick up CSV exports already sitting in the import directory
	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 2*time.Minute)
	if n, err := flipsService.ScanImportDir(startupCtx); err != nil {
		log.Warn().Err(err).Msg("Startup import scan failed")
	} else if n > 0 {
		log.Info().Int("files", n).Msg("Imported files found at startup")
	}
	cancelStartup()

	// Scheduler
	sched := scheduler.New(log)
	registerJobs(sched, cfg, itemsService, flipsService, log)
	sched.Start()
	defer sched.Stop()

	// HTTP server
	srv := server.New(server.Config{
		Port:      cfg.Port,
		Log:       log,
		DevMode:   cfg.DevMode,
		Version:   version,
		FlipsDB:   flipsDB,
		CatalogDB: catalogDB,
		Bus:       bus,
		Items:     itemshandlers.NewHandler(itemsService, log),
		Flips:     flipshandlers.NewHandler(flipsService, log),
		Blocklist: blocklisthandlers.NewHandler(blocklistService, log),
		Charts:    chartshandlers.NewHandler(chartsService, log),
		Forecast:  forecasthandlers.NewHandler(forecastService, log),
		Query:     queryhandlers.NewHandler(queryService, log),
		Assistant: assistanthandlers.NewHandler(assistantService, sqlLimiter, log),
	})

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

// registerJobs wires the recurring background work. A bad schedule is a
// configuration error and fatal at startup.
func registerJobs(
	sched *scheduler.Scheduler,
	cfg *config.Config,
	itemsService *items.Service,
	flipsService *flips.Service,
	log zerolog.Logger,
) {
	jobs := []struct {
		schedule string
		job      scheduler.Job
	}{
		{cfg.PriceRefreshSchedule, &scheduler.PriceRefreshJob{Items: itemsService}},
		{cfg.ImportScanSchedule, &scheduler.ImportScanJob{Flips: flipsService}},
		{cfg.StatsRebuildSchedule, &scheduler.StatsRebuildJob{Flips: flipsService}},
	}

	for _, j := range jobs {
		if err := sched.AddJob(j.schedule, j.job); err != nil {
			log.Fatal().Err(err).Str("job", j.job.Name()).Str("schedule", j.schedule).Msg("Failed to register job")
		}
	}
}
