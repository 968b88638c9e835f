// Package main is the entry point for the Folio portfolio analytics server.
// It wires the SQLite stores, the market data provider, the analytics
// services and the background scheduler, then serves the HTTP API until
// interrupted.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/folio/internal/clientdata"
	"github.com/aristath/folio/internal/clients/yahoo"
	"github.com/aristath/folio/internal/config"
	"github.com/aristath/folio/internal/database"
	"github.com/aristath/folio/internal/modules/analysis"
	"github.com/aristath/folio/internal/modules/charts"
	"github.com/aristath/folio/internal/modules/dividends"
	"github.com/aristath/folio/internal/modules/history"
	"github.com/aristath/folio/internal/modules/portfolio"
	"github.com/aristath/folio/internal/scheduler"
	"github.com/aristath/folio/internal/server"
	"github.com/aristath/folio/internal/services"
	"github.com/aristath/folio/pkg/logger"
)

// historyAdapter bridges the history mirror to the analysis and charts
// modules, which consume close series as analysis.PricePoint values.
type historyAdapter struct {
	history *history.Service
}

func (a *historyAdapter) EnsureHistory(tickers []string, rangeSpec string) ([]string, error) {
	return a.history.EnsureHistory(tickers, rangeSpec)
}

func (a *historyAdapter) GetCloses(tickers []string, rangeSpec string) (map[string][]analysis.PricePoint, error) {
	closes, err := a.history.GetCloses(tickers, rangeSpec)
	if err != nil {
		return nil, err
	}
	series := make(map[string][]analysis.PricePoint, len(closes))
	for ticker, prices := range closes {
		points := make([]analysis.PricePoint, len(prices))
		for i, p := range prices {
			points[i] = analysis.PricePoint{Date: p.Date, Close: p.Close}
		}
		series[ticker] = points
	}
	return series, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Use fallback logger if config fails
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: true,
	})

	log.Info().Str("data_dir", cfg.DataDir).Msg("Starting Folio")

	portfolioDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "portfolio.db"),
		Profile: database.ProfileStandard,
		Name:    "portfolio",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open portfolio database")
	}
	defer portfolioDB.Close()

	cacheDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "cache.db"),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open cache database")
	}
	defer cacheDB.Close()

	historyDB, err := history.Open(filepath.Join(cfg.DataDir, "history.db"), log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open history database")
	}
	defer historyDB.Close()

	if err := portfolio.InitSchema(portfolioDB.Conn()); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize portfolio schema")
	}
	if err := clientdata.InitSchema(cacheDB.Conn()); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize cache schema")
	}

	client := yahoo.NewFromConfig(cfg.MarketDataClient, log)
	cacheRepo := clientdata.NewRepository(cacheDB.Conn())

	marketData := services.NewMarketDataService(
		client,
		cacheRepo,
		time.Duration(cfg.QuoteTTLMinutes)*time.Minute,
		time.Duration(cfg.FundamentalsTTLHours)*time.Hour,
		log,
	)

	historyMaxAge := time.Duration(cfg.HistoryMaxAgeHours) * time.Hour
	historyService := history.NewService(historyDB, client, cacheRepo, historyMaxAge, historyMaxAge, log)
	closes := &historyAdapter{history: historyService}

	positionRepo := portfolio.NewPositionRepository(portfolioDB.Conn(), log)
	portfolioService := portfolio.NewPortfolioService(positionRepo, marketData, log)
	analysisService := analysis.NewService(positionRepo, marketData, closes, cfg.RiskFreeRate, cfg.DefaultRange, log)
	dividendService := dividends.NewService(positionRepo, marketData, log)
	chartService := charts.NewService(portfolioService, analysisService, closes, cfg.DefaultRange, log)

	sched := scheduler.New(log)
	registerJobs(sched, cfg, positionRepo, marketData, historyService, cacheRepo,
		[]scheduler.Checkpointer{portfolioDB, cacheDB, historyDB}, log)
	sched.Start()
	defer sched.Stop()

	srv := server.New(server.Config{
		Log:       log,
		Config:    cfg,
		Port:      cfg.Port,
		DevMode:   cfg.DevMode,
		Health:    portfolioDB,
		Positions: positionRepo,
		Portfolio: portfolioService,
		Analysis:  analysisService,
		Dividends: dividendService,
		Charts:    chartService,
		Scheduler: sched,
		Databases: []server.StatsSource{portfolioDB, cacheDB, historyDB},
	})

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

// registerJobs wires the recurring background jobs onto the scheduler.
// A job with a bad schedule is logged and skipped, the server still
// starts without it.
func registerJobs(
	sched *scheduler.Scheduler,
	cfg *config.Config,
	positions *portfolio.PositionRepository,
	marketData *services.MarketDataService,
	historyService *history.Service,
	cacheRepo *clientdata.Repository,
	databases []scheduler.Checkpointer,
	log zerolog.Logger,
) {
	add := func(schedule string, job scheduler.Job) {
		if err := sched.AddJob(schedule, job); err != nil {
			log.Error().
				Err(err).
				Str("job", job.Name()).
				Str("schedule", schedule).
				Msg("Failed to register job")
		}
	}

	add(cfg.QuoteRefreshSchedule, scheduler.NewQuoteRefreshJob(positions, marketData, log))
	add(cfg.HistorySyncSchedule, scheduler.NewHistorySyncJob(positions, historyService, cfg.DefaultRange, log))
	add(cfg.CacheCleanupSchedule, clientdata.NewCleanupJob(cacheRepo, log))
	add(cfg.WALCheckpointSchedule, scheduler.NewWALCheckpointJob(databases, log))
}
