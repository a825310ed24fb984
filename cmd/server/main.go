// Margin is an investment analysis server: Rule #1 valuations and
// Philip Fisher scorecards for a given ticker, backed by external
// market-data providers and a qualitative research service.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/aristath/margin/internal/clientdata"
	"github.com/aristath/margin/internal/clients/fmp"
	"github.com/aristath/margin/internal/clients/llm"
	"github.com/aristath/margin/internal/clients/research"
	"github.com/aristath/margin/internal/clients/stockdata"
	"github.com/aristath/margin/internal/config"
	"github.com/aristath/margin/internal/database"
	"github.com/aristath/margin/internal/modules/fundamentals"
	fundamentalshandlers "github.com/aristath/margin/internal/modules/fundamentals/handlers"
	"github.com/aristath/margin/internal/modules/scorecard"
	scorecardhandlers "github.com/aristath/margin/internal/modules/scorecard/handlers"
	valuationhandlers "github.com/aristath/margin/internal/modules/valuation/handlers"
	"github.com/aristath/margin/internal/scheduler"
	"github.com/aristath/margin/internal/server"
	"github.com/aristath/margin/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().
		Str("data_dir", cfg.DataDir).
		Int("port", cfg.Port).
		Bool("dev_mode", cfg.DevMode).
		Str("research_provider", cfg.ResearchProvider).
		Msg("Starting Margin")

	// Cache database: operational data only, rebuilt from providers on
	// loss, hence the no-fsync cache profile.
	cacheDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "cache.db"),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		return fmt.Errorf("failed to open cache database: %w", err)
	}
	defer cacheDB.Close()

	cacheRepo := clientdata.NewRepository(cacheDB.Conn())
	if err := cacheRepo.InitSchema(); err != nil {
		return fmt.Errorf("failed to initialize cache schema: %w", err)
	}

	// Provider clients
	fmpClient := fmp.NewClient(cfg.FMPAPIKey, cacheRepo, log)
	stockdataClient := stockdata.NewClient(cfg.StockDataAPIToken, cacheRepo, log)

	stocks := fundamentals.NewService(fmpClient, stockdataClient, fmpClient, log)

	// Qualitative research: the dedicated backend, or Claude directly.
	var provider scorecard.ResearchProvider
	var researchChecker server.ResearchHealthChecker
	switch cfg.ResearchProvider {
	case config.ResearchProviderClaude:
		claude, err := llm.NewClaudeResearcher(cfg.AnthropicAPIKey, cfg.AnthropicModel, log)
		if err != nil {
			return fmt.Errorf("failed to create research provider: %w", err)
		}
		provider = claude
	default:
		backend := research.NewClient(cfg.ResearchServiceURL, log)
		provider = backend
		researchChecker = backend
	}

	researchCache := research.NewCache(clientdata.TTLResearch, cacheRepo, log)
	cards := scorecard.NewService(stocks, provider, researchCache, log)

	// Background jobs: purge expired cache rows daily at 03:00.
	sched := scheduler.New(log)
	if err := sched.AddJob("0 3 * * *", clientdata.NewCleanupJob(cacheRepo, cacheDB, log)); err != nil {
		return fmt.Errorf("failed to schedule cache cleanup: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	srv := server.New(server.Config{
		Log:             log,
		Config:          cfg,
		CacheDB:         cacheDB,
		FundamentalsH:   fundamentalshandlers.NewHandler(stocks, log),
		ValuationH:      valuationhandlers.NewHandler(stocks, log),
		ScorecardH:      scorecardhandlers.NewHandler(cards, log),
		ResearchChecker: researchChecker,
		Port:            cfg.Port,
		DevMode:         cfg.DevMode,
	})

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	log.Info().Msg("Server stopped")
	return nil
}
