package main

//
//  @title           tickapi API
//  @version         1.0
//  @description     Daily stock price history (OHLCV with SMA20 and RSI) served over REST.
//  @termsOfService  https://github.com/guttosm/tickapi
//  @contact.name    API Support
//  @contact.url     https://github.com/guttosm/tickapi
//  @contact.email   support@example.com
//  @license.name    MIT
//  @license.url     https://opensource.org/licenses/MIT
//  @host            localhost:8080
//  @BasePath        /
//  @schemes         http
//
//  @tag.name        stocks
//  @tag.description Daily history per ticker and the advertised ticker list
//
//  @tag.name        health
//  @tag.description Liveness and readiness probes

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/guttosm/tickapi/config"
	_ "github.com/guttosm/tickapi/docs" // swagger docs
	"github.com/guttosm/tickapi/internal/app"
	"github.com/guttosm/tickapi/internal/ingestion"
	"github.com/guttosm/tickapi/internal/logger"
)

// startServer initializes and starts the HTTP server in a separate goroutine.
//
// Parameters:
//   - router (http.Handler): The HTTP router (Gin Engine) configured with all routes.
//   - port (string): The port where the server will listen for incoming requests.
//
// Returns:
//   - *http.Server: The initialized HTTP server instance.
func startServer(router http.Handler, port string) *http.Server {
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.L().Info().Str("port", port).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L().Fatal().Err(err).Msg("server failed to start")
		}
	}()

	return server
}

// gracefulShutdown gracefully terminates the HTTP server and cleans up resources
// when an OS interrupt signal (SIGINT, SIGTERM) is received.
//
// Parameters:
//   - ctx (context.Context): A context with timeout for graceful shutdown.
//   - server (*http.Server): The HTTP server instance to shut down.
//   - cleanup (func()): Cleanup callback to release resources (scheduler, DB connections).
func gracefulShutdown(ctx context.Context, server *http.Server, cleanup func()) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	<-quit
	logger.L().Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.L().Error().Err(err).Msg("server forced to shutdown")
	}

	cleanup()
	logger.L().Info().Msg("server exited gracefully")
}

// runSync fetches history for tickers from the market source and upserts it.
func runSync(ctx context.Context, cfg config.Config, tickers []string, rng string, parallel int) (int, error) {
	repo, err := app.OpenRepository(cfg)
	if err != nil {
		return 0, err
	}
	defer func() { _ = repo.Close() }()

	return ingestion.Sync(ctx, app.NewMarketClient(cfg), repo, tickers, rng, parallel)
}

// runImport loads every <TICKER>_stock_data.csv in dir.
func runImport(ctx context.Context, cfg config.Config, dir string, parallel int) (int, error) {
	repo, err := app.OpenRepository(cfg)
	if err != nil {
		return 0, err
	}
	defer func() { _ = repo.Close() }()

	return ingestion.ImportDirectory(ctx, dir, repo, parallel)
}

// main is the entry point of the tickapi application.
//
// Modes (selected via --mode flag):
//   - api:    Starts the REST API (and the sync scheduler when SYNC_SCHEDULE is set).
//   - sync:   Fetches daily history for the watchlist from the market source once.
//   - import: Loads <TICKER>_stock_data.csv exports from --dir.
//
// Flags:
//   - --mode:     Execution mode ("api", "sync" or "import"). Default: "api".
//   - --port:     Port for the API server. Defaults to value from config (SERVER_PORT).
//   - --dir:      Directory with CSV exports for import. Default: "./data/raw".
//   - --tickers:  Comma separated watchlist override for sync. Default: STOCK_TICKERS.
//   - --range:    History window for sync. Default: MARKET_RANGE.
//   - --parallel: Tickers or files processed concurrently (clamped to 1..8). Default: SYNC_PARALLEL.
func main() {
	ctx := context.Background()

	// Load configuration from environment or .env file
	config.LoadConfig()

	// Initialize JSON logger
	logger.Init()

	// Parse CLI flags (override config defaults if provided)
	mode := flag.String("mode", "api", "Mode: api, sync or import")
	port := flag.String("port", config.AppConfig.Server.Port, "Port for API mode")
	dir := flag.String("dir", "./data/raw", "Directory with <TICKER>_stock_data.csv files")
	tickers := flag.String("tickers", "", "Comma separated tickers to sync (default: STOCK_TICKERS)")
	rng := flag.String("range", config.AppConfig.Market.Range, "History window to sync (e.g., 1mo, 6mo, 1y)")
	parallel := flag.Int("parallel", config.AppConfig.Market.Parallel, "How many tickers or files to process concurrently (max 8)")
	flag.Parse()

	cfg := config.AppConfig

	switch *mode {
	case "sync":
		watchlist := cfg.Market.Tickers
		if *tickers != "" {
			watchlist = config.SplitList(*tickers, true)
		}
		logger.L().Info().Strs("tickers", watchlist).Str("range", *rng).Msg("running sync")

		n, err := runSync(ctx, cfg, watchlist, *rng, *parallel)
		if err != nil {
			logger.L().Fatal().Err(err).Msg("sync failed")
		}
		logger.L().Info().Int("rows", n).Msg("sync completed successfully")

	case "import":
		logger.L().Info().Str("dir", *dir).Msg("running import")

		n, err := runImport(ctx, cfg, *dir, *parallel)
		if err != nil {
			logger.L().Fatal().Err(err).Msg("import failed")
		}
		logger.L().Info().Int("rows", n).Msg("import completed successfully")

	case "api":
		// API mode: start the HTTP server
		logger.L().Info().Msg("starting API server")

		router, cleanup, err := app.InitializeApp()
		if err != nil {
			logger.L().Fatal().Err(err).Msg("app init error")
		}

		server := startServer(router, *port)
		gracefulShutdown(ctx, server, cleanup)

	default:
		logger.L().Fatal().Str("mode", *mode).Msg("unknown mode")
	}
}
