package app

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/tickapi/config"
	"github.com/guttosm/tickapi/internal/api"
	"github.com/guttosm/tickapi/internal/ingestion"
	"github.com/guttosm/tickapi/internal/logger"
	"github.com/guttosm/tickapi/internal/service"
	"github.com/guttosm/tickapi/internal/storage"
)

// OpenRepository connects to the backend selected by cfg.Storage.Driver and
// returns the stock repository over it.
//
// Behavior:
//   - "postgres" (or empty): InitPostgres, then MigratePostgres when AutoMigrate is set.
//   - "sqlite": InitSQLite; the repository auto-migrates the table.
//   - Any other driver is an error.
//
// The caller owns the repository and must Close it.
func OpenRepository(cfg config.Config) (storage.StockRepository, error) {
	switch cfg.Storage.Driver {
	case "", config.DriverPostgres:
		db, err := postgresOpener(cfg)
		if err != nil {
			return nil, err
		}
		if cfg.Storage.AutoMigrate {
			if err := postgresMigrator(db); err != nil {
				_ = db.Close()
				return nil, err
			}
		}
		return storage.NewPostgresRepository(db), nil

	case config.DriverSQLite:
		db, err := sqliteOpener(cfg)
		if err != nil {
			return nil, err
		}
		repo, err := storage.NewSQLiteRepository(db)
		if err != nil {
			if sqlDB, dbErr := db.DB(); dbErr == nil {
				_ = sqlDB.Close()
			}
			return nil, err
		}
		return repo, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// NewMarketClient builds the market data client from cfg.Market.
func NewMarketClient(cfg config.Config) ingestion.MarketClient {
	return ingestion.NewYahooClient(cfg.Market.BaseURL, cfg.Market.Timeout)
}

// InitializeApp sets up all application dependencies and returns
// a fully configured Gin router, a cleanup function for graceful shutdown,
// and any error encountered during initialization.
//
// Responsibilities:
//   - Opens the configured storage backend via OpenRepository().
//   - Initializes the service layer with the configured ticker list.
//   - Creates the HTTP handler layer to handle requests.
//   - Configures the Gin router with all API routes.
//   - Registers health and readiness probes.
//   - Starts the sync scheduler when SYNC_SCHEDULE is set.
//   - Provides a cleanup function to stop the scheduler and close storage.
//
// Returns:
//   - *gin.Engine: the configured Gin HTTP router.
//   - func(): cleanup function to be executed on shutdown.
//   - error: any initialization error that occurred.
func InitializeApp() (*gin.Engine, func(), error) {
	// Load global configuration
	cfg := config.AppConfig

	// Open storage (responsible for DB access)
	repo, err := OpenRepository(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	// Initialize service layer (business logic)
	svc := service.NewStockService(repo, cfg.Market.Tickers)

	// Initialize HTTP handler layer (business logic to HTTP mapping)
	handler := api.NewHandler(svc)

	// Setup Gin router with routes
	router := api.NewRouter(handler, cfg.Server)

	// Register health and readiness probes
	healthHandler := api.NewHealthHandler(repo.Ping)
	healthHandler.Register(router)

	// Optional background sync keeps the advertised tickers populated
	var scheduler *ingestion.Scheduler
	if cfg.Market.SyncSchedule != "" {
		scheduler, err = ingestion.NewSyncScheduler(
			cfg.Market.SyncSchedule,
			NewMarketClient(cfg),
			repo,
			cfg.Market.Tickers,
			cfg.Market.Range,
			cfg.Market.Parallel,
		)
		if err != nil {
			_ = repo.Close()
			return nil, nil, err
		}
		scheduler.Start()
		logger.L().Info().Str("schedule", cfg.Market.SyncSchedule).Strs("tickers", cfg.Market.Tickers).Msg("sync scheduler enabled")
	}

	// Cleanup resources on shutdown
	cleanup := func() {
		if scheduler != nil {
			scheduler.Stop()
		}
		_ = repo.Close()
	}

	return router, cleanup, nil
}
