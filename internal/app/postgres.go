package app

import (
	"database/sql"
	"fmt"
	"time"

	goose "github.com/pressly/goose/v3"

	"github.com/guttosm/tickapi/config"
	dbmigrations "github.com/guttosm/tickapi/db"

	_ "github.com/lib/pq" // PostgreSQL driver for database/sql
)

// sqlOpener is an indirection for unit testing; defaults to sql.Open
var sqlOpener = sql.Open

// InitPostgres initializes a PostgreSQL connection using the provided configuration.
//
// Parameters:
//   - cfg (config.Config): The application configuration object containing Postgres settings.
//
// Behavior:
//   - Builds the DSN with cfg.Postgres.DSN().
//   - Opens a database handle with sql.Open and bounds the pool.
//   - Immediately pings the database to validate connectivity.
//
// Returns:
//   - *sql.DB: an open database connection pool (safe for concurrent use).
//   - error: if opening or pinging the database fails.
//
// Example usage:
//
//	db, err := app.InitPostgres(config.AppConfig)
//	if err != nil {
//	    logger.L().Fatal().Err(err).Msg("db connect error")
//	}
//	defer db.Close()
func InitPostgres(cfg config.Config) (*sql.DB, error) {
	// Initialize database handle (does not establish a real connection yet)
	db, err := sqlOpener("postgres", cfg.Postgres.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Verify connectivity by pinging the database
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return db, nil
}

// MigratePostgres applies the embedded goose migrations (db/migrations) to db.
func MigratePostgres(db *sql.DB) error {
	goose.SetBaseFS(dbmigrations.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := goose.Up(db, dbmigrations.MigrationsDir); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// postgresOpener and postgresMigrator are indirections used by OpenRepository;
// overridden in tests to avoid real connections.
var (
	postgresOpener   = InitPostgres
	postgresMigrator = MigratePostgres
)
