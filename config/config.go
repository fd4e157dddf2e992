package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the full application configuration loaded from environment variables or .env file.
//
// It is composed of smaller structs that represent different concerns of the system:
// HTTP server settings, the storage backend, Postgres connection details and the
// market data source used by the sync jobs.
//
// Example ENV equivalent:
//
//	SERVER_PORT=8080
//	STORAGE_DRIVER=postgres
//	POSTGRES_HOST=localhost
//	POSTGRES_PORT=5432
//	POSTGRES_USER=postgres
//	POSTGRES_PASSWORD=postgres
//	POSTGRES_DB=tickapi
//	POSTGRES_SSLMODE=disable
//	STOCK_TICKERS=AAPL,MSFT,GOOGL
type Config struct {
	Server   ServerConfig   // HTTP server configuration
	Storage  StorageConfig  // Which backend holds the stocks table
	Postgres PostgresConfig // PostgreSQL connection settings
	Market   MarketConfig   // Tickers and market data source
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string        // TCP port the HTTP server listens on (e.g., "8080")
	RequestTimeout     time.Duration // Deadline attached to every request context
	RateLimitPerMinute int           // Requests allowed per client IP per minute
	CORSAllowedOrigins []string      // Origins allowed by the CORS middleware
}

// StorageConfig selects the repository implementation.
//
// Fields:
//   - Driver: "postgres" (default) or "sqlite".
//   - SQLitePath: database file used when Driver is "sqlite".
//   - AutoMigrate: apply embedded Postgres migrations on startup (SQLite always migrates).
type StorageConfig struct {
	Driver      string
	SQLitePath  string
	AutoMigrate bool
}

// PostgresConfig defines connection details for PostgreSQL.
//
// Fields:
//   - Host: hostname of the database server.
//   - Port: port number of the database server (default 5432).
//   - User: username for authentication.
//   - Password: password for authentication.
//   - DBName: target database name.
//   - SSLMode: SSL mode (e.g., "disable", "require").
//   - URL: computed DSN used by database/sql to connect.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	URL      string
}

// MarketConfig describes the tickers the service advertises and how they are synced.
type MarketConfig struct {
	Tickers      []string      // Advertised by GET /api/stocks/tickers and used as the sync watchlist
	BaseURL      string        // Yahoo Finance chart API host
	Range        string        // History window requested per sync (e.g., "1mo", "6mo", "1y")
	Timeout      time.Duration // HTTP client timeout for the market source
	SyncSchedule string        // Cron spec for scheduled sync in API mode; empty disables it
	Parallel     int           // Tickers synced concurrently (clamped to 1..8)
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// AppConfig is the globally accessible configuration instance.
//
// It is populated once via LoadConfig() and used throughout the application.
var AppConfig Config

// LoadConfig initializes the global AppConfig by reading from .env file
// or directly from environment variables.
//
// Precedence (from lowest to highest):
//  1. Defaults set in this function.
//  2. Values from .env file (if present).
//  3. Environment variables.
//
// Fatal exit:
//   - If required variables are missing, validateConfig() will terminate the app
//     with a descriptive log message.
func LoadConfig() {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("REQUEST_TIMEOUT", "10s")
	viper.SetDefault("RATE_LIMIT_PER_MINUTE", 60)
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")

	viper.SetDefault("STORAGE_DRIVER", DriverPostgres)
	viper.SetDefault("SQLITE_PATH", "tickapi.db")
	viper.SetDefault("AUTO_MIGRATE", true)

	viper.SetDefault("POSTGRES_HOST", "localhost")
	viper.SetDefault("POSTGRES_PORT", 5432)
	viper.SetDefault("POSTGRES_USER", "postgres")
	viper.SetDefault("POSTGRES_PASSWORD", "postgres")
	viper.SetDefault("POSTGRES_DB", "tickapi")
	viper.SetDefault("POSTGRES_SSLMODE", "disable")

	viper.SetDefault("STOCK_TICKERS", "AAPL,MSFT,GOOGL")
	viper.SetDefault("MARKET_BASE_URL", "https://query1.finance.yahoo.com")
	viper.SetDefault("MARKET_RANGE", "6mo")
	viper.SetDefault("MARKET_TIMEOUT", "30s")
	viper.SetDefault("SYNC_SCHEDULE", "")
	viper.SetDefault("SYNC_PARALLEL", 4)

	// Optionally read from .env if present (common in local dev)
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig() // ignore error if no .env

	viper.AutomaticEnv()

	AppConfig = Config{
		Server: ServerConfig{
			Port:               viper.GetString("SERVER_PORT"),
			RequestTimeout:     viper.GetDuration("REQUEST_TIMEOUT"),
			RateLimitPerMinute: viper.GetInt("RATE_LIMIT_PER_MINUTE"),
			CORSAllowedOrigins: SplitList(viper.GetString("CORS_ALLOWED_ORIGINS"), false),
		},
		Storage: StorageConfig{
			Driver:      strings.ToLower(strings.TrimSpace(viper.GetString("STORAGE_DRIVER"))),
			SQLitePath:  viper.GetString("SQLITE_PATH"),
			AutoMigrate: viper.GetBool("AUTO_MIGRATE"),
		},
		Postgres: PostgresConfig{
			Host:     viper.GetString("POSTGRES_HOST"),
			Port:     viper.GetInt("POSTGRES_PORT"),
			User:     viper.GetString("POSTGRES_USER"),
			Password: viper.GetString("POSTGRES_PASSWORD"),
			DBName:   viper.GetString("POSTGRES_DB"),
			SSLMode:  viper.GetString("POSTGRES_SSLMODE"),
		},
		Market: MarketConfig{
			Tickers:      SplitList(viper.GetString("STOCK_TICKERS"), true),
			BaseURL:      strings.TrimRight(viper.GetString("MARKET_BASE_URL"), "/"),
			Range:        viper.GetString("MARKET_RANGE"),
			Timeout:      viper.GetDuration("MARKET_TIMEOUT"),
			SyncSchedule: strings.TrimSpace(viper.GetString("SYNC_SCHEDULE")),
			Parallel:     viper.GetInt("SYNC_PARALLEL"),
		},
	}

	AppConfig.Postgres.URL = AppConfig.Postgres.DSN()

	validateConfig()
}

// DSN builds the postgres:// connection string used by database/sql.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User,
		p.Password,
		p.Host,
		p.Port,
		p.DBName,
		p.SSLMode,
	)
}

// SplitList splits a comma separated value, trimming blanks and dropping empty items.
// With upper set, items are upper-cased and duplicates removed (first occurrence wins).
func SplitList(raw string, upper bool) []string {
	out := make([]string, 0)
	seen := make(map[string]struct{})
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if upper {
			item = strings.ToUpper(item)
			if _, ok := seen[item]; ok {
				continue
			}
			seen[item] = struct{}{}
		}
		out = append(out, item)
	}
	return out
}

// validateConfig ensures required variables are present and terminates
// the application if they are missing.
//
// Postgres settings are only required when the postgres driver is selected.
func validateConfig() {
	var missing []string

	if AppConfig.Server.Port == "" {
		missing = append(missing, "SERVER_PORT")
	}
	if AppConfig.Server.RequestTimeout <= 0 {
		missing = append(missing, "REQUEST_TIMEOUT")
	}
	if len(AppConfig.Market.Tickers) == 0 {
		missing = append(missing, "STOCK_TICKERS")
	}

	switch AppConfig.Storage.Driver {
	case DriverPostgres:
		if AppConfig.Postgres.Host == "" {
			missing = append(missing, "POSTGRES_HOST")
		}
		if AppConfig.Postgres.Port == 0 {
			missing = append(missing, "POSTGRES_PORT")
		}
		if AppConfig.Postgres.User == "" {
			missing = append(missing, "POSTGRES_USER")
		}
		if AppConfig.Postgres.Password == "" {
			missing = append(missing, "POSTGRES_PASSWORD")
		}
		if AppConfig.Postgres.DBName == "" {
			missing = append(missing, "POSTGRES_DB")
		}
	case DriverSQLite:
		if AppConfig.Storage.SQLitePath == "" {
			missing = append(missing, "SQLITE_PATH")
		}
	default:
		log.Fatalf("unknown STORAGE_DRIVER %q (expected %q or %q)\n", AppConfig.Storage.Driver, DriverPostgres, DriverSQLite)
	}

	if len(missing) > 0 {
		log.Fatalf("missing required environment variables: %v\n", missing)
	}
}
