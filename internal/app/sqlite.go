package app

import (
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/guttosm/tickapi/config"
	"github.com/guttosm/tickapi/internal/logger"
)

// gormWriter forwards GORM's printf-style log lines to zerolog.
type gormWriter struct {
	log zerolog.Logger
}

func (w gormWriter) Printf(format string, args ...interface{}) {
	w.log.Warn().Msg(fmt.Sprintf(format, args...))
}

func newGormLogger() gormlogger.Interface {
	return gormlogger.New(gormWriter{log: logger.With("gorm")}, gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

// InitSQLite opens the embedded SQLite database at cfg.Storage.SQLitePath
// (pure Go driver, no cgo) and verifies it is usable.
//
// Returns:
//   - *gorm.DB: GORM handle; the table is migrated by storage.NewSQLiteRepository.
//   - error: if opening or pinging fails.
func InitSQLite(cfg config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(cfg.Storage.SQLitePath), &gorm.Config{Logger: newGormLogger()})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sqlite handle: %w", err)
	}
	// SQLite serializes writers; one connection avoids "database is locked".
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping sqlite: %w", err)
	}
	return db, nil
}

// sqliteOpener is an indirection used by OpenRepository; overridden in tests.
var sqliteOpener = InitSQLite
