package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/guttosm/tickapi/internal/domain/models"
	pq "github.com/lib/pq"
)

// StockRepository defines the contract for access to the stocks table.
//
// The read path only uses FindByTicker; UpsertRows is reserved for the sync and
// import jobs that fill the table.
type StockRepository interface {
	FindByTicker(ctx context.Context, ticker string) ([]models.StockRow, error)
	UpsertRows(ctx context.Context, rows []models.StockRow) (int, error)
	Ping(ctx context.Context) error
	Close() error
}

const findByTickerQuery = `
	SELECT id, ticker, date, open, high, low, close, volume, sma20, rsi
	FROM stocks
	WHERE ticker = $1
	ORDER BY date ASC, id ASC`

const upsertFromStagingQuery = `
	INSERT INTO stocks (ticker, date, open, high, low, close, volume, sma20, rsi)
	SELECT DISTINCT ON (ticker, date) ticker, date, open, high, low, close, volume, sma20, rsi
	FROM stocks_staging
	ORDER BY ticker, date
	ON CONFLICT (ticker, date) DO UPDATE SET
		open = EXCLUDED.open,
		high = EXCLUDED.high,
		low = EXCLUDED.low,
		close = EXCLUDED.close,
		volume = EXCLUDED.volume,
		sma20 = COALESCE(EXCLUDED.sma20, stocks.sma20),
		rsi = COALESCE(EXCLUDED.rsi, stocks.rsi)`

type postgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository wraps an open *sql.DB (lib/pq driver).
func NewPostgresRepository(db *sql.DB) StockRepository {
	return &postgresRepository{db: db}
}

// FindByTicker returns every row of ticker ordered by date ascending.
// An unknown ticker yields an empty slice and a nil error.
func (r *postgresRepository) FindByTicker(ctx context.Context, ticker string) ([]models.StockRow, error) {
	rows, err := r.db.QueryContext(ctx, findByTickerQuery, ticker)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make([]models.StockRow, 0)
	for rows.Next() {
		var row models.StockRow
		var date time.Time
		var open, high, low, closePx, sma20, rsi sql.NullFloat64
		var volume sql.NullInt64
		if err := rows.Scan(&row.ID, &row.Ticker, &date, &open, &high, &low, &closePx, &volume, &sma20, &rsi); err != nil {
			return nil, err
		}
		row.Date = models.TruncateDate(date)
		row.Open = floatPtr(open)
		row.High = floatPtr(high)
		row.Low = floatPtr(low)
		row.Close = floatPtr(closePx)
		row.Volume = intPtr(volume)
		row.SMA20 = floatPtr(sma20)
		row.RSI = floatPtr(rsi)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// UpsertRows writes rows keyed by (ticker, date) in a single transaction.
//
// Rows are streamed with COPY into a transaction-local staging table and merged
// into stocks with one INSERT ... ON CONFLICT, so a re-sync overwrites prices and
// indicators instead of duplicating days. A NULL indicator keeps the stored value.
func (r *postgresRepository) UpsertRows(ctx context.Context, rows []models.StockRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}

	// Small optimization for bulk load
	if _, err := tx.ExecContext(ctx, `SET LOCAL synchronous_commit = OFF`); err != nil {
		_ = tx.Rollback()
		return 0, err
	}

	if _, err := tx.ExecContext(ctx, `
		CREATE TEMP TABLE stocks_staging (
			ticker TEXT,
			date   DATE,
			open   DOUBLE PRECISION,
			high   DOUBLE PRECISION,
			low    DOUBLE PRECISION,
			close  DOUBLE PRECISION,
			volume BIGINT,
			sma20  DOUBLE PRECISION,
			rsi    DOUBLE PRECISION
		) ON COMMIT DROP`); err != nil {
		_ = tx.Rollback()
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(
		"stocks_staging",
		"ticker",
		"date",
		"open",
		"high",
		"low",
		"close",
		"volume",
		"sma20",
		"rsi",
	))
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx,
			row.Ticker,
			models.TruncateDate(row.Date),
			nullFloat(row.Open),
			nullFloat(row.High),
			nullFloat(row.Low),
			nullFloat(row.Close),
			nullInt(row.Volume),
			nullFloat(row.SMA20),
			nullFloat(row.RSI),
		); err != nil {
			_ = stmt.Close()
			_ = tx.Rollback()
			return 0, err
		}
	}

	// Flush the COPY buffer
	if _, err := stmt.ExecContext(ctx); err != nil {
		_ = stmt.Close()
		_ = tx.Rollback()
		return 0, err
	}
	if err := stmt.Close(); err != nil {
		_ = tx.Rollback()
		return 0, err
	}

	res, err := tx.ExecContext(ctx, upsertFromStagingQuery)
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return int(affected), nil
}

func (r *postgresRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *postgresRepository) Close() error {
	return r.db.Close()
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return models.Float(v.Float64)
}

func intPtr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return models.Int(v.Int64)
}

// nullFloat and nullInt map nil pointers to SQL NULL for COPY.
func nullFloat(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullInt(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
