package storage

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/guttosm/tickapi/internal/domain/models"
)

// stockRecord is the GORM mapping of the stocks table for the embedded SQLite backend.
// It is kept apart from models.StockRow so the domain type carries no ORM tags.
type stockRecord struct {
	ID     int64     `gorm:"primaryKey;autoIncrement"`
	Ticker string    `gorm:"not null;uniqueIndex:idx_stocks_ticker_date,priority:1"`
	Date   time.Time `gorm:"type:date;not null;uniqueIndex:idx_stocks_ticker_date,priority:2"`
	Open   *float64
	High   *float64
	Low    *float64
	Close  *float64
	Volume *int64
	SMA20  *float64 `gorm:"column:sma20"`
	RSI    *float64 `gorm:"column:rsi"`
}

func (stockRecord) TableName() string {
	return "stocks"
}

type sqliteRepository struct {
	db *gorm.DB
}

// NewSQLiteRepository migrates the stocks table on db and returns a repository over it.
func NewSQLiteRepository(db *gorm.DB) (StockRepository, error) {
	if err := db.AutoMigrate(&stockRecord{}); err != nil {
		return nil, fmt.Errorf("auto migrate stocks: %w", err)
	}
	return &sqliteRepository{db: db}, nil
}

func (r *sqliteRepository) FindByTicker(ctx context.Context, ticker string) ([]models.StockRow, error) {
	var recs []stockRecord
	if err := r.db.WithContext(ctx).
		Where("ticker = ?", ticker).
		Order("date ASC").
		Order("id ASC").
		Find(&recs).Error; err != nil {
		return nil, err
	}

	out := make([]models.StockRow, 0, len(recs))
	for _, rec := range recs {
		out = append(out, models.StockRow{
			ID:     rec.ID,
			Ticker: rec.Ticker,
			Date:   models.TruncateDate(rec.Date),
			Open:   rec.Open,
			High:   rec.High,
			Low:    rec.Low,
			Close:  rec.Close,
			Volume: rec.Volume,
			SMA20:  rec.SMA20,
			RSI:    rec.RSI,
		})
	}
	return out, nil
}

func (r *sqliteRepository) UpsertRows(ctx context.Context, rows []models.StockRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	recs := make([]stockRecord, 0, len(rows))
	for _, row := range rows {
		recs = append(recs, stockRecord{
			Ticker: row.Ticker,
			Date:   models.TruncateDate(row.Date),
			Open:   row.Open,
			High:   row.High,
			Low:    row.Low,
			Close:  row.Close,
			Volume: row.Volume,
			SMA20:  row.SMA20,
			RSI:    row.RSI,
		})
	}

	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "ticker"}, {Name: "date"}},
		DoUpdates: append(
			clause.AssignmentColumns([]string{"open", "high", "low", "close", "volume"}),
			// NULL indicators keep the stored value
			clause.Assignments(map[string]interface{}{
				"sma20": gorm.Expr("COALESCE(excluded.sma20, stocks.sma20)"),
				"rsi":   gorm.Expr("COALESCE(excluded.rsi, stocks.rsi)"),
			})...,
		),
	}).CreateInBatches(&recs, 500)
	if res.Error != nil {
		return 0, res.Error
	}
	return int(res.RowsAffected), nil
}

func (r *sqliteRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r *sqliteRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
