package models

import "time"

// DateLayout is the ISO-8601 calendar date format used on the wire and in CSV imports.
const DateLayout = "2006-01-02"

// StockRow represents one trading day of data for one ticker, as stored in the
// stocks table.
//
// Fields:
//   - ID: surrogate key generated by the database; zero until persisted.
//   - Ticker: upper-case symbol (e.g., "AAPL"). One ticker has many rows.
//   - Date: trading day, date-only in UTC. (Ticker, Date) is unique in a correct dataset.
//   - Open/High/Low/Close: prices; nil means "not recorded".
//   - Volume: shares traded; nil means "not recorded".
//   - SMA20/RSI: derived indicators filled by the sync job; nil until enough history exists.
//
// No range invariant is enforced (low <= high is never checked).
type StockRow struct {
	ID     int64
	Ticker string
	Date   time.Time
	Open   *float64
	High   *float64
	Low    *float64
	Close  *float64
	Volume *int64
	SMA20  *float64
	RSI    *float64
}

// TruncateDate strips the clock part of t and returns the same calendar day at 00:00 UTC.
func TruncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int64) *int64 { return &v }
