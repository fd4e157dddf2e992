package ingestion

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/guttosm/tickapi/internal/domain/models"
	"github.com/guttosm/tickapi/internal/storage"
)

// expectedHeaders is the required column prefix of a daily history CSV. Extra
// trailing columns (Dividends, Stock Splits, ...) are ignored.
var expectedHeaders = []string{
	"Date",
	"Open",
	"High",
	"Low",
	"Close",
	"Volume",
}

// ParseCSV reads a daily history CSV for ticker.
//
// It fails on:
//   - header not starting with Date,Open,High,Low,Close,Volume
//   - a record with fewer columns than the header prefix
//   - a non-empty cell that is not a number or date
//
// It tolerates:
//   - empty cells (they become nil)
//   - dates carrying a time and offset suffix ("2024-01-02 00:00:00-05:00")
func ParseCSV(r io.Reader, ticker string) ([]models.StockRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) < len(expectedHeaders) {
		return nil, fmt.Errorf("invalid header length: expected at least %d, got %d", len(expectedHeaders), len(header))
	}
	for i, want := range expectedHeaders {
		if got := strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff")); got != want {
			return nil, fmt.Errorf("invalid header at col %d: expected %q, got %q", i+1, want, header[i])
		}
	}

	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	rows := make([]models.StockRow, 0)
	lineNumber := 1

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line after %d: %w", lineNumber, err)
		}
		lineNumber++

		if len(rec) < len(expectedHeaders) {
			return nil, fmt.Errorf("invalid column count on line %d: expected at least %d got %d", lineNumber, len(expectedHeaders), len(rec))
		}

		row, err := recordToRow(rec, ticker)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNumber, err)
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// recordToRow converts one CSV record into a StockRow.
//
// Column order:
//
//	0 Date   → Date (required; "2006-01-02" prefix)
//	1 Open   → Open (float, empty→nil)
//	2 High   → High (float, empty→nil)
//	3 Low    → Low (float, empty→nil)
//	4 Close  → Close (float, empty→nil)
//	5 Volume → Volume (int64, empty→nil; "123.0" accepted)
func recordToRow(rec []string, ticker string) (models.StockRow, error) {
	row := models.StockRow{Ticker: ticker}

	s := strings.TrimSpace(rec[0])
	if len(s) < len(models.DateLayout) {
		return row, fmt.Errorf("invalid Date: %q", s)
	}
	d, err := time.Parse(models.DateLayout, s[:len(models.DateLayout)])
	if err != nil {
		return row, fmt.Errorf("invalid Date: %v", err)
	}
	row.Date = d

	targets := []**float64{&row.Open, &row.High, &row.Low, &row.Close}
	for i, dst := range targets {
		v, err := parseFloatCell(rec[i+1])
		if err != nil {
			return row, fmt.Errorf("invalid %s: %v", expectedHeaders[i+1], err)
		}
		*dst = v
	}

	vol, err := parseVolumeCell(rec[5])
	if err != nil {
		return row, fmt.Errorf("invalid Volume: %v", err)
	}
	row.Volume = vol

	return row, nil
}

func parseFloatCell(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return models.Float(v), nil
}

func parseVolumeCell(s string) (*int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return models.Int(v), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return models.Int(int64(f)), nil
}

// importFile parses one CSV, computes indicators and upserts the rows.
func importFile(ctx context.Context, path, ticker string, repo storage.StockRepository) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open: %w", err)
	}
	defer func() { _ = f.Close() }()

	rows, err := ParseCSV(f, ticker)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	if err := ctx.Err(); err != nil {
		return 0, err
	}

	enriched, err := enrichWithHistory(ctx, repo, rows[0].Ticker, rows)
	if err != nil {
		return 0, err
	}

	n, err := repo.UpsertRows(ctx, enriched)
	if err != nil {
		return 0, fmt.Errorf("upsert: %w", err)
	}
	return n, nil
}
