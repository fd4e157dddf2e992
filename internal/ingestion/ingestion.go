package ingestion

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/guttosm/tickapi/internal/domain/models"
	"github.com/guttosm/tickapi/internal/logger"
	"github.com/guttosm/tickapi/internal/storage"
)

const (
	// FileSuffix is appended to the ticker in CSV exports ("AAPL_stock_data.csv").
	FileSuffix = "_stock_data.csv"

	maxParallel = 8
)

// clampParallel bounds the worker count to 1..maxParallel and never above jobs.
func clampParallel(parallel, jobs int) int {
	if parallel < 1 {
		parallel = 1
	}
	if parallel > maxParallel {
		parallel = maxParallel
	}
	if jobs > 0 && parallel > jobs {
		parallel = jobs
	}
	return parallel
}

// enrichWithHistory computes indicators for fresh over the stored history of ticker.
//
// Fresh rows replace stored rows of the same day. Only the fresh days are returned,
// so a short window never leaves its first days without SMA20 or RSI when older
// closes are already stored.
func enrichWithHistory(ctx context.Context, repo storage.StockRepository, ticker string, fresh []models.StockRow) ([]models.StockRow, error) {
	stored, err := repo.FindByTicker(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	byDay := make(map[time.Time]models.StockRow, len(stored)+len(fresh))
	for _, row := range stored {
		byDay[models.TruncateDate(row.Date)] = row
	}
	wanted := make(map[time.Time]struct{}, len(fresh))
	for _, row := range fresh {
		d := models.TruncateDate(row.Date)
		row.ID = 0
		byDay[d] = row
		wanted[d] = struct{}{}
	}

	merged := make([]models.StockRow, 0, len(byDay))
	for _, row := range byDay {
		merged = append(merged, row)
	}

	out := make([]models.StockRow, 0, len(wanted))
	for _, row := range ApplyIndicators(merged) {
		if _, ok := wanted[models.TruncateDate(row.Date)]; ok {
			out = append(out, row)
		}
	}
	return out, nil
}

// Sync fetches, enriches and stores daily history for every ticker.
//
// Parameters:
//   - client:   market data source.
//   - repo:     destination repository (upsert keyed by ticker and date).
//   - tickers:  watchlist; blank entries are ignored.
//   - rng:      history window passed to the client (e.g., "6mo").
//   - parallel: concurrent tickers, clamped to 1..8.
//
// Behavior:
//   - Each ticker runs fetch → enrichWithHistory → UpsertRows; indicators see the
//     stored history, so re-syncing a shorter window keeps them filled.
//   - If any ticker fails, the rest are cancelled and that error is returned.
//
// Returns:
//   - int: rows written across all tickers.
//   - error: first error encountered (if any).
func Sync(ctx context.Context, client MarketClient, repo storage.StockRepository, tickers []string, rng string, parallel int) (int, error) {
	list := make([]string, 0, len(tickers))
	for _, t := range tickers {
		if t = strings.ToUpper(strings.TrimSpace(t)); t != "" {
			list = append(list, t)
		}
	}
	if len(list) == 0 {
		return 0, fmt.Errorf("no tickers to sync")
	}

	workers := clampParallel(parallel, len(list))
	log := logger.With("sync")
	log.Info().Int("tickers", len(list)).Str("range", rng).Int("max_parallel", workers).Msg("sync start")

	var total atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, ticker := range list {
		idx, tk := i, ticker
		g.Go(func() error {
			start := time.Now()
			rows, err := client.FetchDaily(gctx, tk, rng)
			if err != nil {
				log.Error().Str("ticker", tk).Err(err).Msg("fetch failed")
				return fmt.Errorf("ticker %s: %w", tk, err)
			}
			if len(rows) == 0 {
				log.Warn().Str("ticker", tk).Msg("no data returned")
				return nil
			}

			enriched, err := enrichWithHistory(gctx, repo, tk, rows)
			if err != nil {
				log.Error().Str("ticker", tk).Err(err).Msg("history load failed")
				return fmt.Errorf("ticker %s: %w", tk, err)
			}

			n, err := repo.UpsertRows(gctx, enriched)
			if err != nil {
				log.Error().Str("ticker", tk).Err(err).Msg("upsert failed")
				return fmt.Errorf("ticker %s: upsert: %w", tk, err)
			}
			total.Add(int64(n))
			log.Info().Int("idx", idx+1).Int("total", len(list)).Str("ticker", tk).Int("rows", n).Dur("elapsed", time.Since(start)).Msg("ticker done")
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return int(total.Load()), err
	}

	log.Info().Int64("rows", total.Load()).Msg("sync completed")
	return int(total.Load()), nil
}

// ImportDirectory loads every "<TICKER>_stock_data.csv" file in dir.
//
// Behavior:
//   - The ticker is taken from the file name and upper-cased.
//   - Files are processed concurrently (clamped to 1..8); the first failure cancels the rest.
//   - A directory without matching files is an error.
//
// Returns:
//   - int: rows written across all files.
//   - error: first error encountered (if any).
func ImportDirectory(ctx context.Context, dir string, repo storage.StockRepository, parallel int) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read dir %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), FileSuffix) || e.Name() == FileSuffix {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	if len(files) == 0 {
		return 0, fmt.Errorf("no *%s files found in %s", FileSuffix, dir)
	}

	workers := clampParallel(parallel, len(files))
	log := logger.With("import")
	log.Info().Int("files", len(files)).Str("dir", dir).Int("max_parallel", workers).Msg("import start")

	var total atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, file := range files {
		idx, f := i, file
		g.Go(func() error {
			start := time.Now()
			base := filepath.Base(f)
			ticker := strings.ToUpper(strings.TrimSuffix(base, FileSuffix))

			n, err := importFile(gctx, f, ticker, repo)
			if err != nil {
				log.Error().Str("file", base).Dur("elapsed", time.Since(start)).Err(err).Msg("file failed")
				return fmt.Errorf("file %s: %w", f, err)
			}
			total.Add(int64(n))
			log.Info().Int("idx", idx+1).Int("total", len(files)).Str("file", base).Str("ticker", ticker).Int("rows", n).Dur("elapsed", time.Since(start)).Msg("file done")
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return int(total.Load()), err
	}

	log.Info().Int64("rows", total.Load()).Msg("import completed")
	return int(total.Load()), nil
}
