package ingestion

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/guttosm/tickapi/internal/storage"
)

func newSQLiteStore(t *testing.T) storage.StockRepository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "stocks.db")), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	repo, err := storage.NewSQLiteRepository(db)
	if err != nil {
		t.Fatalf("new repo: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func sameIndicator(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return math.Abs(*a-*b) < 1e-9
}

func TestSync_ShorterWindowKeepsStoredIndicators(t *testing.T) {
	repo := newSQLiteStore(t)
	ctx := context.Background()

	if _, err := Sync(ctx, &fakeClient{n: 60}, repo, []string{"AAPL"}, "3mo", 1); err != nil {
		t.Fatalf("long sync: %v", err)
	}
	before, err := repo.FindByTicker(ctx, "AAPL")
	if err != nil || len(before) != 60 {
		t.Fatalf("after long sync: rows=%d err=%v", len(before), err)
	}
	if before[40].SMA20 == nil || before[40].RSI == nil {
		t.Fatalf("expected indicators on day 40 after long sync: %+v", before[40])
	}

	if _, err := Sync(ctx, &fakeClient{n: 25, start: 35}, repo, []string{"AAPL"}, "1mo", 1); err != nil {
		t.Fatalf("short sync: %v", err)
	}
	after, err := repo.FindByTicker(ctx, "AAPL")
	if err != nil || len(after) != 60 {
		t.Fatalf("after short sync: rows=%d err=%v", len(after), err)
	}

	for i := range before {
		if !sameIndicator(before[i].SMA20, after[i].SMA20) || !sameIndicator(before[i].RSI, after[i].RSI) {
			t.Fatalf("row %d (%s) indicators changed: sma20 %v -> %v, rsi %v -> %v",
				i, before[i].Date.Format("2006-01-02"), before[i].SMA20, after[i].SMA20, before[i].RSI, after[i].RSI)
		}
	}
}

func TestImportDirectory_AfterSyncKeepsIndicators(t *testing.T) {
	repo := newSQLiteStore(t)
	ctx := context.Background()

	if _, err := Sync(ctx, &fakeClient{n: 40}, repo, []string{"AAPL"}, "3mo", 1); err != nil {
		t.Fatalf("sync: %v", err)
	}

	// last two synced days (2024-02-08, 2024-02-09) re-imported from CSV
	dir := t.TempDir()
	writeTempFile(t, dir, "AAPL"+FileSuffix, csvHeader+"2024-02-08,1,1,1,138,1\n2024-02-09,1,1,1,139,1\n")
	if _, err := ImportDirectory(ctx, dir, repo, 1); err != nil {
		t.Fatalf("import: %v", err)
	}

	rows, err := repo.FindByTicker(ctx, "AAPL")
	if err != nil || len(rows) != 40 {
		t.Fatalf("rows=%d err=%v", len(rows), err)
	}
	for _, r := range rows[19:] {
		if r.SMA20 == nil || r.RSI == nil {
			t.Fatalf("indicators lost for %s", r.Date.Format("2006-01-02"))
		}
	}
	if got := rows[39].Close; got == nil || *got != 139 || *rows[39].SMA20 != 129.5 {
		t.Fatalf("unexpected last row: %+v", rows[39])
	}
}
