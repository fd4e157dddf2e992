package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/guttosm/tickapi/config"
	"github.com/guttosm/tickapi/internal/app"
)

type dummyHandler struct{}

func (d dummyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }

func TestStartServerAndShutdown(t *testing.T) {
	srv := startServer(dummyHandler{}, "0") // random port
	if srv == nil {
		t.Fatalf("expected server")
	}

	// Give server a moment to start
	time.Sleep(50 * time.Millisecond)

	shutdownCtx, c := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer c()
	if err := srv.Shutdown(shutdownCtx); err != nil && err != http.ErrServerClosed {
		t.Fatalf("shutdown err: %v", err)
	}
}

func TestGracefulShutdown_SignalPath(t *testing.T) {
	// Use a server that responds immediately
	srv := startServer(dummyHandler{}, "0")

	cleaned := make(chan struct{}, 1)
	go func() {
		ctx := context.Background()
		gracefulShutdown(ctx, srv, func() { close(cleaned) })
	}()

	// Give the goroutine time to set up signal notifications
	time.Sleep(50 * time.Millisecond)

	// Send SIGTERM to current process
	p, _ := os.FindProcess(os.Getpid())
	_ = p.Signal(syscall.SIGTERM)

	select {
	case <-cleaned:
		// success
	case <-time.After(2 * time.Second):
		t.Fatalf("cleanup not called after SIGTERM")
	}
}

func sqliteConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{Storage: config.StorageConfig{
		Driver:     config.DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "stocks.db"),
	}}
}

func TestRunImport_SQLite(t *testing.T) {
	cfg := sqliteConfig(t)
	dir := t.TempDir()
	content := "Date,Open,High,Low,Close,Volume,Dividends,Stock Splits\n" +
		"2024-01-02 00:00:00-05:00,187.15,188.44,183.89,185.5,1000,0.0,0.0\n"
	if err := os.WriteFile(filepath.Join(dir, "AAPL_stock_data.csv"), []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	n, err := runImport(context.Background(), cfg, dir, 2)
	if err != nil || n != 1 {
		t.Fatalf("runImport: n=%d err=%v", n, err)
	}

	repo, err := app.OpenRepository(cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = repo.Close() }()
	rows, err := repo.FindByTicker(context.Background(), "AAPL")
	if err != nil || len(rows) != 1 || *rows[0].Close != 185.5 || *rows[0].Volume != 1000 {
		t.Fatalf("unexpected stored rows: %+v err=%v", rows, err)
	}
}

func TestRunSync_SQLite(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart":{"result":[{"meta":{"symbol":"MSFT","gmtoffset":-18000},"timestamp":[1704205800],
"indicators":{"quote":[{"open":[373.86],"high":[375.9],"low":[366.77],"close":[370.87],"volume":[25258600]}]}}],"error":null}}`)
	}))
	defer srv.Close()

	cfg := sqliteConfig(t)
	cfg.Market = config.MarketConfig{BaseURL: srv.URL, Timeout: time.Second}

	n, err := runSync(context.Background(), cfg, []string{"MSFT"}, "5d", 1)
	if err != nil || n != 1 {
		t.Fatalf("runSync: n=%d err=%v", n, err)
	}
}

func TestRunModes_StorageError(t *testing.T) {
	cfg := config.Config{Storage: config.StorageConfig{Driver: "mongo"}}
	if _, err := runSync(context.Background(), cfg, []string{"AAPL"}, "5d", 1); err == nil {
		t.Fatalf("expected storage error from runSync")
	}
	if _, err := runImport(context.Background(), cfg, t.TempDir(), 1); err == nil {
		t.Fatalf("expected storage error from runImport")
	}
}
