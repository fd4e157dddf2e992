package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/tickapi/config"
	"github.com/guttosm/tickapi/internal/domain/dto"
	"github.com/guttosm/tickapi/internal/domain/models"
	"github.com/guttosm/tickapi/internal/logger"
)

func TestNewRouter_WiringAndMiddlewares(t *testing.T) {
	gin.SetMode(gin.TestMode)

	svc := &mockStockService{
		rows:    []models.StockRow{{ID: 1, Ticker: "AAPL", Date: day(2), Close: models.Float(185.5)}},
		tickers: []string{"AAPL", "MSFT", "GOOGL"},
	}
	r := NewRouter(NewHandler(svc), config.ServerConfig{
		RequestTimeout:     time.Second,
		CORSAllowedOrigins: []string{"http://localhost:3000"},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/stocks/aapl", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected X-Request-ID header to be set")
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("expected CORS header for allowed origin, got %q", got)
	}

	var out []dto.StockResponse
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid json response: %v", err)
	}
	if len(out) != 1 || out[0].Ticker != "AAPL" || out[0].Date != "2024-01-02" {
		t.Fatalf("unexpected body: %+v", out)
	}

	// Static route wins over :ticker
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stocks/tickers", nil))
	var tickers []string
	if err := json.Unmarshal(w.Body.Bytes(), &tickers); err != nil || len(tickers) != 3 {
		t.Fatalf("unexpected tickers body: %s (%v)", w.Body.String(), err)
	}
	if len(svc.calls) != 1 {
		t.Fatalf("expected exactly one stock lookup, got %v", svc.calls)
	}

	// Storage failure keeps the plain-text body through the full chain and logs once
	var logs bytes.Buffer
	logger.SetOutput(&logs)
	t.Cleanup(func() { logger.SetOutput(nil) })

	svc.err = errors.New("connection refused")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stocks/AAPL", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("expected text/plain body, got %q", ct)
	}
	if w.Body.String() != fetchFailedMessage {
		t.Fatalf("unexpected 500 body: %q", w.Body.String())
	}
	if n := strings.Count(logs.String(), "connection refused"); n != 1 {
		t.Fatalf("expected the cause logged once, got %d times:\n%s", n, logs.String())
	}
	if !strings.Contains(logs.String(), `"level":"error"`) {
		t.Fatalf("expected an error-level access line, got %s", logs.String())
	}
}

func TestNewRouter_RateLimited(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &mockStockService{tickers: []string{"AAPL"}}
	r := NewRouter(NewHandler(svc), config.ServerConfig{
		RateLimitPerMinute: 1,
		CORSAllowedOrigins: []string{"http://localhost:3000"},
	})

	codes := make([]int, 0, 2)
	var last *httptest.ResponseRecorder
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/stocks/tickers", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		last = httptest.NewRecorder()
		r.ServeHTTP(last, req)
		codes = append(codes, last.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("unexpected status sequence: %v", codes)
	}
	// a browser must be able to read the 429
	if got := last.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("expected CORS header on 429, got %q", got)
	}
}

func TestNewRouter_SwaggerUI(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRouter(NewHandler(&mockStockService{}), config.ServerConfig{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected swagger ui to be served, got %d", w.Code)
	}
}
