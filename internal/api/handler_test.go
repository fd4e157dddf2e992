package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/tickapi/internal/domain/dto"
	"github.com/guttosm/tickapi/internal/domain/models"
	"github.com/guttosm/tickapi/internal/service"
)

type mockStockService struct {
	rows    []models.StockRow
	err     error
	tickers []string
	calls   []string
}

func (m *mockStockService) GetStockData(_ context.Context, ticker string) ([]models.StockRow, error) {
	m.calls = append(m.calls, ticker)
	return m.rows, m.err
}

func (m *mockStockService) GetAvailableTickers(_ context.Context) []string {
	return m.tickers
}

var _ service.StockService = (*mockStockService)(nil)

func setupRouterWithMock(s service.StockService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(s)
	r := gin.New()
	stocks := r.Group("/api/stocks")
	stocks.GET("/tickers", h.GetAvailableTickers)
	stocks.GET("/:ticker", h.GetStockData)
	return r
}

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func decodeStocks(t *testing.T, body []byte) []dto.StockResponse {
	t.Helper()
	var out []dto.StockResponse
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("invalid json: %v (%s)", err, body)
	}
	return out
}

func TestGetStockData_TableDriven(t *testing.T) {
	history := []models.StockRow{
		{ID: 1, Ticker: "AAPL", Date: day(2), Close: models.Float(185.5), Volume: models.Int(1000)},
		{ID: 2, Ticker: "AAPL", Date: day(3), Open: models.Float(184), Close: models.Float(184.25)},
		{ID: 3, Ticker: "AAPL", Date: day(4), Close: models.Float(181.91), SMA20: models.Float(190.1), RSI: models.Float(41.7)},
	}

	cases := []struct {
		name       string
		svc        *mockStockService
		path       string
		status     int
		wantTicker string
		assert     func(t *testing.T, w *httptest.ResponseRecorder)
	}{
		{
			name:       "unknown ticker is 404 with empty body",
			svc:        &mockStockService{rows: []models.StockRow{}},
			path:       "/api/stocks/ZZZZ",
			status:     http.StatusNotFound,
			wantTicker: "ZZZZ",
			assert: func(t *testing.T, w *httptest.ResponseRecorder) {
				if w.Body.Len() != 0 {
					t.Fatalf("expected empty body, got %q", w.Body.String())
				}
			},
		},
		{
			name:       "nil rows also 404",
			svc:        &mockStockService{},
			path:       "/api/stocks/MSFT",
			status:     http.StatusNotFound,
			wantTicker: "MSFT",
		},
		{
			name:       "rows returned in service order",
			svc:        &mockStockService{rows: history},
			path:       "/api/stocks/AAPL",
			status:     http.StatusOK,
			wantTicker: "AAPL",
			assert: func(t *testing.T, w *httptest.ResponseRecorder) {
				out := decodeStocks(t, w.Body.Bytes())
				if len(out) != 3 {
					t.Fatalf("expected 3 elements, got %d", len(out))
				}
				for i, want := range []string{"2024-01-02", "2024-01-03", "2024-01-04"} {
					if out[i].Date != want || out[i].ID != int64(i+1) {
						t.Fatalf("element %d: got %+v, want date %s", i, out[i], want)
					}
				}
				if out[2].SMA20 == nil || *out[2].SMA20 != 190.1 || out[2].RSI == nil || *out[2].RSI != 41.7 {
					t.Fatalf("indicators not mapped: %+v", out[2])
				}
			},
		},
		{
			name:       "round trip keeps stored values",
			svc:        &mockStockService{rows: history[:1]},
			path:       "/api/stocks/AAPL",
			status:     http.StatusOK,
			wantTicker: "AAPL",
			assert: func(t *testing.T, w *httptest.ResponseRecorder) {
				out := decodeStocks(t, w.Body.Bytes())
				if len(out) != 1 {
					t.Fatalf("expected 1 element, got %d", len(out))
				}
				got := out[0]
				if got.Ticker != "AAPL" || got.Date != "2024-01-02" || got.Close == nil || *got.Close != 185.5 || got.Volume == nil || *got.Volume != 1000 {
					t.Fatalf("unexpected element: %+v", got)
				}
				if got.Open != nil || got.High != nil || got.Low != nil {
					t.Fatalf("expected missing prices to stay null: %+v", got)
				}
			},
		},
		{
			name:       "lowercase ticker normalized",
			svc:        &mockStockService{rows: history[:1]},
			path:       "/api/stocks/aapl",
			status:     http.StatusOK,
			wantTicker: "AAPL",
		},
		{
			name:       "class share symbol accepted",
			svc:        &mockStockService{rows: []models.StockRow{{ID: 9, Ticker: "BRK.B", Date: day(2)}}},
			path:       "/api/stocks/brk.b",
			status:     http.StatusOK,
			wantTicker: "BRK.B",
		},
		{
			name:       "storage failure is 500 without data",
			svc:        &mockStockService{rows: history, err: errors.New("db down")},
			path:       "/api/stocks/AAPL",
			status:     http.StatusInternalServerError,
			wantTicker: "AAPL",
			assert: func(t *testing.T, w *httptest.ResponseRecorder) {
				if got := w.Body.String(); got != fetchFailedMessage {
					t.Fatalf("unexpected body %q", got)
				}
			},
		},
		{
			name:   "blank ticker rejected",
			svc:    &mockStockService{},
			path:   "/api/stocks/%20%20",
			status: http.StatusBadRequest,
		},
		{
			name:   "illegal characters rejected",
			svc:    &mockStockService{},
			path:   "/api/stocks/AA$PL",
			status: http.StatusBadRequest,
			assert: func(t *testing.T, w *httptest.ResponseRecorder) {
				var out dto.ErrorResponse
				if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil || out.Message != "invalid ticker" {
					t.Fatalf("unexpected error body: %s (%v)", w.Body.String(), err)
				}
			},
		},
		{
			name:   "overlong ticker rejected",
			svc:    &mockStockService{},
			path:   "/api/stocks/ABCDEFGHIJKLMNOPQ",
			status: http.StatusBadRequest,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := setupRouterWithMock(tc.svc)
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tc.status {
				t.Fatalf("expected %d, got %d (%s)", tc.status, w.Code, w.Body.String())
			}
			switch {
			case tc.wantTicker == "" && len(tc.svc.calls) != 0:
				t.Fatalf("service should not be called, got %v", tc.svc.calls)
			case tc.wantTicker != "" && (len(tc.svc.calls) != 1 || tc.svc.calls[0] != tc.wantTicker):
				t.Fatalf("expected service call with %q, got %v", tc.wantTicker, tc.svc.calls)
			}
			if tc.assert != nil {
				tc.assert(t, w)
			}
		})
	}
}

func TestGetStockData_RepeatedRequestsIdentical(t *testing.T) {
	svc := &mockStockService{rows: []models.StockRow{
		{ID: 1, Ticker: "MSFT", Date: day(2), Close: models.Float(370.87)},
		{ID: 2, Ticker: "MSFT", Date: day(3), Close: models.Float(370.6)},
	}}
	r := setupRouterWithMock(svc)

	var bodies []string
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stocks/MSFT", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		bodies = append(bodies, w.Body.String())
	}
	if bodies[0] != bodies[1] {
		t.Fatalf("responses differ:\n%s\n%s", bodies[0], bodies[1])
	}
}

func TestGetAvailableTickers(t *testing.T) {
	cases := []struct {
		name    string
		tickers []string
		want    []string
	}{
		{name: "configured list", tickers: []string{"AAPL", "MSFT", "GOOGL"}, want: []string{"AAPL", "MSFT", "GOOGL"}},
		{name: "empty list is empty array", tickers: []string{}, want: []string{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockStockService{tickers: tc.tickers}
			r := setupRouterWithMock(svc)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stocks/tickers", nil))
			if w.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", w.Code)
			}
			var out []string
			if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
				t.Fatalf("invalid json: %v", err)
			}
			if len(out) != len(tc.want) {
				t.Fatalf("got %v, want %v", out, tc.want)
			}
			for i := range tc.want {
				if out[i] != tc.want[i] {
					t.Fatalf("got %v, want %v", out, tc.want)
				}
			}
			if len(svc.calls) != 0 {
				t.Fatalf("tickers route must not hit the :ticker handler, got %v", svc.calls)
			}
		})
	}
}

func TestNormalizeTicker(t *testing.T) {
	cases := map[string]string{
		"aapl":     "AAPL",
		"  msft ":  "MSFT",
		"BRK.b":    "BRK.B",
		"":         "",
		"^gspc":    "^GSPC",
		"eurusd=x": "EURUSD=X",
	}
	for in, want := range cases {
		if got := NormalizeTicker(in); got != want {
			t.Fatalf("NormalizeTicker(%q) = %q, want %q", in, got, want)
		}
	}
}
