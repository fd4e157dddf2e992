package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/guttosm/tickapi/internal/domain/models"
)

// MarketClient fetches daily OHLCV bars for a single ticker.
type MarketClient interface {
	FetchDaily(ctx context.Context, ticker, rng string) ([]models.StockRow, error)
}

// chartResponse mirrors the subset of the Yahoo Finance v8 chart payload we read.
// Quote arrays carry nulls on days the exchange published no value.
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResult struct {
	Meta struct {
		Symbol    string `json:"symbol"`
		GMTOffset int64  `json:"gmtoffset"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []chartQuote `json:"quote"`
	} `json:"indicators"`
}

type chartQuote struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*int64   `json:"volume"`
}

type yahooClient struct {
	client  *resty.Client
	baseURL string
}

// NewYahooClient returns a MarketClient backed by the Yahoo Finance chart API.
//
// Parameters:
//   - baseURL: API host without trailing slash (e.g., "https://query1.finance.yahoo.com").
//   - timeout: per-request timeout; zero keeps resty's default (none).
func NewYahooClient(baseURL string, timeout time.Duration) MarketClient {
	client := resty.New()
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	client.SetHeader("User-Agent", "Mozilla/5.0 (compatible; tickapi/1.0)")
	client.SetHeader("Accept", "application/json")

	return &yahooClient{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

// FetchDaily requests rng of daily history ("1mo", "6mo", "1y", ...) for ticker.
//
// Behavior:
//   - Bars are keyed by their exchange-local calendar date (UTC midnight).
//   - Bars with no price at all are dropped; partial bars keep nil columns.
//   - Indicators are not computed here; see ApplyIndicators.
func (y *yahooClient) FetchDaily(ctx context.Context, ticker, rng string) ([]models.StockRow, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))

	resp, err := y.client.R().
		SetContext(ctx).
		SetPathParam("ticker", ticker).
		SetQueryParams(map[string]string{
			"range":    rng,
			"interval": "1d",
		}).
		Get(y.baseURL + "/v8/finance/chart/{ticker}")
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", ticker, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status code %d", ticker, resp.StatusCode())
	}

	var chart chartResponse
	if err := json.Unmarshal(resp.Body(), &chart); err != nil {
		return nil, fmt.Errorf("parse %s: %w", ticker, err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("chart api error for %s: %s: %s", ticker, chart.Chart.Error.Code, chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 {
		return nil, fmt.Errorf("no data returned for %s", ticker)
	}

	return chartRows(ticker, chart.Chart.Result[0]), nil
}

func chartRows(ticker string, res chartResult) []models.StockRow {
	rows := make([]models.StockRow, 0, len(res.Timestamp))
	if len(res.Indicators.Quote) == 0 {
		return rows
	}
	q := res.Indicators.Quote[0]

	for i, ts := range res.Timestamp {
		row := models.StockRow{
			Ticker: ticker,
			Date:   models.TruncateDate(time.Unix(ts+res.Meta.GMTOffset, 0).UTC()),
			Open:   floatAt(q.Open, i),
			High:   floatAt(q.High, i),
			Low:    floatAt(q.Low, i),
			Close:  floatAt(q.Close, i),
			Volume: intAt(q.Volume, i),
		}
		if row.Open == nil && row.High == nil && row.Low == nil && row.Close == nil {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

func floatAt(s []*float64, i int) *float64 {
	if i >= len(s) {
		return nil
	}
	return s[i]
}

func intAt(s []*int64, i int) *int64 {
	if i >= len(s) {
		return nil
	}
	return s[i]
}
