package dto

import "github.com/guttosm/tickapi/internal/domain/models"

// StockResponse represents one element of the JSON array returned by
// GET /api/stocks/{ticker}.
//
// Fields match the API contract and may differ from internal domain models.
// Nullable columns are pointers so missing values serialize as null.
type StockResponse struct {
	ID     int64    `json:"id" example:"1"`
	Ticker string   `json:"ticker" example:"AAPL"`
	Date   string   `json:"date" example:"2024-01-02"` // ISO-8601 calendar date
	Open   *float64 `json:"open" example:"187.15"`
	High   *float64 `json:"high" example:"188.44"`
	Low    *float64 `json:"low" example:"183.89"`
	Close  *float64 `json:"close" example:"185.64"`
	Volume *int64   `json:"volume" example:"82488700"`
	SMA20  *float64 `json:"sma20" example:"190.12"`
	RSI    *float64 `json:"rsi" example:"41.7"`
}

// NewStockResponse maps a stored row to its wire representation.
func NewStockResponse(row models.StockRow) StockResponse {
	return StockResponse{
		ID:     row.ID,
		Ticker: row.Ticker,
		Date:   row.Date.Format(models.DateLayout),
		Open:   row.Open,
		High:   row.High,
		Low:    row.Low,
		Close:  row.Close,
		Volume: row.Volume,
		SMA20:  row.SMA20,
		RSI:    row.RSI,
	}
}

// NewStockResponses maps rows preserving their order.
func NewStockResponses(rows []models.StockRow) []StockResponse {
	out := make([]StockResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, NewStockResponse(r))
	}
	return out
}
