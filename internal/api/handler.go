package api

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/tickapi/internal/domain/dto"
	"github.com/guttosm/tickapi/internal/middleware"
	"github.com/guttosm/tickapi/internal/service"
)

// fetchFailedMessage is the only detail a client gets on a 500; the cause is logged.
const fetchFailedMessage = "failed to fetch stock data"

// tickerPattern accepts upper-cased symbols such as AAPL, BRK.B, BF-B, ^GSPC or EURUSD=X.
var tickerPattern = regexp.MustCompile(`^[A-Z0-9^][A-Z0-9.\-^=]{0,14}$`)

// Handler provides HTTP handlers for the stock endpoints.
//
// Responsibilities:
//   - Normalize and validate the ticker path parameter
//   - Delegate to the service layer
//   - Map results to response DTOs and HTTP status codes
type Handler struct {
	svc service.StockService
}

// NewHandler constructs a new Handler instance.
//
// Parameters:
//   - svc (service.StockService): Application layer used to look up stock rows.
//
// Returns:
//   - *Handler: A handler ready to be registered with the router.
func NewHandler(svc service.StockService) *Handler {
	return &Handler{svc: svc}
}

// NormalizeTicker trims and upper-cases a raw ticker, so "aapl" and "AAPL" hit the same rows.
func NormalizeTicker(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// GetStockData handles GET /api/stocks/{ticker} requests.
//
// Responses:
//   - 200 OK: JSON array of StockResponse, ascending by date.
//   - 400 Bad Request: ticker is empty or not a valid symbol.
//   - 404 Not Found: no rows for the ticker (empty body).
//   - 500 Internal Server Error: storage failure (plain-text message, cause logged).
//
// GetStockData godoc
// @Summary      Get daily history for a ticker
// @Description  Returns every stored trading day for the ticker ordered by date ascending. The ticker is case-insensitive.
// @Tags         stocks
// @Produce      json
// @Param        ticker  path      string  true  "Stock ticker" example(AAPL)
// @Success      200     {array}   dto.StockResponse  "Success"
// @Failure      400     {object}  dto.ErrorResponse  "Bad Request"
// @Failure      404     "Not Found"
// @Failure      500     {string}  string  "Internal Error"
// @Router       /api/stocks/{ticker} [get]
func (h *Handler) GetStockData(c *gin.Context) {
	// ─── Normalize and validate "ticker" ──────────────────────
	ticker := NormalizeTicker(c.Param("ticker"))
	if !tickerPattern.MatchString(ticker) {
		middleware.AbortWithError(c, http.StatusBadRequest, "invalid ticker", nil)
		return
	}

	// ─── Query service (with request context) ─────────────────
	rows, err := h.svc.GetStockData(c.Request.Context(), ticker)
	if err != nil {
		// cause is logged by RequestLogger
		_ = c.Error(err)
		c.String(http.StatusInternalServerError, fetchFailedMessage)
		return
	}
	if len(rows) == 0 {
		c.Status(http.StatusNotFound)
		return
	}

	c.JSON(http.StatusOK, dto.NewStockResponses(rows))
}

// GetAvailableTickers handles GET /api/stocks/tickers requests.
//
// GetAvailableTickers godoc
// @Summary      List available tickers
// @Description  Returns the tickers this service advertises and keeps synced.
// @Tags         stocks
// @Produce      json
// @Success      200  {array}  string  "Success"
// @Router       /api/stocks/tickers [get]
func (h *Handler) GetAvailableTickers(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.GetAvailableTickers(c.Request.Context()))
}
