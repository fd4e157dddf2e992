package api

import (
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/guttosm/tickapi/config"
	"github.com/guttosm/tickapi/internal/middleware"
)

// NewRouter creates a Gin engine with routes configured.
// It receives a Handler instance with all business logic already injected.
//
// Responsibilities:
//   - Registers global middlewares (RequestID, Logger, Recovery, ErrorHandler, CORS, RateLimiter, Timeout).
//   - Mounts Swagger docs (/swagger/*any).
//   - Configures the stock routes (/api/stocks).
//
// Note:
//   - Health and readiness endpoints (/healthz, /readyz) are registered in app.InitializeApp().
//   - /api/stocks/tickers is a static route and takes precedence over /api/stocks/:ticker.
//
// Parameters:
//   - handler (*Handler): The HTTP handler with business logic.
//   - cfg (config.ServerConfig): Timeout, rate limit and CORS settings.
//
// Returns:
//   - *gin.Engine: Configured Gin router.
func NewRouter(handler *Handler, cfg config.ServerConfig) *gin.Engine {
	router := gin.New()

	// ─── Middlewares ───────────────────────────────
	router.Use(
		middleware.RequestID(),
		middleware.RequestLogger(),
		middleware.RecoveryMiddleware(),
		middleware.ErrorHandler,
		middleware.CORS(cfg.CORSAllowedOrigins),
		middleware.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute).Middleware(),
		middleware.Timeout(cfg.RequestTimeout),
	)

	// ─── Swagger ──────────────────────────────────
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// ─── Stocks ───────────────────────────────────
	stocks := router.Group("/api/stocks")
	{
		stocks.GET("/tickers", handler.GetAvailableTickers)
		stocks.GET("/:ticker", handler.GetStockData)
	}

	return router
}
