package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/guttosm/tickapi/internal/logger"
)

// RequestLogger is a Gin middleware that writes one structured access log line per request.
//
// Level follows the response: 5xx → error, 4xx → warn, everything else → info.
// Errors attached with c.Error() are included so a 500 can be traced without
// exposing the cause to the client.
//
// Example log output:
//
//	{"level":"info","service":"tickapi","request_id":"…","method":"GET","path":"/api/stocks/AAPL","status":200,"latency_ms":3,"message":"http_request"}
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		var ev *zerolog.Event
		switch {
		case status >= 500:
			ev = logger.L().Error()
		case status >= 400:
			ev = logger.L().Warn()
		default:
			ev = logger.L().Info()
		}

		if len(c.Errors) > 0 {
			ev = ev.Str("errors", c.Errors.String())
		}

		ev.Str("request_id", GetRequestID(c)).
			Str("method", method).
			Str("path", path).
			Int("status", status).
			Int64("latency_ms", time.Since(start).Milliseconds()).
			Str("client_ip", c.ClientIP()).
			Msg("http_request")
	}
}
