package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/tickapi/internal/domain/dto"
)

// client represents a rate-limited client with request count and window start.
type client struct {
	windowStart time.Time
	count       int
}

// RateLimiter is a fixed-window, per-IP, in-memory limiter.
//
// State is per process; running several replicas multiplies the effective limit.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*client
	limit   int
	window  time.Duration
	now     func() time.Time
}

// NewRateLimiter allows up to limit requests per window per client IP.
// A non-positive limit disables limiting.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		clients: make(map[string]*client),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
}

// Allow records one request from key and reports whether it is within the limit.
func (rl *RateLimiter) Allow(key string) bool {
	if rl.limit <= 0 {
		return true
	}
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	cl, ok := rl.clients[key]
	if !ok || now.Sub(cl.windowStart) >= rl.window {
		rl.clients[key] = &client{windowStart: now, count: 1}
		rl.evictExpired(now)
		return true
	}
	cl.count++
	return cl.count <= rl.limit
}

// evictExpired drops clients whose window has elapsed; caller holds mu.
func (rl *RateLimiter) evictExpired(now time.Time) {
	for k, cl := range rl.clients {
		if now.Sub(cl.windowStart) >= rl.window {
			delete(rl.clients, k)
		}
	}
}

// Middleware returns the Gin handler. Rejected requests get 429 with an ErrorResponse body.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.NewErrorResponse("rate limit exceeded", nil))
			return
		}
		c.Next()
	}
}
