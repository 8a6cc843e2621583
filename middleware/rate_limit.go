package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pslima001/govy-function-current-sub002/pkg/logger"
)

// RateLimiter is a fixed-window request counter per key
type RateLimiter struct {
	mu        sync.Mutex
	tokens    map[string]int
	lastReset time.Time
	rate      int           // requests per window
	window    time.Duration // time window
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(rate int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		tokens:    make(map[string]int),
		lastReset: time.Now(),
		rate:      rate,
		window:    window,
	}
}

// Allow counts one request for key and reports whether it fits the window.
func (l *RateLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if time.Since(l.lastReset) > l.window {
		l.tokens = make(map[string]int)
		l.lastReset = time.Now()
	}

	count := l.tokens[key]
	if count >= l.rate {
		return false
	}
	l.tokens[key] = count + 1
	return true
}

// rateKey limits authenticated callers per tenant and everyone else per
// client IP.
func rateKey(c *gin.Context) string {
	if tenant := GetTenant(c); tenant != "" {
		return "tenant:" + tenant
	}
	return "ip:" + c.ClientIP()
}

// RateLimit middleware limits requests per tenant, or per IP before
// authentication.
func RateLimit(rate int, window time.Duration) gin.HandlerFunc {
	limiter := NewRateLimiter(rate, window)

	return func(c *gin.Context) {
		key := rateKey(c)
		if !limiter.Allow(key) {
			logger.Warn(c.Request.Context(), "rate limit exceeded",
				"key", key,
				"client_ip", c.ClientIP(),
			)

			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded. Please try again later.",
			})
			return
		}

		c.Next()
	}
}
