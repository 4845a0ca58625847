package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/driftline/market-sandbox/internal/obs"
	"github.com/driftline/market-sandbox/pkg/ratelimit"
)

// RateLimit rejects requests exceeding the limiter for the given route
// category with 429.
func RateLimit(limits *ratelimit.PerRoute, category string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limits.Allow(category) {
			obs.RateLimited.WithLabelValues(category).Inc()
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			c.Abort()
			return
		}
		c.Next()
	}
}
