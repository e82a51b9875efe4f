package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	domainerrors "hacker-tracker.backend/internal/domain/errors"
	"hacker-tracker.backend/pkg/logger"
	"hacker-tracker.backend/pkg/metrics"
	"hacker-tracker.backend/pkg/redis"
)

// RateLimiter counts hits per key inside a window
type RateLimiter interface {
	Allow(ctx context.Context, key string) (*redis.RateLimitResult, error)
	Limit() int
}

// RateLimitMiddleware rejects clients that exceed the limiter's window with 429.
// The limiter failing lets the request through.
func RateLimitMiddleware(limiter RateLimiter, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		result, err := limiter.Allow(ctx, c.ClientIP())
		if err != nil {
			logger.Warn(ctx, "Rate limiter unavailable, allowing request", zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.Limit()))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))

		if !result.Allowed {
			m.RateLimited()
			c.Header("Retry-After", strconv.Itoa(int(result.ResetIn.Round(time.Second)/time.Second)))
			message := "Too many requests from this IP, please try again later."
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":    domainerrors.CodeRateLimited,
				"message": message,
				"error":   message,
			})
			return
		}

		c.Next()
	}
}
