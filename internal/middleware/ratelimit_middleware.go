package middleware

import (
	"net/http"
	"strconv"

	"sentinal-safety/internal/metrics"
	"sentinal-safety/internal/ratelimit"
	"sentinal-safety/internal/services"
	"sentinal-safety/internal/transport/httpdto"
	"sentinal-safety/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RateLimitMiddleware charges one unit of bucket per request to the
// authenticated caller. It must run after AuthMiddleware. A nil limiter
// disables limiting; a limiter failure lets the request through.
func RateLimitMiddleware(limiter ratelimit.Limiter, bucket string, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		userID, ok := services.UserIDFromContext(c.Request.Context())
		if !ok {
			c.Next()
			return
		}

		result, err := limiter.Allow(c.Request.Context(), bucket, userID.String())
		if err != nil {
			logger.GetGlobalLogger().WithContext(c.Request.Context()).Warn("rate limit check failed",
				zap.String("bucket", bucket), zap.Error(err))
			c.Next()
			return
		}

		setRateLimitHeaders(c, result)

		if !result.Allowed {
			m.RateLimited(bucket)
			c.JSON(http.StatusTooManyRequests, httpdto.NewErrorResponse(bucket+" rate limit exceeded", "RATE_LIMITED"))
			c.Abort()
			return
		}

		c.Next()
	}
}

// setRateLimitHeaders sets standard rate limit response headers
func setRateLimitHeaders(c *gin.Context, result *ratelimit.Result) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(int64(result.ResetIn.Seconds()), 10))
}
