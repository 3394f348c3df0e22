package utils

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"envie2sortir-backend/logger"
	"envie2sortir-backend/metrics"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimit allows limit requests per client IP and group in each fixed window.
// A nil client or a Redis failure lets the request through.
func RateLimit(rdb *redis.Client, group string, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil || limit <= 0 {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		key := fmt.Sprintf("ratelimit:%s:%s", group, c.ClientIP())

		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			logger.L().Warn("rate limiter unavailable", map[string]interface{}{"group": group, "error": err})
			c.Next()
			return
		}
		if count == 1 {
			if err := rdb.Expire(ctx, key, window).Err(); err != nil {
				logger.L().Warn("rate limiter expire failed", map[string]interface{}{"group": group, "error": err})
			}
		}

		if count > int64(limit) {
			retryAfter := window
			if ttl, err := rdb.TTL(ctx, key).Result(); err == nil && ttl > 0 {
				retryAfter = ttl
			}
			metrics.RateLimitedTotal.WithLabelValues(group).Inc()
			c.Header("Retry-After", strconv.Itoa(int((retryAfter+time.Second-1)/time.Second)))
			RespondWithError(c, http.StatusTooManyRequests, "Too many requests, please try again later")
			return
		}
		c.Next()
	}
}
