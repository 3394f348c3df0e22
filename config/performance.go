package config

import (
	"strconv"
	"time"

	"envie2sortir-backend/logger"
	"envie2sortir-backend/metrics"

	"github.com/gin-gonic/gin"
)

const slowRequestThreshold = 200 * time.Millisecond

func PerformanceLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start)
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()

		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(latency.Seconds())

		fields := map[string]interface{}{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  status,
			"latency": latency.String(),
		}
		logger.L().Info("request", fields)

		if latency > slowRequestThreshold {
			logger.L().Warn("slow request", fields)
		}
	}
}
