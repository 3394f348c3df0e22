package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthController struct {
	DB    Pinger
	Redis *redis.Client
}

// Health reports database and cache reachability
func (hc *HealthController) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := gin.H{}
	healthy := true

	if err := hc.DB.PingContext(ctx); err != nil {
		checks["database"] = "down: " + err.Error()
		healthy = false
	} else {
		checks["database"] = "ok"
	}

	if hc.Redis == nil {
		checks["redis"] = "disabled"
	} else if err := hc.Redis.Ping(ctx).Err(); err != nil {
		checks["redis"] = "down: " + err.Error()
		healthy = false
	} else {
		checks["redis"] = "ok"
	}

	status, code := "ok", http.StatusOK
	if !healthy {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"status": status, "checks": checks, "time": now().UTC()})
}
