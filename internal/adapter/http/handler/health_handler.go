package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/ressKim-io/ReviewSense/api-service/internal/domain/service"
)

const (
	componentOK            = "ok"
	componentNotConfigured = "not configured"
	healthCheckTimeout     = 5 * time.Second
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	db         *gorm.DB
	redis      *redis.Client
	classifier service.ReadinessChecker
}

// NewHealthHandler creates a new health handler. Any dependency may be nil.
func NewHealthHandler(db *gorm.DB, redis *redis.Client, classifier service.ReadinessChecker) *HealthHandler {
	return &HealthHandler{
		db:         db,
		redis:      redis,
		classifier: classifier,
	}
}

// HealthStatus represents the health check response
type HealthStatus struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
}

type check struct {
	name string
	run  func(ctx context.Context) error
}

func (h *HealthHandler) checks() []check {
	var checks []check
	if h.db != nil {
		checks = append(checks, check{name: "database", run: func(ctx context.Context) error {
			sqlDB, err := h.db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}})
	} else {
		checks = append(checks, check{name: "database"})
	}
	if h.redis != nil {
		checks = append(checks, check{name: "redis", run: func(ctx context.Context) error {
			return h.redis.Ping(ctx).Err()
		}})
	} else {
		checks = append(checks, check{name: "redis"})
	}
	if h.classifier != nil {
		checks = append(checks, check{name: "classifier", run: h.classifier.Ready})
	} else {
		checks = append(checks, check{name: "classifier"})
	}
	return checks
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	components := make(map[string]string)
	healthy := true
	for _, chk := range h.checks() {
		if chk.run == nil {
			components[chk.name] = componentNotConfigured
			continue
		}
		if err := chk.run(ctx); err != nil {
			components[chk.name] = "error: " + err.Error()
			healthy = false
			continue
		}
		components[chk.name] = componentOK
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if !healthy {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, HealthStatus{
		Status:     status,
		Components: components,
	})
}

// Ready handles GET /ready. It fails on the first unreachable dependency.
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	for _, chk := range h.checks() {
		if chk.run == nil {
			continue
		}
		if err := chk.run(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "reason": chk.name + " unreachable"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
