package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"leadflow/internal/config"
	"leadflow/internal/logger"
	"leadflow/pkg/health"
	"leadflow/pkg/middleware"
	"leadflow/pkg/ratelimit"
	"leadflow/pkg/tracing"
)

// NewRouter builds the gin engine serving the dispatch API, /health and
// /metrics. ctx bounds the rate limiter's cleanup goroutine.
func NewRouter(ctx context.Context, cfg *config.Config, handler *Handler, healthRegistry *health.CheckerRegistry, serviceName string, log logger.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware(serviceName))
	}

	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(middleware.RequestIDMiddleware())

	if cfg.API.RateLimit.Enabled {
		rateLimitConfig := ratelimit.RateLimitConfig{
			RPS:             cfg.API.RateLimit.RPS,
			Burst:           cfg.API.RateLimit.Burst,
			CleanupInterval: time.Duration(cfg.API.RateLimit.CleanupInterval) * time.Second,
			MaxAge:          time.Duration(cfg.API.RateLimit.MaxAge) * time.Second,
		}
		router.Use(ratelimit.RateLimitMiddleware(ctx, rateLimitConfig))
		log.InfowCtx(ctx, "Rate limiting enabled", "rps", rateLimitConfig.RPS, "burst", rateLimitConfig.Burst)
	}

	handler.RegisterRoutes(router)

	router.GET("/health", func(c *gin.Context) {
		h := healthRegistry.Check(c.Request.Context())
		statusCode := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		c.JSON(statusCode, h)
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}
