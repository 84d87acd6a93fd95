package handlers

import (
	"context"
	"net/http"
	"time"

	"ResQWave/pkg/logger"
	"ResQWave/pkg/middleware"
	"ResQWave/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UpdateRateLimiterConfig 更新终端警报接口的限流配置
func (h *Handlers) UpdateRateLimiterConfig(c *gin.Context) {
	var config middleware.RateLimiterConfig
	if err := c.ShouldBindJSON(&config); err != nil {
		response.Fail(c, "invalid request", nil)
		return
	}
	if config.Rate == "" {
		config.Rate = h.limiter.Config().Rate
	}

	h.limiter.UpdateConfig(config)
	logger.Info("rate limiter config updated", zap.String("rate", config.Rate), zap.String("identifier", config.Identifier))
	response.Success(c, "rate limiter config updated", h.limiter.Config())
}

// HealthCheck 健康检查接口
func (h *Handlers) HealthCheck(c *gin.Context) {
	// 检查数据库连接
	sqlDB, err := h.db.DB()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": "database connection failed"})
		return
	}
	if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": "database ping failed"})
		return
	}

	// 共享缓存不可用时服务降级到数据库，仍然是健康的
	cacheStatus := "ok"
	ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
	defer cancel()
	if err := h.svc.Cache().Ping(ctx); err != nil {
		cacheStatus = "degraded"
	}

	c.JSON(http.StatusOK, gin.H{"status": "healthy", "cache": cacheStatus})
}

// CacheStats 命中率与共享层熔断状态
func (h *Handlers) CacheStats(c *gin.Context) {
	tc := h.svc.Cache()
	response.Success(c, "ok", gin.H{
		"stats":   tc.Stats(),
		"breaker": tc.BreakerState().String(),
	})
}
