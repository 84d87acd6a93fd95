package handlers

import (
	"context"

	"ResQWave/internal/dispatch"
	"ResQWave/internal/models"
	"ResQWave/pkg/config"
	"ResQWave/pkg/middleware"
	"ResQWave/pkg/sse"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Handlers struct {
	db      *gorm.DB
	svc     *dispatch.Service
	events  *sse.Hub
	limiter *middleware.RateLimiter
	cfg     *config.Config
	ctx     context.Context
}

// Options 构造 Handlers 所需的依赖
type Options struct {
	DB      *gorm.DB
	Service *dispatch.Service
	Events  *sse.Hub
	// Limiter 用于终端触发警报的接口，为 nil 时按配置创建内存限流器
	Limiter *middleware.RateLimiter
	Config  *config.Config
	// Context 控制幂等存储清理协程的生命周期，为 nil 时不清理
	Context context.Context
}

func NewHandlers(opts Options) *Handlers {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.GlobalConfig
	}
	limiter := opts.Limiter
	if limiter == nil {
		limiter = middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:       cfg.TriggerRate,
			Identifier: "ip+route",
			AddHeaders: true,
		}, nil).WithObserver(middleware.NewPrometheusObserver())
	}
	return &Handlers{
		db:      opts.DB,
		svc:     opts.Service,
		events:  opts.Events,
		limiter: limiter,
		cfg:     cfg,
		ctx:     opts.Context,
	}
}

func (h *Handlers) Register(engine *gin.Engine) {
	r := engine.Group(h.cfg.APIPrefix)

	// Register System Module Routes
	h.registerSystemRoutes(r)

	// Register Business Module Routes
	h.registerAlertRoutes(r)
	h.registerRescueFormRoutes(r)
	h.registerPostRescueRoutes(r)
	h.registerEventRoutes(r)
}

func (h *Handlers) operators() []gin.HandlerFunc {
	return []gin.HandlerFunc{
		middleware.AuthRequired(h.cfg.JWTSecret),
		middleware.RequireRole(middleware.RoleAdmin, middleware.RoleDispatcher),
	}
}

func (h *Handlers) idempotent() gin.HandlerFunc {
	return middleware.Idempotency(middleware.IdempotencyConfig{
		TTL:     h.cfg.IdempotentTTL,
		Context: h.ctx,
	})
}

// Alert Module
func (h *Handlers) registerAlertRoutes(r *gin.RouterGroup) {
	alerts := r.Group("alerts")
	{
		// 终端上报，不需要登录
		trigger := []gin.HandlerFunc{h.limiter.Middleware(), middleware.SignVerify(h.cfg.APISecretKey)}
		alerts.POST("/critical", append(trigger, h.handleCreateCriticalAlert)...)

		alerts.POST("/user", append(trigger, h.handleCreateUserAlert)...)
	}

	operator := alerts.Group("", h.operators()...)
	{
		operator.GET("", h.handleListAlerts(""))

		operator.GET("/unassigned", h.handleListAlerts(models.AlertUnassigned))

		operator.GET("/waitlist", h.handleListAlerts(models.AlertWaitlist))

		operator.GET("/dispatched", h.handleListAlerts(models.AlertDispatched))

		// map
		operator.GET("/map", h.handleMapAlerts)

		operator.GET("/map/unassigned", h.handleOccupiedMap)

		operator.GET("/map/waitlisted", h.handleWaitlistedMap)

		operator.GET("/:id", h.handleGetAlert)

		operator.PATCH("/:id", h.handleSetAlertStatus)
	}
}

// Rescue Form Module
func (h *Handlers) registerRescueFormRoutes(r *gin.RouterGroup) {
	forms := r.Group("rescue-forms", h.operators()...)
	{
		forms.POST("/:id", h.idempotent(), h.handleCreateRescueForm)

		forms.PATCH("/:id/status", h.handleUpdateRescueFormStatus)

		forms.GET("", h.handleListRescueForms)

		forms.GET("/table/aggregated", h.handleRescueAggregates)

		forms.GET("/:id", h.handleGetRescueForm)
	}
}

// Post Rescue Module
func (h *Handlers) registerPostRescueRoutes(r *gin.RouterGroup) {
	post := r.Group("post-rescue", h.operators()...)
	{
		post.POST("/:alertID", h.idempotent(), h.handleCreatePostRescueForm)

		post.GET("/pending", h.handlePendingReports)

		post.GET("/completed", h.handleCompletedReports)

		post.GET("/aggregated", h.handleAggregatedReports)

		post.GET("/table/aggregated", h.handleAggregatedPostRescue)

		post.DELETE("/cache", h.handleClearReportsCache)
	}
}

func (h *Handlers) registerSystemRoutes(r *gin.RouterGroup) {
	system := r.Group("system")
	{
		system.GET("/health", h.HealthCheck)

		system.GET("/cache/stats", append(h.operators(), h.CacheStats)...)

		system.POST("/rate-limiter/config", append(h.operators(), h.UpdateRateLimiterConfig)...)
	}
}

func (h *Handlers) registerEventRoutes(r *gin.RouterGroup) {
	if h.events == nil {
		return
	}
	r.GET("/events", append(h.operators(), h.handleEvents)...)
}
