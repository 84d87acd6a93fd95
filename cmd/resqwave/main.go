package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ResQWave/internal/dispatch"
	handlers "ResQWave/internal/handler"
	"ResQWave/internal/models"
	"ResQWave/pkg/backup"
	"ResQWave/pkg/cache"
	"ResQWave/pkg/config"
	"ResQWave/pkg/logger"
	"ResQWave/pkg/metrics"
	"ResQWave/pkg/middleware"
	"ResQWave/pkg/scheduler"
	"ResQWave/pkg/sse"
	"ResQWave/pkg/util"
	"ResQWave/pkg/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// 1. 配置与日志
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := logger.Init(&cfg.Log, cfg.Mode); err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	// 2. 数据库
	var dbLog io.Writer
	if cfg.Mode == "development" {
		dbLog = os.Stdout
	}
	db, err := util.InitDatabase(dbLog, cfg.DBDriver, cfg.DSN)
	if err != nil {
		logger.Fatal("init database failed", zap.String("driver", cfg.DBDriver), zap.Error(err))
	}
	if err := metrics.InstrumentGorm(db); err != nil {
		logger.Warn("instrument gorm failed", zap.Error(err))
	}
	if err := models.Migrate(db); err != nil {
		logger.Fatal("migrate failed", zap.Error(err))
	}

	// 3. 缓存
	tc, err := cache.New(cfg.Cache)
	if err != nil {
		logger.Fatal("init cache failed", zap.Error(err))
	}
	defer tc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 4. 实时推送：websocket 房间 + SSE 镜像
	wsCfg := websocket.LoadConfigFromEnv()
	if err := websocket.ValidateConfig(wsCfg); err != nil {
		logger.Fatal("invalid websocket config", zap.Error(err))
	}
	wsHub := websocket.NewHub(wsCfg)
	defer wsHub.Close()
	events := sse.NewHub(15 * time.Second)
	defer events.Close()

	svc := dispatch.NewService(db, tc, wsHub, events)
	wsHub.SetTrigger(svc.Trigger)

	// 5. 路由
	if cfg.Mode == "development" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.CORSOrigins,
		AllowMethods:  []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "Idempotency-Key", "Signature"},
		ExposeHeaders: []string{"Content-Length", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		MaxAge:        12 * time.Hour,
	}))
	router.Use(metrics.GinMiddleware())
	router.Use(middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Rate:       cfg.RateLimit,
		Identifier: "ip",
		SkipPaths:  []string{"/metrics", websocket.RouteWebSocket},
	}, nil).Middleware())

	metrics.RegisterRoutes(router)
	websocket.RegisterRoutes(router, websocket.NewHandler(wsHub, cfg.JWTSecret))
	handlers.NewHandlers(handlers.Options{
		DB:      db,
		Service: svc,
		Events:  events,
		Config:  cfg,
		Context: ctx,
	}).Register(router)

	// 6. 定时任务
	jobs := scheduler.NewCron(nil)
	if _, err := jobs.Add(cfg.StatsSchedule, scheduler.FuncJob(func(ctx context.Context) {
		stats := tc.Stats()
		ws := wsHub.Stats()
		logger.Info("cache stats",
			zap.Int64("hits", stats.Hits),
			zap.Int64("misses", stats.Misses),
			zap.Float64("ratio", stats.Ratio),
			zap.String("breaker", tc.BreakerState().String()),
			zap.Any("realtime", ws),
			zap.Int("sse_clients", events.ClientCount()),
		)
	})); err != nil {
		logger.Warn("invalid stats schedule", zap.String("schedule", cfg.StatsSchedule), zap.Error(err))
	}
	if cfg.BackupSchedule != "" {
		if _, err := jobs.Add(cfg.BackupSchedule, backup.New(db, cfg.DBDriver, cfg.BackupPath, cfg.BackupKeep)); err != nil {
			logger.Warn("invalid backup schedule", zap.String("schedule", cfg.BackupSchedule), zap.Error(err))
		}
	}
	jobs.Start()
	defer jobs.Stop()

	ticker := scheduler.New()
	ticker.Every(15*time.Second, scheduler.FuncJob(func(context.Context) {
		metrics.SetRealtimeConnections(wsHub.GetConnectionCount() + int64(events.ClientCount()))
	}))
	defer ticker.Stop()

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: router,
	}
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	logger.Info("shutdown complete")
}
