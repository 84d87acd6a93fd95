package config

import (
	"log"
	"os"
	"time"

	"ResQWave/pkg/cache"
	"ResQWave/pkg/logger"
	"ResQWave/pkg/util"
)

// Config 进程配置，全部来自环境变量
type Config struct {
	Env           string `env:"APP_ENV"`
	Mode          string `env:"MODE"`
	Addr          string `env:"ADDR"`
	APIPrefix     string `env:"API_PREFIX"`
	DBDriver      string `env:"DB_DRIVER"`
	DSN           string `env:"DSN"`
	JWTSecret     string `env:"JWT_SECRET"`
	APISecretKey  string `env:"API_SECRET_KEY"`
	CORSOrigins   []string
	RateLimit     string `env:"RATE_LIMIT"`
	TriggerRate   string `env:"TRIGGER_RATE_LIMIT"`
	StatsSchedule string `env:"STATS_SCHEDULE"`
	IdempotentTTL time.Duration
	Log           logger.LogConfig
	Cache         cache.Config

	// 为空时不做备份
	BackupSchedule string `env:"BACKUP_SCHEDULE"`
	BackupPath     string `env:"BACKUP_PATH"`
	BackupKeep     int    `env:"BACKUP_KEEP"`
}

var GlobalConfig *Config

// Load 加载 .env 后读取配置到 GlobalConfig
func Load() (*Config, error) {
	// 1. 根据环境加载 .env 文件
	env := util.GetEnvOr("APP_ENV", "development")
	if err := util.LoadEnv(env); err != nil {
		log.Printf("Failed to load .env file: %v", err)
	}

	// 2. 加载全局配置
	GlobalConfig = FromEnv()
	GlobalConfig.Env = env
	return GlobalConfig, nil
}

// FromEnv 读取当前进程环境变量，不加载 .env
func FromEnv() *Config {
	cacheCfg := cache.DefaultConfig()
	cacheCfg.LocalType = util.GetEnvOr("CACHE_LOCAL_TYPE", cacheCfg.LocalType)
	cacheCfg.SharedType = util.GetEnvOr("CACHE_SHARED_TYPE", cacheCfg.SharedType)
	cacheCfg.Redis.Addr = util.GetEnvOr("REDIS_ADDR", cacheCfg.Redis.Addr)
	cacheCfg.Redis.Password = util.GetEnv("REDIS_PASSWORD")
	cacheCfg.Redis.DB = int(util.GetIntEnv("REDIS_DB"))
	if n := util.GetIntEnv("REDIS_POOL_SIZE"); n > 0 {
		cacheCfg.Redis.PoolSize = int(n)
	}
	if n := util.GetIntEnv("REDIS_MIN_IDLE_CONNS"); n > 0 {
		cacheCfg.Redis.MinIdleConns = int(n)
	}
	cacheCfg.Redis.DialTimeout = util.GetDurationEnv("REDIS_DIAL_TIMEOUT", cacheCfg.Redis.DialTimeout)
	cacheCfg.Redis.ReadTimeout = util.GetDurationEnv("REDIS_READ_TIMEOUT", cacheCfg.Redis.ReadTimeout)
	cacheCfg.Redis.WriteTimeout = util.GetDurationEnv("REDIS_WRITE_TIMEOUT", cacheCfg.Redis.WriteTimeout)
	if n := util.GetIntEnv("LOCAL_CACHE_MAX_SIZE"); n > 0 {
		cacheCfg.Local.MaxSize = int(n)
	}
	cacheCfg.Local.DefaultExpiration = util.GetDurationEnv("LOCAL_CACHE_DEFAULT_EXPIRATION", cacheCfg.Local.DefaultExpiration)
	cacheCfg.Local.CleanupInterval = util.GetDurationEnv("LOCAL_CACHE_CLEANUP_INTERVAL", cacheCfg.Local.CleanupInterval)
	if n := util.GetIntEnv("CACHE_BREAKER_THRESHOLD"); n > 0 {
		cacheCfg.BreakerThreshold = int(n)
	}
	cacheCfg.BreakerWindow = util.GetDurationEnv("CACHE_BREAKER_WINDOW", cacheCfg.BreakerWindow)

	origins := util.GetListEnv("CORS_ORIGINS")
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	return &Config{
		Env:           os.Getenv("APP_ENV"),
		Mode:          util.GetEnvOr("MODE", "development"),
		Addr:          util.GetEnvOr("ADDR", ":5000"),
		APIPrefix:     util.GetEnvOr("API_PREFIX", "/api"),
		DBDriver:      util.GetEnvOr("DB_DRIVER", "sqlite"),
		DSN:           util.GetEnvOr("DSN", "file:resqwave.db"),
		JWTSecret:     util.GetEnv("JWT_SECRET"),
		APISecretKey:  util.GetEnv("API_SECRET_KEY"),
		CORSOrigins:   origins,
		RateLimit:     util.GetEnvOr("RATE_LIMIT", "300-M"),
		TriggerRate:   util.GetEnvOr("TRIGGER_RATE_LIMIT", "30-M"),
		StatsSchedule: util.GetEnvOr("STATS_SCHEDULE", "@every 1m"),
		IdempotentTTL: util.GetDurationEnv("IDEMPOTENCY_TTL", 10*time.Minute),
		Log: logger.LogConfig{
			Level:      util.GetEnvOr("LOG_LEVEL", "info"),
			Filename:   util.GetEnv("LOG_FILENAME"),
			MaxSize:    int(util.GetIntEnv("LOG_MAX_SIZE")),
			MaxAge:     int(util.GetIntEnv("LOG_MAX_AGE")),
			MaxBackups: int(util.GetIntEnv("LOG_MAX_BACKUPS")),
		},
		Cache: cacheCfg,

		BackupSchedule: util.GetEnv("BACKUP_SCHEDULE"),
		BackupPath:     util.GetEnvOr("BACKUP_PATH", "./backups"),
		BackupKeep:     int(util.GetIntEnv("BACKUP_KEEP")),
	}
}
