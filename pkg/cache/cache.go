package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound 共享层未命中
var ErrNotFound = errors.New("cache: key not found")

// Cache 进程内缓存接口，值为已编码的字节
type Cache interface {
	// Get 获取缓存值
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set 设置缓存值，expiration<=0 时使用默认过期时间
	Set(ctx context.Context, key string, value []byte, expiration time.Duration) error

	// Delete 删除缓存
	Delete(ctx context.Context, keys ...string) error

	// Keys 返回匹配 glob 模式的键
	Keys(ctx context.Context, pattern string) []string

	// Len 当前缓存项数量
	Len() int

	// Clear 清空所有缓存
	Clear(ctx context.Context) error

	// Close 释放后台资源
	Close() error
}

// SharedStore 共享缓存层，所有错误都会返回给调用方以便熔断器计数
type SharedStore interface {
	// Get 返回值与剩余 TTL，未命中返回 ErrNotFound
	Get(ctx context.Context, key string) ([]byte, time.Duration, error)

	Set(ctx context.Context, key string, value []byte, expiration time.Duration) error

	Delete(ctx context.Context, keys ...string) error

	// Scan 返回匹配 glob 模式的键
	Scan(ctx context.Context, pattern string) ([]string, error)

	Ping(ctx context.Context) error

	Close() error
}

// Config 缓存配置
type Config struct {
	// 本地缓存类型: "local" 或 "gocache"
	LocalType string `json:"local_type" env:"CACHE_LOCAL_TYPE" default:"local"`

	// 共享缓存类型: "redis" 或 "none"
	SharedType string `json:"shared_type" env:"CACHE_SHARED_TYPE" default:"redis"`

	// Redis配置
	Redis RedisConfig `json:"redis"`

	// 本地缓存配置
	Local LocalConfig `json:"local"`

	// 熔断阈值
	BreakerThreshold int `json:"breaker_threshold" env:"CACHE_BREAKER_THRESHOLD" default:"5"`

	// 熔断恢复窗口
	BreakerWindow time.Duration `json:"breaker_window" env:"CACHE_BREAKER_WINDOW" default:"60s"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	// Redis地址
	Addr string `json:"addr" env:"REDIS_ADDR" default:"localhost:6379"`

	// Redis密码
	Password string `json:"password" env:"REDIS_PASSWORD"`

	// Redis数据库
	DB int `json:"db" env:"REDIS_DB" default:"0"`

	// 连接池大小
	PoolSize int `json:"pool_size" env:"REDIS_POOL_SIZE" default:"10"`

	// 最小空闲连接数
	MinIdleConns int `json:"min_idle_conns" env:"REDIS_MIN_IDLE_CONNS" default:"2"`

	// 连接超时时间
	DialTimeout time.Duration `json:"dial_timeout" env:"REDIS_DIAL_TIMEOUT" default:"2s"`

	// 读取超时时间
	ReadTimeout time.Duration `json:"read_timeout" env:"REDIS_READ_TIMEOUT" default:"1s"`

	// 写入超时时间
	WriteTimeout time.Duration `json:"write_timeout" env:"REDIS_WRITE_TIMEOUT" default:"1s"`
}

// LocalConfig 本地缓存配置
type LocalConfig struct {
	// 最大缓存项数
	MaxSize int `json:"max_size" env:"LOCAL_CACHE_MAX_SIZE" default:"500"`

	// 默认过期时间
	DefaultExpiration time.Duration `json:"default_expiration" env:"LOCAL_CACHE_DEFAULT_EXPIRATION" default:"60s"`

	// 清理间隔
	CleanupInterval time.Duration `json:"cleanup_interval" env:"LOCAL_CACHE_CLEANUP_INTERVAL" default:"30s"`
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{
		LocalType:  "local",
		SharedType: "redis",
		Redis: RedisConfig{
			Addr:         "localhost:6379",
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
		},
		Local: LocalConfig{
			MaxSize:           500,
			DefaultExpiration: 60 * time.Second,
			CleanupInterval:   30 * time.Second,
		},
		BreakerThreshold: 5,
		BreakerWindow:    60 * time.Second,
	}
}
