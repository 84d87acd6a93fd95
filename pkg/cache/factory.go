package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ResQWave/pkg/logger"

	"go.uber.org/zap"
)

// NewLocal 按类型创建本地缓存
func NewLocal(config Config) (Cache, error) {
	switch strings.ToLower(config.LocalType) {
	case "", "local", "lru":
		return NewLocalCache(config.Local)
	case "gocache":
		return NewGoCache(config.Local), nil
	default:
		return nil, fmt.Errorf("unsupported local cache type: %s", config.LocalType)
	}
}

// NewShared 按类型创建共享缓存层，"none" 返回 nil
func NewShared(config Config) (SharedStore, error) {
	switch strings.ToLower(config.SharedType) {
	case "", "none":
		return nil, nil
	case "redis":
		return NewRedisStore(config.Redis), nil
	default:
		return nil, fmt.Errorf("unsupported shared cache type: %s", config.SharedType)
	}
}

// New 根据配置创建分层缓存。共享层不可达时仍然启动，由熔断器接管
func New(config Config) (*TieredCache, error) {
	local, err := NewLocal(config)
	if err != nil {
		return nil, err
	}

	shared, err := NewShared(config)
	if err != nil {
		_ = local.Close()
		return nil, err
	}

	breaker := NewBreaker(config.BreakerThreshold, config.BreakerWindow)
	tc := NewTieredCache(local, shared, breaker, config.Local.DefaultExpiration)

	if shared != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := shared.Ping(ctx); err != nil {
			logger.Warn("shared cache unreachable at startup, continuing with local tier",
				zap.String("type", config.SharedType), zap.Error(err))
		}
	}
	return tc, nil
}
