package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"ADDR", "API_PREFIX", "DB_DRIVER", "CACHE_SHARED_TYPE", "CORS_ORIGINS", "STATS_SCHEDULE"} {
		t.Setenv(k, "")
	}

	cfg := FromEnv()
	assert.Equal(t, ":5000", cfg.Addr)
	assert.Equal(t, "/api", cfg.APIPrefix)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, "@every 1m", cfg.StatsSchedule)
	assert.Equal(t, "redis", cfg.Cache.SharedType)
	assert.Equal(t, 5, cfg.Cache.BreakerThreshold)
	assert.Equal(t, 60*time.Second, cfg.Cache.BreakerWindow)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("ADDR", ":8080")
	t.Setenv("CACHE_SHARED_TYPE", "none")
	t.Setenv("CACHE_LOCAL_TYPE", "gocache")
	t.Setenv("LOCAL_CACHE_MAX_SIZE", "1000")
	t.Setenv("CACHE_BREAKER_WINDOW", "30")
	t.Setenv("REDIS_READ_TIMEOUT", "250ms")
	t.Setenv("CORS_ORIGINS", "http://localhost:5173, https://console.example.org")

	cfg := FromEnv()
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "none", cfg.Cache.SharedType)
	assert.Equal(t, "gocache", cfg.Cache.LocalType)
	assert.Equal(t, 1000, cfg.Cache.Local.MaxSize)
	assert.Equal(t, 30*time.Second, cfg.Cache.BreakerWindow)
	assert.Equal(t, 250*time.Millisecond, cfg.Cache.Redis.ReadTimeout)
	assert.Equal(t, []string{"http://localhost:5173", "https://console.example.org"}, cfg.CORSOrigins)
}
