package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	apperrors "ResQWave/pkg/errors"
	"ResQWave/pkg/logger"
	"ResQWave/pkg/metrics"

	"go.uber.org/zap"
)

const (
	tierLocal  = "local"
	tierShared = "shared"

	// 删除后留下的空值标记，防止共享层残留的旧值被回填。
	// 共享层删除失败时标记保留到共享层最长 TTL 之后
	tombstoneTTL = 10 * time.Second
)

// Stats 缓存统计
type Stats struct {
	Hits   int64   `json:"hits"`
	Misses int64   `json:"misses"`
	Ratio  float64 `json:"ratio"`
}

// TieredCache 本地缓存 + 共享缓存两级结构，共享层由熔断器保护。
// 共享层的任何错误都只会表现为未命中
type TieredCache struct {
	local    Cache
	shared   SharedStore
	breaker  *Breaker
	localTTL time.Duration
	// 写入共享层的最长 TTL，决定删除失败时标记的寿命
	maxTTL atomic.Int64

	hits   atomic.Int64
	misses atomic.Int64
}

// NewTieredCache 创建分层缓存，shared 可以为 nil
func NewTieredCache(local Cache, shared SharedStore, breaker *Breaker, localTTL time.Duration) *TieredCache {
	if breaker == nil {
		breaker = NewBreaker(5, 60*time.Second)
	}
	if localTTL <= 0 {
		localTTL = 60 * time.Second
	}
	breaker.OnStateChange(func(s State) {
		metrics.SetCacheBreakerOpen(s == StateOpen)
		if s == StateOpen {
			logger.Warn("shared cache breaker opened")
		} else {
			logger.Info("shared cache breaker closed")
		}
	})
	return &TieredCache{
		local:    local,
		shared:   shared,
		breaker:  breaker,
		localTTL: localTTL,
	}
}

// Get 读取并解码到 dest
func (tc *TieredCache) Get(ctx context.Context, key string, dest any) bool {
	if data, ok := tc.local.Get(ctx, key); ok {
		if len(data) == 0 {
			tc.miss()
			return false
		}
		if err := json.Unmarshal(data, dest); err == nil {
			tc.hit(tierLocal)
			return true
		}
		_ = tc.local.Delete(ctx, key)
	}

	if tc.shared == nil || !tc.breaker.Allow() {
		tc.miss()
		return false
	}

	data, ttl, err := tc.shared.Get(ctx, key)
	switch {
	case errors.Is(err, ErrNotFound):
		tc.breaker.Success()
		tc.miss()
		return false
	case err != nil:
		tc.sharedFailed("get", err, zap.String("key", key))
		tc.miss()
		return false
	}
	tc.breaker.Success()

	if err := json.Unmarshal(data, dest); err != nil {
		tc.miss()
		return false
	}

	if ttl <= 0 || ttl > tc.localTTL {
		ttl = tc.localTTL
	}
	_ = tc.local.Set(ctx, key, data, ttl)
	tc.hit(tierShared)
	return true
}

// Set 编码后写入两级缓存，仅返回编码错误
func (tc *TieredCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	localTTL := ttl
	if localTTL <= 0 || localTTL > tc.localTTL {
		localTTL = tc.localTTL
	}
	_ = tc.local.Set(ctx, key, data, localTTL)

	if tc.shared == nil || !tc.breaker.Allow() {
		return nil
	}
	tc.trackTTL(ttl)
	if err := tc.shared.Set(ctx, key, data, ttl); err != nil {
		tc.sharedFailed("set", err, zap.String("key", key))
		return nil
	}
	tc.breaker.Success()
	return nil
}

// Delete 删除单个键，或包含 * 的模式匹配的所有键
func (tc *TieredCache) Delete(ctx context.Context, keyOrPattern string) {
	if !strings.Contains(keyOrPattern, "*") {
		tc.deleteKeys(ctx, keyOrPattern)
		return
	}

	keys := tc.local.Keys(ctx, keyOrPattern)
	if tc.shared != nil && tc.breaker.Allow() {
		shared, err := tc.shared.Scan(ctx, keyOrPattern)
		if err != nil {
			tc.sharedFailed("scan", err, zap.String("pattern", keyOrPattern))
		} else {
			tc.breaker.Success()
			keys = append(keys, shared...)
		}
	}
	if len(keys) == 0 {
		return
	}
	tc.deleteKeys(ctx, dedupe(keys)...)
}

func (tc *TieredCache) deleteKeys(ctx context.Context, keys ...string) {
	ttl := tombstoneTTL
	if !tc.deleteShared(ctx, keys) {
		ttl = tc.staleWindow()
	}
	for _, key := range keys {
		_ = tc.local.Set(ctx, key, []byte{}, ttl)
	}
}

// deleteShared 返回共享层是否已不再持有这些键
func (tc *TieredCache) deleteShared(ctx context.Context, keys []string) bool {
	if tc.shared == nil {
		return true
	}
	if !tc.breaker.Allow() {
		return false
	}
	if err := tc.shared.Delete(ctx, keys...); err != nil {
		tc.sharedFailed("delete", err, zap.Strings("keys", keys))
		return false
	}
	tc.breaker.Success()
	return true
}

// staleWindow 共享层残留旧值最长还能存活多久
func (tc *TieredCache) staleWindow() time.Duration {
	if d := time.Duration(tc.maxTTL.Load()); d > tombstoneTTL {
		return d
	}
	return tombstoneTTL
}

func (tc *TieredCache) trackTTL(ttl time.Duration) {
	for {
		cur := tc.maxTTL.Load()
		if int64(ttl) <= cur || tc.maxTTL.CompareAndSwap(cur, int64(ttl)) {
			return
		}
	}
}

func (tc *TieredCache) sharedFailed(op string, err error, fields ...zap.Field) {
	tc.breaker.Failure()
	wrapped := apperrors.Unavailable(err, "shared cache "+op+" failed")
	logger.Debug(wrapped.Message, append(fields, zap.String("kind", string(wrapped.Kind)), zap.NamedError("cause", err))...)
}

// Stats 进程级命中统计
func (tc *TieredCache) Stats() Stats {
	hits, misses := tc.hits.Load(), tc.misses.Load()
	s := Stats{Hits: hits, Misses: misses}
	if total := hits + misses; total > 0 {
		s.Ratio = float64(hits) / float64(total)
	}
	return s
}

// BreakerState 熔断器状态
func (tc *TieredCache) BreakerState() State {
	return tc.breaker.State()
}

// Ping 检查共享层连通性，不影响熔断器
func (tc *TieredCache) Ping(ctx context.Context) error {
	if tc.shared == nil {
		return nil
	}
	if err := tc.shared.Ping(ctx); err != nil {
		return apperrors.Unavailable(err, "shared cache unreachable")
	}
	return nil
}

// Close 关闭两级缓存
func (tc *TieredCache) Close() error {
	var errs []error
	if err := tc.local.Close(); err != nil {
		errs = append(errs, err)
	}
	if tc.shared != nil {
		if err := tc.shared.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (tc *TieredCache) hit(tier string) {
	tc.hits.Add(1)
	metrics.RecordCacheHit(tier)
}

func (tc *TieredCache) miss() {
	tc.misses.Add(1)
	metrics.RecordCacheMiss()
}

// Remember 读穿透：命中直接返回，否则调用 load 并写回缓存
func Remember[T any](ctx context.Context, c *TieredCache, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	var cached T
	if c.Get(ctx, key, &cached) {
		return cached, nil
	}

	value, err := load(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	if err := c.Set(ctx, key, value, ttl); err != nil {
		logger.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
	}
	return value, nil
}

func dedupe(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := keys[:0]
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
