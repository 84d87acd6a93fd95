package cache

import (
	"context"
	"path"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// localCache 基于 golang-lru 的有界本地缓存，每项单独过期
type localCache struct {
	config LocalConfig
	lru    *lru.Cache[string, cacheItem]

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// cacheItem 缓存项
type cacheItem struct {
	value      []byte
	expiration time.Time
}

func (i cacheItem) expired(now time.Time) bool {
	return !i.expiration.IsZero() && now.After(i.expiration)
}

// NewLocalCache 创建本地缓存
func NewLocalCache(config LocalConfig) (Cache, error) {
	if config.MaxSize <= 0 {
		config.MaxSize = 500
	}
	l, err := lru.New[string, cacheItem](config.MaxSize)
	if err != nil {
		return nil, err
	}

	lc := &localCache{
		config: config,
		lru:    l,
		stop:   make(chan struct{}),
	}

	// 启动清理协程
	if config.CleanupInterval > 0 {
		lc.wg.Add(1)
		go lc.startCleanup()
	}

	return lc, nil
}

// Get 获取缓存值
func (lc *localCache) Get(ctx context.Context, key string) ([]byte, bool) {
	item, ok := lc.lru.Get(key)
	if !ok {
		return nil, false
	}
	if item.expired(time.Now()) {
		lc.lru.Remove(key)
		return nil, false
	}
	return item.value, true
}

// Set 设置缓存值
func (lc *localCache) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	if expiration <= 0 {
		expiration = lc.config.DefaultExpiration
	}

	var exp time.Time
	if expiration > 0 {
		exp = time.Now().Add(expiration)
	}

	lc.lru.Add(key, cacheItem{value: value, expiration: exp})
	return nil
}

// Delete 删除缓存
func (lc *localCache) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		lc.lru.Remove(key)
	}
	return nil
}

// Keys 返回匹配的未过期键
func (lc *localCache) Keys(ctx context.Context, pattern string) []string {
	now := time.Now()
	var out []string
	for _, key := range lc.lru.Keys() {
		item, ok := lc.lru.Peek(key)
		if !ok || item.expired(now) {
			continue
		}
		if matched, _ := path.Match(pattern, key); matched {
			out = append(out, key)
		}
	}
	return out
}

func (lc *localCache) Len() int {
	return lc.lru.Len()
}

// Clear 清空所有缓存
func (lc *localCache) Clear(ctx context.Context) error {
	lc.lru.Purge()
	return nil
}

// Close 停止清理协程
func (lc *localCache) Close() error {
	lc.stopOnce.Do(func() { close(lc.stop) })
	lc.wg.Wait()
	return nil
}

// startCleanup 启动清理协程
func (lc *localCache) startCleanup() {
	defer lc.wg.Done()

	ticker := time.NewTicker(lc.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			lc.cleanup()
		case <-lc.stop:
			return
		}
	}
}

// cleanup 清理过期项
func (lc *localCache) cleanup() {
	now := time.Now()
	for _, key := range lc.lru.Keys() {
		if item, ok := lc.lru.Peek(key); ok && item.expired(now) {
			lc.lru.Remove(key)
		}
	}
}
