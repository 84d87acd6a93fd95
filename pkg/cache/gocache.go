package cache

import (
	"context"
	"path"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// goCacheWrapper go-cache包装器
type goCacheWrapper struct {
	cache *gocache.Cache
}

// NewGoCache 创建基于go-cache的本地缓存。go-cache 没有容量上限，MaxSize 不生效
func NewGoCache(config LocalConfig) Cache {
	return &goCacheWrapper{
		cache: gocache.New(config.DefaultExpiration, config.CleanupInterval),
	}
}

// Get 获取缓存值
func (gc *goCacheWrapper) Get(ctx context.Context, key string) ([]byte, bool) {
	value, found := gc.cache.Get(key)
	if !found {
		return nil, false
	}
	b, ok := value.([]byte)
	return b, ok
}

// Set 设置缓存值
func (gc *goCacheWrapper) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	if expiration <= 0 {
		expiration = gocache.DefaultExpiration
	}
	gc.cache.Set(key, value, expiration)
	return nil
}

// Delete 删除缓存
func (gc *goCacheWrapper) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		gc.cache.Delete(key)
	}
	return nil
}

// Keys 返回匹配的键，Items 已过滤过期项
func (gc *goCacheWrapper) Keys(ctx context.Context, pattern string) []string {
	var out []string
	for key := range gc.cache.Items() {
		if matched, _ := path.Match(pattern, key); matched {
			out = append(out, key)
		}
	}
	return out
}

func (gc *goCacheWrapper) Len() int {
	return gc.cache.ItemCount()
}

// Clear 清空所有缓存
func (gc *goCacheWrapper) Clear(ctx context.Context) error {
	gc.cache.Flush()
	return nil
}

// Close go-cache 的 janitor 随对象回收停止
func (gc *goCacheWrapper) Close() error {
	return nil
}
