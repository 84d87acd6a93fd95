package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

type IdemStore interface {
	Set(key string, ttl time.Duration) bool // return true if set, false if exists
	Release(key string)
}

type memoryIdemStore struct {
	mu sync.Mutex
	m  map[string]time.Time
}

func newMemoryIdemStore() *memoryIdemStore { return &memoryIdemStore{m: make(map[string]time.Time)} }

func (s *memoryIdemStore) Set(key string, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	if exp, ok := s.m[key]; ok && exp.After(now) {
		return false
	}
	s.m[key] = now.Add(ttl)
	return true
}

func (s *memoryIdemStore) Release(key string) {
	s.mu.Lock()
	delete(s.m, key)
	s.mu.Unlock()
}

// 清理过期键，ctx 结束后退出
func (s *memoryIdemStore) gc(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.mu.Lock()
			for k, exp := range s.m {
				if exp.Before(now) {
					delete(s.m, k)
				}
			}
			s.mu.Unlock()
		}
	}
}

type IdempotencyConfig struct {
	HeaderName string          // Idempotency-Key 的请求头名
	TTL        time.Duration   // 决定一段时间内重复请求的拒绝窗口
	Store      IdemStore       // 可选外部存储
	Context    context.Context // 控制内存存储清理协程的生命周期
}

// Idempotency 拒绝窗口期内的重复提交。处理失败（>=400）时释放键，允许客户端重试
func Idempotency(cfg IdempotencyConfig) gin.HandlerFunc {
	if cfg.HeaderName == "" {
		cfg.HeaderName = "Idempotency-Key"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Minute
	}
	store := cfg.Store
	if store == nil {
		mem := newMemoryIdemStore()
		store = mem
		if cfg.Context != nil {
			go mem.gc(cfg.Context, time.Minute)
		}
	}
	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(cfg.HeaderName))
		if key == "" {
			// 兜底以请求体生成哈希作为幂等键
			b, _ := io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(strings.NewReader(string(b)))
			h := sha256.Sum256(b)
			key = hex.EncodeToString(h[:])
		}
		key = c.Request.Method + " " + c.Request.URL.Path + " " + key
		if !store.Set(key, cfg.TTL) {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"message": "Duplicate request"})
			return
		}
		c.Next()
		if c.Writer.Status() >= http.StatusBadRequest {
			store.Release(key)
		}
	}
}
