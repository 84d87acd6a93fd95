package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// RateLimiterConfig 限流配置
//
// Rate: "30-M"、Identifier: "ip"/"user"/"header"/"ip+route"、HeaderName: "X-Terminal-ID"
// PerRouteRates: {"/api/alerts/critical": "30-M"}
// WhitelistCIDRs: ["10.0.0.0/8"]，SkipPaths 前缀匹配
type RateLimiterConfig struct {
	Rate           string            `json:"rate"`
	PerRouteRates  map[string]string `json:"per_route_rates"`
	Identifier     string            `json:"identifier"`
	HeaderName     string            `json:"header_name"`
	WhitelistCIDRs []string          `json:"whitelist_cidrs"`
	SkipPaths      []string          `json:"skip_paths"`
	AddHeaders     bool              `json:"add_headers"`
	DenyStatus     int               `json:"deny_status"` // 默认 429
	DenyMessage    string            `json:"deny_message"`
}

// MetricsObserver 指标上报接口
type MetricsObserver interface {
	OnAllow(route string, key string)
	OnDeny(route string, key string)
}

// PrometheusObserver 基于 Prometheus 的实现
type PrometheusObserver struct {
	allow *prometheus.CounterVec
	deny  *prometheus.CounterVec
}

var (
	observerOnce sync.Once
	observer     *PrometheusObserver
)

// NewPrometheusObserver 返回进程内共享的观察者，重复调用不会重复注册指标
func NewPrometheusObserver() *PrometheusObserver {
	observerOnce.Do(func() {
		observer = &PrometheusObserver{
			allow: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "rate_limit_allow_total",
				Help: "Allowed requests by rate limiter",
			}, []string{"route"}),
			deny: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "rate_limit_deny_total",
				Help: "Denied requests by rate limiter",
			}, []string{"route"}),
		}
	})
	return observer
}

func (p *PrometheusObserver) OnAllow(route, key string) { p.allow.WithLabelValues(route).Inc() }
func (p *PrometheusObserver) OnDeny(route, key string)  { p.deny.WithLabelValues(route).Inc() }

// RateLimiter 按速率缓存 limiter，配置可在运行时替换
type RateLimiter struct {
	cfg            *RateLimiterConfig
	store          limiter.Store
	observer       MetricsObserver
	limitersByRate map[string]*limiter.Limiter
	whiteCIDRs     []*net.IPNet
	mu             sync.RWMutex
}

// NewRateLimiter store 为 nil 时使用内存存储
func NewRateLimiter(cfg RateLimiterConfig, store limiter.Store) *RateLimiter {
	if store == nil {
		store = memory.NewStore()
	}
	l := &RateLimiter{
		cfg:            &cfg,
		store:          store,
		limitersByRate: make(map[string]*limiter.Limiter),
	}
	l.whiteCIDRs = compileCIDRs(cfg.WhitelistCIDRs)
	return l
}

// WithObserver 配置指标观察者
func (l *RateLimiter) WithObserver(observer MetricsObserver) *RateLimiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.observer = observer
	return l
}

// Config 当前配置（拷贝）
func (l *RateLimiter) Config() RateLimiterConfig {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return *l.cfg
}

// UpdateConfig 替换配置，已创建的 limiter 按新速率重建
func (l *RateLimiter) UpdateConfig(cfg RateLimiterConfig) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cfg = &cfg
	l.whiteCIDRs = compileCIDRs(cfg.WhitelistCIDRs)
	l.limitersByRate = make(map[string]*limiter.Limiter)
}

// Middleware 返回 Gin 中间件
func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		l.mu.RLock()
		cfg, white := l.cfg, l.whiteCIDRs
		l.mu.RUnlock()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		if pathSkipped(cfg.SkipPaths, route) {
			c.Next()
			return
		}

		clientIP := strings.TrimPrefix(c.ClientIP(), "::ffff:")
		if ipListed(clientIP, white) {
			c.Next()
			return
		}

		key := buildLimitKey(cfg, c, clientIP, route)
		lim := l.getLimiter(pickRate(cfg, route))

		lctx, err := lim.Get(c, key)
		if err != nil {
			// 存储故障时放行
			c.Next()
			return
		}
		if cfg.AddHeaders {
			setStandardHeaders(c, lctx)
		}
		if lctx.Reached {
			retry := int(time.Until(time.Unix(lctx.Reset, 0)).Seconds())
			if retry < 0 {
				retry = 0
			}
			c.Header("Retry-After", strconv.Itoa(retry))
			l.report(route, key, false)

			status := cfg.DenyStatus
			if status == 0 {
				status = http.StatusTooManyRequests
			}
			msg := cfg.DenyMessage
			if msg == "" {
				msg = "Too Many Requests"
			}
			c.AbortWithStatusJSON(status, gin.H{"message": msg})
			return
		}

		l.report(route, key, true)
		c.Next()
	}
}

func (l *RateLimiter) report(route, key string, allowed bool) {
	l.mu.RLock()
	obs := l.observer
	l.mu.RUnlock()
	if obs == nil {
		return
	}
	if allowed {
		obs.OnAllow(route, key)
	} else {
		obs.OnDeny(route, key)
	}
}

func (l *RateLimiter) getLimiter(rateStr string) *limiter.Limiter {
	l.mu.RLock()
	lim, ok := l.limitersByRate[rateStr]
	l.mu.RUnlock()
	if ok {
		return lim
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if lim, ok = l.limitersByRate[rateStr]; ok {
		return lim
	}
	r, err := limiter.NewRateFromFormatted(rateStr)
	if err != nil {
		r = limiter.Rate{Period: time.Second, Limit: 10}
	}
	lim = limiter.New(l.store, r)
	l.limitersByRate[rateStr] = lim
	return lim
}

func pickRate(cfg *RateLimiterConfig, route string) string {
	if r, ok := cfg.PerRouteRates[route]; ok && r != "" {
		return r
	}
	if cfg.Rate != "" {
		return cfg.Rate
	}
	return "10-S"
}

func compileCIDRs(cidrs []string) []*net.IPNet {
	var out []*net.IPNet
	for _, c := range cidrs {
		if _, ipnet, err := net.ParseCIDR(strings.TrimSpace(c)); err == nil {
			out = append(out, ipnet)
		}
	}
	return out
}

func pathSkipped(prefixes []string, p string) bool {
	for _, pref := range prefixes {
		if pref != "" && strings.HasPrefix(p, pref) {
			return true
		}
	}
	return false
}

func ipListed(ip string, nets []*net.IPNet) bool {
	pip := net.ParseIP(ip)
	if pip == nil {
		return false
	}
	for _, n := range nets {
		if n.Contains(pip) {
			return true
		}
	}
	return false
}

func buildLimitKey(cfg *RateLimiterConfig, c *gin.Context, ip, route string) string {
	switch cfg.Identifier {
	case "user":
		if claims := CurrentClaims(c); claims != nil {
			return "user:" + claims.ID
		}
	case "header":
		if hv := strings.TrimSpace(c.GetHeader(cfg.HeaderName)); hv != "" {
			return "hdr:" + cfg.HeaderName + ":" + hv
		}
	case "ip+route":
		return "iprt:" + ip + ":" + route
	}
	return "ip:" + ip
}

func setStandardHeaders(c *gin.Context, ctx limiter.Context) {
	c.Header("X-RateLimit-Limit", strconv.FormatInt(ctx.Limit, 10))
	c.Header("X-RateLimit-Remaining", strconv.FormatInt(ctx.Remaining, 10))
	resetSec := int(time.Until(time.Unix(ctx.Reset, 0)).Seconds())
	if resetSec < 0 {
		resetSec = 0
	}
	c.Header("X-RateLimit-Reset", strconv.Itoa(resetSec))
}
