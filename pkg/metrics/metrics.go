package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP请求指标
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// 数据库指标
	dbQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	dbQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_query_errors_total",
			Help: "Total number of failed database queries",
		},
		[]string{"operation", "table"},
	)

	// 缓存指标
	cacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"tier"},
	)

	cacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
	)

	cacheBreakerOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cache_breaker_open",
			Help: "1 when the shared cache circuit breaker is open",
		},
	)

	// 业务指标
	workflowTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_transitions_total",
			Help: "Alert and rescue workflow transitions",
		},
		[]string{"entity", "status"},
	)

	// 实时推送指标
	realtimePublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_events_published_total",
			Help: "Realtime events handed to the fan-out",
		},
		[]string{"event"},
	)

	realtimeDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_events_dropped_total",
			Help: "Realtime deliveries dropped because a queue was full",
		},
		[]string{"reason"},
	)

	realtimeConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "realtime_connections",
			Help: "Current realtime connections",
		},
	)
)

// RecordHTTPRequest 记录HTTP请求指标
func RecordHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordDBQuery 记录数据库查询指标
func RecordDBQuery(operation, table string, duration time.Duration, failed bool) {
	dbQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if failed {
		dbQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordCacheHit 记录缓存命中
func RecordCacheHit(tier string) {
	cacheHitsTotal.WithLabelValues(tier).Inc()
}

// RecordCacheMiss 记录缓存未命中
func RecordCacheMiss() {
	cacheMissesTotal.Inc()
}

// SetCacheBreakerOpen 更新熔断器状态
func SetCacheBreakerOpen(open bool) {
	if open {
		cacheBreakerOpen.Set(1)
		return
	}
	cacheBreakerOpen.Set(0)
}

// RecordTransition 记录状态流转
func RecordTransition(entity, status string) {
	workflowTransitions.WithLabelValues(entity, status).Inc()
}

// RecordPublished 记录已投递的实时事件
func RecordPublished(event string) {
	realtimePublished.WithLabelValues(event).Inc()
}

// RecordDropped 记录被丢弃的实时消息
func RecordDropped(reason string) {
	realtimeDropped.WithLabelValues(reason).Inc()
}

// SetRealtimeConnections 设置当前实时连接数
func SetRealtimeConnections(n int64) {
	realtimeConnections.Set(float64(n))
}
