package cache

import (
	"sync"
	"time"
)

// State 熔断器状态
type State int

const (
	StateClosed State = iota
	StateOpen
)

func (s State) String() string {
	if s == StateOpen {
		return "open"
	}
	return "closed"
}

// Breaker 保护共享缓存层的熔断器。Open 状态在恢复窗口结束后的下一次检查时回到 Closed，
// 半开状态隐含在下一次调用的结果里
type Breaker struct {
	mu        sync.Mutex
	threshold int
	window    time.Duration
	failures  int
	state     State
	openedAt  time.Time
	now       func() time.Time

	onChange func(State)
}

// NewBreaker 创建熔断器
func NewBreaker(threshold int, window time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if window <= 0 {
		window = 60 * time.Second
	}
	return &Breaker{
		threshold: threshold,
		window:    window,
		now:       time.Now,
	}
}

// WithClock 替换时钟，用于测试
func (b *Breaker) WithClock(now func() time.Time) *Breaker {
	b.mu.Lock()
	b.now = now
	b.mu.Unlock()
	return b
}

// OnStateChange 注册状态变化回调，回调在锁外执行
func (b *Breaker) OnStateChange(fn func(State)) {
	b.mu.Lock()
	b.onChange = fn
	b.mu.Unlock()
}

// Allow 是否允许访问共享层
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	if b.state == StateClosed {
		b.mu.Unlock()
		return true
	}
	if b.now().Sub(b.openedAt) < b.window {
		b.mu.Unlock()
		return false
	}
	b.state = StateClosed
	b.failures = 0
	fn := b.onChange
	b.mu.Unlock()

	if fn != nil {
		fn(StateClosed)
	}
	return true
}

// Success 成功一次，失败计数减一
func (b *Breaker) Success() {
	b.mu.Lock()
	if b.failures > 0 {
		b.failures--
	}
	b.mu.Unlock()
}

// Failure 失败一次，达到阈值后打开
func (b *Breaker) Failure() {
	b.mu.Lock()
	b.failures++
	if b.state == StateOpen || b.failures < b.threshold {
		b.mu.Unlock()
		return
	}
	b.state = StateOpen
	b.openedAt = b.now()
	fn := b.onChange
	b.mu.Unlock()

	if fn != nil {
		fn(StateOpen)
	}
}

// State 当前状态
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Failures 当前失败计数
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}
