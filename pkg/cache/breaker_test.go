package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestBreakerOpensAtThreshold(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	b := NewBreaker(5, time.Minute).WithClock(clock.Now)

	for i := 0; i < 4; i++ {
		b.Failure()
		assert.Equal(t, StateClosed, b.State())
		assert.True(t, b.Allow())
	}

	b.Failure()
	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.Allow())

	clock.Advance(59 * time.Second)
	assert.False(t, b.Allow())

	clock.Advance(time.Second)
	assert.True(t, b.Allow())
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, 0, b.Failures())
}

func TestBreakerSuccessDecrementsWithFloor(t *testing.T) {
	b := NewBreaker(5, time.Minute)

	b.Success()
	assert.Equal(t, 0, b.Failures())

	b.Failure()
	b.Failure()
	b.Success()
	assert.Equal(t, 1, b.Failures())

	// 交替的成功/失败不会累计到阈值
	for i := 0; i < 20; i++ {
		b.Failure()
		b.Success()
	}
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerReopensWhenProbeFails(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	b := NewBreaker(2, 10*time.Second).WithClock(clock.Now)

	var changes []State
	b.OnStateChange(func(s State) { changes = append(changes, s) })

	b.Failure()
	b.Failure()
	clock.Advance(10 * time.Second)
	assert.True(t, b.Allow())

	b.Failure()
	b.Failure()
	assert.False(t, b.Allow())
	assert.Equal(t, []State{StateOpen, StateClosed, StateOpen}, changes)
}
