package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestEveryRunsUntilStopped(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	var runs atomic.Int32
	s := New()
	s.Every(5*time.Millisecond, FuncJob(func(ctx context.Context) { runs.Add(1) }))

	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, time.Second, time.Millisecond)
	s.Stop()

	after := runs.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, runs.Load())
}

func TestCronRejectsBadSchedule(t *testing.T) {
	c := NewCron(nil)
	defer c.Stop()

	_, err := c.Add("not a schedule", FuncJob(func(context.Context) {}))
	assert.Error(t, err)

	_, err = c.Add("@every 1m", FuncJob(func(context.Context) {}))
	require.NoError(t, err)
	assert.Len(t, c.Entries(), 1)
}

func TestCronRunsJobs(t *testing.T) {
	var runs atomic.Int32
	c := NewCron(time.UTC)
	_, err := c.Add("@every 1s", FuncJob(func(ctx context.Context) { runs.Add(1) }))
	require.NoError(t, err)

	c.Start()
	defer c.Stop()
	assert.Eventually(t, func() bool { return runs.Load() >= 1 }, 3*time.Second, 10*time.Millisecond)
}
