package cache

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalCache(t *testing.T) {
	config := LocalConfig{
		MaxSize:           100,
		DefaultExpiration: 5 * time.Minute,
		CleanupInterval:   10 * time.Minute,
	}

	cache, err := NewLocalCache(config)
	require.NoError(t, err)
	defer cache.Close()

	ctx := context.Background()

	t.Run("Set and Get", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, "test_key", []byte(`"test_value"`), time.Minute))

		got, ok := cache.Get(ctx, "test_key")
		require.True(t, ok)
		assert.Equal(t, `"test_value"`, string(got))
	})

	t.Run("Expired entries are misses", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, "short", []byte("1"), 20*time.Millisecond))
		time.Sleep(40 * time.Millisecond)

		_, ok := cache.Get(ctx, "short")
		assert.False(t, ok)
	})

	t.Run("Keys matches glob", func(t *testing.T) {
		require.NoError(t, cache.Clear(ctx))
		for _, k := range []string{"alerts:all", "alerts:waitlist", "alert:ALRT001"} {
			require.NoError(t, cache.Set(ctx, k, []byte("1"), time.Minute))
		}

		keys := cache.Keys(ctx, "alerts:*")
		sort.Strings(keys)
		assert.Equal(t, []string{"alerts:all", "alerts:waitlist"}, keys)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, "gone", []byte("1"), time.Minute))
		require.NoError(t, cache.Delete(ctx, "gone"))

		_, ok := cache.Get(ctx, "gone")
		assert.False(t, ok)
	})
}

func TestLocalCacheEvictsLeastRecentlyUsed(t *testing.T) {
	cache, err := NewLocalCache(LocalConfig{MaxSize: 2, DefaultExpiration: time.Minute})
	require.NoError(t, err)
	defer cache.Close()

	ctx := context.Background()
	require.NoError(t, cache.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, cache.Set(ctx, "b", []byte("2"), 0))
	_, _ = cache.Get(ctx, "a")
	require.NoError(t, cache.Set(ctx, "c", []byte("3"), 0))

	_, ok := cache.Get(ctx, "b")
	assert.False(t, ok)
	_, ok = cache.Get(ctx, "a")
	assert.True(t, ok)
	assert.Equal(t, 2, cache.Len())
}

func TestGoCache(t *testing.T) {
	cache := NewGoCache(LocalConfig{DefaultExpiration: time.Minute, CleanupInterval: time.Minute})
	defer cache.Close()

	ctx := context.Background()
	require.NoError(t, cache.Set(ctx, "rescueForm:RF001", []byte(`{"id":"RF001"}`), time.Minute))
	require.NoError(t, cache.Set(ctx, "rescueForms:all", []byte(`[]`), time.Minute))

	got, ok := cache.Get(ctx, "rescueForm:RF001")
	require.True(t, ok)
	assert.JSONEq(t, `{"id":"RF001"}`, string(got))

	assert.Equal(t, []string{"rescueForm:RF001"}, cache.Keys(ctx, "rescueForm:*"))

	require.NoError(t, cache.Delete(ctx, "rescueForm:RF001"))
	_, ok = cache.Get(ctx, "rescueForm:RF001")
	assert.False(t, ok)
	assert.Equal(t, 1, cache.Len())
}

func TestNewLocalRejectsUnknownType(t *testing.T) {
	_, err := NewLocal(Config{LocalType: "memcached"})
	assert.Error(t, err)

	_, err = NewShared(Config{SharedType: "etcd"})
	assert.Error(t, err)

	shared, err := NewShared(Config{SharedType: "none"})
	require.NoError(t, err)
	assert.Nil(t, shared)
}
