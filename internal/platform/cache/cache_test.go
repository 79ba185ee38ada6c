package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMemoryCache(t *testing.T) {
	t.Run("uses specified capacity", func(t *testing.T) {
		c := NewMemoryCache[string](10)
		assert.Equal(t, 10, c.Capacity())
		assert.Equal(t, 0, c.Len())
	})

	t.Run("falls back to default capacity", func(t *testing.T) {
		assert.Equal(t, 1000, NewMemoryCache[int](0).Capacity())
		assert.Equal(t, 1000, NewMemoryCache[int](-5).Capacity())
	})
}

func TestMemoryCache_SetGet(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache[string](10)

	_, ok, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "a.example", "v1", 0))
	require.NoError(t, c.Set(ctx, "a.example", "v2", 0))

	v, ok, err := c.Get(ctx, "a.example")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v2", v)
	assert.Equal(t, 1, c.Len())

	c.Delete("a.example")
	_, ok, _ = c.Get(ctx, "a.example")
	assert.False(t, ok)
}

func TestMemoryCache_TTL(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	c := NewMemoryCache[int](10)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "short", 1, time.Minute))
	require.NoError(t, c.Set(ctx, "forever", 2, 0))

	now = now.Add(2 * time.Minute)

	_, ok, _ := c.Get(ctx, "short")
	assert.False(t, ok, "expired items are misses")
	_, ok, _ = c.Get(ctx, "forever")
	assert.True(t, ok)

	require.NoError(t, c.Set(ctx, "short2", 3, time.Second))
	now = now.Add(time.Hour)
	assert.Equal(t, 1, c.CleanExpired())
	assert.Equal(t, 1, c.Len())
}

func TestMemoryCache_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache[int](2)

	require.NoError(t, c.Set(ctx, "a", 1, 0))
	require.NoError(t, c.Set(ctx, "b", 2, 0))
	_, _, _ = c.Get(ctx, "a") // b is now the LRU entry
	require.NoError(t, c.Set(ctx, "c", 3, 0))

	_, ok, _ := c.Get(ctx, "b")
	assert.False(t, ok)
	_, ok, _ = c.Get(ctx, "a")
	assert.True(t, ok)
	_, ok, _ = c.Get(ctx, "c")
	assert.True(t, ok)
}

func TestMemoryCache_Concurrent(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache[int](50)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("k%d", (i*j)%80)
				_ = c.Set(ctx, key, j, time.Minute)
				_, _, _ = c.Get(ctx, key)
			}
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 50)
}
