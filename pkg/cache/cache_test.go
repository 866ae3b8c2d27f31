package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gklyne/annalist-sub001/metric"
)

func TestCacheBasicOperations(t *testing.T) {
	c, err := New[string]()
	require.NoError(t, err)

	// Miss on empty cache.
	_, ok := c.Get("k1")
	assert.False(t, ok)

	// Set creates a new entry.
	created, err := c.Set("k1", "v1")
	require.NoError(t, err)
	assert.True(t, created)

	value, ok := c.Get("k1")
	require.True(t, ok)
	assert.Equal(t, "v1", value)

	// Set over an existing key updates it.
	created, err = c.Set("k1", "v2")
	require.NoError(t, err)
	assert.False(t, created)

	value, _ = c.Get("k1")
	assert.Equal(t, "v2", value)

	// Delete removes the entry.
	deleted, err := c.Delete("k1")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = c.Delete("k1")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestCacheRejectsEmptyKey(t *testing.T) {
	c, err := New[int]()
	require.NoError(t, err)

	_, err = c.Set("", 1)
	assert.Error(t, err)

	_, err = c.Delete("")
	assert.Error(t, err)

	_, err = c.GetOrCreate("", func() (int, error) { return 1, nil })
	assert.Error(t, err)
}

func TestCacheGetOrCreate(t *testing.T) {
	c, err := New[int]()
	require.NoError(t, err)

	calls := 0
	create := func() (int, error) {
		calls++
		return 42, nil
	}

	value, err := c.GetOrCreate("k", create)
	require.NoError(t, err)
	assert.Equal(t, 42, value)
	assert.Equal(t, 1, calls)

	// Second call hits the cached value.
	value, err = c.GetOrCreate("k", create)
	require.NoError(t, err)
	assert.Equal(t, 42, value)
	assert.Equal(t, 1, calls)

	// A failing create does not populate the cache.
	_, err = c.GetOrCreate("bad", func() (int, error) {
		return 0, fmt.Errorf("populate failure")
	})
	assert.Error(t, err)
	_, ok := c.Get("bad")
	assert.False(t, ok)
}

func TestCacheGetOrCreateConcurrent(t *testing.T) {
	c, err := New[int]()
	require.NoError(t, err)

	var mu sync.Mutex
	calls := 0

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			value, err := c.GetOrCreate("shared", func() (int, error) {
				mu.Lock()
				calls++
				mu.Unlock()
				return 7, nil
			})
			assert.NoError(t, err)
			assert.Equal(t, 7, value)
		}()
	}
	wg.Wait()

	// Only one populate ran.
	assert.Equal(t, 1, calls)
}

func TestCacheClearAndKeys(t *testing.T) {
	evicted := make(map[string]int)
	c, err := New[int](WithEvictionCallback[int](func(key string, value int) {
		evicted[key] = value
	}))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := c.Set(fmt.Sprintf("k%d", i), i)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, c.Size())
	assert.ElementsMatch(t, []string{"k0", "k1", "k2"}, c.Keys())

	require.NoError(t, c.Clear())
	assert.Equal(t, 0, c.Size())
	assert.Len(t, evicted, 3)
}

func TestCacheStats(t *testing.T) {
	c, err := New[string]()
	require.NoError(t, err)

	_, _ = c.Set("k", "v")
	c.Get("k")
	c.Get("absent")

	stats := c.Stats()
	require.NotNil(t, stats)
	assert.Equal(t, int64(1), stats.Hits())
	assert.Equal(t, int64(1), stats.Misses())
	assert.Equal(t, int64(1), stats.Sets())
	assert.InDelta(t, 0.5, stats.HitRate(), 1e-9)
	assert.Equal(t, int64(1), stats.CurrentSize())
}

func TestCacheWithMetrics(t *testing.T) {
	registry := metric.NewMetricsRegistry()

	c, err := New[string](WithMetrics[string](registry, "typeregistry"))
	require.NoError(t, err)

	_, _ = c.Set("k", "v")
	c.Get("k")

	// Registering a second cache under the same prefix conflicts.
	_, err = New[string](WithMetrics[string](registry, "typeregistry"))
	assert.Error(t, err)
}
