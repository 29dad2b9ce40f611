package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/coredata/errors"
)

func TestNewLRU_RejectsNonPositiveSize(t *testing.T) {
	_, err := NewLRU[int](0)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestLRUCache(t *testing.T) {
	c, err := NewLRU[int](2)
	require.NoError(t, err)

	created, err := c.Set("a", 1)
	require.NoError(t, err)
	assert.True(t, created)
	_, _ = c.Set("b", 2)

	// touch a so b becomes least recently used
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	_, _ = c.Set("c", 3)
	assert.Equal(t, 2, c.Size())
	assert.Equal(t, int64(1), c.Stats().Evictions())

	_, ok = c.Get("b")
	assert.False(t, ok)

	created, err = c.Set("a", 10)
	require.NoError(t, err)
	assert.False(t, created)
	v, _ = c.Get("a")
	assert.Equal(t, 10, v)

	deleted, err := c.Delete("c")
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Equal(t, int64(1), c.Stats().Evictions(), "delete is not an eviction")

	c.Clear()
	assert.Equal(t, 0, c.Size())
}

func TestLRUCache_EmptyKey(t *testing.T) {
	c, err := NewLRU[int](1)
	require.NoError(t, err)

	_, err = c.Set("", 1)
	assert.True(t, errors.IsInvalid(err))
	_, err = c.Delete("")
	assert.True(t, errors.IsInvalid(err))
}

func TestLRUCache_GetOrCompute(t *testing.T) {
	c, err := NewLRU[string](4)
	require.NoError(t, err)

	calls := 0
	compute := func() (string, error) {
		calls++
		return "value", nil
	}

	v, err := c.GetOrCompute("k", compute)
	require.NoError(t, err)
	assert.Equal(t, "value", v)
	v, err = c.GetOrCompute("k", compute)
	require.NoError(t, err)
	assert.Equal(t, "value", v)
	assert.Equal(t, 1, calls)

	_, err = c.GetOrCompute("bad", func() (string, error) { return "", fmt.Errorf("boom") })
	require.Error(t, err)
	_, ok := c.Get("bad")
	assert.False(t, ok, "errors must not be cached")
}

func TestStatistics(t *testing.T) {
	c, err := NewLRU[int](1)
	require.NoError(t, err)

	_, _ = c.Set("a", 1)
	c.Get("a")
	c.Get("missing")
	_, _ = c.Set("b", 2)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits())
	assert.Equal(t, int64(1), stats.Misses())
	assert.Equal(t, int64(1), stats.Evictions())
	assert.InDelta(t, 0.5, stats.HitRatio(), 0.0001)
}

func TestConcurrency(t *testing.T) {
	c, err := NewLRU[int](50)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("k%d", (g*200+i)%100)
				_, _ = c.Set(key, i)
				c.Get(key)
			}
		}(g)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Size(), 50)
}
