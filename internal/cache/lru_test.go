package cache

import (
	"testing"

	"github.com/hupe1980/vcslog/internal/resource"
	"github.com/stretchr/testify/assert"
)

func TestLRUEviction(t *testing.T) {
	c := NewLRU[string, int](30, nil)

	c.Set("a", 1, 10)
	c.Set("b", 2, 10)
	c.Set("c", 3, 10)
	assert.Equal(t, int64(30), c.Size())

	// Touch a so b becomes the eviction candidate.
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	c.Set("d", 4, 10)
	_, ok = c.Get("b")
	assert.False(t, ok)
	assert.Equal(t, 3, c.Len())

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestLRUEdgeCases(t *testing.T) {
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 100})
	c := NewLRU[string, []byte](50, rc)

	c.Set("k", make([]byte, 60), 60)
	_, ok := c.Get("k")
	assert.False(t, ok, "entry larger than capacity is not cached")

	c.Set("k", make([]byte, 10), 10)
	assert.Equal(t, int64(10), c.Size())
	c.Set("k", make([]byte, 20), 20)
	assert.Equal(t, int64(20), c.Size())
	assert.Equal(t, int64(20), rc.MemoryUsage())

	c.Delete("k")
	assert.Zero(t, c.Size())
	assert.Zero(t, rc.MemoryUsage())
}

func TestLRURespectsController(t *testing.T) {
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 10})
	c := NewLRU[int, string](50, rc)

	c.Set(1, "x", 8)
	c.Set(2, "y", 8)
	_, ok := c.Get(2)
	assert.False(t, ok, "controller denies the reservation")

	c.Purge()
	assert.Zero(t, c.Len())
	assert.Zero(t, rc.MemoryUsage())
}
