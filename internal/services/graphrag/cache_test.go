package graphrag

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachePutGet(t *testing.T) {
	c := newTTLCache[string](time.Hour, 10)

	c.Put("a", "first")
	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "first", got)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestCacheExpiresEntries(t *testing.T) {
	c := newTTLCache[string](time.Hour, 10)
	current := time.Now()
	c.now = func() time.Time { return current }

	c.Put("a", "first")

	current = current.Add(59 * time.Minute)
	_, ok := c.Get("a")
	assert.True(t, ok)

	current = current.Add(2 * time.Minute)
	_, ok = c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestCacheEvictsOldestWhenFull(t *testing.T) {
	c := newTTLCache[int](time.Hour, 2)
	current := time.Now()
	c.now = func() time.Time { return current }

	c.Put("first", 1)
	current = current.Add(time.Minute)
	c.Put("second", 2)
	current = current.Add(time.Minute)
	c.Put("third", 3)

	_, ok := c.Get("first")
	assert.False(t, ok)
	_, ok = c.Get("second")
	assert.True(t, ok)
	_, ok = c.Get("third")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestCacheOverwriteDoesNotEvict(t *testing.T) {
	c := newTTLCache[int](time.Hour, 2)

	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("a", 3)

	got, ok := c.Get("b")
	require.True(t, ok)
	assert.Equal(t, 2, got)
	got, _ = c.Get("a")
	assert.Equal(t, 3, got)
}

func TestCacheClear(t *testing.T) {
	c := newTTLCache[int](time.Hour, 10)
	c.Put("a", 1)
	c.Put("b", 2)

	c.Clear()

	assert.Equal(t, 0, c.Len())
	_, ok := c.Get("a")
	assert.False(t, ok)
}
