package utils

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCorrelationCache_SetAndGet(t *testing.T) {
	c := NewCorrelationCache[[]string](10, time.Minute)

	c.Set("key", []string{"Inception", "Dune"})

	titles, ok := c.Get("key")
	require.True(t, ok)
	assert.Equal(t, []string{"Inception", "Dune"}, titles)
}

func TestCorrelationCache_Miss(t *testing.T) {
	c := NewCorrelationCache[[]string](10, time.Minute)

	titles, ok := c.Get("missing")
	assert.False(t, ok)
	assert.Nil(t, titles)
}

func TestCorrelationCache_TTLExpiry(t *testing.T) {
	c := NewCorrelationCache[string](10, 30*time.Millisecond)

	c.Set("key", "value")

	v, ok := c.Get("key")
	require.True(t, ok)
	assert.Equal(t, "value", v)

	time.Sleep(50 * time.Millisecond)

	// 过期后按未命中处理，并顺手清掉
	_, ok = c.Get("key")
	assert.False(t, ok)
	assert.Zero(t, c.Len())
}

func TestCorrelationCache_BoundedSize(t *testing.T) {
	c := NewCorrelationCache[int](3, time.Minute)

	for i := 0; i < 10; i++ {
		c.Set(fmt.Sprintf("key-%d", i), i)
	}

	// 容量固定，最早的条目被挤出
	assert.Equal(t, 3, c.Len())
	_, ok := c.Get("key-0")
	assert.False(t, ok)
	v, ok := c.Get("key-9")
	require.True(t, ok)
	assert.Equal(t, 9, v)
}

func TestCorrelationCache_Delete(t *testing.T) {
	c := NewCorrelationCache[string](10, time.Minute)

	c.Set("key", "value")
	c.Delete("key")

	_, ok := c.Get("key")
	assert.False(t, ok)
}
