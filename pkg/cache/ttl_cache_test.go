package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTTLCacheSetGet(t *testing.T) {
	c := New[string, bool](time.Minute, time.Minute)
	defer c.Close()

	_, ok := c.Get("yok")
	require.False(t, ok)

	c.Set("thread:user", true)
	got, ok := c.Get("thread:user")
	require.True(t, ok)
	require.True(t, got)

	c.Delete("thread:user")
	_, ok = c.Get("thread:user")
	require.False(t, ok)
}

func TestTTLCacheExpiry(t *testing.T) {
	c := New[string, int](10*time.Millisecond, time.Minute)
	defer c.Close()

	c.Set("k", 42)
	got, ok := c.Get("k")
	require.True(t, ok)
	require.Equal(t, 42, got)

	time.Sleep(15 * time.Millisecond)
	_, ok = c.Get("k")
	require.False(t, ok, "expired entries must not be readable")
}
