package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAllowWithinWindow(t *testing.T) {
	rl := NewMessageRateLimiter(3, time.Second, time.Second)
	defer rl.Close()

	for i := 0; i < 3; i++ {
		require.True(t, rl.Allow("u1"), "message %d should pass", i+1)
	}
	require.False(t, rl.Allow("u1"), "fourth message must trip the limit")
	require.Greater(t, rl.CooldownSeconds("u1"), 0)

	// Başka kullanıcı etkilenmez.
	require.True(t, rl.Allow("u2"))
}

func TestCooldownExpires(t *testing.T) {
	rl := NewMessageRateLimiter(1, 10*time.Millisecond, 20*time.Millisecond)
	defer rl.Close()

	require.True(t, rl.Allow("u1"))
	require.False(t, rl.Allow("u1"))

	time.Sleep(25 * time.Millisecond)
	require.True(t, rl.Allow("u1"), "after cooldown the window resets")
	require.Equal(t, 0, rl.CooldownSeconds("u1"))
}

func TestWindowReset(t *testing.T) {
	rl := NewMessageRateLimiter(2, 10*time.Millisecond, time.Second)
	defer rl.Close()

	require.True(t, rl.Allow("u1"))
	time.Sleep(15 * time.Millisecond)
	// Pencere doldu — sayaç sıfırdan başlar, ceza yok.
	require.True(t, rl.Allow("u1"))
	require.True(t, rl.Allow("u1"))
}
