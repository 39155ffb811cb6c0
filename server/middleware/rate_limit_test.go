package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_Burst(t *testing.T) {
	rl := NewRateLimiter(1, 3)

	for i := 0; i < 3; i++ {
		assert.True(t, rl.AllowPrincipal(42), "request %d", i)
	}
	assert.False(t, rl.AllowPrincipal(42))

	// Other principals have their own bucket.
	assert.True(t, rl.AllowPrincipal(7))
	assert.Equal(t, 2, rl.Len())
}

func TestRateLimiter_Defaults(t *testing.T) {
	rl := NewRateLimiter(0, 0)
	assert.Equal(t, time.Minute/DefaultRequestsPerMinute, rl.every)
	assert.Equal(t, DefaultBurst, rl.burst)
}

func TestRateLimiter_EvictsIdleKeys(t *testing.T) {
	clock := time.Date(2023, 4, 1, 10, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(60, 2)
	rl.now = func() time.Time { return clock }

	assert.True(t, rl.Allow("ip:192.0.2.1"))
	assert.True(t, rl.Allow("ip:192.0.2.1"))
	assert.False(t, rl.Allow("ip:192.0.2.1"))
	require.Equal(t, 1, rl.Len())

	// Two seconds refill a burst of two at one per second.
	clock = clock.Add(2 * time.Second)
	assert.True(t, rl.Allow("ip:192.0.2.2"))
	assert.Equal(t, 1, rl.Len(), "idle key should be dropped")

	// A returning key gets its full burst, as if it had never been dropped.
	assert.True(t, rl.Allow("ip:192.0.2.1"))
	assert.True(t, rl.Allow("ip:192.0.2.1"))
	assert.False(t, rl.Allow("ip:192.0.2.1"))
	assert.Equal(t, 2, rl.Len())
}

func TestRateLimiter_KeepsActiveKeys(t *testing.T) {
	clock := time.Date(2023, 4, 1, 10, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(60, 2)
	rl.now = func() time.Time { return clock }

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	clock = clock.Add(time.Second)
	assert.True(t, rl.Allow("a"))
	clock = clock.Add(time.Second)
	assert.True(t, rl.Allow("b"))
	// "a" was seen one second ago and keeps its partly drained bucket.
	assert.Equal(t, 2, rl.Len())
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
}

func TestPrincipalKey(t *testing.T) {
	assert.Equal(t, "principal:123", PrincipalKey(123))
	assert.Equal(t, "principal:-5", PrincipalKey(-5))
}
