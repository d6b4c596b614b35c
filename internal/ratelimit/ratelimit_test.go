package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedRateLimiter_Allow(t *testing.T) {
	tests := []struct {
		name     string
		burst    int
		calls    int
		wantPass int
	}{
		{name: "burst allows initial requests", burst: 3, calls: 3, wantPass: 3},
		{name: "exceeding burst blocks", burst: 2, calls: 5, wantPass: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl := NewKeyed(1, tt.burst)
			defer rl.Stop()

			passed := 0
			for range tt.calls {
				if rl.Allow("10.0.0.1") {
					passed++
				}
			}
			assert.Equal(t, tt.wantPass, passed)
		})
	}
}

func TestKeyedRateLimiter_IndependentKeys(t *testing.T) {
	rl := NewKeyed(0.1, 1)
	defer rl.Stop()

	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"))
	assert.Equal(t, 2, rl.Len())
}

func TestKeyedRateLimiter_WaitContextCanceled(t *testing.T) {
	rl := NewKeyed(0.1, 1)
	defer rl.Stop()
	rl.Allow("a")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	assert.Error(t, rl.Wait(ctx, "a"))
}

func TestKeyedRateLimiter_SweepDropsIdleKeys(t *testing.T) {
	rl := newKeyed(1, 1, time.Minute, time.Hour)
	defer rl.Stop()

	rl.Allow("stale")
	require.Equal(t, 1, rl.Len())

	rl.sweep(time.Now().Add(30 * time.Second))
	assert.Equal(t, 1, rl.Len())

	rl.sweep(time.Now().Add(2 * time.Minute))
	assert.Equal(t, 0, rl.Len())
}
