package clients

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterAllowConsumesBurst(t *testing.T) {
	rl := NewTokenBucketRateLimiter(1.0, 3)

	assert.True(t, rl.Allow())
	assert.True(t, rl.Allow())
	assert.True(t, rl.Allow())
	assert.False(t, rl.Allow())

	stats := rl.GetStats()
	assert.Equal(t, int64(3), stats.AllowedRequests)
	assert.Equal(t, int64(1), stats.BlockedRequests)
}

func TestRateLimiterRefills(t *testing.T) {
	rl := NewTokenBucketRateLimiter(100.0, 1)

	require.True(t, rl.Allow())
	require.False(t, rl.Allow())

	time.Sleep(20 * time.Millisecond)
	assert.True(t, rl.Allow())
}

func TestRateLimiterWaitBlocksUntilToken(t *testing.T) {
	rl := NewTokenBucketRateLimiter(50.0, 1)
	require.True(t, rl.Allow())

	start := time.Now()
	err := rl.Wait(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

func TestRateLimiterWaitHonorsCancellation(t *testing.T) {
	rl := NewTokenBucketRateLimiter(0.001, 1)
	require.True(t, rl.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := rl.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRateLimiterSetBurstClampsTokens(t *testing.T) {
	rl := NewTokenBucketRateLimiter(1.0, 10)
	rl.SetBurst(2)

	assert.True(t, rl.Allow())
	assert.True(t, rl.Allow())
	assert.False(t, rl.Allow())
}
