package ratelimiter

import (
	"context"
	"testing"
	"time"

	"github.com/chatbuddy/core/internal/cache"
	"github.com/stretchr/testify/require"
)

func TestLimiter_AllowsUpToMax(t *testing.T) {
	ctx := context.Background()
	limiter := NewLimiter(cache.NewInMemory(1024))

	for i := int64(1); i <= 3; i++ {
		res, err := limiter.CheckLimit(ctx, "1.2.3.4", "ip", 3, time.Minute)
		require.NoError(t, err)
		require.True(t, res.Allowed)
		require.Equal(t, i, res.Count)
	}
}

func TestLimiter_DeniesAboveMax(t *testing.T) {
	ctx := context.Background()
	limiter := NewLimiter(cache.NewInMemory(1024))

	for i := 0; i < 3; i++ {
		_, err := limiter.CheckLimit(ctx, "user-1", "user", 3, time.Minute)
		require.NoError(t, err)
	}

	res, err := limiter.CheckLimit(ctx, "user-1", "user", 3, time.Minute)
	require.NoError(t, err)
	require.False(t, res.Allowed)
	require.Equal(t, int64(3), res.Count)
}

func TestLimiter_ScopesAreIndependent(t *testing.T) {
	ctx := context.Background()
	limiter := NewLimiter(cache.NewInMemory(1024))

	for i := 0; i < 5; i++ {
		_, err := limiter.CheckLimit(ctx, "same-id", "ip", 5, time.Minute)
		require.NoError(t, err)
	}

	res, err := limiter.CheckLimit(ctx, "same-id", "user", 5, time.Minute)
	require.NoError(t, err)
	require.True(t, res.Allowed)
	require.Equal(t, int64(1), res.Count)
}
