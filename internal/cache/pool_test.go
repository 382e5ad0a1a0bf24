package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestPool(t *testing.T) *Pool {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewPoolWithClient(rdb, 1024)
}

func TestPool_SetGet_RoundTrip(t *testing.T) {
	ctx := context.Background()
	pool := newTestPool(t)

	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	in := payload{Name: "szia", Count: 3}
	require.NoError(t, pool.Set(ctx, "greeting", in, "agent_response", 0))

	var out payload
	found, err := pool.Get(ctx, "greeting", "agent_response", &out)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, in, out)
}

func TestPool_Get_Miss(t *testing.T) {
	ctx := context.Background()
	pool := newTestPool(t)

	var out string
	found, err := pool.Get(ctx, "absent", "product_info", &out)
	require.NoError(t, err)
	require.False(t, found)
}

func TestPool_CompressionAboveThreshold(t *testing.T) {
	ctx := context.Background()
	pool := newTestPool(t)

	large := strings.Repeat("a", 4096)
	require.NoError(t, pool.Set(ctx, "big", large, "search_result", 0))

	var out string
	found, err := pool.Get(ctx, "big", "search_result", &out)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, large, out)
}

func TestPool_DeleteRemovesDataAndMeta(t *testing.T) {
	ctx := context.Background()
	pool := newTestPool(t)

	require.NoError(t, pool.Set(ctx, "k", "v", "session", 0))
	require.NoError(t, pool.Delete(ctx, "k", "session"))

	exists, err := pool.Exists(ctx, "k", "session")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestPool_IncrAndExpire(t *testing.T) {
	ctx := context.Background()
	pool := newTestPool(t)

	n, err := pool.Incr(ctx, "counter", "rate_limit", 1)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	n, err = pool.Incr(ctx, "counter", "rate_limit", 1)
	require.NoError(t, err)
	require.Equal(t, int64(2), n)

	require.NoError(t, pool.Expire(ctx, "counter", "rate_limit", time.Minute))
}

func TestPool_TTLFor_KnownAndFallback(t *testing.T) {
	require.Equal(t, 30*time.Minute, TTLFor("session"))
	require.Equal(t, 120*time.Minute, TTLFor("embedding"))
	require.Equal(t, fallbackTTL, TTLFor("job_history"))
}
