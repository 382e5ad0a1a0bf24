//go:build integration

// Package integration exercises the cache pool (C1) and the abandoned-cart
// coordinator (C11) against a real Redis container instead of miniredis,
// the way the teacher's containers_test.go probed its own external
// dependencies end to end.
package integration

import (
	"context"
	"testing"
	"time"

	"github.com/chatbuddy/core/internal/cache"
	"github.com/chatbuddy/core/internal/cart"
	"github.com/chatbuddy/core/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
	}
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{ContainerRequest: req, Started: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(ctx) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "6379")
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: host + ":" + port.Port()})
	require.Eventually(t, func() bool { return rdb.Ping(ctx).Err() == nil }, 30*time.Second, time.Second)
	return rdb
}

func TestCachePool_RoundTripAgainstRealRedis(t *testing.T) {
	rdb := startRedis(t)
	pool := cache.NewPoolWithClient(rdb, 1024)
	ctx := context.Background()

	type productInfo struct {
		SKU   string  `json:"sku"`
		Price float64 `json:"price"`
	}
	in := productInfo{SKU: "SKU-001", Price: 12990}
	require.NoError(t, pool.Set(ctx, "sku:SKU-001", in, "product_info", time.Minute))

	var out productInfo
	found, err := pool.Get(ctx, "sku:SKU-001", "product_info", &out)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, in, out)

	count, err := pool.Incr(ctx, "rate:user:42", "rate_limit", 1)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

// fakeCartSource reports one stale, high-value cart so DetectAbandoned has
// something to find against the real Redis-backed cache pool.
type fakeCartSource struct{ carts []cart.CartSnapshot }

func (f fakeCartSource) ListActiveCarts(ctx domain.Context) ([]cart.CartSnapshot, error) {
	return f.carts, nil
}

func TestCartCoordinator_DetectAndCleanup_AgainstRealRedis(t *testing.T) {
	rdb := startRedis(t)
	pool := cache.NewPoolWithClient(rdb, 1024)
	ctx := context.Background()

	source := fakeCartSource{carts: []cart.CartSnapshot{
		{
			CartID:       "cart-1",
			UserID:       "user-1",
			TotalValue:   9990,
			LastActivity: time.Now().Add(-2 * time.Hour),
		},
	}}
	coord := cart.New(pool, source, nil, nil, cart.Config{TimeoutMinutes: 30, MinValueForFollowup: 5000})

	detected, err := coord.DetectAbandoned(ctx)
	require.NoError(t, err)
	require.Len(t, detected, 1)
	require.Equal(t, "cart-1", detected[0].CartID)

	// A second detection pass must not duplicate the record.
	detected, err = coord.DetectAbandoned(ctx)
	require.NoError(t, err)
	require.Empty(t, detected)
}
