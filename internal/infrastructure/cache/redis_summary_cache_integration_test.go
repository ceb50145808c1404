package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis integration test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

func TestRedisSummaryCache_Integration(t *testing.T) {
	client := startRedis(t)
	c := NewRedisSummaryCacheWithClient(client, WithNamespace("test:"))
	ctx := context.Background()

	t.Run("get and set", func(t *testing.T) {
		var got cachedSummary
		found, err := c.Get(ctx, "dashboard:summary:x", &got)
		require.NoError(t, err)
		assert.False(t, found)

		want := cachedSummary{Total: "99.10", Shops: []string{"7"}}
		require.NoError(t, c.Set(ctx, "dashboard:summary:x", want, time.Minute))

		found, err = c.Get(ctx, "dashboard:summary:x", &got)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, want, got)

		ttl, err := client.TTL(ctx, "test:dashboard:summary:x").Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, time.Duration(0))
	})

	t.Run("corrupted entry is dropped", func(t *testing.T) {
		require.NoError(t, client.Set(ctx, "test:dashboard:broken", "{not json", 0).Err())

		var got cachedSummary
		found, err := c.Get(ctx, "dashboard:broken", &got)
		require.NoError(t, err)
		assert.False(t, found)

		n, err := client.Exists(ctx, "test:dashboard:broken").Result()
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("delete prefix scans every batch", func(t *testing.T) {
		for i := 0; i < 250; i++ {
			require.NoError(t, c.Set(ctx, fmt.Sprintf("dashboard:trend:%d", i), i, time.Minute))
		}
		require.NoError(t, c.Set(ctx, "keep:me", 1, time.Minute))

		require.NoError(t, c.DeletePrefix(ctx, "dashboard:"))

		keys, err := client.Keys(ctx, "test:*").Result()
		require.NoError(t, err)
		assert.Equal(t, []string{"test:keep:me"}, keys)
	})

	require.NoError(t, c.Close())
	assert.NoError(t, c.Ping(ctx), "a shared client stays open")
}
