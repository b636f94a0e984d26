//go:build integration

package vault

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidgate/internal/platform/config"
	platformredis "vidgate/internal/platform/redis"
	"vidgate/pkg/testutil/containers"
)

func TestRedisStateStore_Integration(t *testing.T) {
	rc := containers.NewRedisContainer(t)

	client, err := platformredis.New(config.Redis{
		URL:          rc.URL,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisStateStore(client)
	ctx := context.Background()

	t.Run("state is single use", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "state-1", `{"email":"a@example.com"}`, time.Minute))

		payload, ok, err := store.Consume(ctx, "state-1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, `{"email":"a@example.com"}`, payload)

		_, ok, err = store.Consume(ctx, "state-1")
		require.NoError(t, err)
		assert.False(t, ok, "second consume must miss")
	})

	t.Run("unknown state misses", func(t *testing.T) {
		_, ok, err := store.Consume(ctx, "never-stored")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("state expires on its TTL", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "state-2", "payload", 100*time.Millisecond))
		time.Sleep(300 * time.Millisecond)

		_, ok, err := store.Consume(ctx, "state-2")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
