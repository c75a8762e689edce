package idempotency_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexusmart/shop/internal/domain"
	"github.com/nexusmart/shop/internal/idempotency"
)

func newClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("NEXUSMART_TEST_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available at %s: %v", addr, err)
	}
	return client
}

func TestRedisStore(t *testing.T) {
	client := newClient(t)
	store := idempotency.NewRedisStore(client, time.Minute)
	ctx := context.Background()

	t.Run("reserve then complete then replay", func(t *testing.T) {
		key := uuid.NewString()

		orderID, err := store.Reserve(ctx, "user-1", key)
		require.NoError(t, err)
		assert.Empty(t, orderID)

		_, err = store.Reserve(ctx, "user-1", key)
		assert.ErrorIs(t, err, domain.ErrRequestInFlight)

		require.NoError(t, store.Complete(ctx, "user-1", key, "order-42"))

		orderID, err = store.Reserve(ctx, "user-1", key)
		require.NoError(t, err)
		assert.Equal(t, "order-42", orderID)
	})

	t.Run("keys are scoped per user", func(t *testing.T) {
		key := uuid.NewString()

		_, err := store.Reserve(ctx, "user-1", key)
		require.NoError(t, err)

		orderID, err := store.Reserve(ctx, "user-2", key)
		require.NoError(t, err)
		assert.Empty(t, orderID)
	})

	t.Run("release frees pending key only", func(t *testing.T) {
		key := uuid.NewString()

		_, err := store.Reserve(ctx, "user-1", key)
		require.NoError(t, err)
		require.NoError(t, store.Release(ctx, "user-1", key))

		orderID, err := store.Reserve(ctx, "user-1", key)
		require.NoError(t, err)
		assert.Empty(t, orderID)

		require.NoError(t, store.Complete(ctx, "user-1", key, "order-7"))
		require.NoError(t, store.Release(ctx, "user-1", key))

		orderID, err = store.Reserve(ctx, "user-1", key)
		require.NoError(t, err)
		assert.Equal(t, "order-7", orderID)
	})
}
