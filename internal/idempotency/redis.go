// Package idempotency records which order a client-supplied idempotency key
// produced, so a retried placement returns the first result.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nexusmart/shop/internal/domain"
)

const (
	keyPrefix = "idempotency:order:"
	pending   = "pending"
)

// releaseScript deletes the key only while it is still pending, so a late
// release never erases a completed result.
var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func redisKey(userID, key string) string {
	return keyPrefix + userID + ":" + key
}

// Reserve claims key for userID. It returns "" when the key was free, the
// order ID when the key already completed, and domain.ErrRequestInFlight when
// another request holds it.
func (s *RedisStore) Reserve(ctx context.Context, userID, key string) (string, error) {
	k := redisKey(userID, key)

	for range 2 {
		ok, err := s.client.SetNX(ctx, k, pending, s.ttl).Result()
		if err != nil {
			return "", fmt.Errorf("reserve idempotency key: %w", err)
		}
		if ok {
			return "", nil
		}

		value, err := s.client.Get(ctx, k).Result()
		if errors.Is(err, redis.Nil) {
			// expired between SETNX and GET
			continue
		}
		if err != nil {
			return "", fmt.Errorf("read idempotency key: %w", err)
		}
		if value == pending {
			return "", domain.ErrRequestInFlight
		}
		return value, nil
	}
	return "", domain.ErrRequestInFlight
}

func (s *RedisStore) Complete(ctx context.Context, userID, key, orderID string) error {
	if err := s.client.Set(ctx, redisKey(userID, key), orderID, s.ttl).Err(); err != nil {
		return fmt.Errorf("complete idempotency key: %w", err)
	}
	return nil
}

func (s *RedisStore) Release(ctx context.Context, userID, key string) error {
	if err := releaseScript.Run(ctx, s.client, []string{redisKey(userID, key)}, pending).Err(); err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}
