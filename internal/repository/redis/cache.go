package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/nrodcast/account-service/internal/core/port"
	"github.com/nrodcast/account-service/internal/repository"
)

// consumeIfMatchScript deletes the key only when its value equals the
// candidate, in one atomic step. Returns 1 when consumed, 0 otherwise.
var consumeIfMatchScript = red.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// CacheRepository implements port.Cache on top of Redis strings.
type CacheRepository struct {
	client *red.Client
}

// NewCacheRepository constructs a cache repository using the provided Redis client.
func NewCacheRepository(client *red.Client) *CacheRepository {
	return &CacheRepository{client: client}
}

// Get returns the value stored under key, or repository.ErrNotFound when the
// key is absent or already expired.
func (r *CacheRepository) Get(ctx context.Context, key string) (string, error) {
	value, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, red.Nil) {
			return "", repository.ErrNotFound
		}
		return "", fmt.Errorf("redis get: %w", err)
	}
	return value, nil
}

// Set stores value under key with the provided TTL, overwriting any existing
// value and resetting the TTL.
func (r *CacheRepository) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.New("ttl must be positive")
	}
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete removes the key; deleting an absent key is not an error.
func (r *CacheRepository) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// ConsumeIfMatch atomically deletes the key when its current value equals
// expected. Of two concurrent calls with the same expected value at most one
// observes true.
func (r *CacheRepository) ConsumeIfMatch(ctx context.Context, key string, expected string) (bool, error) {
	result, err := consumeIfMatchScript.Run(ctx, r.client, []string{key}, expected).Int64()
	if err != nil {
		return false, fmt.Errorf("redis consume: %w", err)
	}
	return result == 1, nil
}

var _ port.Cache = (*CacheRepository)(nil)
