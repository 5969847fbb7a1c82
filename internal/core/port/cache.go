package port

import (
	"context"
	"time"
)

// Cache exposes the key/value operations the reset flow relies on.
// ConsumeIfMatch atomically deletes the key when its current value equals
// expected, so a single-use code can never be redeemed twice.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	ConsumeIfMatch(ctx context.Context, key string, expected string) (bool, error)
}
