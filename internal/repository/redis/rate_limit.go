package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	red "github.com/redis/go-redis/v9"

	"github.com/nrodcast/account-service/internal/core/port"
)

// SlidingWindowConfig shapes the attempt store. KeyPrefix namespaces the
// per-identifier sorted sets; TTL caps how long an idle identifier lingers in
// Redis and should comfortably exceed the enforcement window.
type SlidingWindowConfig struct {
	KeyPrefix string
	TTL       time.Duration
}

// RateLimitRepository records attempts as one sorted set per identifier,
// scored by the attempt timestamp in nanoseconds. Members carry a random
// suffix so two attempts landing in the same nanosecond still count twice.
type RateLimitRepository struct {
	client *red.Client
	cfg    SlidingWindowConfig
}

// NewRateLimitRepository wires the sliding-window store onto a Redis client.
func NewRateLimitRepository(client *red.Client, cfg SlidingWindowConfig) *RateLimitRepository {
	return &RateLimitRepository{client: client, cfg: cfg}
}

// RecordAttempt appends an attempt at the given instant and refreshes the key
// TTL in a single round trip.
func (r *RateLimitRepository) RecordAttempt(ctx context.Context, identifier string, at time.Time) error {
	nanos := at.UnixNano()
	member := strconv.FormatInt(nanos, 10) + "#" + uuid.NewString()

	pipe := r.client.TxPipeline()
	pipe.ZAdd(ctx, r.key(identifier), red.Z{Score: float64(nanos), Member: member})
	if r.cfg.TTL > 0 {
		pipe.Expire(ctx, r.key(identifier), r.cfg.TTL)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record attempt for %q: %w", identifier, err)
	}
	return nil
}

// CountAttempts reports how many attempts fall inside the window ending at
// the reference instant.
func (r *RateLimitRepository) CountAttempts(ctx context.Context, identifier string, window time.Duration, reference time.Time) (int, error) {
	lo, hi, err := windowBounds(window, reference)
	if err != nil {
		return 0, err
	}

	count, err := r.client.ZCount(ctx, r.key(identifier), lo, hi).Result()
	if err != nil {
		return 0, fmt.Errorf("count attempts for %q: %w", identifier, err)
	}
	return int(count), nil
}

// TrimWindow drops every attempt that precedes the window ending at the
// reference instant. Attempts exactly on the window edge survive.
func (r *RateLimitRepository) TrimWindow(ctx context.Context, identifier string, window time.Duration, reference time.Time) error {
	lo, _, err := windowBounds(window, reference)
	if err != nil {
		return err
	}

	if err := r.client.ZRemRangeByScore(ctx, r.key(identifier), "-inf", "("+lo).Err(); err != nil {
		return fmt.Errorf("trim attempts for %q: %w", identifier, err)
	}
	return nil
}

// OldestAttempt returns the earliest attempt still inside the window, used to
// compute how long a throttled caller has to wait.
func (r *RateLimitRepository) OldestAttempt(ctx context.Context, identifier string, window time.Duration, reference time.Time) (time.Time, bool, error) {
	lo, hi, err := windowBounds(window, reference)
	if err != nil {
		return time.Time{}, false, err
	}

	members, err := r.client.ZRangeByScore(ctx, r.key(identifier), &red.ZRangeBy{
		Min:   lo,
		Max:   hi,
		Count: 1,
	}).Result()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("oldest attempt for %q: %w", identifier, err)
	}
	if len(members) == 0 {
		return time.Time{}, false, nil
	}

	raw, _, _ := strings.Cut(members[0], "#")
	nanos, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("decode attempt member %q: %w", members[0], err)
	}
	return time.Unix(0, nanos), true, nil
}

func windowBounds(window time.Duration, reference time.Time) (string, string, error) {
	if window <= 0 {
		return "", "", errors.New("window must be positive")
	}
	lo := strconv.FormatInt(reference.Add(-window).UnixNano(), 10)
	hi := strconv.FormatInt(reference.UnixNano(), 10)
	return lo, hi, nil
}

func (r *RateLimitRepository) key(identifier string) string {
	if r.cfg.KeyPrefix == "" {
		return identifier
	}
	return r.cfg.KeyPrefix + ":" + identifier
}

var _ port.RateLimitStore = (*RateLimitRepository)(nil)
