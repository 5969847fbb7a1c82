package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/nrodcast/account-service/internal/core/port"
)

// enforceRateLimit trims the sliding window, rejects when the identifier is at
// its attempt budget, and records the current attempt otherwise. RetryAfter is
// derived from the oldest attempt still inside the window.
func enforceRateLimit(ctx context.Context, store port.RateLimitStore, scope, identifier string, limit int, window time.Duration, now time.Time) error {
	if store == nil || limit <= 0 || window <= 0 {
		return nil
	}

	key := scope + ":" + identifier

	if err := store.TrimWindow(ctx, key, window, now); err != nil {
		return fmt.Errorf("trim rate limit window: %w", err)
	}

	count, err := store.CountAttempts(ctx, key, window, now)
	if err != nil {
		return fmt.Errorf("count rate limit attempts: %w", err)
	}

	if count >= limit {
		retryAfter := window
		if oldest, found, err := store.OldestAttempt(ctx, key, window, now); err == nil && found {
			if remaining := oldest.Add(window).Sub(now); remaining > 0 {
				retryAfter = remaining
			}
		}
		return &RateLimitExceededError{Scope: scope, RetryAfter: retryAfter}
	}

	if err := store.RecordAttempt(ctx, key, now); err != nil {
		return fmt.Errorf("record rate limit attempt: %w", err)
	}

	return nil
}
