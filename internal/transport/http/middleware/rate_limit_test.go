package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	attempts map[string][]time.Time
}

func newMemoryStore() *memoryStore {
	return &memoryStore{attempts: map[string][]time.Time{}}
}

func (m *memoryStore) RecordAttempt(_ context.Context, identifier string, at time.Time) error {
	m.attempts[identifier] = append(m.attempts[identifier], at)
	return nil
}

func (m *memoryStore) CountAttempts(_ context.Context, identifier string, window time.Duration, reference time.Time) (int, error) {
	count := 0
	for _, at := range m.attempts[identifier] {
		if !at.Before(reference.Add(-window)) && !at.After(reference) {
			count++
		}
	}
	return count, nil
}

func (m *memoryStore) TrimWindow(_ context.Context, identifier string, window time.Duration, reference time.Time) error {
	kept := m.attempts[identifier][:0]
	for _, at := range m.attempts[identifier] {
		if !at.Before(reference.Add(-window)) {
			kept = append(kept, at)
		}
	}
	m.attempts[identifier] = kept
	return nil
}

func (m *memoryStore) OldestAttempt(_ context.Context, identifier string, window time.Duration, reference time.Time) (time.Time, bool, error) {
	var oldest time.Time
	found := false
	for _, at := range m.attempts[identifier] {
		if at.Before(reference.Add(-window)) || at.After(reference) {
			continue
		}
		if !found || at.Before(oldest) {
			oldest = at
			found = true
		}
	}
	return oldest, found, nil
}

func newRateLimitedRouter(store *memoryStore, limit int, now func() time.Time) *gin.Engine {
	gin.SetMode(gin.TestMode)

	limiter := NewRateLimiter(store, nil).WithClock(now)

	r := gin.New()
	r.Use(limiter.RateLimit(RateLimitRule{
		Name:       "test_ip",
		Limit:      limit,
		Window:     time.Minute,
		Identifier: ClientIPIdentifier(),
	}))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	return r
}

func TestRateLimitAllowsWithinBudget(t *testing.T) {
	base := time.Now()
	r := newRateLimitedRouter(newMemoryStore(), 2, func() time.Time { return base })

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	}
}

func TestRateLimitRejectsBeyondBudget(t *testing.T) {
	base := time.Now()
	now := base
	r := newRateLimitedRouter(newMemoryStore(), 2, func() time.Time { return now })

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.NotEmpty(t, w.Header().Get("Retry-After"))
	require.Contains(t, w.Body.String(), "Rate Limit Exceeded")

	// The window slides forward and requests are admitted again.
	now = base.Add(2 * time.Minute)
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}
