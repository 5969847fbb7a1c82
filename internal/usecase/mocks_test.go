package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/nrodcast/account-service/internal/core/domain"
	"github.com/nrodcast/account-service/internal/core/port"
)

type stubUserRepo struct {
	createFn               func(ctx context.Context, user domain.User, credential domain.PersistedCredential) (*domain.User, error)
	getByIDFn              func(ctx context.Context, id int64) (*domain.User, error)
	getByEmailFn           func(ctx context.Context, email string) (*domain.User, error)
	deleteFn               func(ctx context.Context, id int64) error
	deleteByEmailFn        func(ctx context.Context, email string) error
	getCredentialByEmailFn func(ctx context.Context, email string) (*domain.PersistedCredential, error)
	replaceCredentialFn    func(ctx context.Context, email string, credential domain.PersistedCredential) error
}

func (s *stubUserRepo) Create(ctx context.Context, user domain.User, credential domain.PersistedCredential) (*domain.User, error) {
	if s.createFn == nil {
		return nil, errors.New("unexpected call: Create")
	}
	return s.createFn(ctx, user, credential)
}

func (s *stubUserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	if s.getByIDFn == nil {
		return nil, errors.New("unexpected call: GetByID")
	}
	return s.getByIDFn(ctx, id)
}

func (s *stubUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if s.getByEmailFn == nil {
		return nil, errors.New("unexpected call: GetByEmail")
	}
	return s.getByEmailFn(ctx, email)
}

func (s *stubUserRepo) Delete(ctx context.Context, id int64) error {
	if s.deleteFn == nil {
		return errors.New("unexpected call: Delete")
	}
	return s.deleteFn(ctx, id)
}

func (s *stubUserRepo) DeleteByEmail(ctx context.Context, email string) error {
	if s.deleteByEmailFn == nil {
		return errors.New("unexpected call: DeleteByEmail")
	}
	return s.deleteByEmailFn(ctx, email)
}

func (s *stubUserRepo) GetCredentialByEmail(ctx context.Context, email string) (*domain.PersistedCredential, error) {
	if s.getCredentialByEmailFn == nil {
		return nil, errors.New("unexpected call: GetCredentialByEmail")
	}
	return s.getCredentialByEmailFn(ctx, email)
}

func (s *stubUserRepo) ReplaceCredential(ctx context.Context, email string, credential domain.PersistedCredential) error {
	if s.replaceCredentialFn == nil {
		return errors.New("unexpected call: ReplaceCredential")
	}
	return s.replaceCredentialFn(ctx, email, credential)
}

// memoryCache is a map-backed port.Cache with the same single-use consume
// semantics as the Redis implementation.
type memoryCache struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{values: map[string]string{}}
}

func (c *memoryCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	value, ok := c.values[key]
	if !ok {
		return "", errors.New("not found")
	}
	return value, nil
}

func (c *memoryCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
	return nil
}

func (c *memoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, key)
	return nil
}

func (c *memoryCache) ConsumeIfMatch(_ context.Context, key, expected string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.values[key] != expected || expected == "" {
		return false, nil
	}
	delete(c.values, key)
	return true, nil
}

type stubHasher struct {
	hashFn   func(password string) (domain.PersistedCredential, error)
	verifyFn func(password string, credential domain.PersistedCredential) (bool, error)
}

func (s *stubHasher) Hash(password string) (domain.PersistedCredential, error) {
	if s.hashFn == nil {
		return domain.PersistedCredential{}, errors.New("unexpected call: Hash")
	}
	return s.hashFn(password)
}

func (s *stubHasher) Verify(password string, credential domain.PersistedCredential) (bool, error) {
	if s.verifyFn == nil {
		return false, errors.New("unexpected call: Verify")
	}
	return s.verifyFn(password, credential)
}

type stubSigner struct {
	signFn   func(userID, role string) (string, error)
	verifyFn func(token string) (*port.AccessTokenClaims, error)
}

func (s *stubSigner) Sign(userID, role string) (string, error) {
	if s.signFn == nil {
		return "", errors.New("unexpected call: Sign")
	}
	return s.signFn(userID, role)
}

func (s *stubSigner) Verify(token string) (*port.AccessTokenClaims, error) {
	if s.verifyFn == nil {
		return nil, errors.New("unexpected call: Verify")
	}
	return s.verifyFn(token)
}

type stubNotifier struct {
	sendFn func(ctx context.Context, to, subject, body string) error

	sent []sentMail
}

type sentMail struct {
	to      string
	subject string
	body    string
}

func (s *stubNotifier) Send(ctx context.Context, to, subject, body string) error {
	s.sent = append(s.sent, sentMail{to: to, subject: subject, body: body})
	if s.sendFn == nil {
		return nil
	}
	return s.sendFn(ctx, to, subject, body)
}

// recordingPublisher collects published events for assertions.
type recordingPublisher struct {
	created   []domain.UserCreatedEvent
	changed   []domain.PasswordChangedEvent
	requested []domain.PasswordResetRequestedEvent
}

func (p *recordingPublisher) PublishUserCreated(_ context.Context, event domain.UserCreatedEvent) error {
	p.created = append(p.created, event)
	return nil
}

func (p *recordingPublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	p.changed = append(p.changed, event)
	return nil
}

func (p *recordingPublisher) PublishPasswordResetRequested(_ context.Context, event domain.PasswordResetRequestedEvent) error {
	p.requested = append(p.requested, event)
	return nil
}

// memoryRateLimits keeps attempts in memory with sliding-window semantics.
type memoryRateLimits struct {
	attempts map[string][]time.Time
}

func newMemoryRateLimits() *memoryRateLimits {
	return &memoryRateLimits{attempts: map[string][]time.Time{}}
}

func (m *memoryRateLimits) RecordAttempt(_ context.Context, identifier string, at time.Time) error {
	m.attempts[identifier] = append(m.attempts[identifier], at)
	return nil
}

func (m *memoryRateLimits) CountAttempts(_ context.Context, identifier string, window time.Duration, reference time.Time) (int, error) {
	count := 0
	for _, at := range m.attempts[identifier] {
		if !at.Before(reference.Add(-window)) && !at.After(reference) {
			count++
		}
	}
	return count, nil
}

func (m *memoryRateLimits) TrimWindow(_ context.Context, identifier string, window time.Duration, reference time.Time) error {
	kept := m.attempts[identifier][:0]
	for _, at := range m.attempts[identifier] {
		if !at.Before(reference.Add(-window)) {
			kept = append(kept, at)
		}
	}
	m.attempts[identifier] = kept
	return nil
}

func (m *memoryRateLimits) OldestAttempt(_ context.Context, identifier string, window time.Duration, reference time.Time) (time.Time, bool, error) {
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
