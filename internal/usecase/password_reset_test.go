package usecase

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nrodcast/account-service/internal/core/domain"
	"github.com/nrodcast/account-service/internal/infra/security"
	"github.com/nrodcast/account-service/internal/repository"
)

type resetFixture struct {
	svc      *PasswordResetService
	users    *stubUserRepo
	cache    *memoryCache
	hasher   *stubHasher
	notifier *stubNotifier
	events   *recordingPublisher
}

func newResetFixture(t *testing.T) *resetFixture {
	t.Helper()

	user := activeUser()
	f := &resetFixture{
		users: &stubUserRepo{
			getByEmailFn: func(_ context.Context, email string) (*domain.User, error) {
				if email != user.Email {
					return nil, repository.ErrNotFound
				}
				return user, nil
			},
		},
		cache:    newMemoryCache(),
		notifier: &stubNotifier{},
		events:   &recordingPublisher{},
	}
	f.hasher = &stubHasher{
		hashFn: func(password string) (domain.PersistedCredential, error) {
			return domain.PersistedCredential{Salt: "salt", Hash: "hash:" + password, Iterations: 3}, nil
		},
	}

	cfg := testConfig()
	cfg.RateLimit.PasswordResetMaxAttempts = 10

	f.svc = NewPasswordResetService(cfg, f.users, f.cache, f.hasher, security.DefaultPasswordValidator(), f.notifier, f.events, newMemoryRateLimits(), nil)
	return f
}

func (f *resetFixture) issuedCode(t *testing.T) string {
	t.Helper()
	code, err := f.cache.Get(context.Background(), resetKeyPrefix+"jess@example.com")
	require.NoError(t, err)
	return code
}

func TestResetPasswordIssuesCode(t *testing.T) {
	f := newResetFixture(t)

	message, err := f.svc.ResetPassword(context.Background(), ResetPasswordInput{
		Email:    "jess@example.com",
		Password: "Password1@",
	})
	require.NoError(t, err)
	require.Equal(t, MsgResetTokenSent, message)

	code := f.issuedCode(t)
	require.NotEmpty(t, code)

	require.Len(t, f.notifier.sent, 1)
	require.Equal(t, "jess@example.com", f.notifier.sent[0].to)
	require.True(t, strings.Contains(f.notifier.sent[0].body, code))

	require.Len(t, f.events.requested, 1)
	require.Equal(t, "7", f.events.requested[0].UserID)
}

func TestResetPasswordRedeemsCodeOnce(t *testing.T) {
	f := newResetFixture(t)
	ctx := context.Background()

	var replaced *domain.PersistedCredential
	f.users.replaceCredentialFn = func(_ context.Context, email string, credential domain.PersistedCredential) error {
		require.Equal(t, "jess@example.com", email)
		replaced = &credential
		return nil
	}

	_, err := f.svc.ResetPassword(ctx, ResetPasswordInput{Email: "jess@example.com", Password: "Password1@"})
	require.NoError(t, err)
	code := f.issuedCode(t)

	message, err := f.svc.ResetPassword(ctx, ResetPasswordInput{
		Email:    "jess@example.com",
		Password: "NewSecret2!",
		Token:    code,
	})
	require.NoError(t, err)
	require.Equal(t, MsgPasswordChanged, message)
	require.NotNil(t, replaced)
	require.Equal(t, "hash:NewSecret2!", replaced.Hash)
	require.Len(t, f.events.changed, 1)

	// The code is single use.
	_, err = f.svc.ResetPassword(ctx, ResetPasswordInput{
		Email:    "jess@example.com",
		Password: "NewSecret2!",
		Token:    code,
	})
	require.ErrorIs(t, err, ErrInvalidResetToken)
}

func TestResetPasswordRejectsUnknownToken(t *testing.T) {
	f := newResetFixture(t)

	_, err := f.svc.ResetPassword(context.Background(), ResetPasswordInput{
		Email:    "jess@example.com",
		Password: "Password1@",
		Token:    "never-issued",
	})
	require.ErrorIs(t, err, ErrInvalidResetToken)
}

func TestResetPasswordReissueInvalidatesPreviousCode(t *testing.T) {
	f := newResetFixture(t)
	ctx := context.Background()

	f.users.replaceCredentialFn = func(_ context.Context, _ string, _ domain.PersistedCredential) error {
		return nil
	}

	_, err := f.svc.ResetPassword(ctx, ResetPasswordInput{Email: "jess@example.com", Password: "Password1@"})
	require.NoError(t, err)
	first := f.issuedCode(t)

	_, err = f.svc.ResetPassword(ctx, ResetPasswordInput{Email: "jess@example.com", Password: "Password1@"})
	require.NoError(t, err)
	second := f.issuedCode(t)
	require.NotEqual(t, first, second)

	_, err = f.svc.ResetPassword(ctx, ResetPasswordInput{
		Email:    "jess@example.com",
		Password: "Password1@",
		Token:    first,
	})
	require.ErrorIs(t, err, ErrInvalidResetToken)

	message, err := f.svc.ResetPassword(ctx, ResetPasswordInput{
		Email:    "jess@example.com",
		Password: "Password1@",
		Token:    second,
	})
	require.NoError(t, err)
	require.Equal(t, MsgPasswordChanged, message)
}

func TestResetPasswordUnknownEmail(t *testing.T) {
	f := newResetFixture(t)

	_, err := f.svc.ResetPassword(context.Background(), ResetPasswordInput{
		Email:    "nobody@example.com",
		Password: "Password1@",
	})
	require.ErrorIs(t, err, ErrUserNotFound)
	require.Empty(t, f.notifier.sent)
}

// The policy runs before a token is issued or consumed, so a weak password
// surfaces on the first round trip and leaves any issued code intact.
func TestResetPasswordValidatesPolicyFirst(t *testing.T) {
	f := newResetFixture(t)
	ctx := context.Background()

	_, err := f.svc.ResetPassword(ctx, ResetPasswordInput{Email: "jess@example.com", Password: "Password1@"})
	require.NoError(t, err)
	code := f.issuedCode(t)

	_, err = f.svc.ResetPassword(ctx, ResetPasswordInput{
		Email:    "jess@example.com",
		Password: "short",
		Token:    code,
	})

	var policyErr *security.PasswordValidationError
	require.ErrorAs(t, err, &policyErr)
	require.Equal(t, "Password should not be lesser than 8 characters.", policyErr.Message)

	// The code survives and still redeems.
	f.users.replaceCredentialFn = func(_ context.Context, _ string, _ domain.PersistedCredential) error {
		return nil
	}
	message, err := f.svc.ResetPassword(ctx, ResetPasswordInput{
		Email:    "jess@example.com",
		Password: "Password1@",
		Token:    code,
	})
	require.NoError(t, err)
	require.Equal(t, MsgPasswordChanged, message)
}

// A weak password yields the same policy error whether or not the account
// exists, so the error itself cannot be used to probe registrations.
func TestResetPasswordPolicyErrorPrecedesLookup(t *testing.T) {
	f := newResetFixture(t)

	for _, email := range []string{"jess@example.com", "nobody@example.com"} {
		_, err := f.svc.ResetPassword(context.Background(), ResetPasswordInput{
			Email:    email,
			Password: "short",
		})

		var policyErr *security.PasswordValidationError
		require.ErrorAs(t, err, &policyErr)
		require.Equal(t, "Password should not be lesser than 8 characters.", policyErr.Message)
	}
	require.Empty(t, f.notifier.sent)
}

func TestResetPasswordRateLimited(t *testing.T) {
	f := newResetFixture(t)
	ctx := context.Background()

	f.svc = NewPasswordResetService(testConfig(), f.users, f.cache, f.hasher, security.DefaultPasswordValidator(), f.notifier, f.events, newMemoryRateLimits(), nil)

	base := time.Now()
	f.svc.WithClock(func() time.Time { return base })

	for i := 0; i < 3; i++ {
		_, err := f.svc.ResetPassword(ctx, ResetPasswordInput{Email: "jess@example.com", Password: "Password1@"})
		require.NoError(t, err)
	}

	_, err := f.svc.ResetPassword(ctx, ResetPasswordInput{Email: "jess@example.com", Password: "Password1@"})
	var rateErr *RateLimitExceededError
	require.ErrorAs(t, err, &rateErr)
	require.Equal(t, passwordResetRateLimitScope, rateErr.Scope)
}
