package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nrodcast/account-service/internal/core/domain"
	"github.com/nrodcast/account-service/internal/core/port"
	"github.com/nrodcast/account-service/internal/infra/config"
	"github.com/nrodcast/account-service/internal/infra/logger"
	"github.com/nrodcast/account-service/internal/infra/security"
	"github.com/nrodcast/account-service/internal/repository"
)

const (
	resetKeyPrefix = "reset-password:"

	defaultResetTTL = 24 * time.Hour

	passwordResetRateLimitScope = "password_reset"

	// resetCodeBytes sizes the random reset code; 32 bytes keeps the code
	// comfortably beyond guessing range even within the 24h window.
	resetCodeBytes = 32

	// MsgResetTokenSent is returned after a reset code has been issued and mailed.
	MsgResetTokenSent = "The token was sent to the email"
	// MsgPasswordChanged is returned after a reset code has been redeemed.
	MsgPasswordChanged = "The password has been changed"

	resetMailSubject = "Password reset"
)

// ResetPasswordInput carries one step of the two-step reset flow. An empty
// Token requests a new code; a non-empty Token redeems it together with the
// new password.
type ResetPasswordInput struct {
	Email    string
	Password string
	Token    string
	IP       string
}

// PasswordResetService issues single-use reset codes and redeems them for a
// new password.
type PasswordResetService struct {
	cfg        *config.AppConfig
	users      port.UserRepository
	cache      port.Cache
	hasher     port.PasswordHasher
	policy     port.PasswordPolicyValidator
	notifier   port.Notifier
	events     port.EventPublisher
	rateLimits port.RateLimitStore
	log        *zap.Logger
	now        func() time.Time
	resetTTL   time.Duration
}

// NewPasswordResetService constructs a PasswordResetService.
func NewPasswordResetService(cfg *config.AppConfig, users port.UserRepository, cache port.Cache, hasher port.PasswordHasher, policy port.PasswordPolicyValidator, notifier port.Notifier, events port.EventPublisher, rateLimits port.RateLimitStore, log *zap.Logger) *PasswordResetService {
	if policy == nil {
		policy = security.DefaultPasswordValidator()
	}
	if log == nil {
		log = zap.NewNop()
	}

	ttl := defaultResetTTL
	if cfg != nil && cfg.Reset.CodeTTL > 0 {
		ttl = cfg.Reset.CodeTTL
	}

	return &PasswordResetService{
		cfg:        cfg,
		users:      users,
		cache:      cache,
		hasher:     hasher,
		policy:     policy,
		notifier:   notifier,
		events:     events,
		rateLimits: rateLimits,
		log:        log,
		now:        time.Now,
		resetTTL:   ttl,
	}
}

// WithClock overrides the time source (primarily for tests).
func (s *PasswordResetService) WithClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// WithTTL overrides the reset code lifetime (primarily for tests).
func (s *PasswordResetService) WithTTL(ttl time.Duration) {
	if ttl > 0 {
		s.resetTTL = ttl
	}
}

// ResetPassword drives both halves of the reset flow. Without a token it
// generates a fresh code, caches it under the account's reset key and mails
// it out; issuing again overwrites the previous code. With a token it
// atomically consumes the cached code and replaces the stored credential.
func (s *PasswordResetService) ResetPassword(ctx context.Context, input ResetPasswordInput) (string, error) {
	key := normalizeEmailKey(input.Email)
	if key == "" {
		return "", ErrUserNotFound
	}

	if limit := s.rateLimitFor(); limit > 0 {
		if err := enforceRateLimit(ctx, s.rateLimits, passwordResetRateLimitScope, key, limit, s.cfg.RateLimit.WindowDuration, s.now()); err != nil {
			return "", err
		}
	}

	// The new password is validated before the account lookup so a weak
	// password surfaces on the first round trip and produces the same answer
	// whether or not the account exists.
	if err := s.policy.Validate(input.Password); err != nil {
		return "", err
	}

	user, err := s.users.GetByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("lookup user: %w", err)
	}

	if input.Token == "" {
		return s.issueCode(ctx, user)
	}

	return s.redeemCode(ctx, user, input.Token, input.Password)
}

func (s *PasswordResetService) issueCode(ctx context.Context, user *domain.User) (string, error) {
	code, err := security.GenerateSecureToken(resetCodeBytes)
	if err != nil {
		return "", fmt.Errorf("generate reset code: %w", err)
	}
	cacheKey := resetKeyPrefix + user.Email

	if err := s.cache.Set(ctx, cacheKey, code, s.resetTTL); err != nil {
		return "", fmt.Errorf("store reset code: %w", err)
	}

	body := fmt.Sprintf("Use the following token to reset your password: %s", code)
	if err := s.notifier.Send(ctx, user.Email, resetMailSubject, body); err != nil {
		// The code stays cached; the caller can retry the request.
		return "", fmt.Errorf("send reset mail: %w", err)
	}

	now := s.now().UTC()
	event := domain.PasswordResetRequestedEvent{
		EventID:           uuid.NewString(),
		UserID:            strconv.FormatInt(user.ID, 10),
		RequestedAt:       now,
		MaskedDestination: logger.MaskEmail(user.Email),
		ExpiresAt:         now.Add(s.resetTTL),
	}
	if err := s.events.PublishPasswordResetRequested(ctx, event); err != nil {
		s.log.Warn("failed to publish password reset requested event",
			zap.Int64("user_id", user.ID), zap.Error(err))
	}

	s.log.Info("password reset code issued",
		zap.Int64("user_id", user.ID),
		zap.String("email", logger.MaskEmail(user.Email)))

	return MsgResetTokenSent, nil
}

func (s *PasswordResetService) redeemCode(ctx context.Context, user *domain.User, token, newPassword string) (string, error) {
	cacheKey := resetKeyPrefix + user.Email

	consumed, err := s.cache.ConsumeIfMatch(ctx, cacheKey, token)
	if err != nil {
		return "", fmt.Errorf("consume reset code: %w", err)
	}
	if !consumed {
		s.log.Info("password reset rejected",
			zap.Int64("user_id", user.ID), zap.String("cause", "token mismatch"))
		return "", ErrInvalidResetToken
	}

	credential, err := s.hasher.Hash(newPassword)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	if err := s.users.ReplaceCredential(ctx, user.Email, credential); err != nil {
		return "", fmt.Errorf("replace credential: %w", err)
	}

	event := domain.PasswordChangedEvent{
		EventID:   uuid.NewString(),
		UserID:    strconv.FormatInt(user.ID, 10),
		ChangedAt: s.now().UTC(),
	}
	if err := s.events.PublishPasswordChanged(ctx, event); err != nil {
		s.log.Warn("failed to publish password changed event",
			zap.Int64("user_id", user.ID), zap.Error(err))
	}

	s.log.Info("password changed via reset code", zap.Int64("user_id", user.ID))

	return MsgPasswordChanged, nil
}

func (s *PasswordResetService) rateLimitFor() int {
	if s.cfg == nil {
		return 0
	}
	return s.cfg.RateLimit.PasswordResetMaxAttempts
}
