package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/nrodcast/account-service/internal/core/domain"
	"github.com/nrodcast/account-service/internal/core/port"
	"github.com/nrodcast/account-service/internal/infra/config"
	"github.com/nrodcast/account-service/internal/infra/logger"
	"github.com/nrodcast/account-service/internal/infra/security"
	"github.com/nrodcast/account-service/internal/repository"
)

const signInRateLimitScope = "signin"

// AuthService coordinates credential verification and access token issuance.
type AuthService struct {
	cfg        *config.AppConfig
	users      port.UserRepository
	hasher     port.PasswordHasher
	signer     port.TokenSigner
	rateLimits port.RateLimitStore
	log        *zap.Logger
	now        func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(cfg *config.AppConfig, users port.UserRepository, hasher port.PasswordHasher, signer port.TokenSigner, rateLimits port.RateLimitStore, log *zap.Logger) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}

	return &AuthService{
		cfg:        cfg,
		users:      users,
		hasher:     hasher,
		signer:     signer,
		rateLimits: rateLimits,
		log:        log,
		now:        time.Now,
	}
}

// WithClock overrides the time source (primarily for tests).
func (s *AuthService) WithClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// SignIn verifies the email/password pair and returns a signed access token
// together with the authenticated user. Every failure cause that would reveal
// whether the account exists collapses into ErrInvalidCredentials.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (string, *domain.User, error) {
	key := normalizeEmailKey(email)
	if key == "" || password == "" {
		return "", nil, ErrInvalidCredentials
	}

	if limit := s.rateLimitFor(); limit > 0 {
		if err := enforceRateLimit(ctx, s.rateLimits, signInRateLimitScope, key, limit, s.cfg.RateLimit.WindowDuration, s.now()); err != nil {
			return "", nil, err
		}
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.log.Info("sign-in rejected", zap.String("email", logger.MaskEmail(email)), zap.String("cause", "unknown account"))
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("lookup user: %w", err)
	}

	if !user.Active {
		s.log.Info("sign-in rejected", zap.String("email", logger.MaskEmail(email)), zap.String("cause", "inactive account"))
		return "", nil, ErrInvalidCredentials
	}

	credential, err := s.users.GetCredentialByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("lookup credential: %w", err)
	}

	ok, err := s.hasher.Verify(password, *credential)
	if err != nil {
		return "", nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		s.log.Info("sign-in rejected", zap.String("email", logger.MaskEmail(email)), zap.String("cause", "password mismatch"))
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.signer.Sign(strconv.FormatInt(user.ID, 10), user.Role())
	if err != nil {
		return "", nil, fmt.Errorf("sign access token: %w", err)
	}

	return token, user, nil
}

func (s *AuthService) rateLimitFor() int {
	if s.cfg == nil {
		return 0
	}
	return s.cfg.RateLimit.SignInMaxAttempts
}

// ParseAccessToken verifies a bearer token and returns its claims.
func (s *AuthService) ParseAccessToken(token string) (*port.AccessTokenClaims, error) {
	claims, err := s.signer.Verify(token)
	if err != nil {
		if errors.Is(err, security.ErrTokenExpired) {
			return nil, ErrExpiredAccessToken
		}
		return nil, ErrInvalidAccessToken
	}
	return claims, nil
}
