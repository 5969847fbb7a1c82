package usecase

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nrodcast/account-service/internal/core/domain"
	"github.com/nrodcast/account-service/internal/core/port"
	"github.com/nrodcast/account-service/internal/infra/config"
	"github.com/nrodcast/account-service/internal/infra/logger"
	"github.com/nrodcast/account-service/internal/repository"
)

const maxEmailLength = 255

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// CreateUserInput carries the payload for registering a new account.
type CreateUserInput struct {
	Name     string
	Email    string
	Password string
	Admin    bool
}

// UserService coordinates account lifecycle operations.
type UserService struct {
	cfg    *config.AppConfig
	users  port.UserRepository
	hasher port.PasswordHasher
	policy port.PasswordPolicyValidator
	events port.EventPublisher
	log    *zap.Logger
	now    func() time.Time
}

// NewUserService constructs a UserService instance.
func NewUserService(cfg *config.AppConfig, users port.UserRepository, hasher port.PasswordHasher, policy port.PasswordPolicyValidator, events port.EventPublisher, log *zap.Logger) *UserService {
	if log == nil {
		log = zap.NewNop()
	}

	return &UserService{
		cfg:    cfg,
		users:  users,
		hasher: hasher,
		policy: policy,
		events: events,
		log:    log,
		now:    time.Now,
	}
}

// Create validates the payload, derives the credential and persists the user.
func (s *UserService) Create(ctx context.Context, input CreateUserInput) (*domain.User, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if !validEmail(input.Email) {
		return nil, ErrInvalidEmail
	}

	if err := s.policy.Validate(input.Password); err != nil {
		return nil, err
	}

	credential, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := domain.User{
		Name:   input.Name,
		Email:  input.Email,
		Admin:  input.Admin,
		Active: true,
	}

	created, err := s.users.Create(ctx, user, credential)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	event := domain.UserCreatedEvent{
		EventID:   uuid.NewString(),
		UserID:    strconv.FormatInt(created.ID, 10),
		Name:      created.Name,
		Email:     created.Email,
		Admin:     created.Admin,
		CreatedAt: created.CreatedAt,
	}
	if err := s.events.PublishUserCreated(ctx, event); err != nil {
		s.log.Warn("failed to publish user created event",
			zap.Int64("user_id", created.ID), zap.Error(err))
	}

	s.log.Info("user created",
		zap.Int64("user_id", created.ID),
		zap.String("email", logger.MaskEmail(created.Email)),
		zap.Bool("admin", created.Admin))

	return created, nil
}

// GetByID fetches a user by numeric identifier.
func (s *UserService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return user, nil
}

// GetByEmail fetches a user by email.
func (s *UserService) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return user, nil
}

// Delete removes a user by numeric identifier.
func (s *UserService) Delete(ctx context.Context, id int64) error {
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}
	s.log.Info("user deleted", zap.Int64("user_id", id))
	return nil
}

// DeleteByEmail removes a user by email.
func (s *UserService) DeleteByEmail(ctx context.Context, email string) error {
	if err := s.users.DeleteByEmail(ctx, email); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}
	s.log.Info("user deleted", zap.String("email", logger.MaskEmail(email)))
	return nil
}

// EnsureAdmin seeds the bootstrap administrator account when configured and
// absent. An already existing account is left untouched.
func (s *UserService) EnsureAdmin(ctx context.Context) error {
	if s.cfg == nil || s.cfg.Admin.Email == "" || s.cfg.Admin.Password == "" {
		return nil
	}

	if _, err := s.users.GetByEmail(ctx, s.cfg.Admin.Email); err == nil {
		return nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("lookup admin: %w", err)
	}

	name := s.cfg.Admin.Name
	if name == "" {
		name = "Administrator"
	}

	_, err := s.Create(ctx, CreateUserInput{
		Name:     name,
		Email:    s.cfg.Admin.Email,
		Password: s.cfg.Admin.Password,
		Admin:    true,
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return nil
		}
		return fmt.Errorf("seed admin: %w", err)
	}

	s.log.Info("bootstrap administrator seeded",
		zap.String("email", logger.MaskEmail(s.cfg.Admin.Email)))

	return nil
}

func validEmail(email string) bool {
	if email == "" || len(email) > maxEmailLength {
		return false
	}
	return emailPattern.MatchString(email)
}
