package port

import (
	"context"

	"github.com/nrodcast/account-service/internal/core/domain"
)

// UserRepository exposes persistence behavior for users and their credentials.
type UserRepository interface {
	Create(ctx context.Context, user domain.User, credential domain.PersistedCredential) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Delete(ctx context.Context, id int64) error
	DeleteByEmail(ctx context.Context, email string) error
	GetCredentialByEmail(ctx context.Context, email string) (*domain.PersistedCredential, error)
	ReplaceCredential(ctx context.Context, email string, credential domain.PersistedCredential) error
}
