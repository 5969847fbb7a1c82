package port

import "github.com/nrodcast/account-service/internal/core/domain"

// PasswordPolicyValidator enforces password strength requirements.
type PasswordPolicyValidator interface {
	Validate(password string) error
}

// PasswordHasher derives and verifies persisted password credentials.
type PasswordHasher interface {
	Hash(password string) (domain.PersistedCredential, error)
	Verify(password string, credential domain.PersistedCredential) (bool, error)
}

// TokenSigner issues and verifies signed access tokens.
type TokenSigner interface {
	Sign(userID string, role string) (string, error)
	Verify(token string) (*AccessTokenClaims, error)
}

// AccessTokenClaims is the verified content of an access token.
type AccessTokenClaims struct {
	UserID string
	Role   string
}
