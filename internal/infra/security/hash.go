package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"

	"github.com/nrodcast/account-service/internal/core/domain"
	"github.com/nrodcast/account-service/internal/core/port"
)

var (
	// ErrEmptyPassword is returned when an empty password is submitted for hashing.
	ErrEmptyPassword = errors.New("password cannot be empty")
	// ErrInvalidCredentialRecord is returned when a stored credential is missing its salt or hash.
	ErrInvalidCredentialRecord = errors.New("invalid persisted credential")
)

// PBKDF2Params captures tunable parameters for the PBKDF2-SHA256 derivation.
type PBKDF2Params struct {
	Iterations int
	SaltLength int
	KeyLength  int
}

// DefaultPBKDF2Params returns the derivation parameters used for new credentials.
func DefaultPBKDF2Params() PBKDF2Params {
	return PBKDF2Params{
		Iterations: 3,
		SaltLength: 64,
		KeyLength:  256,
	}
}

// PasswordHasher derives persisted credentials with PBKDF2-SHA256.
// Salt and hash are stored hex encoded; the salt's hex form is the KDF input,
// so records remain verifiable across processes regardless of architecture.
type PasswordHasher struct {
	params PBKDF2Params
}

// NewPasswordHasher constructs a hasher with the provided parameters.
func NewPasswordHasher(params PBKDF2Params) *PasswordHasher {
	if params.Iterations <= 0 || params.SaltLength <= 0 || params.KeyLength <= 0 {
		params = DefaultPBKDF2Params()
	}
	return &PasswordHasher{params: params}
}

// Hash derives a fresh credential for the password. Each call draws a new
// random salt, so hashing the same password twice yields distinct records.
func (h *PasswordHasher) Hash(password string) (domain.PersistedCredential, error) {
	if password == "" {
		return domain.PersistedCredential{}, ErrEmptyPassword
	}

	salt := make([]byte, h.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return domain.PersistedCredential{}, fmt.Errorf("generate salt: %w", err)
	}

	encodedSalt := hex.EncodeToString(salt)
	key := pbkdf2.Key([]byte(password), []byte(encodedSalt), h.params.Iterations, h.params.KeyLength, sha256.New)

	return domain.PersistedCredential{
		Salt:       encodedSalt,
		Hash:       hex.EncodeToString(key),
		Iterations: h.params.Iterations,
	}, nil
}

// Verify recomputes the derivation with the credential's own salt and
// iteration count and compares in constant time. A wrong password is
// (false, nil); only a malformed stored record is an error.
func (h *PasswordHasher) Verify(password string, credential domain.PersistedCredential) (bool, error) {
	if credential.Hash == "" || credential.Salt == "" {
		return false, ErrInvalidCredentialRecord
	}

	iterations := credential.Iterations
	if iterations <= 0 {
		iterations = h.params.Iterations
	}

	stored, err := hex.DecodeString(credential.Hash)
	if err != nil {
		return false, fmt.Errorf("decode stored hash: %w", err)
	}

	computed := pbkdf2.Key([]byte(password), []byte(credential.Salt), iterations, len(stored), sha256.New)

	return subtle.ConstantTimeCompare(computed, stored) == 1, nil
}

var _ port.PasswordHasher = (*PasswordHasher)(nil)
