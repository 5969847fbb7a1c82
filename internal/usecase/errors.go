package usecase

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrInvalidCredentials indicates the provided email or password are incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound indicates no account exists for the requested identifier.
	ErrUserNotFound = errors.New("user not found")
	// ErrDuplicateEmail indicates the email is already registered.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrInvalidEmail indicates the email failed syntactic validation.
	ErrInvalidEmail = errors.New("invalid email address")
	// ErrInvalidResetToken indicates the reset token does not match or was already used.
	ErrInvalidResetToken = errors.New("invalid token")
	// ErrInvalidAccessToken indicates the access token is malformed or its signature failed validation.
	ErrInvalidAccessToken = errors.New("invalid access token")
	// ErrExpiredAccessToken indicates the access token has expired.
	ErrExpiredAccessToken = errors.New("access token expired")
)

// RateLimitExceededError signals that an identifier exhausted its attempt
// budget for a scope. RetryAfter is the wait until the oldest attempt leaves
// the window.
type RateLimitExceededError struct {
	Scope      string
	RetryAfter time.Duration
}

func (e *RateLimitExceededError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limit exceeded for %s, retry after %s", e.Scope, e.RetryAfter)
	}
	return fmt.Sprintf("rate limit exceeded for %s", e.Scope)
}

// normalizeEmailKey canonicalizes an email for lookups and rate-limit keys.
func normalizeEmailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
