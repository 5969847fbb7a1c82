package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	uuid "github.com/google/uuid"

	"github.com/nrodcast/account-service/internal/core/port"
)

var (
	// ErrTokenExpired indicates the token was well formed but past its expiry.
	ErrTokenExpired = errors.New("jwt: token expired")
	// ErrTokenInvalid covers malformed tokens, bad signatures and unknown keys.
	ErrTokenInvalid = errors.New("jwt: token invalid")
	// ErrKeyIDMissing indicates no kid is associated with the supplied key.
	ErrKeyIDMissing = errors.New("jwt: missing key identifier")
)

const defaultAccessTokenTTL = time.Hour

// AccessTokenClaims carries the subject user and optional role marker.
type AccessTokenClaims struct {
	UserID string `json:"uid"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies RS256 access tokens.
type TokenIssuer struct {
	keyProvider KeyProvider
	kid         string
	issuer      string
	ttl         time.Duration
	now         func() time.Time
}

// TokenIssuerOptions configures a TokenIssuer.
type TokenIssuerOptions struct {
	Issuer string
	TTL    time.Duration
}

// NewTokenIssuer constructs an issuer signing with the provider's key under the given kid.
func NewTokenIssuer(provider KeyProvider, kid string, opts TokenIssuerOptions) (*TokenIssuer, error) {
	if provider == nil {
		return nil, fmt.Errorf("jwt: key provider required")
	}
	kid = strings.TrimSpace(kid)
	if kid == "" {
		return nil, ErrKeyIDMissing
	}

	ttl := opts.TTL
	if ttl <= 0 {
		ttl = defaultAccessTokenTTL
	}

	return &TokenIssuer{
		keyProvider: provider,
		kid:         kid,
		issuer:      strings.TrimSpace(opts.Issuer),
		ttl:         ttl,
		now:         time.Now,
	}, nil
}

// WithClock overrides the time source, used by tests to pin expiry.
func (t *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	if now != nil {
		t.now = now
	}
	return t
}

// Sign issues a compact token for the user. An empty role is omitted from
// the claims entirely rather than serialized as an empty string.
func (t *TokenIssuer) Sign(userID string, role string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", fmt.Errorf("jwt: user id is required")
	}

	now := t.now().UTC()
	claims := &AccessTokenClaims{
		UserID: userID,
		Role:   strings.TrimSpace(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
			ID:        uuid.NewString(),
		},
	}

	signingKey, err := t.keyProvider.GetSigningKey()
	if err != nil {
		return "", fmt.Errorf("jwt: get signing key: %w", err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = t.kid

	signed, err := token.SignedString(signingKey)
	if err != nil {
		return "", fmt.Errorf("jwt: sign token: %w", err)
	}

	return signed, nil
}

// Verify parses and validates a compact token. Expiry maps to ErrTokenExpired;
// every other parse or signature failure collapses to ErrTokenInvalid so
// callers cannot distinguish forged from garbled input.
func (t *TokenIssuer) Verify(tokenString string) (*port.AccessTokenClaims, error) {
	claims := &AccessTokenClaims{}

	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			return nil, ErrKeyIDMissing
		}
		return t.keyProvider.GetVerificationKey(kid)
	}, jwt.WithTimeFunc(t.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	if !parsed.Valid {
		return nil, ErrTokenInvalid
	}

	return &port.AccessTokenClaims{
		UserID: claims.UserID,
		Role:   claims.Role,
	}, nil
}

var _ port.TokenSigner = (*TokenIssuer)(nil)
