package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIssuer(t *testing.T, opts TokenIssuerOptions) *TokenIssuer {
	t.Helper()

	provider, err := NewEphemeralKeyProvider("test-key")
	require.NoError(t, err)

	issuer, err := NewTokenIssuer(provider, provider.SigningKID(), opts)
	require.NoError(t, err)
	return issuer
}

func TestTokenIssuerRoundTrip(t *testing.T) {
	issuer := newTestIssuer(t, TokenIssuerOptions{Issuer: "account-service", TTL: time.Hour})

	token, err := issuer.Sign("42", "admin")
	require.NoError(t, err)
	assert.NotContains(t, token, " ")

	claims, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.UserID)
	assert.Equal(t, "admin", claims.Role)
}

func TestTokenIssuerOmitsEmptyRole(t *testing.T) {
	issuer := newTestIssuer(t, TokenIssuerOptions{TTL: time.Hour})

	token, err := issuer.Sign("42", "")
	require.NoError(t, err)

	claims, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Empty(t, claims.Role)
}

func TestTokenIssuerExpiry(t *testing.T) {
	issued := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	issuer := newTestIssuer(t, TokenIssuerOptions{TTL: time.Hour}).WithClock(func() time.Time { return issued })

	token, err := issuer.Sign("42", "")
	require.NoError(t, err)

	// Still valid just before expiry.
	issuer.WithClock(func() time.Time { return issued.Add(59 * time.Minute) })
	_, err = issuer.Verify(token)
	require.NoError(t, err)

	issuer.WithClock(func() time.Time { return issued.Add(61 * time.Minute) })
	_, err = issuer.Verify(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenIssuerRejectsForeignKey(t *testing.T) {
	issuer := newTestIssuer(t, TokenIssuerOptions{TTL: time.Hour})
	other := newTestIssuer(t, TokenIssuerOptions{TTL: time.Hour})

	token, err := other.Sign("42", "")
	require.NoError(t, err)

	_, err = issuer.Verify(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenIssuerRejectsGarbage(t *testing.T) {
	issuer := newTestIssuer(t, TokenIssuerOptions{TTL: time.Hour})

	for _, input := range []string{"", "not-a-token", "aaaa.bbbb.cccc"} {
		_, err := issuer.Verify(input)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	}
}
