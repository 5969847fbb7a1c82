package handlers

import (
	"encoding/base64"
	"math/big"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nrodcast/account-service/internal/infra/security"
)

const jwksCacheControl = "public, max-age=3600"

// JWKSHandler publishes the public key material used to verify access tokens.
type JWKSHandler struct {
	provider security.KeyProvider
	kid      string
}

// NewJWKSHandler constructs a JWKS handler backed by the active key provider.
func NewJWKSHandler(provider security.KeyProvider, kid string) *JWKSHandler {
	return &JWKSHandler{provider: provider, kid: kid}
}

// Keys godoc
// @Summary Retrieve JSON Web Key Set
// @Description Exposes the public key used to verify access token signatures.
// @Tags Public
// @Produce json
// @Success 200 {object} JWKSResponse
// @Failure 503 {object} ErrorResponse
// @Router /.well-known/jwks.json [get]
func (h *JWKSHandler) Keys(c *gin.Context) {
	if h == nil || h.provider == nil {
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse(c, "jwks not available"))
		return
	}

	key, err := h.provider.GetVerificationKey(h.kid)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse(c, "jwks not available"))
		return
	}

	response := JWKSResponse{
		Keys: []JWKSKey{{
			Kty: "RSA",
			Use: "sig",
			Alg: "RS256",
			Kid: h.kid,
			N:   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
			E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
		}},
	}

	c.Header("Cache-Control", jwksCacheControl)
	c.JSON(http.StatusOK, response)
}
