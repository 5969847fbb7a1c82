package handlers

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nrodcast/account-service/internal/infra/telemetry"
	"github.com/nrodcast/account-service/internal/transport/http/middleware"
	"github.com/nrodcast/account-service/internal/usecase"
)

const signInFailureMessage = "Email or password is incorrect"

// AuthHandler exposes authentication endpoints.
type AuthHandler struct {
	auth      *usecase.AuthService
	telemetry *telemetry.Provider
	tokenTTL  time.Duration
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(auth *usecase.AuthService, provider *telemetry.Provider, tokenTTL time.Duration) *AuthHandler {
	return &AuthHandler{auth: auth, telemetry: provider, tokenTTL: tokenTTL}
}

// RegisterRoutes attaches authentication endpoints to the provided group.
func (h *AuthHandler) RegisterRoutes(group *gin.RouterGroup, extra ...gin.HandlerFunc) {
	chain := append([]gin.HandlerFunc{}, extra...)
	chain = append(chain, h.SignIn)
	group.POST("/signin", chain...)
}

// SignIn godoc
// @Summary Authenticate with email and password
// @Description Verifies credentials and issues a bearer access token. Every
// @Description failure cause produces the same response so callers cannot
// @Description probe which accounts exist.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body SignInRequest true "Credentials"
// @Success 200 {object} SignInResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 429 {object} middleware.ProblemDetails
// @Router /api/v1/auth/signin [post]
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "email and password are required"))
		return
	}

	token, user, err := h.auth.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.telemetry.CountSignIn("failure")

		var rateErr *usecase.RateLimitExceededError
		if errors.As(err, &rateErr) {
			respondRateLimitExceeded(c, rateErr)
			return
		}

		if errors.Is(err, usecase.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, NewErrorResponse(c, signInFailureMessage))
			return
		}

		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "authentication failed"))
		return
	}

	h.telemetry.CountSignIn("success")

	c.JSON(http.StatusOK, SignInResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(h.tokenTTL / time.Second),
		User:        newUserSummary(*user),
	})
}

func respondRateLimitExceeded(c *gin.Context, rateErr *usecase.RateLimitExceededError) {
	retrySeconds := int(math.Ceil(rateErr.RetryAfter.Seconds()))
	if retrySeconds < 0 {
		retrySeconds = 0
	}

	c.Writer.Header().Set("Retry-After", fmt.Sprintf("%d", retrySeconds))

	instance := c.FullPath()
	if instance == "" {
		instance = c.Request.URL.Path
	}

	problem := middleware.ProblemDetails{
		Type:       "https://account-service.nrodcast.example.com/errors/rate-limit-exceeded",
		Title:      "Rate Limit Exceeded",
		Status:     http.StatusTooManyRequests,
		Detail:     fmt.Sprintf("Too many attempts. Try again in %d seconds.", retrySeconds),
		Instance:   instance,
		RetryAfter: retrySeconds,
		TraceID:    middleware.GetTraceID(c),
	}

	c.JSON(http.StatusTooManyRequests, problem)
}
