package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nrodcast/account-service/internal/infra/security"
	"github.com/nrodcast/account-service/internal/infra/telemetry"
	"github.com/nrodcast/account-service/internal/usecase"
)

// PasswordHandler exposes the password reset endpoint.
type PasswordHandler struct {
	reset     *usecase.PasswordResetService
	telemetry *telemetry.Provider
}

// NewPasswordHandler constructs a PasswordHandler.
func NewPasswordHandler(reset *usecase.PasswordResetService, provider *telemetry.Provider) *PasswordHandler {
	return &PasswordHandler{reset: reset, telemetry: provider}
}

// RegisterRoutes attaches the reset endpoint to the provided group.
func (h *PasswordHandler) RegisterRoutes(group *gin.RouterGroup, extra ...gin.HandlerFunc) {
	chain := append([]gin.HandlerFunc{}, extra...)
	chain = append(chain, h.ResetPassword)
	group.POST("/reset-password", chain...)
}

// ResetPassword godoc
// @Summary Request or complete a password reset
// @Description Without a token, mails a single-use reset code to the account
// @Description and answers "The token was sent to the email". With a token,
// @Description consumes the code and answers "The password has been changed".
// @Tags Users
// @Accept json
// @Produce json
// @Param request body ResetPasswordRequest true "Reset payload"
// @Success 200 {object} ResetPasswordResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 429 {object} middleware.ProblemDetails
// @Router /api/v1/users/reset-password [post]
func (h *PasswordHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "email and password are required"))
		return
	}

	message, err := h.reset.ResetPassword(c.Request.Context(), usecase.ResetPasswordInput{
		Email:    req.Email,
		Password: req.Password,
		Token:    req.Token,
		IP:       c.ClientIP(),
	})
	if err != nil {
		h.respondResetError(c, err, req)
		return
	}

	if req.Token == "" {
		h.telemetry.CountReset("requested")
	} else {
		h.telemetry.CountReset("redeemed")
	}

	c.JSON(http.StatusOK, ResetPasswordResponse{Email: req.Email, Message: message})
}

func (h *PasswordHandler) respondResetError(c *gin.Context, err error, req ResetPasswordRequest) {
	var rateErr *usecase.RateLimitExceededError
	if errors.As(err, &rateErr) {
		respondRateLimitExceeded(c, rateErr)
		return
	}

	var policyErr *security.PasswordValidationError
	if errors.As(err, &policyErr) {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, policyErr.Message))
		return
	}

	if errors.Is(err, usecase.ErrUserNotFound) {
		// An unknown account answers byte-for-byte like a known one: the
		// issue path pretends a code was mailed and the redeem path reports
		// a bad token, so the endpoint never reveals whether the email is
		// registered.
		if req.Token == "" {
			c.JSON(http.StatusOK, ResetPasswordResponse{Email: req.Email, Message: usecase.MsgResetTokenSent})
			return
		}
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "Invalid token"))
		return
	}

	if errors.Is(err, usecase.ErrInvalidResetToken) {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "Invalid token"))
		return
	}

	c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to reset password"))
}
