package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nrodcast/account-service/internal/infra/security"
	"github.com/nrodcast/account-service/internal/transport/http/middleware"
	"github.com/nrodcast/account-service/internal/usecase"
)

// UserHandler exposes account lifecycle endpoints.
type UserHandler struct {
	users *usecase.UserService
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(users *usecase.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// RegisterRoutes attaches user management endpoints to the provided group.
// The adminOnly middleware guards every route; user records carry credential
// material references and are not self-service.
func (h *UserHandler) RegisterRoutes(group *gin.RouterGroup, adminOnly ...gin.HandlerFunc) {
	group.POST("", append(append([]gin.HandlerFunc{}, adminOnly...), h.Create)...)
	group.GET("/:id", append(append([]gin.HandlerFunc{}, adminOnly...), h.GetByID)...)
	group.DELETE("/:id", append(append([]gin.HandlerFunc{}, adminOnly...), h.Delete)...)
	group.GET("", append(append([]gin.HandlerFunc{}, adminOnly...), h.GetByEmail)...)
	group.DELETE("", append(append([]gin.HandlerFunc{}, adminOnly...), h.DeleteByEmail)...)
}

// Create godoc
// @Summary Register a new account
// @Tags Users
// @Accept json
// @Produce json
// @Param request body CreateUserRequest true "Account payload"
// @Success 201 {object} UserSummary
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/users [post]
func (h *UserHandler) Create(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "name, email and password are required"))
		return
	}

	user, err := h.users.Create(c.Request.Context(), usecase.CreateUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Admin:    req.Admin,
	})
	if err != nil {
		var policyErr *security.PasswordValidationError
		if errors.As(err, &policyErr) {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, policyErr.Message))
			return
		}

		respondError(c, err, http.StatusInternalServerError, "failed to create user",
			statusFor{err: usecase.ErrInvalidEmail, status: http.StatusBadRequest, message: "invalid email address"},
			statusFor{err: usecase.ErrDuplicateEmail, status: http.StatusConflict, message: "email already registered"})
		return
	}

	c.JSON(http.StatusCreated, newUserSummary(*user))
}

// GetByID godoc
// @Summary Fetch an account by ID
// @Tags Users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} UserSummary
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/users/{id} [get]
func (h *UserHandler) GetByID(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid user id"))
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, http.StatusInternalServerError, "failed to fetch user",
			statusFor{err: usecase.ErrUserNotFound, status: http.StatusNotFound, message: "user not found"})
		return
	}

	c.JSON(http.StatusOK, newUserSummary(*user))
}

// Me godoc
// @Summary Fetch the authenticated account
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} UserSummary
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/users/me [get]
func (h *UserHandler) Me(c *gin.Context) {
	subject, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	id, err := strconv.ParseInt(subject, 10, 64)
	if err != nil {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid token subject"))
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, http.StatusInternalServerError, "failed to fetch user",
			statusFor{err: usecase.ErrUserNotFound, status: http.StatusNotFound, message: "user not found"})
		return
	}

	c.JSON(http.StatusOK, newUserSummary(*user))
}

// GetByEmail resolves an account by the email query parameter.
func (h *UserHandler) GetByEmail(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "email query parameter is required"))
		return
	}

	user, err := h.users.GetByEmail(c.Request.Context(), email)
	if err != nil {
		respondError(c, err, http.StatusInternalServerError, "failed to fetch user",
			statusFor{err: usecase.ErrUserNotFound, status: http.StatusNotFound, message: "user not found"})
		return
	}

	c.JSON(http.StatusOK, newUserSummary(*user))
}

// Delete godoc
// @Summary Remove an account by ID
// @Tags Users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} MessageResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/users/{id} [delete]
func (h *UserHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid user id"))
		return
	}

	if err := h.users.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err, http.StatusInternalServerError, "failed to delete user",
			statusFor{err: usecase.ErrUserNotFound, status: http.StatusNotFound, message: "user not found"})
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "user deleted"})
}

// DeleteByEmail removes an account by the email query parameter.
func (h *UserHandler) DeleteByEmail(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "email query parameter is required"))
		return
	}

	if err := h.users.DeleteByEmail(c.Request.Context(), email); err != nil {
		respondError(c, err, http.StatusInternalServerError, "failed to delete user",
			statusFor{err: usecase.ErrUserNotFound, status: http.StatusNotFound, message: "user not found"})
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "user deleted"})
}
