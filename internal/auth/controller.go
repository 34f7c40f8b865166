package auth

import (
	"errors"
	"io"
	"net/http"

	"issuetrack/internal/shared/middleware"
	"issuetrack/internal/shared/token"
	"issuetrack/internal/shared/utils/response"
	"issuetrack/internal/users"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// Client-facing text shared by every login failure, so responses do not
// reveal whether an email is registered.
const invalidLoginMessage = "Invalid email or password"

type Controller struct {
	service   Service
	validator *validator.Validate
}

func NewController(service Service) *Controller {
	return &Controller{
		service:   service,
		validator: validator.New(),
	}
}

func (c *Controller) Register(ctx *gin.Context) {
	var req RegisterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, response.StatusError, http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	if err := c.validator.Struct(&req); err != nil {
		response.RespondJSON(ctx, response.StatusError, http.StatusBadRequest, "Validation failed", nil, err.Error())
		return
	}

	resp, err := c.service.Register(ctx.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrUserAlreadyExists):
			response.RespondJSON(ctx, response.StatusError, http.StatusConflict, "User already exists", nil, nil)
		case errors.Is(err, ErrInvalidRole):
			response.RespondJSON(ctx, response.StatusError, http.StatusBadRequest, "Role must be one of "+users.RoleList(), nil, nil)
		case errors.Is(err, ErrRoleNotAllowed):
			response.RespondJSON(ctx, response.StatusError, http.StatusForbidden, "Privileged roles cannot be self-assigned", nil, nil)
		default:
			response.RespondJSON(ctx, response.StatusError, http.StatusInternalServerError, "Failed to register user", nil, nil)
		}
		return
	}

	response.RespondJSON(ctx, response.StatusSuccess, http.StatusCreated, "User registered successfully", resp, nil)
}

func (c *Controller) Login(ctx *gin.Context) {
	var req LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, response.StatusError, http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	if err := c.validator.Struct(&req); err != nil {
		response.RespondJSON(ctx, response.StatusError, http.StatusBadRequest, "Validation failed", nil, err.Error())
		return
	}

	resp, err := c.service.Login(ctx.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrUserNotFound):
			response.RespondJSON(ctx, response.StatusError, http.StatusUnauthorized, invalidLoginMessage, nil, nil)
		default:
			response.RespondJSON(ctx, response.StatusError, http.StatusInternalServerError, "Failed to login", nil, nil)
		}
		return
	}

	response.RespondJSON(ctx, response.StatusSuccess, http.StatusOK, "Login successful", resp, nil)
}

func (c *Controller) RefreshToken(ctx *gin.Context) {
	// an empty body is a missing token, not a malformed request
	var req RefreshTokenRequest
	if err := ctx.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.RespondJSON(ctx, response.StatusError, http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	tokenPair, err := c.service.RefreshToken(ctx.Request.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, token.ErrTokenMissing):
			response.RespondJSON(ctx, response.StatusError, http.StatusUnauthorized, "Refresh token missing", nil, nil)
		case errors.Is(err, token.ErrTokenInvalid):
			response.RespondJSON(ctx, response.StatusError, http.StatusUnauthorized, "Invalid or expired refresh token", nil, nil)
		case errors.Is(err, ErrUserNotFound):
			response.RespondJSON(ctx, response.StatusError, http.StatusUnauthorized, "User not found", nil, nil)
		default:
			response.RespondJSON(ctx, response.StatusError, http.StatusInternalServerError, "Failed to refresh token", nil, nil)
		}
		return
	}

	response.RespondJSON(ctx, response.StatusSuccess, http.StatusOK, "Token refreshed successfully", tokenPair, nil)
}

// Logout is an acknowledgement only: tokens are stateless and the client
// discards them.
func (c *Controller) Logout(ctx *gin.Context) {
	response.RespondJSON(ctx, response.StatusSuccess, http.StatusOK, "Logged out successfully", nil, nil)
}

func (c *Controller) ChangePassword(ctx *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(ctx)
	if !ok {
		response.RespondJSON(ctx, response.StatusError, http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	var req ChangePasswordRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, response.StatusError, http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	if err := c.validator.Struct(&req); err != nil {
		response.RespondJSON(ctx, response.StatusError, http.StatusBadRequest, "Validation failed", nil, err.Error())
		return
	}

	err := c.service.ChangePassword(ctx.Request.Context(), claims.ID, &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			response.RespondJSON(ctx, response.StatusError, http.StatusUnauthorized, "Current password is incorrect", nil, nil)
		case errors.Is(err, ErrUserNotFound):
			response.RespondJSON(ctx, response.StatusError, http.StatusNotFound, "User not found", nil, nil)
		default:
			response.RespondJSON(ctx, response.StatusError, http.StatusInternalServerError, "Failed to change password", nil, nil)
		}
		return
	}

	response.RespondJSON(ctx, response.StatusSuccess, http.StatusOK, "Password changed successfully", nil, nil)
}

func (c *Controller) GetMe(ctx *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(ctx)
	if !ok {
		response.RespondJSON(ctx, response.StatusError, http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	response.RespondJSON(ctx, response.StatusSuccess, http.StatusOK, "User data retrieved successfully", claims, nil)
}

func (c *Controller) ListUsers(ctx *gin.Context) {
	list, err := c.service.ListUsers(ctx.Request.Context())
	if err != nil {
		response.RespondJSON(ctx, response.StatusError, http.StatusInternalServerError, "Failed to list users", nil, nil)
		return
	}

	response.RespondJSON(ctx, response.StatusSuccess, http.StatusOK, "Users retrieved successfully", list, nil)
}
