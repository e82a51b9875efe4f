package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"hacker-tracker.backend/internal/domain/entities"
	domainerrors "hacker-tracker.backend/internal/domain/errors"
	"hacker-tracker.backend/internal/interfaces/http/middleware"
	"hacker-tracker.backend/internal/interfaces/http/response"
	"hacker-tracker.backend/pkg/jwt"
	"hacker-tracker.backend/pkg/logger"
	"hacker-tracker.backend/pkg/utils"
)

const (
	accessTokenCookie  = "token"
	refreshTokenCookie = "refresh_token"
)

// AuthService is the part of the auth usecase the handler depends on
type AuthService interface {
	Register(ctx context.Context, input *entities.RegisterInput) (*entities.AuthResponse, error)
	Login(ctx context.Context, input *entities.LoginInput) (*entities.AuthResponse, error)
	ConfirmEmail(ctx context.Context, input *entities.ConfirmEmailInput) error
	ResendConfirmation(ctx context.Context, userID uuid.UUID) error
	RefreshToken(ctx context.Context, refreshToken string) (*jwt.TokenPair, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*entities.User, error)
	LatestConfirmationCode(ctx context.Context, userID uuid.UUID) (*string, error)
}

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService   AuthService
	secureCookies bool
}

// NewAuthHandler creates a new auth handler. secureCookies marks the token
// cookies Secure and should be set outside local development.
func NewAuthHandler(authService AuthService, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		authService:   authService,
		secureCookies: secureCookies,
	}
}

// Register handles user registration
// POST /api/v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var input entities.RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest("Invalid request body"))
		return
	}

	resp, err := h.authService.Register(c.Request.Context(), &input)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.setTokenCookies(c, resp.AccessToken, resp.RefreshToken)
	response.Success(c, http.StatusCreated, resp)
}

// Login handles user login
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var input entities.LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest("Email and password are required"))
		return
	}

	resp, err := h.authService.Login(c.Request.Context(), &input)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.setTokenCookies(c, resp.AccessToken, resp.RefreshToken)
	response.Success(c, http.StatusOK, resp)
}

// ConfirmEmail checks a confirmation code
// POST /api/v1/auth/confirm-email
func (h *AuthHandler) ConfirmEmail(c *gin.Context) {
	var input entities.ConfirmEmailInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest("User ID and code are required"))
		return
	}

	if err := h.authService.ConfirmEmail(c.Request.Context(), &input); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"success": true,
		"message": "Email confirmed successfully",
	})
}

// ResendConfirmation issues a fresh code for the authenticated user
// POST /api/v1/auth/resend-confirmation
func (h *AuthHandler) ResendConfirmation(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Error(c, domainerrors.Unauthorized("Unauthorized"))
		return
	}

	if err := h.authService.ResendConfirmation(c.Request.Context(), userID); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"success": true,
		"message": "Confirmation email sent",
	})
}

// RefreshToken handles token refresh
// POST /api/v1/auth/refresh
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var refreshToken string

	if c.Request.ContentLength > 0 {
		var input struct {
			RefreshToken string `json:"refreshToken"`
		}
		if err := c.ShouldBindJSON(&input); err == nil {
			refreshToken = input.RefreshToken
		} else {
			logger.Debug(c.Request.Context(), "Refresh body not bound", zap.Error(err))
		}
	}

	if refreshToken == "" {
		if cookie, err := c.Cookie(refreshTokenCookie); err == nil {
			refreshToken = cookie
		}
	}

	if refreshToken == "" {
		response.Error(c, domainerrors.BadRequest("Refresh token is required"))
		return
	}

	tokenPair, err := h.authService.RefreshToken(c.Request.Context(), refreshToken)
	if err != nil {
		var appErr *domainerrors.AppError
		if errors.As(err, &appErr) {
			response.Error(c, err)
			return
		}
		response.Error(c, domainerrors.NewAppError(http.StatusUnauthorized, domainerrors.CodeUnauthorized, "Invalid or expired refresh token", err))
		return
	}

	h.setTokenCookies(c, tokenPair.AccessToken, tokenPair.RefreshToken)
	response.Success(c, http.StatusOK, gin.H{
		"accessToken":  tokenPair.AccessToken,
		"refreshToken": tokenPair.RefreshToken,
	})
}

// Logout clears the token cookies. Tokens are stateless and expire on their own.
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetCookie(accessTokenCookie, "", -1, "/", "", h.secureCookies, true)
	c.SetCookie(refreshTokenCookie, "", -1, "/", "", h.secureCookies, true)
	response.Success(c, http.StatusOK, gin.H{"success": true})
}

// GetMe returns current authenticated user details
// GET /api/v1/auth/me
func (h *AuthHandler) GetMe(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Error(c, domainerrors.Unauthorized("Unauthorized"))
		return
	}

	user, err := h.authService.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			response.Error(c, domainerrors.NotFound("User not found"))
			return
		}
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"user":                      user,
		"requiresEmailConfirmation": !user.EmailConfirmed,
	})
}

// GetTestConfirmationCode returns the newest unused code of a user. Only
// routed in development and test.
// GET /api/v1/auth/test/confirmation-code/:userId
func (h *AuthHandler) GetTestConfirmationCode(c *gin.Context) {
	userID, ok := utils.ParseUUID(c.Param("userId"))
	if !ok {
		response.Error(c, domainerrors.BadRequest("Invalid user ID"))
		return
	}

	code, err := h.authService.LatestConfirmationCode(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if code == nil {
		response.Error(c, domainerrors.NotFound("No unused confirmation code"))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"code": *code})
}

func (h *AuthHandler) setTokenCookies(c *gin.Context, accessToken, refreshToken string) {
	c.SetCookie(accessTokenCookie, accessToken, 3600*24, "/", "", h.secureCookies, true)
	c.SetCookie(refreshTokenCookie, refreshToken, 3600*24*7, "/", "", h.secureCookies, true)
}
