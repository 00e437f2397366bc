package handlers

import (
	"errors"
	"strings"
	"time"

	"renteasy/internal/config"
	"renteasy/internal/core/domain"
	"renteasy/internal/core/services"
	"renteasy/internal/pkg/password"
	"renteasy/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService  *services.AuthService
	tokenService *services.TokenService
	cfg          *config.Config
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *services.AuthService, tokenService *services.TokenService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		tokenService: tokenService,
		cfg:          cfg,
	}
}

// LoginRequest represents login request body
type LoginRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	ReferralCode string `json:"referral_code"`
}

// VerifyEmailRequest represents email verification request body
type VerifyEmailRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// EmailRequest represents a request identified by email only
type EmailRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest represents the password reset confirmation body
type ResetPasswordRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

// ChangePasswordRequest represents the authenticated password change body
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// Login handles user login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if req.Email == "" {
		return response.BadRequest(c, "Email is required")
	}
	if req.Password == "" {
		return response.BadRequest(c, "Password is required")
	}

	input := &services.LoginInput{
		Email:        strings.TrimSpace(req.Email),
		Password:     req.Password,
		ReferralCode: strings.TrimSpace(req.ReferralCode),
	}

	result, err := h.authService.Login(c.Context(), input)
	if err != nil {
		return response.DomainError(c, err)
	}

	session := result.Session()
	h.setAuthCookies(c, session.AccessToken, session.RefreshToken)

	return response.Success(c, "Login successful", result)
}

// RefreshToken handles access token refresh. The refresh token itself is
// never rotated, so only the access token cookie is replaced.
func (h *AuthHandler) RefreshToken(c *fiber.Ctx) error {
	refreshToken := c.Cookies("refresh_token")
	if refreshToken == "" {
		var req struct {
			RefreshToken string `json:"refresh_token"`
		}
		if err := c.BodyParser(&req); err == nil {
			refreshToken = req.RefreshToken
		}
	}
	if refreshToken == "" {
		return response.Unauthorized(c, "Refresh token not found")
	}

	accessToken, expiresIn, err := h.tokenService.RefreshAccess(c.Context(), refreshToken)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrTokenExpired):
			h.clearAuthCookies(c)
			return response.Unauthorized(c, "Refresh token expired, please login again")
		case errors.Is(err, domain.ErrTokenInvalid):
			h.clearAuthCookies(c)
			return response.Unauthorized(c, "Invalid refresh token")
		default:
			return response.DomainError(c, err)
		}
	}

	h.setAccessCookie(c, accessToken)

	return response.Success(c, "Token refreshed successfully", fiber.Map{
		"access_token": accessToken,
		"expires_in":   expiresIn,
	})
}

// Logout clears the session cookies. Tokens are stateless so there is
// nothing to revoke server-side.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	h.clearAuthCookies(c)
	return response.Success(c, "Logged out successfully", nil)
}

// Me returns the current user info
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	user, err := h.authService.GetUserByID(c.Context(), userID)
	if err != nil {
		return response.NotFound(c, "User not found")
	}

	return response.Success(c, "User retrieved successfully", fiber.Map{
		"user": user.ToResponse(),
	})
}

// VerifyEmail confirms an email verification code
func (h *AuthHandler) VerifyEmail(c *fiber.Ctx) error {
	var req VerifyEmailRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if req.Email == "" {
		return response.BadRequest(c, "Email is required")
	}
	if req.Code == "" {
		return response.BadRequest(c, "Verification code is required")
	}

	user, err := h.authService.VerifyEmail(c.Context(), strings.TrimSpace(req.Email), strings.TrimSpace(req.Code))
	if err != nil {
		return response.DomainError(c, err)
	}

	return response.Success(c, "Email verified successfully", fiber.Map{
		"user": user,
	})
}

// ResendVerification re-issues the email verification code. The response is
// identical for unknown emails.
func (h *AuthHandler) ResendVerification(c *fiber.Ctx) error {
	var req EmailRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if req.Email == "" {
		return response.BadRequest(c, "Email is required")
	}

	if err := h.authService.ResendVerification(c.Context(), strings.TrimSpace(req.Email)); err != nil {
		return response.DomainError(c, err)
	}

	return response.Success(c, "If the email is registered, a verification code has been sent", nil)
}

// RequestPasswordReset issues a password reset code. The response is
// identical for unknown emails.
func (h *AuthHandler) RequestPasswordReset(c *fiber.Ctx) error {
	var req EmailRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if req.Email == "" {
		return response.BadRequest(c, "Email is required")
	}

	if err := h.authService.RequestPasswordReset(c.Context(), strings.TrimSpace(req.Email)); err != nil {
		return response.DomainError(c, err)
	}

	return response.Success(c, "If the email is registered, a reset code has been sent", nil)
}

// VerifyResetCode checks a password reset code ahead of the actual reset
func (h *AuthHandler) VerifyResetCode(c *fiber.Ctx) error {
	var req VerifyEmailRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if req.Email == "" {
		return response.BadRequest(c, "Email is required")
	}
	if req.Code == "" {
		return response.BadRequest(c, "Reset code is required")
	}

	if err := h.authService.VerifyResetCode(c.Context(), strings.TrimSpace(req.Email), strings.TrimSpace(req.Code)); err != nil {
		return response.DomainError(c, err)
	}

	return response.Success(c, "Reset code is valid", nil)
}

// ResetPassword sets a new password using a verified reset code
func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req ResetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if req.Email == "" {
		return response.BadRequest(c, "Email is required")
	}
	if req.Code == "" {
		return response.BadRequest(c, "Reset code is required")
	}
	if err := password.ValidatePassword(req.NewPassword); err != nil {
		return response.BadRequest(c, err.Error())
	}

	if err := h.authService.ResetPassword(c.Context(), strings.TrimSpace(req.Email), strings.TrimSpace(req.Code), req.NewPassword); err != nil {
		return response.DomainError(c, err)
	}

	return response.Success(c, "Password reset successfully", nil)
}

// ChangePassword changes the authenticated user's password
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var req ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if req.OldPassword == "" {
		return response.BadRequest(c, "Current password is required")
	}
	if err := password.ValidatePassword(req.NewPassword); err != nil {
		return response.BadRequest(c, err.Error())
	}

	if err := h.authService.ChangePassword(c.Context(), userID, req.OldPassword, req.NewPassword); err != nil {
		return response.DomainError(c, err)
	}

	return response.Success(c, "Password changed successfully", nil)
}

// setAuthCookies sets access and refresh token cookies
func (h *AuthHandler) setAuthCookies(c *fiber.Ctx, accessToken, refreshToken string) {
	h.setAccessCookie(c, accessToken)

	c.Cookie(&fiber.Cookie{
		Name:     "refresh_token",
		Value:    refreshToken,
		Path:     "/",
		MaxAge:   h.cfg.JWT.RefreshTokenDays * 24 * 60 * 60,
		Secure:   h.cfg.Cookie.Secure,
		HTTPOnly: true,
		SameSite: h.cfg.Cookie.SameSite,
		Domain:   h.cfg.Cookie.Domain,
	})
}

// setAccessCookie sets only the access token cookie
func (h *AuthHandler) setAccessCookie(c *fiber.Ctx, accessToken string) {
	c.Cookie(&fiber.Cookie{
		Name:     "access_token",
		Value:    accessToken,
		Path:     "/",
		MaxAge:   h.cfg.JWT.AccessTokenMins * 60,
		Secure:   h.cfg.Cookie.Secure,
		HTTPOnly: true,
		SameSite: h.cfg.Cookie.SameSite,
		Domain:   h.cfg.Cookie.Domain,
	})
}

// clearAuthCookies clears auth cookies
func (h *AuthHandler) clearAuthCookies(c *fiber.Ctx) {
	for _, name := range []string{"access_token", "refresh_token"} {
		c.Cookie(&fiber.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			Expires:  time.Now().Add(-1 * time.Hour),
			Secure:   h.cfg.Cookie.Secure,
			HTTPOnly: true,
			SameSite: h.cfg.Cookie.SameSite,
			Domain:   h.cfg.Cookie.Domain,
		})
	}
}
