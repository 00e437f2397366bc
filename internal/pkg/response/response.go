package response

import (
	"errors"
	"strconv"
	"time"

	"renteasy/internal/core/domain"

	"github.com/gofiber/fiber/v2"
)

// Response represents a standard API response
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Success sends a success response
func Success(c *fiber.Ctx, message string, data interface{}) error {
	return c.JSON(Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Created sends a 201 created response
func Created(c *fiber.Ctx, message string, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Error sends an error response
func Error(c *fiber.Ctx, statusCode int, message string) error {
	return c.Status(statusCode).JSON(Response{
		Success: false,
		Error:   message,
	})
}

// BadRequest sends a 400 bad request response
func BadRequest(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusBadRequest, message)
}

// Unauthorized sends a 401 unauthorized response
func Unauthorized(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusUnauthorized, message)
}

// Forbidden sends a 403 forbidden response
func Forbidden(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusForbidden, message)
}

// NotFound sends a 404 not found response
func NotFound(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusNotFound, message)
}

// Conflict sends a 409 conflict response
func Conflict(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusConflict, message)
}

// InternalServerError sends a 500 internal server error response
func InternalServerError(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusInternalServerError, message)
}

// Throttled sends a 429 response with a Retry-After header and the wait
// time echoed in the payload
func Throttled(c *fiber.Ctx, message string, retryAfter time.Duration) error {
	seconds := int(retryAfter.Round(time.Second).Seconds())
	if seconds < 1 {
		seconds = 1
	}
	c.Set(fiber.HeaderRetryAfter, strconv.Itoa(seconds))
	return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
		"success":             false,
		"error":               message,
		"retry_after_seconds": seconds,
	})
}

// ReferralRequired sends the distinguished referral-required login
// rejection with the suggested fallback referrer payload
func ReferralRequired(c *fiber.Ctx, suggested *domain.SuggestedReferrer) error {
	return c.Status(fiber.StatusPreconditionRequired).JSON(fiber.Map{
		"success":            false,
		"error":              "referral code required to complete login",
		"suggested_referrer": suggested,
	})
}

// DomainError maps a core domain error to its transport response. Handlers
// use this as the default branch after handling flow-specific errors.
func DomainError(c *fiber.Ctx, err error) error {
	var throttled *domain.ThrottledError
	if errors.As(err, &throttled) {
		return Throttled(c, throttled.Reason, throttled.RetryAfter)
	}

	var referral *domain.ReferralRequiredError
	if errors.As(err, &referral) {
		return ReferralRequired(c, referral.Suggested)
	}

	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		return Unauthorized(c, "Invalid email or password")
	case errors.Is(err, domain.ErrAccountSuspended):
		return Forbidden(c, "Account is suspended")
	case errors.Is(err, domain.ErrAccountInactive):
		return Forbidden(c, "Account is inactive")
	case errors.Is(err, domain.ErrEmailNotVerified):
		return Forbidden(c, "Email address is not verified")
	case errors.Is(err, domain.ErrEmailTaken):
		return Conflict(c, "Email already registered")
	case errors.Is(err, domain.ErrReferralTaken):
		return Conflict(c, "Referral code already in use")
	case errors.Is(err, domain.ErrUserNotFound), errors.Is(err, domain.ErrProfileNotFound):
		return NotFound(c, "Resource not found")
	case errors.Is(err, domain.ErrReferralNotFound):
		return NotFound(c, "Referral code not found")
	case errors.Is(err, domain.ErrReferralFormat),
		errors.Is(err, domain.ErrReferralInvalid),
		errors.Is(err, domain.ErrReferralMismatch),
		errors.Is(err, domain.ErrPasswordRequired):
		return BadRequest(c, err.Error())
	case errors.Is(err, domain.ErrOTPNotFound):
		return NotFound(c, "No verification code found, please request a new one")
	case errors.Is(err, domain.ErrOTPExpired),
		errors.Is(err, domain.ErrOTPMismatch),
		errors.Is(err, domain.ErrOTPAlreadyVerified):
		return BadRequest(c, err.Error())
	case errors.Is(err, domain.ErrOTPMaxAttempts):
		return Error(c, fiber.StatusTooManyRequests, "Maximum verification attempts exceeded, please request a new code")
	case errors.Is(err, domain.ErrTokenExpired):
		return Unauthorized(c, "Token expired, please login again")
	case errors.Is(err, domain.ErrTokenInvalid):
		return Unauthorized(c, "Invalid token")
	default:
		return InternalServerError(c, "Something went wrong")
	}
}
