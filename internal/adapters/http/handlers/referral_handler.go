package handlers

import (
	"strings"

	"renteasy/internal/core/services"
	"renteasy/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// ReferralHandler handles referral code endpoints
type ReferralHandler struct {
	authService     *services.AuthService
	referralService *services.ReferralService
}

// NewReferralHandler creates a new referral handler
func NewReferralHandler(authService *services.AuthService, referralService *services.ReferralService) *ReferralHandler {
	return &ReferralHandler{
		authService:     authService,
		referralService: referralService,
	}
}

// ValidateRequest represents a referral code validation request body
type ValidateRequest struct {
	Code string `json:"code"`
}

// MyCode returns the authenticated referrer's own code
func (h *ReferralHandler) MyCode(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	user, err := h.authService.GetUserByID(c.Context(), userID)
	if err != nil {
		return response.NotFound(c, "User not found")
	}
	if user.ReferralCode == nil {
		return response.NotFound(c, "No referral code bound to this account")
	}

	return response.Success(c, "Referral code retrieved", fiber.Map{
		"referral_code":   *user.ReferralCode,
		"total_referrals": user.TotalReferrals,
	})
}

// Validate checks a referral code and returns its owner's public identity.
// Used by registration forms before the user commits.
func (h *ReferralHandler) Validate(c *fiber.Ctx) error {
	var req ValidateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if req.Code == "" {
		return response.BadRequest(c, "Referral code is required")
	}

	owner, err := h.referralService.Validate(c.Context(), strings.TrimSpace(req.Code))
	if err != nil {
		return response.DomainError(c, err)
	}

	return response.Success(c, "Referral code is valid", fiber.Map{
		"referrer_name": owner.FullName,
		"referrer_role": owner.Role,
	})
}
