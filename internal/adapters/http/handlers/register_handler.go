package handlers

import (
	"strings"

	"renteasy/internal/config"
	"renteasy/internal/core/services"
	"renteasy/internal/pkg/password"
	"renteasy/internal/pkg/referral"
	"renteasy/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// RegisterHandler handles registration endpoints
type RegisterHandler struct {
	registrationService *services.RegistrationService
	cfg                 *config.Config
}

// NewRegisterHandler creates a new register handler
func NewRegisterHandler(registrationService *services.RegistrationService, cfg *config.Config) *RegisterHandler {
	return &RegisterHandler{
		registrationService: registrationService,
		cfg:                 cfg,
	}
}

// RegisterRenterRequest represents renter registration request body
type RegisterRenterRequest struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	FullName      string `json:"full_name"`
	Phone         string `json:"phone"`
	ReferralCode  string `json:"referral_code"`
	Questionnaire string `json:"questionnaire"`
}

// RegisterAgentRequest represents agent registration request body
type RegisterAgentRequest struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	FullName      string `json:"full_name"`
	Phone         string `json:"phone"`
	LicenseNumber string `json:"license_number"`
	BrokerageName string `json:"brokerage_name"`
	Title         string `json:"title"`
}

// RegisterRenter handles renter registration. The trust flow is chosen by
// the shape of the referral code; a password is only optional when the code
// is an admin code.
func (h *RegisterHandler) RegisterRenter(c *fiber.Ctx) error {
	var req RegisterRenterRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if req.Email == "" {
		return response.BadRequest(c, "Email is required")
	}
	if req.FullName == "" {
		return response.BadRequest(c, "Full name is required")
	}

	// Password rules are flow-dependent: admin-referral registrations get a
	// generated temporary password, every other flow requires one here
	code := strings.TrimSpace(req.ReferralCode)
	parsed, err := referral.Parse(code)
	if err != nil {
		return response.DomainError(c, err)
	}
	if parsed.Kind != referral.KindAdminReferral {
		if err := password.ValidatePassword(req.Password); err != nil {
			return response.BadRequest(c, err.Error())
		}
	}

	input := &services.RegisterRenterInput{
		Email:         strings.TrimSpace(req.Email),
		Password:      req.Password,
		FullName:      strings.TrimSpace(req.FullName),
		Phone:         strings.TrimSpace(req.Phone),
		ReferralCode:  code,
		Questionnaire: req.Questionnaire,
	}

	result, err := h.registrationService.RegisterRenter(c.Context(), input)
	if err != nil {
		return response.DomainError(c, err)
	}

	return response.Created(c, "Registration successful", result)
}

// RegisterAgent handles agent registration
func (h *RegisterHandler) RegisterAgent(c *fiber.Ctx) error {
	var req RegisterAgentRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if req.Email == "" {
		return response.BadRequest(c, "Email is required")
	}
	if req.FullName == "" {
		return response.BadRequest(c, "Full name is required")
	}
	if req.LicenseNumber == "" {
		return response.BadRequest(c, "License number is required")
	}
	if err := password.ValidatePassword(req.Password); err != nil {
		return response.BadRequest(c, err.Error())
	}

	input := &services.RegisterAgentInput{
		Email:         strings.TrimSpace(req.Email),
		Password:      req.Password,
		FullName:      strings.TrimSpace(req.FullName),
		Phone:         strings.TrimSpace(req.Phone),
		LicenseNumber: strings.TrimSpace(req.LicenseNumber),
		BrokerageName: strings.TrimSpace(req.BrokerageName),
		Title:         strings.TrimSpace(req.Title),
	}

	result, err := h.registrationService.RegisterAgent(c.Context(), input)
	if err != nil {
		return response.DomainError(c, err)
	}

	return response.Created(c, "Agent registration successful, pending activation", result)
}
