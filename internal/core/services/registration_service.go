package services

import (
	"context"
	"log"
	"time"

	"renteasy/internal/adapters/persistence/models"
	"renteasy/internal/adapters/persistence/repositories"
	"renteasy/internal/config"
	"renteasy/internal/core/domain"
	"renteasy/internal/pkg/password"
	"renteasy/internal/pkg/referral"
)

// RegistrationService orchestrates the three renter registration flows and
// agent registration. The flow is derived from the shape of the supplied
// referral code, never from a caller-chosen flag, and a malformed code
// fails fast instead of falling back to the normal flow.
type RegistrationService struct {
	userRepo    repositories.UserRepository
	agentRepo   repositories.AgentProfileRepository
	renterRepo  repositories.RenterProfileRepository
	referralSvc *ReferralService
	otpSvc      *OTPService
	tokenSvc    *TokenService
	email       EmailDispatcher
	cfg         *config.Config
}

// NewRegistrationService creates a new registration service
func NewRegistrationService(
	userRepo repositories.UserRepository,
	agentRepo repositories.AgentProfileRepository,
	renterRepo repositories.RenterProfileRepository,
	referralSvc *ReferralService,
	otpSvc *OTPService,
	tokenSvc *TokenService,
	email EmailDispatcher,
	cfg *config.Config,
) *RegistrationService {
	return &RegistrationService{
		userRepo:    userRepo,
		agentRepo:   agentRepo,
		renterRepo:  renterRepo,
		referralSvc: referralSvc,
		otpSvc:      otpSvc,
		tokenSvc:    tokenSvc,
		email:       email,
		cfg:         cfg,
	}
}

// RegisterRenterInput represents renter registration input
type RegisterRenterInput struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	FullName      string `json:"full_name"`
	Phone         string `json:"phone"`
	ReferralCode  string `json:"referral_code"`
	Questionnaire string `json:"questionnaire"`
}

// RegisterAgentInput represents agent registration input
type RegisterAgentInput struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	FullName      string `json:"full_name"`
	Phone         string `json:"phone"`
	LicenseNumber string `json:"license_number"`
	BrokerageName string `json:"brokerage_name"`
	Title         string `json:"title"`
}

// RegistrationResult is the registration receipt. Tokens are present only
// for the auto-authenticated admin-referral flow; OTPExpiresAt only for
// flows that issued a verification code.
type RegistrationResult struct {
	User             *models.UserResponse `json:"user"`
	RegistrationType string               `json:"registration_type,omitempty"`
	OTPExpiresAt     *time.Time           `json:"otp_expires_at,omitempty"`
	Tokens           *TokenPair           `json:"tokens,omitempty"`
}

// RegisterRenter registers a renter via one of the three trust flows
func (s *RegistrationService) RegisterRenter(ctx context.Context, input *RegisterRenterInput) (*RegistrationResult, error) {
	// 1. Classify the referral code; malformed codes fail before anything else
	parsed, err := referral.Parse(input.ReferralCode)
	if err != nil {
		return nil, err
	}

	// 2. Duplicate email fails before any side effect
	exists, err := s.userRepo.ExistsByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrEmailTaken
	}

	switch parsed.Kind {
	case referral.KindNormal:
		return s.registerNormal(ctx, input)
	case referral.KindAgentReferral:
		return s.registerAgentReferral(ctx, input, parsed.Code)
	default:
		return s.registerAdminReferral(ctx, input, parsed.Code)
	}
}

// registerNormal handles self-service registration without a referral
func (s *RegistrationService) registerNormal(ctx context.Context, input *RegisterRenterInput) (*RegistrationResult, error) {
	if input.Password == "" {
		return nil, domain.ErrPasswordRequired
	}

	user, err := s.createRenter(ctx, input, models.StatusPending, false, false)
	if err != nil {
		return nil, err
	}

	profile := &models.RenterProfile{
		UserID:           user.ID,
		RegistrationType: models.RegistrationNormal,
	}
	if err := s.renterRepo.Create(ctx, profile); err != nil {
		return nil, err
	}

	record, err := s.otpSvc.Issue(ctx, user.ID, user.Email, models.PurposeEmailVerification)
	if err != nil {
		return nil, err
	}
	s.email.SendVerificationCode(user.Email, user.FullName, record.Code, time.Until(record.ExpiresAt))

	log.Printf("✅ Renter registered: %s [normal]", user.Email)
	return &RegistrationResult{
		User:             user.ToResponse(),
		RegistrationType: models.RegistrationNormal,
		OTPExpiresAt:     &record.ExpiresAt,
	}, nil
}

// registerAgentReferral handles registration through an agent's AGT- code
func (s *RegistrationService) registerAgentReferral(ctx context.Context, input *RegisterRenterInput, code string) (*RegistrationResult, error) {
	// The referrer must resolve to an active agent before anything is created
	referrer, err := s.referralSvc.Validate(ctx, code)
	if err != nil {
		return nil, err
	}

	if input.Password == "" {
		return nil, domain.ErrPasswordRequired
	}

	user, err := s.createRenter(ctx, input, models.StatusPending, false, false)
	if err != nil {
		return nil, err
	}

	profile := &models.RenterProfile{
		UserID:            user.ID,
		RegistrationType:  models.RegistrationAgentReferral,
		ReferredByAgentID: &referrer.ID,
	}
	if err := s.renterRepo.Create(ctx, profile); err != nil {
		return nil, err
	}
	if err := s.userRepo.IncrementReferrals(ctx, referrer.ID); err != nil {
		return nil, err
	}

	record, err := s.otpSvc.Issue(ctx, user.ID, user.Email, models.PurposeEmailVerification)
	if err != nil {
		return nil, err
	}
	s.email.SendVerificationCode(user.Email, user.FullName, record.Code, time.Until(record.ExpiresAt))

	log.Printf("✅ Renter registered: %s [agent referral by %d]", user.Email, referrer.ID)
	return &RegistrationResult{
		User:             user.ToResponse(),
		RegistrationType: models.RegistrationAgentReferral,
		OTPExpiresAt:     &record.ExpiresAt,
	}, nil
}

// registerAdminReferral handles passwordless registration through an
// admin's ADM- code: a generated temporary password is delivered by email
// only, the account starts active and verified with a forced password
// change, no OTP is ever issued, and a session is returned immediately.
func (s *RegistrationService) registerAdminReferral(ctx context.Context, input *RegisterRenterInput, code string) (*RegistrationResult, error) {
	referrer, err := s.referralSvc.Validate(ctx, code)
	if err != nil {
		return nil, err
	}

	tempPassword, err := password.GenerateTemporary()
	if err != nil {
		return nil, err
	}

	withTemp := *input
	withTemp.Password = tempPassword

	user, err := s.createRenter(ctx, &withTemp, models.StatusActive, true, true)
	if err != nil {
		return nil, err
	}

	profile := &models.RenterProfile{
		UserID:            user.ID,
		RegistrationType:  models.RegistrationAdminReferral,
		ReferredByAdminID: &referrer.ID,
		Questionnaire:     input.Questionnaire,
	}
	if err := s.renterRepo.Create(ctx, profile); err != nil {
		return nil, err
	}
	if err := s.userRepo.IncrementReferrals(ctx, referrer.ID); err != nil {
		return nil, err
	}

	tokens, err := s.tokenSvc.IssuePair(user)
	if err != nil {
		return nil, err
	}

	s.email.SendTemporaryPassword(user.Email, user.FullName, tempPassword)

	log.Printf("✅ Renter registered: %s [admin referral by %d]", user.Email, referrer.ID)
	return &RegistrationResult{
		User:             user.ToResponse(),
		RegistrationType: models.RegistrationAdminReferral,
		Tokens:           tokens,
	}, nil
}

// createRenter hashes the password and persists the renter identity
func (s *RegistrationService) createRenter(ctx context.Context, input *RegisterRenterInput, status string, verified, mustChange bool) (*models.User, error) {
	hashed, err := password.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:              input.Email,
		Password:           hashed,
		FullName:           input.FullName,
		Phone:              input.Phone,
		Role:               models.RoleRenter,
		AccountStatus:      status,
		EmailVerified:      verified,
		MustChangePassword: mustChange,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// RegisterAgent registers a licensed agent. The account starts pending with
// an inactive agent profile; its unique AGT- referral code is bound at
// creation. Activation is an administrative action outside this flow.
func (s *RegistrationService) RegisterAgent(ctx context.Context, input *RegisterAgentInput) (*RegistrationResult, error) {
	exists, err := s.userRepo.ExistsByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrEmailTaken
	}

	if input.Password == "" {
		return nil, domain.ErrPasswordRequired
	}

	hashed, err := password.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	code, err := s.referralSvc.IssueCode(ctx, models.RoleAgent)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:         input.Email,
		Password:      hashed,
		FullName:      input.FullName,
		Phone:         input.Phone,
		Role:          models.RoleAgent,
		AccountStatus: models.StatusPending,
		ReferralCode:  &code,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	profile := &models.AgentProfile{
		UserID:        user.ID,
		LicenseNumber: input.LicenseNumber,
		BrokerageName: input.BrokerageName,
		Title:         input.Title,
		IsActive:      false,
	}
	if err := s.agentRepo.Create(ctx, profile); err != nil {
		return nil, err
	}

	record, err := s.otpSvc.Issue(ctx, user.ID, user.Email, models.PurposeEmailVerification)
	if err != nil {
		return nil, err
	}
	s.email.SendVerificationCode(user.Email, user.FullName, record.Code, time.Until(record.ExpiresAt))

	log.Printf("✅ Agent registered: %s [%s]", user.Email, code)
	return &RegistrationResult{
		User:         user.ToResponse(),
		OTPExpiresAt: &record.ExpiresAt,
	}, nil
}
