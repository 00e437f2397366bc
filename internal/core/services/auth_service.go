package services

import (
	"context"
	"errors"
	"log"
	"time"

	"renteasy/internal/adapters/persistence/models"
	"renteasy/internal/adapters/persistence/repositories"
	"renteasy/internal/config"
	"renteasy/internal/core/domain"
	"renteasy/internal/pkg/password"

	"gorm.io/gorm"
)

// AuthService is the login admission controller plus the email-verification
// and password-reset surface. Login runs a strictly ordered gate sequence;
// for renters without a referrer it can mutate referral state on success.
type AuthService struct {
	userRepo    repositories.UserRepository
	agentRepo   repositories.AgentProfileRepository
	renterRepo  repositories.RenterProfileRepository
	referralSvc *ReferralService
	otpSvc      *OTPService
	tokenSvc    *TokenService
	email       EmailDispatcher
	cfg         *config.Config
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo repositories.UserRepository,
	agentRepo repositories.AgentProfileRepository,
	renterRepo repositories.RenterProfileRepository,
	referralSvc *ReferralService,
	otpSvc *OTPService,
	tokenSvc *TokenService,
	email EmailDispatcher,
	cfg *config.Config,
) *AuthService {
	return &AuthService{
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

// LoginInput represents login input
type LoginInput struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	ReferralCode string `json:"referral_code"`
}

// LoginSession is the part of a login result shared by every role
type LoginSession struct {
	User         *models.UserResponse `json:"user"`
	AccessToken  string               `json:"access_token"`
	RefreshToken string               `json:"refresh_token"`
	ExpiresIn    int                  `json:"expires_in"`
}

// LoginResult is the role-shaped login response: exactly one of the
// concrete variants below, never a single object with optional fields.
type LoginResult interface {
	Session() *LoginSession
}

// AdminLogin is the admin login variant
type AdminLogin struct {
	LoginSession
}

// AgentLogin is the agent login variant
type AgentLogin struct {
	LoginSession
	Title     string `json:"title"`
	LoginLink string `json:"login_link"`
}

// RenterLogin is the renter login variant
type RenterLogin struct {
	LoginSession
	Referral *ReferralSummary `json:"referral"`
}

// ReferralSummary summarizes a renter's referral state
type ReferralSummary struct {
	RegistrationType string `json:"registration_type"`
	ReferrerName     string `json:"referrer_name,omitempty"`
	ReferrerCode     string `json:"referrer_code,omitempty"`
}

func (r *AdminLogin) Session() *LoginSession  { return &r.LoginSession }
func (r *AgentLogin) Session() *LoginSession  { return &r.LoginSession }
func (r *RenterLogin) Session() *LoginSession { return &r.LoginSession }

// Login runs the admission gate sequence. The order is fixed: identity
// lookup, account status, email verification, agent profile, password,
// renter referral consistency, last-login update, token issue.
func (s *AuthService) Login(ctx context.Context, input *LoginInput) (LoginResult, error) {
	// Gate 1: load identity; absence is reported as bad credentials
	user, err := s.userRepo.GetByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	// Gate 2: account status
	switch user.AccountStatus {
	case models.StatusSuspended:
		return nil, domain.ErrAccountSuspended
	case models.StatusInactive:
		return nil, domain.ErrAccountInactive
	}

	// Gate 3: agents and renters must have verified their email
	if (user.Role == models.RoleAgent || user.Role == models.RoleRenter) && !user.EmailVerified {
		return nil, domain.ErrEmailNotVerified
	}

	// Gate 4: agents need an active agent profile
	var agentProfile *models.AgentProfile
	if user.Role == models.RoleAgent {
		agentProfile, err = s.agentRepo.GetByUserID(ctx, user.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, domain.ErrAccountInactive
			}
			return nil, err
		}
		if !agentProfile.IsActive {
			return nil, domain.ErrAccountInactive
		}
	}

	// Gate 5: password check
	if !password.Verify(input.Password, user.Password) {
		return nil, domain.ErrInvalidCredentials
	}

	// Gate 6: renter referral consistency, only after credentials are valid
	var renterProfile *models.RenterProfile
	if user.Role == models.RoleRenter {
		renterProfile, err = s.enforceReferral(ctx, user, input.ReferralCode)
		if err != nil {
			return nil, err
		}
	}

	// Gate 7: record the login
	if err := s.userRepo.UpdateLastLogin(ctx, user.ID, time.Now()); err != nil {
		return nil, err
	}

	// Gate 8: issue the session and shape the response by role
	tokens, err := s.tokenSvc.IssuePair(user)
	if err != nil {
		return nil, err
	}

	session := LoginSession{
		User:         user.ToResponse(),
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresIn:    tokens.ExpiresIn,
	}

	log.Printf("✅ User logged in: %s [%s]", user.Email, user.Role)

	switch user.Role {
	case models.RoleAgent:
		return &AgentLogin{
			LoginSession: session,
			Title:        agentProfile.Title,
			LoginLink:    s.agentLoginLink(user),
		}, nil
	case models.RoleRenter:
		return &RenterLogin{
			LoginSession: session,
			Referral:     s.referralSummary(ctx, renterProfile),
		}, nil
	default:
		return &AdminLogin{LoginSession: session}, nil
	}
}

// enforceReferral applies the renter referral-consistency gate and returns
// the (possibly repaired) profile. A renter without a referrer is refused
// unless this request supplies a valid code, in which case the referrer is
// assigned as a side effect of the login; an already-assigned referrer can
// never be switched.
func (s *AuthService) enforceReferral(ctx context.Context, user *models.User, code string) (*models.RenterProfile, error) {
	profile, err := s.renterRepo.GetByUserID(ctx, user.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, err
	}

	if !profile.HasReferrer() {
		if code == "" {
			return nil, &domain.ReferralRequiredError{
				Suggested: s.referralSvc.DefaultAgent(ctx),
			}
		}

		if _, err := s.referralSvc.AssignOnLogin(ctx, profile, code); err != nil {
			return nil, err
		}

		// Reload so the rest of the login sees the assignment
		profile, err = s.renterRepo.GetByUserID(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		return profile, nil
	}

	if code != "" {
		referrer, err := s.userRepo.GetByID(ctx, profile.ReferrerID())
		if err != nil {
			return nil, err
		}
		if referrer.ReferralCode == nil || *referrer.ReferralCode != code {
			return nil, domain.ErrReferralMismatch
		}
	}

	return profile, nil
}

// referralSummary builds the renter response's referral block
func (s *AuthService) referralSummary(ctx context.Context, profile *models.RenterProfile) *ReferralSummary {
	summary := &ReferralSummary{RegistrationType: profile.RegistrationType}

	if id := profile.ReferrerID(); id != 0 {
		if referrer, err := s.userRepo.GetByID(ctx, id); err == nil {
			summary.ReferrerName = referrer.FullName
			if referrer.ReferralCode != nil {
				summary.ReferrerCode = *referrer.ReferralCode
			}
		}
	}

	return summary
}

// agentLoginLink builds the agent's shareable signup link from their code
func (s *AuthService) agentLoginLink(user *models.User) string {
	if user.ReferralCode == nil {
		return s.cfg.Referral.FrontendURL
	}
	return s.cfg.Referral.FrontendURL + "/join?ref=" + *user.ReferralCode
}

// VerifyEmail confirms an email-verification code, marks the identity
// verified, and promotes a pending account to active
func (s *AuthService) VerifyEmail(ctx context.Context, email, code string) (*models.UserResponse, error) {
	if _, err := s.otpSvc.Verify(ctx, email, models.PurposeEmailVerification, code); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}

	fields := map[string]interface{}{"email_verified": true}
	if user.AccountStatus == models.StatusPending {
		fields["account_status"] = models.StatusActive
		user.AccountStatus = models.StatusActive
	}
	if err := s.userRepo.UpdateFields(ctx, user.ID, fields); err != nil {
		return nil, err
	}
	user.EmailVerified = true

	s.email.SendWelcome(user.Email, user.FullName)

	log.Printf("✅ Email verified: %s", user.Email)
	return user.ToResponse(), nil
}

// ResendVerification re-issues the email-verification code. An unknown
// email reports success to avoid leaking account existence; throttling and
// already-verified states are reported for real accounts.
func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("⚠️ Resend verification for unknown email: %s", email)
			return nil
		}
		return err
	}

	if user.EmailVerified {
		return domain.ErrOTPAlreadyVerified
	}

	_, err = s.otpSvc.Resend(ctx, user.Email, user.FullName, models.PurposeEmailVerification)
	return err
}

// RequestPasswordReset issues a password-reset code. An unknown email
// reports success to avoid leaking account existence.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("⚠️ Password reset for unknown email: %s", email)
			return nil
		}
		return err
	}

	record, err := s.otpSvc.Issue(ctx, user.ID, user.Email, models.PurposePasswordReset)
	if err != nil {
		return err
	}

	s.email.SendPasswordResetCode(user.Email, user.FullName, record.Code, time.Until(record.ExpiresAt))
	return nil
}

// VerifyResetCode checks a password-reset code without consuming it, so a
// client can confirm the code before collecting the new password
func (s *AuthService) VerifyResetCode(ctx context.Context, email, code string) error {
	_, err := s.otpSvc.Verify(ctx, email, models.PurposePasswordReset, code)
	return err
}

// ResetPassword sets a new password after the reset code checks out, then
// closes the code so it cannot be replayed
func (s *AuthService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	record, err := s.otpSvc.Verify(ctx, email, models.PurposePasswordReset, code)
	if err != nil {
		return err
	}

	hashed, err := password.Hash(newPassword)
	if err != nil {
		return err
	}

	if err := s.userRepo.UpdateFields(ctx, record.UserID, map[string]interface{}{
		"password":             hashed,
		"must_change_password": false,
	}); err != nil {
		return err
	}

	if err := s.otpSvc.Invalidate(ctx, record.UserID, models.PurposePasswordReset); err != nil {
		return err
	}

	log.Printf("✅ Password reset for %s", email)
	return nil
}

// ChangePassword changes an authenticated user's password and clears the
// forced-change flag set by admin-referral registration
func (s *AuthService) ChangePassword(ctx context.Context, userID uint, oldPassword, newPassword string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrUserNotFound
		}
		return err
	}

	if !password.Verify(oldPassword, user.Password) {
		return domain.ErrInvalidCredentials
	}

	hashed, err := password.Hash(newPassword)
	if err != nil {
		return err
	}

	if err := s.userRepo.UpdateFields(ctx, user.ID, map[string]interface{}{
		"password":             hashed,
		"must_change_password": false,
	}); err != nil {
		return err
	}

	log.Printf("✅ Password changed for user ID: %d", userID)
	return nil
}

// GetUserByID gets a user by ID
func (s *AuthService) GetUserByID(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}
