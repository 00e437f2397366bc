package services

import (
	"context"
	"errors"
	"log"

	"renteasy/internal/adapters/persistence/models"
	"renteasy/internal/adapters/persistence/repositories"
	"renteasy/internal/config"
	"renteasy/internal/core/domain"
	"renteasy/internal/pkg/referral"

	"gorm.io/gorm"
)

// ReferralService resolves referral codes to referrer identities and owns
// the two referral-state mutations: issuing codes and the login-time
// referrer assignment.
type ReferralService struct {
	userRepo   repositories.UserRepository
	agentRepo  repositories.AgentProfileRepository
	renterRepo repositories.RenterProfileRepository
	cfg        *config.Config
}

// NewReferralService creates a new referral service
func NewReferralService(
	userRepo repositories.UserRepository,
	agentRepo repositories.AgentProfileRepository,
	renterRepo repositories.RenterProfileRepository,
	cfg *config.Config,
) *ReferralService {
	return &ReferralService{
		userRepo:   userRepo,
		agentRepo:  agentRepo,
		renterRepo: renterRepo,
		cfg:        cfg,
	}
}

// Validate resolves a raw referral code to its owning identity. The owner
// must be an active admin or agent whose role matches the code prefix, and
// agents must also have an active agent profile.
func (s *ReferralService) Validate(ctx context.Context, raw string) (*models.User, error) {
	parsed, err := referral.Parse(raw)
	if err != nil {
		return nil, err
	}
	if parsed.Kind == referral.KindNormal {
		return nil, domain.ErrReferralFormat
	}

	owner, err := s.userRepo.GetByReferralCode(ctx, parsed.Code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrReferralNotFound
		}
		return nil, err
	}

	if !owner.IsReferrer() {
		return nil, domain.ErrReferralInvalid
	}
	if referral.PrefixForRole(owner.Role) != parsed.Prefix {
		return nil, domain.ErrReferralInvalid
	}
	if owner.AccountStatus != models.StatusActive {
		return nil, domain.ErrReferralInvalid
	}

	if owner.Role == models.RoleAgent {
		profile, err := s.agentRepo.GetByUserID(ctx, owner.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, domain.ErrReferralInvalid
			}
			return nil, err
		}
		if !profile.IsActive {
			return nil, domain.ErrReferralInvalid
		}
	}

	return owner, nil
}

// AssignOnLogin is the single audited login-time referral mutation: it
// validates the supplied code, writes the referrer onto the renter profile,
// and increments the referrer's counter.
//
// The profile write and the counter increment are two independent
// operations, not one transaction; a concurrent retry against the same
// referrer can double-increment the counter. The increment itself is atomic
// at the storage layer.
func (s *ReferralService) AssignOnLogin(ctx context.Context, profile *models.RenterProfile, raw string) (*models.User, error) {
	referrer, err := s.Validate(ctx, raw)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	switch referrer.Role {
	case models.RoleAgent:
		fields["referred_by_agent_id"] = referrer.ID
	case models.RoleAdmin:
		fields["referred_by_admin_id"] = referrer.ID
	}

	if err := s.renterRepo.AssignReferrer(ctx, profile.UserID, fields); err != nil {
		return nil, err
	}
	if err := s.userRepo.IncrementReferrals(ctx, referrer.ID); err != nil {
		return nil, err
	}

	log.Printf("🔁 Referral assigned on login: renter=%d referrer=%d [%s]", profile.UserID, referrer.ID, raw)
	return referrer, nil
}

// IssueCode generates a referral code for a referrer role that is not yet
// bound to any identity.
func (s *ReferralService) IssueCode(ctx context.Context, role string) (string, error) {
	prefix := referral.PrefixForRole(role)
	if prefix == "" {
		return "", domain.ErrReferralInvalid
	}

	for i := 0; i < 5; i++ {
		code, err := referral.NewCode(prefix)
		if err != nil {
			return "", err
		}
		taken, err := s.userRepo.ExistsByReferralCode(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}

	return "", domain.ErrReferralTaken
}

// DefaultAgent returns the fallback referrer suggested to renters rejected
// for having no referral. Prefers the configured default agent, falls back
// to the longest-standing active agent, returns nil when neither exists.
func (s *ReferralService) DefaultAgent(ctx context.Context) *domain.SuggestedReferrer {
	var agent *models.User

	if email := s.cfg.Referral.DefaultAgentEmail; email != "" {
		u, err := s.userRepo.GetByEmail(ctx, email)
		if err == nil && u.Role == models.RoleAgent && u.AccountStatus == models.StatusActive && u.ReferralCode != nil {
			agent = u
		} else if err == nil {
			log.Printf("⚠️ Configured default agent %s is not an active agent, falling back", email)
		}
	}
	if agent == nil {
		u, err := s.userRepo.FirstActiveAgent(ctx)
		if err != nil {
			log.Printf("⚠️ No fallback agent available: %v", err)
			return nil
		}
		agent = u
	}

	return &domain.SuggestedReferrer{
		UserID:       agent.ID,
		FullName:     agent.FullName,
		ReferralCode: *agent.ReferralCode,
	}
}
