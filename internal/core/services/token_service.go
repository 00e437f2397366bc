package services

import (
	"context"
	"errors"

	"renteasy/internal/adapters/persistence/models"
	"renteasy/internal/adapters/persistence/repositories"
	"renteasy/internal/config"
	"renteasy/internal/core/domain"
	"renteasy/internal/pkg/jwt"

	"gorm.io/gorm"
)

// TokenPair represents access and refresh tokens
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// TokenService issues and refreshes session token pairs. Tokens are
// stateless: nothing is persisted and the refresh token is never rotated.
type TokenService struct {
	userRepo  repositories.UserRepository
	agentRepo repositories.AgentProfileRepository
	cfg       *config.Config
}

// NewTokenService creates a new token service
func NewTokenService(
	userRepo repositories.UserRepository,
	agentRepo repositories.AgentProfileRepository,
	cfg *config.Config,
) *TokenService {
	return &TokenService{
		userRepo:  userRepo,
		agentRepo: agentRepo,
		cfg:       cfg,
	}
}

// IssuePair issues an access/refresh token pair for a user
func (s *TokenService) IssuePair(user *models.User) (*TokenPair, error) {
	accessToken, err := jwt.GenerateAccessToken(
		user.ID,
		user.Email,
		user.Role,
		user.AccountStatus,
		user.EmailVerified,
		s.cfg.JWT.Secret,
		s.cfg.JWT.AccessTokenMins,
	)
	if err != nil {
		return nil, err
	}

	refreshToken, err := jwt.GenerateRefreshToken(
		user.ID,
		s.cfg.JWT.RefreshSecret,
		s.cfg.JWT.RefreshTokenDays,
	)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    s.cfg.JWT.AccessTokenMins * 60,
	}, nil
}

// RefreshAccess validates a refresh token, re-checks the account can still
// hold a session, and mints a new access token. The refresh token itself is
// never re-issued by this operation.
func (s *TokenService) RefreshAccess(ctx context.Context, refreshToken string) (string, int, error) {
	claims, err := jwt.ValidateRefreshToken(refreshToken, s.cfg.JWT.RefreshSecret)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", 0, domain.ErrTokenExpired
		}
		return "", 0, domain.ErrTokenInvalid
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", 0, domain.ErrTokenInvalid
		}
		return "", 0, err
	}

	switch user.AccountStatus {
	case models.StatusActive:
	case models.StatusSuspended:
		return "", 0, domain.ErrAccountSuspended
	default:
		return "", 0, domain.ErrAccountInactive
	}

	if user.Role == models.RoleAgent {
		profile, err := s.agentRepo.GetByUserID(ctx, user.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return "", 0, domain.ErrAccountInactive
			}
			return "", 0, err
		}
		if !profile.IsActive {
			return "", 0, domain.ErrAccountInactive
		}
	}

	accessToken, err := jwt.GenerateAccessToken(
		user.ID,
		user.Email,
		user.Role,
		user.AccountStatus,
		user.EmailVerified,
		s.cfg.JWT.Secret,
		s.cfg.JWT.AccessTokenMins,
	)
	if err != nil {
		return "", 0, err
	}

	return accessToken, s.cfg.JWT.AccessTokenMins * 60, nil
}
