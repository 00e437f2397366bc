package repositories

import (
	"context"
	"time"

	"renteasy/internal/adapters/persistence/models"
)

// UserRepository defines the identity store interface
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByReferralCode(ctx context.Context, code string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error
	UpdateLastLogin(ctx context.Context, id uint, at time.Time) error
	IncrementReferrals(ctx context.Context, id uint) error
	FirstActiveAgent(ctx context.Context) (*models.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByReferralCode(ctx context.Context, code string) (bool, error)
}

// AgentProfileRepository defines the agent role-profile store interface
type AgentProfileRepository interface {
	Create(ctx context.Context, profile *models.AgentProfile) error
	GetByUserID(ctx context.Context, userID uint) (*models.AgentProfile, error)
	Update(ctx context.Context, profile *models.AgentProfile) error
}

// RenterProfileRepository defines the renter role-profile store interface
type RenterProfileRepository interface {
	Create(ctx context.Context, profile *models.RenterProfile) error
	GetByUserID(ctx context.Context, userID uint) (*models.RenterProfile, error)
	AssignReferrer(ctx context.Context, userID uint, fields map[string]interface{}) error
}

// OTPRepository defines the OTP record store interface
type OTPRepository interface {
	Create(ctx context.Context, record *models.OTPRecord) error
	GetCurrent(ctx context.Context, userID uint, purpose string) (*models.OTPRecord, error)
	GetCurrentByEmail(ctx context.Context, email, purpose string) (*models.OTPRecord, error)
	IncrementAttempts(ctx context.Context, id uint, at time.Time) error
	MarkVerified(ctx context.Context, id uint) error
	InvalidatePrevious(ctx context.Context, userID uint, purpose string) error
	CountCreatedSince(ctx context.Context, userID uint, purpose string, since time.Time) (int64, error)
	OldestCreatedSince(ctx context.Context, userID uint, purpose string, since time.Time) (*time.Time, error)
	DeleteDeadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
