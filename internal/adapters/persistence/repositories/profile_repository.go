package repositories

import (
	"context"

	"renteasy/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// agentProfileRepository implements AgentProfileRepository interface
type agentProfileRepository struct {
	db *gorm.DB
}

// NewAgentProfileRepository creates a new agent profile repository
func NewAgentProfileRepository(db *gorm.DB) AgentProfileRepository {
	return &agentProfileRepository{db: db}
}

// Create creates a new agent profile
func (r *agentProfileRepository) Create(ctx context.Context, profile *models.AgentProfile) error {
	return r.db.WithContext(ctx).Create(profile).Error
}

// GetByUserID gets an agent profile by its owning user ID
func (r *agentProfileRepository) GetByUserID(ctx context.Context, userID uint) (*models.AgentProfile, error) {
	var profile models.AgentProfile
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// Update updates an agent profile
func (r *agentProfileRepository) Update(ctx context.Context, profile *models.AgentProfile) error {
	return r.db.WithContext(ctx).Save(profile).Error
}

// renterProfileRepository implements RenterProfileRepository interface
type renterProfileRepository struct {
	db *gorm.DB
}

// NewRenterProfileRepository creates a new renter profile repository
func NewRenterProfileRepository(db *gorm.DB) RenterProfileRepository {
	return &renterProfileRepository{db: db}
}

// Create creates a new renter profile
func (r *renterProfileRepository) Create(ctx context.Context, profile *models.RenterProfile) error {
	return r.db.WithContext(ctx).Create(profile).Error
}

// GetByUserID gets a renter profile by its owning user ID
func (r *renterProfileRepository) GetByUserID(ctx context.Context, userID uint) (*models.RenterProfile, error) {
	var profile models.RenterProfile
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// AssignReferrer writes the referrer columns of a renter profile. Used only
// by registration and the login-time repair path.
func (r *renterProfileRepository) AssignReferrer(ctx context.Context, userID uint, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).
		Model(&models.RenterProfile{}).
		Where("user_id = ?", userID).
		Updates(fields).Error
}
