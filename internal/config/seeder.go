package config

import (
	"log"

	"renteasy/internal/adapters/persistence/models"
	"renteasy/internal/pkg/password"
	"renteasy/internal/pkg/referral"

	"gorm.io/gorm"
)

// Seeder handles database seeding
type Seeder struct {
	db  *gorm.DB
	cfg *Config
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB, cfg *Config) *Seeder {
	return &Seeder{db: db, cfg: cfg}
}

// Run executes all seeders
func (s *Seeder) Run() error {
	log.Println("🌱 Running database seeders...")

	if err := s.seedAdminUser(); err != nil {
		log.Printf("⚠️ Admin seeder skipped: %v", err)
	}
	if err := s.seedDefaultAgent(); err != nil {
		log.Printf("⚠️ Default agent seeder skipped: %v", err)
	}

	log.Println("✅ Database seeding completed")
	return nil
}

// seedAdminUser seeds the bootstrap admin with an ADM- referral code.
// Admins are never created over HTTP.
func (s *Seeder) seedAdminUser() error {
	var count int64
	s.db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count)
	if count > 0 {
		return nil // Admin already exists
	}

	hashedPassword, err := password.Hash(getEnv("SEED_ADMIN_PASSWORD", "admin123456"))
	if err != nil {
		return err
	}

	code, err := s.uniqueCode(referral.PrefixAdmin)
	if err != nil {
		return err
	}

	admin := &models.User{
		Email:         getEnv("SEED_ADMIN_EMAIL", "admin@renteasy.app"),
		Password:      hashedPassword,
		FullName:      "System Administrator",
		Role:          models.RoleAdmin,
		AccountStatus: models.StatusActive,
		EmailVerified: true,
		ReferralCode:  &code,
	}

	if err := s.db.Create(admin).Error; err != nil {
		return err
	}

	log.Printf("✅ Admin user created: %s [%s]", admin.Email, code)
	return nil
}

// seedDefaultAgent seeds the fallback agent suggested to renters who log in
// without a referrer. Skipped when DEFAULT_AGENT_EMAIL is unset.
func (s *Seeder) seedDefaultAgent() error {
	email := s.cfg.Referral.DefaultAgentEmail
	if email == "" {
		log.Println("⚠️ Skipping default agent seed: DEFAULT_AGENT_EMAIL not set")
		return nil
	}

	var count int64
	s.db.Model(&models.User{}).Where("email = ?", email).Count(&count)
	if count > 0 {
		return nil // Already exists
	}

	hashedPassword, err := password.Hash(getEnv("SEED_AGENT_PASSWORD", "agent123456"))
	if err != nil {
		return err
	}

	code, err := s.uniqueCode(referral.PrefixAgent)
	if err != nil {
		return err
	}

	agent := &models.User{
		Email:         email,
		Password:      hashedPassword,
		FullName:      "RentEasy Partner Agent",
		Role:          models.RoleAgent,
		AccountStatus: models.StatusActive,
		EmailVerified: true,
		ReferralCode:  &code,
	}

	if err := s.db.Create(agent).Error; err != nil {
		return err
	}

	profile := &models.AgentProfile{
		UserID:        agent.ID,
		LicenseNumber: "HOUSE-0001",
		BrokerageName: "RentEasy",
		Title:         "Partner Agent",
		IsActive:      true,
	}
	if err := s.db.Create(profile).Error; err != nil {
		return err
	}

	log.Printf("✅ Default agent created: %s [%s]", agent.Email, code)
	return nil
}

// uniqueCode generates a referral code that is not yet bound to any user
func (s *Seeder) uniqueCode(prefix string) (string, error) {
	for i := 0; i < 5; i++ {
		code, err := referral.NewCode(prefix)
		if err != nil {
			return "", err
		}
		var count int64
		s.db.Model(&models.User{}).Where("referral_code = ?", code).Count(&count)
		if count == 0 {
			return code, nil
		}
	}
	return "", gorm.ErrDuplicatedKey
}
