package models

import (
	"time"

	"gorm.io/gorm"
)

// Roles
const (
	RoleAdmin  = "admin"
	RoleAgent  = "agent"
	RoleRenter = "renter"
)

// Account statuses
const (
	StatusPending   = "pending"
	StatusActive    = "active"
	StatusSuspended = "suspended"
	StatusInactive  = "inactive"
)

// Renter registration types
const (
	RegistrationNormal        = "normal"
	RegistrationAgentReferral = "agent_referral"
	RegistrationAdminReferral = "admin_referral"
)

// OTP purposes
const (
	PurposeEmailVerification = "email_verification"
	PurposePasswordReset     = "password_reset"
)

// User represents users table
type User struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	Email              string         `gorm:"uniqueIndex;size:100;not null" json:"email"`
	Password           string         `gorm:"size:255;not null" json:"-"`
	FullName           string         `gorm:"size:100" json:"full_name"`
	Phone              string         `gorm:"size:20" json:"phone"`
	Role               string         `gorm:"size:20;not null;default:'renter'" json:"role"`
	AccountStatus      string         `gorm:"size:20;not null;default:'pending'" json:"account_status"`
	EmailVerified      bool           `gorm:"default:false" json:"email_verified"`
	MustChangePassword bool           `gorm:"default:false" json:"must_change_password"`
	ReferralCode       *string        `gorm:"uniqueIndex;size:12" json:"referral_code,omitempty"`
	TotalReferrals     int            `gorm:"default:0" json:"total_referrals"`
	LastLoginAt        *time.Time     `json:"last_login_at"`
	CreatedAt          time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// IsReferrer reports whether the user's role can own a referral code
func (u *User) IsReferrer() bool {
	return u.Role == RoleAdmin || u.Role == RoleAgent
}

// UserResponse DTO
type UserResponse struct {
	ID                 uint       `json:"id"`
	Email              string     `json:"email"`
	FullName           string     `json:"full_name"`
	Phone              string     `json:"phone,omitempty"`
	Role               string     `json:"role"`
	AccountStatus      string     `json:"account_status"`
	EmailVerified      bool       `json:"email_verified"`
	MustChangePassword bool       `json:"must_change_password"`
	ReferralCode       *string    `json:"referral_code,omitempty"`
	TotalReferrals     int        `json:"total_referrals,omitempty"`
	LastLoginAt        *time.Time `json:"last_login_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:                 u.ID,
		Email:              u.Email,
		FullName:           u.FullName,
		Phone:              u.Phone,
		Role:               u.Role,
		AccountStatus:      u.AccountStatus,
		EmailVerified:      u.EmailVerified,
		MustChangePassword: u.MustChangePassword,
		ReferralCode:       u.ReferralCode,
		TotalReferrals:     u.TotalReferrals,
		LastLoginAt:        u.LastLoginAt,
		CreatedAt:          u.CreatedAt,
	}
}

// AgentProfile represents agent_profiles table
type AgentProfile struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	UserID        uint           `gorm:"uniqueIndex;not null" json:"user_id"`
	LicenseNumber string         `gorm:"size:50;not null" json:"license_number"`
	BrokerageName string         `gorm:"size:100" json:"brokerage_name"`
	Title         string         `gorm:"size:50" json:"title"`
	IsActive      bool           `gorm:"default:false" json:"is_active"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
}

func (AgentProfile) TableName() string {
	return "agent_profiles"
}

// RenterProfile represents renter_profiles table. The referrer fields are
// written at registration, or once by the login-time repair path, and are
// never changed afterwards.
type RenterProfile struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	UserID            uint           `gorm:"uniqueIndex;not null" json:"user_id"`
	RegistrationType  string         `gorm:"size:20;not null;default:'normal'" json:"registration_type"`
	ReferredByAgentID *uint          `gorm:"index" json:"referred_by_agent_id"`
	ReferredByAdminID *uint          `gorm:"index" json:"referred_by_admin_id"`
	Questionnaire     string         `gorm:"type:text" json:"questionnaire,omitempty"`
	CreatedAt         time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
}

func (RenterProfile) TableName() string {
	return "renter_profiles"
}

// HasReferrer reports whether a referrer has been assigned
func (p *RenterProfile) HasReferrer() bool {
	return p.ReferredByAgentID != nil || p.ReferredByAdminID != nil
}

// ReferrerID returns the assigned referrer's user ID, or 0
func (p *RenterProfile) ReferrerID() uint {
	if p.ReferredByAgentID != nil {
		return *p.ReferredByAgentID
	}
	if p.ReferredByAdminID != nil {
		return *p.ReferredByAdminID
	}
	return 0
}

// OTPRecord represents otp_records table. Among the non-expired rows for a
// given (user, purpose) at most one has InvalidatedAt IS NULL; older rows
// are invalidated when a new code is issued and kept for audit.
type OTPRecord struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	UserID        uint       `gorm:"index;not null" json:"user_id"`
	Email         string     `gorm:"index;size:100;not null" json:"email"`
	Purpose       string     `gorm:"index;size:30;not null" json:"purpose"`
	Code          string     `gorm:"size:10;not null" json:"-"`
	ExpiresAt     time.Time  `gorm:"not null" json:"expires_at"`
	Attempts      int        `gorm:"default:0" json:"attempts"`
	MaxAttempts   int        `gorm:"not null" json:"max_attempts"`
	Verified      bool       `gorm:"default:false" json:"verified"`
	LastAttemptAt *time.Time `json:"last_attempt_at"`
	InvalidatedAt *time.Time `gorm:"index" json:"invalidated_at"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (OTPRecord) TableName() string {
	return "otp_records"
}

// IsExpired reports whether the code's TTL has passed
func (r *OTPRecord) IsExpired() bool {
	return time.Now().After(r.ExpiresAt)
}

// IsExhausted reports whether the attempts ceiling has been reached
func (r *OTPRecord) IsExhausted() bool {
	return r.Attempts >= r.MaxAttempts
}

// AutoMigrate runs auto migration for all tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&AgentProfile{},
		&RenterProfile{},
		&OTPRecord{},
	)
}
