package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"renteasy/internal/adapters/persistence/models"
	"renteasy/internal/config"

	"gorm.io/gorm"
)

// In-memory repository fakes. They mirror the gorm implementations closely
// enough for service tests: emails are matched case-insensitively and
// missing rows surface as gorm.ErrRecordNotFound.

type fakeUserRepo struct {
	mu     sync.Mutex
	nextID uint
	users  map[uint]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[uint]*models.User{}}
}

func (r *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	user.ID = r.nextID
	user.Email = strings.ToLower(user.Email)
	user.CreatedAt = time.Now()
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id uint) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == strings.ToLower(email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) GetByReferralCode(_ context.Context, code string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ReferralCode != nil && *u.ReferralCode == code {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) Update(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *fakeUserRepo) UpdateFields(_ context.Context, id uint, fields map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for k, v := range fields {
		switch k {
		case "email_verified":
			u.EmailVerified = v.(bool)
		case "account_status":
			u.AccountStatus = v.(string)
		case "password":
			u.Password = v.(string)
		case "must_change_password":
			u.MustChangePassword = v.(bool)
		}
	}
	return nil
}

func (r *fakeUserRepo) UpdateLastLogin(_ context.Context, id uint, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.LastLoginAt = &at
	return nil
}

func (r *fakeUserRepo) IncrementReferrals(_ context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.TotalReferrals++
	return nil
}

func (r *fakeUserRepo) FirstActiveAgent(_ context.Context) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var best *models.User
	for _, u := range r.users {
		if u.Role != models.RoleAgent || u.AccountStatus != models.StatusActive || u.ReferralCode == nil {
			continue
		}
		if best == nil || u.ID < best.ID {
			best = u
		}
	}
	if best == nil {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *best
	return &cp, nil
}

func (r *fakeUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.GetByEmail(ctx, email)
	if err == nil {
		return true, nil
	}
	return false, nil
}

func (r *fakeUserRepo) ExistsByReferralCode(ctx context.Context, code string) (bool, error) {
	_, err := r.GetByReferralCode(ctx, code)
	if err == nil {
		return true, nil
	}
	return false, nil
}

type fakeAgentRepo struct {
	mu       sync.Mutex
	nextID   uint
	profiles map[uint]*models.AgentProfile // keyed by user ID
}

func newFakeAgentRepo() *fakeAgentRepo {
	return &fakeAgentRepo{profiles: map[uint]*models.AgentProfile{}}
}

func (r *fakeAgentRepo) Create(_ context.Context, profile *models.AgentProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	profile.ID = r.nextID
	cp := *profile
	r.profiles[profile.UserID] = &cp
	return nil
}

func (r *fakeAgentRepo) GetByUserID(_ context.Context, userID uint) (*models.AgentProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakeAgentRepo) Update(_ context.Context, profile *models.AgentProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.profiles[profile.UserID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *profile
	r.profiles[profile.UserID] = &cp
	return nil
}

type fakeRenterRepo struct {
	mu       sync.Mutex
	nextID   uint
	profiles map[uint]*models.RenterProfile // keyed by user ID
}

func newFakeRenterRepo() *fakeRenterRepo {
	return &fakeRenterRepo{profiles: map[uint]*models.RenterProfile{}}
}

func (r *fakeRenterRepo) Create(_ context.Context, profile *models.RenterProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	profile.ID = r.nextID
	cp := *profile
	r.profiles[profile.UserID] = &cp
	return nil
}

func (r *fakeRenterRepo) GetByUserID(_ context.Context, userID uint) (*models.RenterProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakeRenterRepo) AssignReferrer(_ context.Context, userID uint, fields map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for k, v := range fields {
		id := v.(uint)
		switch k {
		case "referred_by_agent_id":
			p.ReferredByAgentID = &id
		case "referred_by_admin_id":
			p.ReferredByAdminID = &id
		}
	}
	return nil
}

type fakeOTPRepo struct {
	mu      sync.Mutex
	nextID  uint
	records []*models.OTPRecord
}

func newFakeOTPRepo() *fakeOTPRepo {
	return &fakeOTPRepo{}
}

func (r *fakeOTPRepo) Create(_ context.Context, record *models.OTPRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	record.ID = r.nextID
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	record.Email = strings.ToLower(record.Email)
	cp := *record
	r.records = append(r.records, &cp)
	return nil
}

func (r *fakeOTPRepo) current(match func(*models.OTPRecord) bool) (*models.OTPRecord, error) {
	var best *models.OTPRecord
	for _, rec := range r.records {
		if rec.InvalidatedAt != nil || !match(rec) {
			continue
		}
		if best == nil || rec.CreatedAt.After(best.CreatedAt) {
			best = rec
		}
	}
	if best == nil {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *best
	return &cp, nil
}

func (r *fakeOTPRepo) GetCurrent(_ context.Context, userID uint, purpose string) (*models.OTPRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current(func(rec *models.OTPRecord) bool {
		return rec.UserID == userID && rec.Purpose == purpose
	})
}

func (r *fakeOTPRepo) GetCurrentByEmail(_ context.Context, email, purpose string) (*models.OTPRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current(func(rec *models.OTPRecord) bool {
		return rec.Email == strings.ToLower(email) && rec.Purpose == purpose
	})
}

func (r *fakeOTPRepo) IncrementAttempts(_ context.Context, id uint, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.ID == id {
			rec.Attempts++
			rec.LastAttemptAt = &at
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *fakeOTPRepo) MarkVerified(_ context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.ID == id {
			rec.Verified = true
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *fakeOTPRepo) InvalidatePrevious(_ context.Context, userID uint, purpose string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for _, rec := range r.records {
		if rec.UserID == userID && rec.Purpose == purpose && rec.InvalidatedAt == nil {
			at := now
			rec.InvalidatedAt = &at
		}
	}
	return nil
}

func (r *fakeOTPRepo) CountCreatedSince(_ context.Context, userID uint, purpose string, since time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, rec := range r.records {
		if rec.UserID == userID && rec.Purpose == purpose && rec.CreatedAt.After(since) {
			n++
		}
	}
	return n, nil
}

func (r *fakeOTPRepo) OldestCreatedSince(_ context.Context, userID uint, purpose string, since time.Time) (*time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var oldest *time.Time
	for _, rec := range r.records {
		if rec.UserID != userID || rec.Purpose != purpose || rec.CreatedAt.Before(since) {
			continue
		}
		if oldest == nil || rec.CreatedAt.Before(*oldest) {
			at := rec.CreatedAt
			oldest = &at
		}
	}
	return oldest, nil
}

func (r *fakeOTPRepo) DeleteDeadBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []*models.OTPRecord
	var deleted int64
	for _, rec := range r.records {
		dead := (rec.InvalidatedAt != nil && rec.InvalidatedAt.Before(cutoff)) ||
			rec.ExpiresAt.Before(cutoff)
		if dead {
			deleted++
			continue
		}
		kept = append(kept, rec)
	}
	r.records = kept
	return deleted, nil
}

// openRecords returns the non-invalidated records for assertions
func (r *fakeOTPRepo) openRecords(userID uint, purpose string) []*models.OTPRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.OTPRecord
	for _, rec := range r.records {
		if rec.UserID == userID && rec.Purpose == purpose && rec.InvalidatedAt == nil {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out
}

// mutate adjusts a stored record in place, for tests that need to move
// timestamps around
func (r *fakeOTPRepo) mutate(id uint, fn func(*models.OTPRecord)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.ID == id {
			fn(rec)
			return
		}
	}
}

// sentEmail records one dispatcher call
type sentEmail struct {
	Kind string // "verify", "reset", "temp_password", "welcome"
	To   string
	Code string
}

type fakeDispatcher struct {
	mu   sync.Mutex
	sent []sentEmail
}

func newFakeDispatcher() *fakeDispatcher {
	return &fakeDispatcher{}
}

func (d *fakeDispatcher) SendVerificationCode(to, _ string, code string, _ time.Duration) {
	d.record(sentEmail{Kind: "verify", To: to, Code: code})
}

func (d *fakeDispatcher) SendPasswordResetCode(to, _ string, code string, _ time.Duration) {
	d.record(sentEmail{Kind: "reset", To: to, Code: code})
}

func (d *fakeDispatcher) SendTemporaryPassword(to, _ string, tempPassword string) {
	d.record(sentEmail{Kind: "temp_password", To: to, Code: tempPassword})
}

func (d *fakeDispatcher) SendWelcome(to, _ string) {
	d.record(sentEmail{Kind: "welcome", To: to})
}

func (d *fakeDispatcher) record(e sentEmail) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, e)
}

func (d *fakeDispatcher) byKind(kind string) []sentEmail {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []sentEmail
	for _, e := range d.sent {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// testConfig returns the policy set used across service tests
func testConfig() *config.Config {
	return &config.Config{
		AppMode: "dev",
		JWT: config.JWTConfig{
			Secret:           "test-access-secret",
			RefreshSecret:    "test-refresh-secret",
			AccessTokenMins:  15,
			RefreshTokenDays: 7,
		},
		OTP: config.OTPConfig{
			EmailVerification: config.OTPPurposeConfig{
				CodeLength:        4,
				TTL:               10 * time.Minute,
				MaxAttempts:       5,
				MinResendInterval: 60 * time.Second,
				MaxResendsPerHour: 5,
			},
			PasswordReset: config.OTPPurposeConfig{
				CodeLength:        6,
				TTL:               15 * time.Minute,
				MaxAttempts:       5,
				MinResendInterval: 60 * time.Second,
				MaxResendsPerHour: 5,
			},
		},
		Referral: config.ReferralConfig{
			FrontendURL: "https://app.renteasy.app",
		},
	}
}
