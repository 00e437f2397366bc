package repositories

import (
	"context"
	"strings"
	"time"

	"renteasy/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// otpRepository implements OTPRepository interface
type otpRepository struct {
	db *gorm.DB
}

// NewOTPRepository creates a new OTP repository
func NewOTPRepository(db *gorm.DB) OTPRepository {
	return &otpRepository{db: db}
}

// Create creates a new OTP record. The email is stored lowercase like the
// identity store stores it.
func (r *otpRepository) Create(ctx context.Context, record *models.OTPRecord) error {
	record.Email = strings.ToLower(record.Email)
	return r.db.WithContext(ctx).Create(record).Error
}

// GetCurrent gets the current (non-invalidated) record for a user and purpose
func (r *otpRepository) GetCurrent(ctx context.Context, userID uint, purpose string) (*models.OTPRecord, error) {
	var record models.OTPRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("purpose = ?", purpose).
		Where("invalidated_at IS NULL").
		Order("created_at DESC").
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// GetCurrentByEmail gets the current record for an email and purpose.
// Emails are stored lowercase, matching the identity store.
func (r *otpRepository) GetCurrentByEmail(ctx context.Context, email, purpose string) (*models.OTPRecord, error) {
	var record models.OTPRecord
	err := r.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(email)).
		Where("purpose = ?", purpose).
		Where("invalidated_at IS NULL").
		Order("created_at DESC").
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// IncrementAttempts records a failed verification attempt
func (r *otpRepository) IncrementAttempts(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.OTPRecord{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"attempts":        gorm.Expr("attempts + 1"),
			"last_attempt_at": &at,
		}).Error
}

// MarkVerified marks a record verified (terminal state)
func (r *otpRepository) MarkVerified(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).
		Model(&models.OTPRecord{}).
		Where("id = ?", id).
		Update("verified", true).Error
}

// InvalidatePrevious logically expires every open record for a user and
// purpose. Called immediately before any new code is issued so that at most
// one record is ever current. Rows are kept for audit.
func (r *otpRepository) InvalidatePrevious(ctx context.Context, userID uint, purpose string) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&models.OTPRecord{}).
		Where("user_id = ?", userID).
		Where("purpose = ?", purpose).
		Where("invalidated_at IS NULL").
		Update("invalidated_at", &now).Error
}

// CountCreatedSince counts records created for a user and purpose since the
// given time. Feeds the rolling-hour resend cap.
func (r *otpRepository) CountCreatedSince(ctx context.Context, userID uint, purpose string, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.OTPRecord{}).
		Where("user_id = ?", userID).
		Where("purpose = ?", purpose).
		Where("created_at >= ?", since).
		Count(&count).Error
	return count, err
}

// OldestCreatedSince returns the creation time of the oldest record in the
// window, or nil when the window is empty. Feeds the computed retry time of
// the hourly-cap rejection.
func (r *otpRepository) OldestCreatedSince(ctx context.Context, userID uint, purpose string, since time.Time) (*time.Time, error) {
	var record models.OTPRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("purpose = ?", purpose).
		Where("created_at >= ?", since).
		Order("created_at ASC").
		First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &record.CreatedAt, nil
}

// DeleteDeadBefore deletes expired or invalidated records older than the
// cutoff (cleanup job)
func (r *otpRepository) DeleteDeadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at < ?", cutoff).
		Or("invalidated_at IS NOT NULL AND invalidated_at < ?", cutoff).
		Delete(&models.OTPRecord{})
	return result.RowsAffected, result.Error
}
