package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"time"

	"renteasy/internal/adapters/persistence/models"
	"renteasy/internal/adapters/persistence/repositories"
	"renteasy/internal/config"
	"renteasy/internal/core/domain"

	"gorm.io/gorm"
)

// OTPService manages the one-time passcode lifecycle for all purposes
// (email verification, password reset). Codes are durable records; among
// the open rows for a (user, purpose) at most one is current, older ones
// are invalidated before a new code is issued.
type OTPService struct {
	otpRepo  repositories.OTPRepository
	policies map[string]config.OTPPurposeConfig
	email    EmailDispatcher
}

// NewOTPService creates a new OTP service
func NewOTPService(otpRepo repositories.OTPRepository, cfg *config.Config, email EmailDispatcher) *OTPService {
	return &OTPService{
		otpRepo: otpRepo,
		policies: map[string]config.OTPPurposeConfig{
			models.PurposeEmailVerification: cfg.OTP.EmailVerification,
			models.PurposePasswordReset:     cfg.OTP.PasswordReset,
		},
		email: email,
	}
}

func (s *OTPService) policy(purpose string) config.OTPPurposeConfig {
	return s.policies[purpose]
}

// Issue generates a fresh code for a user and purpose. Any previous open
// record is invalidated first so only one code is ever current.
func (s *OTPService) Issue(ctx context.Context, userID uint, email, purpose string) (*models.OTPRecord, error) {
	pol := s.policy(purpose)
	if pol.CodeLength == 0 {
		return nil, fmt.Errorf("unknown otp purpose: %s", purpose)
	}

	if err := s.otpRepo.InvalidatePrevious(ctx, userID, purpose); err != nil {
		return nil, err
	}

	code, err := generateNumericCode(pol.CodeLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate code: %w", err)
	}

	record := &models.OTPRecord{
		UserID:      userID,
		Email:       email,
		Purpose:     purpose,
		Code:        code,
		ExpiresAt:   time.Now().Add(pol.TTL),
		Attempts:    0,
		MaxAttempts: pol.MaxAttempts,
		Verified:    false,
	}

	if err := s.otpRepo.Create(ctx, record); err != nil {
		return nil, err
	}

	return record, nil
}

// Verify checks a candidate code against the current record.
// The attempts ceiling is sticky: once reached, even the correct code fails.
// A record already verified accepts a matching code again without counting
// an attempt, so a verify-then-confirm flow can present the code twice.
func (s *OTPService) Verify(ctx context.Context, email, purpose, candidate string) (*models.OTPRecord, error) {
	record, err := s.otpRepo.GetCurrentByEmail(ctx, email, purpose)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOTPNotFound
		}
		return nil, err
	}

	if record.Verified {
		if record.Code == candidate {
			return record, nil
		}
		return nil, domain.ErrOTPMismatch
	}

	if record.IsExhausted() {
		return nil, domain.ErrOTPMaxAttempts
	}

	if record.IsExpired() {
		return nil, domain.ErrOTPExpired
	}

	if record.Code != candidate {
		if err := s.otpRepo.IncrementAttempts(ctx, record.ID, time.Now()); err != nil {
			return nil, err
		}
		record.Attempts++
		if record.IsExhausted() {
			return nil, domain.ErrOTPMaxAttempts
		}
		return nil, domain.ErrOTPMismatch
	}

	if err := s.otpRepo.MarkVerified(ctx, record.ID); err != nil {
		return nil, err
	}
	record.Verified = true

	return record, nil
}

// Resend invalidates the current code and issues a new one, subject to two
// independent throttle gates: a minimum interval since the last activity on
// the current record, and a cap on codes created within the trailing hour.
// On success the new code is dispatched by email; a dispatch failure never
// fails the resend.
func (s *OTPService) Resend(ctx context.Context, email, displayName, purpose string) (*models.OTPRecord, error) {
	pol := s.policy(purpose)

	current, err := s.otpRepo.GetCurrentByEmail(ctx, email, purpose)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOTPNotFound
		}
		return nil, err
	}

	if current.Verified {
		return nil, domain.ErrOTPAlreadyVerified
	}

	// Gate 1: minimum interval since the last verification attempt on the
	// current record (or its creation when no attempt was made).
	last := current.CreatedAt
	if current.LastAttemptAt != nil && current.LastAttemptAt.After(last) {
		last = *current.LastAttemptAt
	}
	if wait := pol.MinResendInterval - time.Since(last); wait > 0 {
		return nil, &domain.ThrottledError{
			RetryAfter: wait,
			Reason:     "please wait before requesting a new code",
		}
	}

	// Gate 2: rolling-hour cap on issued codes. The retry time is when the
	// oldest record in the window ages out of it.
	windowStart := time.Now().Add(-time.Hour)
	created, err := s.otpRepo.CountCreatedSince(ctx, current.UserID, purpose, windowStart)
	if err != nil {
		return nil, err
	}
	if created >= int64(pol.MaxResendsPerHour) {
		retry := time.Hour
		oldest, err := s.otpRepo.OldestCreatedSince(ctx, current.UserID, purpose, windowStart)
		if err != nil {
			return nil, err
		}
		if oldest != nil {
			if until := time.Until(oldest.Add(time.Hour)); until > 0 {
				retry = until
			}
		}
		return nil, &domain.ThrottledError{
			RetryAfter: retry,
			Reason:     "hourly code limit reached",
		}
	}

	record, err := s.Issue(ctx, current.UserID, email, purpose)
	if err != nil {
		return nil, err
	}

	if s.email != nil {
		switch purpose {
		case models.PurposePasswordReset:
			s.email.SendPasswordResetCode(email, displayName, record.Code, pol.TTL)
		default:
			s.email.SendVerificationCode(email, displayName, record.Code, pol.TTL)
		}
	}

	log.Printf("✅ OTP resent [purpose: %s] for %s", purpose, email)
	return record, nil
}

// Invalidate closes the current record for a user and purpose. Called after
// a password reset completes so the verified code cannot be replayed.
func (s *OTPService) Invalidate(ctx context.Context, userID uint, purpose string) error {
	return s.otpRepo.InvalidatePrevious(ctx, userID, purpose)
}

// generateNumericCode generates a cryptographically secure random numeric code
func generateNumericCode(length int) (string, error) {
	result := ""
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		result += fmt.Sprintf("%d", n.Int64())
	}
	return result, nil
}
