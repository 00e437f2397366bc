package domain

import (
	"errors"
	"fmt"
	"time"
)

// Credential and account errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountInactive    = errors.New("account is inactive")
	ErrAccountSuspended   = errors.New("account is suspended")
	ErrEmailNotVerified   = errors.New("email not verified")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")
	ErrProfileNotFound    = errors.New("profile not found")
	ErrPasswordRequired   = errors.New("password is required")
)

// Token errors
var (
	ErrTokenInvalid = errors.New("token is invalid")
	ErrTokenExpired = errors.New("token has expired")
)

// Referral errors
var (
	ErrReferralFormat   = errors.New("referral code format is invalid")
	ErrReferralNotFound = errors.New("referral code not found")
	ErrReferralInvalid  = errors.New("referral code owner cannot accept referrals")
	ErrReferralTaken    = errors.New("referral code already in use")
	ErrReferralMismatch = errors.New("cannot switch referral")
)

// OTP errors
var (
	ErrOTPNotFound        = errors.New("no verification code found")
	ErrOTPExpired         = errors.New("verification code has expired")
	ErrOTPMismatch        = errors.New("verification code is incorrect")
	ErrOTPMaxAttempts     = errors.New("maximum verification attempts exceeded")
	ErrOTPAlreadyVerified = errors.New("verification code already used")
	ErrOTPThrottled       = errors.New("too many verification code requests")
)

// ThrottledError reports an OTP resend rejection with the time the caller
// has to wait before the next attempt can succeed.
type ThrottledError struct {
	RetryAfter time.Duration
	Reason     string
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("%s (retry after %s)", e.Reason, e.RetryAfter.Round(time.Second))
}

// Is lets errors.Is(err, ErrOTPThrottled) match a ThrottledError.
func (e *ThrottledError) Is(target error) bool {
	return target == ErrOTPThrottled
}

// ErrReferralRequired is the sentinel matched by ReferralRequiredError.
var ErrReferralRequired = errors.New("referral code required")

// SuggestedReferrer is the fallback referrer payload attached to a
// referral-required login rejection.
type SuggestedReferrer struct {
	UserID       uint   `json:"user_id"`
	FullName     string `json:"full_name"`
	ReferralCode string `json:"referral_code"`
}

// ReferralRequiredError rejects a renter login that has no referrer assigned
// and no referral code supplied. It carries a suggested default agent the
// client can offer to the user.
type ReferralRequiredError struct {
	Suggested *SuggestedReferrer
}

func (e *ReferralRequiredError) Error() string {
	return "referral code required to complete login"
}

func (e *ReferralRequiredError) Is(target error) bool {
	return target == ErrReferralRequired
}
