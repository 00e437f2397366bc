package services

import (
	"context"
	"testing"
	"time"

	"renteasy/internal/adapters/persistence/models"
	"renteasy/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOTPFixture() (*OTPService, *fakeOTPRepo, *fakeDispatcher) {
	repo := newFakeOTPRepo()
	dispatcher := newFakeDispatcher()
	return NewOTPService(repo, testConfig(), dispatcher), repo, dispatcher
}

func TestOTPIssueCodeLengths(t *testing.T) {
	svc, _, _ := newOTPFixture()
	ctx := context.Background()

	verify, err := svc.Issue(ctx, 1, "a@b.c", models.PurposeEmailVerification)
	require.NoError(t, err)
	assert.Len(t, verify.Code, 4)
	assert.Equal(t, 5, verify.MaxAttempts)

	reset, err := svc.Issue(ctx, 1, "a@b.c", models.PurposePasswordReset)
	require.NoError(t, err)
	assert.Len(t, reset.Code, 6)
}

func TestOTPIssueInvalidatesPrevious(t *testing.T) {
	svc, repo, _ := newOTPFixture()
	ctx := context.Background()

	first, err := svc.Issue(ctx, 1, "a@b.c", models.PurposeEmailVerification)
	require.NoError(t, err)
	second, err := svc.Issue(ctx, 1, "a@b.c", models.PurposeEmailVerification)
	require.NoError(t, err)

	open := repo.openRecords(1, models.PurposeEmailVerification)
	require.Len(t, open, 1)
	assert.Equal(t, second.ID, open[0].ID)

	// The first code is no longer current, so only the second verifies
	_, err = svc.Verify(ctx, "a@b.c", models.PurposeEmailVerification, first.Code)
	if first.Code != second.Code {
		assert.ErrorIs(t, err, domain.ErrOTPMismatch)
	}
}

func TestOTPIssueUnknownPurpose(t *testing.T) {
	svc, _, _ := newOTPFixture()
	_, err := svc.Issue(context.Background(), 1, "a@b.c", "something_else")
	assert.Error(t, err)
}

func TestOTPVerifySuccess(t *testing.T) {
	svc, _, _ := newOTPFixture()
	ctx := context.Background()

	record, err := svc.Issue(ctx, 1, "a@b.c", models.PurposeEmailVerification)
	require.NoError(t, err)

	verified, err := svc.Verify(ctx, "a@b.c", models.PurposeEmailVerification, record.Code)
	require.NoError(t, err)
	assert.True(t, verified.Verified)
}

func TestOTPEmailCaseInsensitive(t *testing.T) {
	svc, _, _ := newOTPFixture()
	ctx := context.Background()

	// Records are stored with the email lowercased, so lookups succeed
	// regardless of how the caller cased the address
	record, err := svc.Issue(ctx, 1, "Ann.User@Example.COM", models.PurposeEmailVerification)
	require.NoError(t, err)
	assert.Equal(t, "ann.user@example.com", record.Email)

	verified, err := svc.Verify(ctx, "ANN.USER@example.com", models.PurposeEmailVerification, record.Code)
	require.NoError(t, err)
	assert.True(t, verified.Verified)
}

func TestOTPVerifyNoCode(t *testing.T) {
	svc, _, _ := newOTPFixture()
	_, err := svc.Verify(context.Background(), "nobody@b.c", models.PurposeEmailVerification, "1234")
	assert.ErrorIs(t, err, domain.ErrOTPNotFound)
}

func TestOTPVerifyMismatchCountsAttempt(t *testing.T) {
	svc, repo, _ := newOTPFixture()
	ctx := context.Background()

	record, err := svc.Issue(ctx, 1, "a@b.c", models.PurposeEmailVerification)
	require.NoError(t, err)

	wrong := "0000"
	if record.Code == wrong {
		wrong = "1111"
	}

	_, err = svc.Verify(ctx, "a@b.c", models.PurposeEmailVerification, wrong)
	assert.ErrorIs(t, err, domain.ErrOTPMismatch)

	open := repo.openRecords(1, models.PurposeEmailVerification)
	require.Len(t, open, 1)
	assert.Equal(t, 1, open[0].Attempts)
	assert.NotNil(t, open[0].LastAttemptAt)
}

func TestOTPAttemptsCeilingIsSticky(t *testing.T) {
	svc, _, _ := newOTPFixture()
	ctx := context.Background()

	record, err := svc.Issue(ctx, 1, "a@b.c", models.PurposeEmailVerification)
	require.NoError(t, err)

	wrong := "0000"
	if record.Code == wrong {
		wrong = "1111"
	}

	for i := 0; i < 4; i++ {
		_, err = svc.Verify(ctx, "a@b.c", models.PurposeEmailVerification, wrong)
		assert.ErrorIs(t, err, domain.ErrOTPMismatch)
	}

	// Fifth wrong attempt reaches the ceiling
	_, err = svc.Verify(ctx, "a@b.c", models.PurposeEmailVerification, wrong)
	assert.ErrorIs(t, err, domain.ErrOTPMaxAttempts)

	// Even the correct code fails now
	_, err = svc.Verify(ctx, "a@b.c", models.PurposeEmailVerification, record.Code)
	assert.ErrorIs(t, err, domain.ErrOTPMaxAttempts)
}

func TestOTPVerifyExpired(t *testing.T) {
	svc, repo, _ := newOTPFixture()
	ctx := context.Background()

	record, err := svc.Issue(ctx, 1, "a@b.c", models.PurposeEmailVerification)
	require.NoError(t, err)

	repo.mutate(record.ID, func(r *models.OTPRecord) {
		r.ExpiresAt = time.Now().Add(-time.Minute)
	})

	_, err = svc.Verify(ctx, "a@b.c", models.PurposeEmailVerification, record.Code)
	assert.ErrorIs(t, err, domain.ErrOTPExpired)
}

func TestOTPVerifyAgainAfterVerified(t *testing.T) {
	svc, _, _ := newOTPFixture()
	ctx := context.Background()

	record, err := svc.Issue(ctx, 1, "a@b.c", models.PurposePasswordReset)
	require.NoError(t, err)

	_, err = svc.Verify(ctx, "a@b.c", models.PurposePasswordReset, record.Code)
	require.NoError(t, err)

	// A verified record accepts the matching code again without counting an
	// attempt, so verify-then-confirm flows can present it twice
	again, err := svc.Verify(ctx, "a@b.c", models.PurposePasswordReset, record.Code)
	require.NoError(t, err)
	assert.True(t, again.Verified)

	wrong := "000000"
	if record.Code == wrong {
		wrong = "111111"
	}
	_, err = svc.Verify(ctx, "a@b.c", models.PurposePasswordReset, wrong)
	assert.ErrorIs(t, err, domain.ErrOTPMismatch)
}

func TestOTPResendThrottledByInterval(t *testing.T) {
	svc, _, _ := newOTPFixture()
	ctx := context.Background()

	_, err := svc.Issue(ctx, 1, "a@b.c", models.PurposeEmailVerification)
	require.NoError(t, err)

	// Immediately after issue the minimum interval has not elapsed
	_, err = svc.Resend(ctx, "a@b.c", "Ann", models.PurposeEmailVerification)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrOTPThrottled)

	var throttled *domain.ThrottledError
	require.ErrorAs(t, err, &throttled)
	assert.Greater(t, throttled.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, throttled.RetryAfter, 60*time.Second)
}

func TestOTPResendAfterIntervalIssuesFreshCode(t *testing.T) {
	svc, repo, dispatcher := newOTPFixture()
	ctx := context.Background()

	record, err := svc.Issue(ctx, 1, "a@b.c", models.PurposeEmailVerification)
	require.NoError(t, err)

	// Burn some attempts, then age the record past the resend interval
	wrong := "0000"
	if record.Code == wrong {
		wrong = "1111"
	}
	_, _ = svc.Verify(ctx, "a@b.c", models.PurposeEmailVerification, wrong)

	past := time.Now().Add(-2 * time.Minute)
	repo.mutate(record.ID, func(r *models.OTPRecord) {
		r.CreatedAt = past
		r.LastAttemptAt = &past
	})

	fresh, err := svc.Resend(ctx, "a@b.c", "Ann", models.PurposeEmailVerification)
	require.NoError(t, err)

	// The fresh record starts with a clean attempt count and is the only
	// current one
	assert.Equal(t, 0, fresh.Attempts)
	open := repo.openRecords(1, models.PurposeEmailVerification)
	require.Len(t, open, 1)
	assert.Equal(t, fresh.ID, open[0].ID)

	sent := dispatcher.byKind("verify")
	require.Len(t, sent, 1)
	assert.Equal(t, fresh.Code, sent[0].Code)
}

func TestOTPResendHourlyCap(t *testing.T) {
	svc, repo, _ := newOTPFixture()
	ctx := context.Background()

	// Five codes already created within the trailing hour
	var first, last *models.OTPRecord
	for i := 0; i < 5; i++ {
		record, err := svc.Issue(ctx, 1, "a@b.c", models.PurposeEmailVerification)
		require.NoError(t, err)
		if first == nil {
			first = record
		}
		last = record
	}

	// Age the current record past the interval gate so only the cap applies,
	// and age the oldest record so the computed retry time is observable
	repo.mutate(last.ID, func(r *models.OTPRecord) {
		r.CreatedAt = time.Now().Add(-5 * time.Minute)
	})
	repo.mutate(first.ID, func(r *models.OTPRecord) {
		r.CreatedAt = time.Now().Add(-30 * time.Minute)
	})

	_, err := svc.Resend(ctx, "a@b.c", "Ann", models.PurposeEmailVerification)
	require.Error(t, err)

	// The retry time is when the oldest record ages out of the window, not a
	// flat hour
	var throttled *domain.ThrottledError
	require.ErrorAs(t, err, &throttled)
	assert.Greater(t, throttled.RetryAfter, 29*time.Minute)
	assert.LessOrEqual(t, throttled.RetryAfter, 30*time.Minute)
}

func TestOTPResendAlreadyVerified(t *testing.T) {
	svc, _, _ := newOTPFixture()
	ctx := context.Background()

	record, err := svc.Issue(ctx, 1, "a@b.c", models.PurposeEmailVerification)
	require.NoError(t, err)
	_, err = svc.Verify(ctx, "a@b.c", models.PurposeEmailVerification, record.Code)
	require.NoError(t, err)

	_, err = svc.Resend(ctx, "a@b.c", "Ann", models.PurposeEmailVerification)
	assert.ErrorIs(t, err, domain.ErrOTPAlreadyVerified)
}

func TestOTPResendNoCurrentCode(t *testing.T) {
	svc, _, _ := newOTPFixture()
	_, err := svc.Resend(context.Background(), "nobody@b.c", "X", models.PurposeEmailVerification)
	assert.ErrorIs(t, err, domain.ErrOTPNotFound)
}

func TestOTPInvalidateClosesCurrent(t *testing.T) {
	svc, repo, _ := newOTPFixture()
	ctx := context.Background()

	_, err := svc.Issue(ctx, 1, "a@b.c", models.PurposePasswordReset)
	require.NoError(t, err)

	require.NoError(t, svc.Invalidate(ctx, 1, models.PurposePasswordReset))
	assert.Empty(t, repo.openRecords(1, models.PurposePasswordReset))
}

func TestOTPPurposesAreIndependent(t *testing.T) {
	svc, repo, _ := newOTPFixture()
	ctx := context.Background()

	_, err := svc.Issue(ctx, 1, "a@b.c", models.PurposeEmailVerification)
	require.NoError(t, err)
	_, err = svc.Issue(ctx, 1, "a@b.c", models.PurposePasswordReset)
	require.NoError(t, err)

	// Issuing a reset code must not invalidate the verification code
	assert.Len(t, repo.openRecords(1, models.PurposeEmailVerification), 1)
	assert.Len(t, repo.openRecords(1, models.PurposePasswordReset), 1)
}
