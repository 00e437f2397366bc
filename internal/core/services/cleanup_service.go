package services

import (
	"context"
	"log"
	"time"

	"renteasy/internal/adapters/persistence/repositories"

	"github.com/robfig/cron/v3"
)

// retention for expired/invalidated codes before they are purged
const otpRetention = 24 * time.Hour

// CleanupService purges dead OTP records on a nightly schedule. Expiry and
// invalidation are enforced at read time; this job only reclaims storage.
type CleanupService struct {
	otpRepo repositories.OTPRepository
	cron    *cron.Cron
}

// NewCleanupService creates a new cleanup service
func NewCleanupService(otpRepo repositories.OTPRepository) *CleanupService {
	return &CleanupService{
		otpRepo: otpRepo,
		cron:    cron.New(),
	}
}

// Start schedules the nightly purge at 03:00
func (s *CleanupService) Start() error {
	_, err := s.cron.AddFunc("0 3 * * *", func() {
		s.RunOnce(context.Background())
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	log.Println("🚀 OTP cleanup job scheduled (daily at 03:00)")
	return nil
}

// Stop stops the scheduler and waits for a running job to finish
func (s *CleanupService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("⚠️ OTP cleanup job stopped")
}

// RunOnce purges codes that have been dead longer than the retention window
func (s *CleanupService) RunOnce(ctx context.Context) {
	cutoff := time.Now().Add(-otpRetention)

	deleted, err := s.otpRepo.DeleteDeadBefore(ctx, cutoff)
	if err != nil {
		log.Printf("❌ OTP cleanup failed: %v", err)
		return
	}

	log.Printf("✅ OTP cleanup removed %d dead records", deleted)
}
