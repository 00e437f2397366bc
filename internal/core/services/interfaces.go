package services

import "time"

// EmailDispatcher is the outbound email collaborator. Every method is
// fire-and-forget: implementations enqueue and return immediately, and a
// delivery failure is logged by the dispatcher, never surfaced to callers.
type EmailDispatcher interface {
	SendVerificationCode(to, name, code string, ttl time.Duration)
	SendPasswordResetCode(to, name, code string, ttl time.Duration)
	SendTemporaryPassword(to, name, tempPassword string)
	SendWelcome(to, name string)
}
