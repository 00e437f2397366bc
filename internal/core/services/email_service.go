package services

import (
	"crypto/tls"
	"fmt"
	"log"
	"net/smtp"
	"time"

	"renteasy/internal/config"

	"github.com/google/uuid"
)

const emailQueueSize = 128

// emailJob is one queued outbound message
type emailJob struct {
	ID      string
	To      string
	Subject string
	Body    string
}

// EmailService delivers transactional email through a buffered job queue
// with a single worker goroutine. Enqueueing never blocks the caller and a
// delivery failure is logged with the job ID, never propagated: email is
// always fire-and-forget relative to the request that triggered it.
// Without SMTP configuration the service runs disabled and only logs.
type EmailService struct {
	smtp    config.SMTPConfig
	enabled bool
	jobs    chan emailJob
	done    chan struct{}
}

// NewEmailService creates the email service and starts its worker
func NewEmailService(cfg *config.Config) *EmailService {
	s := &EmailService{
		smtp:    cfg.SMTP,
		enabled: cfg.SMTP.Host != "",
		jobs:    make(chan emailJob, emailQueueSize),
		done:    make(chan struct{}),
	}
	go s.worker()

	if !s.enabled {
		log.Println("⚠️ Email dispatch disabled: SMTP_HOST not set (payloads will be logged)")
	}
	return s
}

// Stop drains the queue and stops the worker
func (s *EmailService) Stop() {
	close(s.jobs)
	<-s.done
}

// SendVerificationCode dispatches an email-verification code
func (s *EmailService) SendVerificationCode(to, name, code string, ttl time.Duration) {
	body := fmt.Sprintf(`<p>Hi %s,</p>
<p>Your RentEasy verification code is:</p>
<h2>%s</h2>
<p>The code expires in %d minutes.</p>`,
		greet(name), code, int(ttl.Minutes()))

	s.enqueue(to, "Verify your email address", body)
}

// SendPasswordResetCode dispatches a password-reset code
func (s *EmailService) SendPasswordResetCode(to, name, code string, ttl time.Duration) {
	body := fmt.Sprintf(`<p>Hi %s,</p>
<p>Your RentEasy password reset code is:</p>
<h2>%s</h2>
<p>The code expires in %d minutes. If you did not request a reset, you can ignore this email.</p>`,
		greet(name), code, int(ttl.Minutes()))

	s.enqueue(to, "Reset your password", body)
}

// SendTemporaryPassword dispatches the one-time credential created by an
// admin-referral registration. The plain password exists nowhere else.
func (s *EmailService) SendTemporaryPassword(to, name, tempPassword string) {
	body := fmt.Sprintf(`<p>Hi %s,</p>
<p>An account has been created for you on RentEasy. Sign in with this temporary password:</p>
<h2>%s</h2>
<p>You will be asked to choose a new password on first login.</p>`,
		greet(name), tempPassword)

	s.enqueue(to, "Your RentEasy account", body)
}

// SendWelcome dispatches the post-verification welcome email
func (s *EmailService) SendWelcome(to, name string) {
	body := fmt.Sprintf(`<p>Hi %s,</p>
<p>Your email address is verified and your RentEasy account is ready.</p>
<p>Happy house hunting!</p>`,
		greet(name))

	s.enqueue(to, "Welcome to RentEasy", body)
}

// enqueue submits a job without blocking; a full queue drops the message
// with a log line
func (s *EmailService) enqueue(to, subject, body string) {
	job := emailJob{
		ID:      uuid.New().String(),
		To:      to,
		Subject: subject,
		Body:    body,
	}

	select {
	case s.jobs <- job:
	default:
		log.Printf("❌ Email queue full, dropped job %s [%s] to %s", job.ID, subject, to)
	}
}

// worker delivers queued jobs one at a time
func (s *EmailService) worker() {
	defer close(s.done)

	for job := range s.jobs {
		if !s.enabled {
			log.Printf("📧 [disabled] job %s to %s: %s", job.ID, job.To, job.Subject)
			continue
		}
		if err := s.send(job); err != nil {
			log.Printf("❌ Email job %s [%s] to %s failed: %v", job.ID, job.Subject, job.To, err)
			continue
		}
		log.Printf("✅ Email job %s [%s] sent to %s", job.ID, job.Subject, job.To)
	}
}

// send delivers one message over SMTP with implicit TLS
func (s *EmailService) send(job emailJob) error {
	from := s.smtp.From
	msg := []byte(
		fmt.Sprintf("From: %s\r\n", from) +
			fmt.Sprintf("To: %s\r\n", job.To) +
			fmt.Sprintf("Subject: %s\r\n", job.Subject) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=\"utf-8\"\r\n" +
			"\r\n" +
			job.Body,
	)

	serverAddr := s.smtp.Host + ":" + s.smtp.Port

	// Implicit TLS for port 465
	conn, err := tls.Dial("tcp", serverAddr, &tls.Config{ServerName: s.smtp.Host})
	if err != nil {
		return err
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, s.smtp.Host)
	if err != nil {
		return err
	}
	defer client.Quit()

	auth := smtp.PlainAuth("", s.smtp.Username, s.smtp.Password, s.smtp.Host)
	if err := client.Auth(auth); err != nil {
		return err
	}

	if err := client.Mail(from); err != nil {
		return err
	}
	if err := client.Rcpt(job.To); err != nil {
		return err
	}

	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	return w.Close()
}

func greet(name string) string {
	if name == "" {
		return "there"
	}
	return name
}
