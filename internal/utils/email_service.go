package utils

import (
	"fmt"
	"net/smtp"
	"strings"

	"RIDESHARE_BACK-END/internal/config"
)

// Mailer sends plain text mail.
type Mailer interface {
	Send(to, subject, body string) error
}

// EmailService handles email sending operations
type EmailService struct {
	config *config.EmailConfig
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewEmailService creates a new email service instance
func NewEmailService(cfg *config.EmailConfig) *EmailService {
	return &EmailService{
		config: cfg,
		send:   smtp.SendMail,
	}
}

// TripDeletedBody renders the notice mailed to participants of a deleted trip.
func TripDeletedBody(route, departureDate, departureTime string) string {
	return fmt.Sprintf(`
Hello,

The trip %s departing on %s at %s has been deleted by its owner.
Any tickets you held for it are no longer valid.

Best regards,
Rideshare Team
`, route, departureDate, departureTime)
}

// Send sends an email using SMTP
func (e *EmailService) Send(to, subject, body string) error {
	if e.config.SMTPUsername == "" || e.config.SMTPPassword == "" {
		return fmt.Errorf("email credentials not configured")
	}
	if strings.ContainsAny(to, "\r\n") || strings.ContainsAny(subject, "\r\n") {
		return fmt.Errorf("invalid header value")
	}

	auth := smtp.PlainAuth("", e.config.SMTPUsername, e.config.SMTPPassword, e.config.SMTPHost)

	fromEmail := e.config.FromEmail
	if fromEmail == "" {
		fromEmail = e.config.SMTPUsername
	}

	message := []byte(fmt.Sprintf(
		"From: %s <%s>\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"\r\n"+
			"%s\r\n",
		e.config.FromName, fromEmail, to, subject, body))

	addr := e.config.SMTPHost + ":" + e.config.SMTPPort
	if err := e.send(addr, auth, fromEmail, []string{to}, message); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}
