package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/geekyuvi069/CureLink/pkg/logging"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const defaultFromName = "CureLink Clinic"

// EmailSender defines the interface for sending emails.
// Implementations can be swapped (SendGrid, SES, stub) without changing callers.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// Simulator is implemented by senders that only log instead of delivering.
type Simulator interface {
	Simulated() bool
}

// IsSimulated reports whether sender never delivers real mail.
func IsSimulated(sender EmailSender) bool {
	s, ok := sender.(Simulator)
	return ok && s.Simulated()
}

// EmailMessage represents an email to be sent.
type EmailMessage struct {
	To      string
	ToName  string
	Subject string
	Body    string // Plain text body
	HTML    string // Optional HTML body
}

// SendGridSender sends emails via SendGrid API.
type SendGridSender struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
	logger    *logging.Logger
}

// SendGridConfig holds configuration for SendGrid.
type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
	// Endpoint overrides the mail send URL (tests, regional hosts).
	Endpoint string
}

// NewSendGridSender creates a new SendGrid email sender.
func NewSendGridSender(cfg SendGridConfig, logger *logging.Logger) *SendGridSender {
	if cfg.APIKey == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.FromName == "" {
		cfg.FromName = defaultFromName
	}
	client := sendgrid.NewSendClient(cfg.APIKey)
	if cfg.Endpoint != "" {
		client.BaseURL = cfg.Endpoint
	}
	return &SendGridSender{
		client:    client,
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		logger:    logger,
	}
}

// Send sends an email via SendGrid.
func (s *SendGridSender) Send(ctx context.Context, msg EmailMessage) error {
	if s.client == nil {
		return fmt.Errorf("notify: sendgrid client not configured")
	}

	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(msg.ToName, msg.To)

	htmlBody := msg.HTML
	if htmlBody == "" {
		htmlBody = msg.Body
	}
	message := mail.NewSingleEmail(from, msg.Subject, to, msg.Body, htmlBody)

	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		s.logger.Error("sendgrid send failed", "error", err, "to", msg.To)
		return fmt.Errorf("notify: sendgrid send failed: %w", err)
	}

	if response.StatusCode >= 400 {
		s.logger.Error("sendgrid returned error status", "status", response.StatusCode, "body", response.Body, "to", msg.To)
		return fmt.Errorf("notify: sendgrid returned status %d", response.StatusCode)
	}

	s.logger.Info("email sent via sendgrid", "to", msg.To, "subject", msg.Subject, "status", response.StatusCode)
	return nil
}

// StubEmailSender is a no-op sender used when no mail relay is configured.
type StubEmailSender struct {
	logger *logging.Logger
}

// NewStubEmailSender creates a stub email sender that logs but doesn't send.
func NewStubEmailSender(logger *logging.Logger) *StubEmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &StubEmailSender{logger: logger}
}

// Send logs the email but doesn't actually send it.
func (s *StubEmailSender) Send(ctx context.Context, msg EmailMessage) error {
	s.logger.Info("stub email sender: would send email", "to", msg.To, "subject", msg.Subject, "body", msg.Body)
	return nil
}

func (s *StubEmailSender) Simulated() bool { return true }

// AppointmentConfirmation describes a booked visit for the patient email.
type AppointmentConfirmation struct {
	PatientName  string
	PatientEmail string
	DoctorName   string
	When         string
	Reason       string
	CalendarLink string
}

// ConfirmationEmail renders the patient-facing confirmation message.
func ConfirmationEmail(c AppointmentConfirmation) EmailMessage {
	var text strings.Builder
	fmt.Fprintf(&text, "Dear %s,\n\n", c.PatientName)
	fmt.Fprintf(&text, "Your appointment with %s is confirmed for %s.\n", c.DoctorName, c.When)
	if c.Reason != "" {
		fmt.Fprintf(&text, "Reason for visit: %s\n", c.Reason)
	}
	if c.CalendarLink != "" {
		fmt.Fprintf(&text, "Calendar: %s\n", c.CalendarLink)
	}
	text.WriteString("\nPlease arrive 10 minutes early.\n")

	var body strings.Builder
	body.WriteString("<h2>Appointment Confirmed</h2>")
	fmt.Fprintf(&body, "<p>Dear %s,</p>", html.EscapeString(c.PatientName))
	fmt.Fprintf(&body, "<p>Your appointment with <strong>%s</strong> is confirmed for <strong>%s</strong>.</p>",
		html.EscapeString(c.DoctorName), html.EscapeString(c.When))
	if c.Reason != "" {
		fmt.Fprintf(&body, "<p>Reason for visit: %s</p>", html.EscapeString(c.Reason))
	}
	if c.CalendarLink != "" {
		fmt.Fprintf(&body, `<p><a href="%s">View in Google Calendar</a></p>`, html.EscapeString(c.CalendarLink))
	}
	body.WriteString("<p>Please arrive 10 minutes early.</p>")

	return EmailMessage{
		To:      c.PatientEmail,
		ToName:  c.PatientName,
		Subject: "Appointment Confirmation: " + c.DoctorName,
		Body:    text.String(),
		HTML:    body.String(),
	}
}

var (
	_ EmailSender = (*SendGridSender)(nil)
	_ EmailSender = (*StubEmailSender)(nil)
)
