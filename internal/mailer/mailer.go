package mailer

import (
	"fmt"
	"net/smtp"

	"github.com/rs/zerolog"

	"campushub/internal/dto"
)

// SMTP carries connection details from config. Credentials never live in
// code.
type SMTP struct {
	Host     string
	Port     int
	From     string
	Password string
}

type Mailer struct {
	smtp SMTP
	log  *zerolog.Logger
}

func New(cfg SMTP, log *zerolog.Logger) *Mailer {
	return &Mailer{smtp: cfg, log: log}
}

// SendParticipationEmail notifies an account about a change in its
// participation: a confirmed registration, a cancellation, or an upcoming
// event reminder.
func (m *Mailer) SendParticipationEmail(kind, recipient, eventTitle, startTime string) error {
	var subject, body string
	switch kind {
	case dto.KindRegistrationConfirmed:
		subject = "Registration confirmed"
		body = fmt.Sprintf("Hello!\n\nYour registration for %q is confirmed.\nThe event starts at %s. See you there!", eventTitle, startTime)
	case dto.KindRegistrationCancelled:
		subject = "Registration cancelled"
		body = fmt.Sprintf("Hello!\n\nYour registration for %q has been cancelled.", eventTitle)
	case dto.KindEventReminder:
		subject = "Event reminder"
		body = fmt.Sprintf("Hello!\n\nReminder: %q starts at %s.", eventTitle, startTime)
	default:
		return fmt.Errorf("unknown notification kind %q", kind)
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		m.smtp.From, recipient, subject, body)

	addr := fmt.Sprintf("%s:%d", m.smtp.Host, m.smtp.Port)
	auth := smtp.PlainAuth("", m.smtp.From, m.smtp.Password, m.smtp.Host)

	if err := smtp.SendMail(addr, auth, m.smtp.From, []string{recipient}, []byte(msg)); err != nil {
		m.log.Warn().Msgf("failed to send %s email to %s: %v", kind, recipient, err)
		return fmt.Errorf("send email: %w", err)
	}

	m.log.Info().Str("kind", kind).Str("recipient", recipient).Msg("notification email sent")
	return nil
}
