package worker

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/cwbutler6/greekdash/config"
)

// EmailSender delivers one email. Implemented over SMTP in production and
// faked in tests.
type EmailSender interface {
	Send(to, subject, bodyHTML string) error
}

// SMTPSender sends HTML email via plain-auth SMTP.
type SMTPSender struct {
	cfg config.EmailConfig
}

// NewSMTPSender creates an SMTP email sender.
func NewSMTPSender(cfg config.EmailConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

// Send delivers one message. Returns an error when SMTP is not configured so
// the job lands in the DLQ instead of silently disappearing.
func (s *SMTPSender) Send(to, subject, bodyHTML string) error {
	if s.cfg.SMTPHost == "" {
		return fmt.Errorf("smtp not configured")
	}

	from := s.cfg.FromAddress
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s <%s>\r\n", s.cfg.FromName, from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(bodyHTML)

	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)
	var auth smtp.Auth
	if s.cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUser, s.cfg.SMTPPass, s.cfg.SMTPHost)
	}
	if err := smtp.SendMail(addr, auth, from, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
