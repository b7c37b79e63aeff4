package mail

import (
	"context"
	"fmt"
	"log"
	"net/smtp"
	"strings"

	"github.com/opentrusty/opentrusty/internal/config"
)

// Message is a plain-text mail.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer dispatches transactional mail. Delivery failures are the
// caller's to handle; orchestration code treats them as non-fatal.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// New selects a mailer from the SMTP configuration. An unset host yields
// the log mailer so invite flows work in deployments without a relay.
func New(cfg config.SMTPConfig) Mailer {
	if !cfg.Enabled() {
		return LogMailer{}
	}
	return &SMTPMailer{cfg: cfg}
}

// LogMailer writes the mail to the process log instead of sending it.
type LogMailer struct{}

func (LogMailer) Send(_ context.Context, msg Message) error {
	log.Printf("mail (not sent, no SMTP relay): to=%s subject=%q", msg.To, msg.Subject)
	return nil
}

// SMTPMailer delivers through a configured SMTP relay.
type SMTPMailer struct {
	cfg config.SMTPConfig
}

func (m *SMTPMailer) Send(_ context.Context, msg Message) error {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(msg.Body)

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	var a smtp.Auth
	if m.cfg.Username != "" {
		a = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	if err := smtp.SendMail(addr, a, m.cfg.From, []string{msg.To}, []byte(b.String())); err != nil {
		return fmt.Errorf("send mail to %s: %w", msg.To, err)
	}
	return nil
}
