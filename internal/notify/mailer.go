package notify

import (
	"context"
	"crypto/tls"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/tableflow/order-service/internal/config"
)

// Email is an outgoing HTML message.
type Email struct {
	To      []string
	Subject string
	HTML    string
}

//go:generate go run go.uber.org/mock/mockgen@latest -source=mailer.go -destination=../mocks/mailer.go -package=mocks

// Mailer sends email.
type Mailer interface {
	Send(ctx context.Context, email Email) error
}

// SMTPMailer delivers email through an SMTP relay.
type SMTPMailer struct {
	dialer   *gomail.Dialer
	from     string
	fromName string
}

// NewSMTPMailer builds a mailer for the configured relay.
func NewSMTPMailer(cfg config.NotificationConfig) *SMTPMailer {
	dialer := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword)
	dialer.TLSConfig = &tls.Config{
		ServerName: cfg.SMTPHost,
		MinVersion: tls.VersionTLS12,
	}
	return &SMTPMailer{dialer: dialer, from: cfg.EmailFrom, fromName: cfg.EmailFromName}
}

// Send dials the relay per message; gomail does not take a context, so a
// cancelled ctx is only checked up front.
func (m *SMTPMailer) Send(ctx context.Context, email Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(email.To) == 0 {
		return nil
	}

	msg := gomail.NewMessage(
		gomail.SetCharset("UTF-8"),
		gomail.SetEncoding(gomail.Base64),
	)
	msg.SetAddressHeader("From", m.from, m.fromName)
	msg.SetHeader("To", email.To...)
	msg.SetHeader("Subject", email.Subject)
	msg.SetBody("text/html", email.HTML)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

// NopMailer drops every message.
type NopMailer struct{}

func (NopMailer) Send(context.Context, Email) error { return nil }
