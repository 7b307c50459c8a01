// Package mailer delivers account verification emails. The registration flow
// only depends on the Notifier interface; production uses SMTP, development
// and tests use the log notifier.
package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/smtp"
)

// Notifier sends account lifecycle notifications. Delivery failures are
// surfaced to the caller but never roll back the triggering operation.
type Notifier interface {
	SendVerificationEmail(ctx context.Context, toEmail, confirmURL string) error
}

// SMTPConfig holds connection settings for a plain SMTP relay with StartTLS.
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// SMTPNotifier sends mail through an SMTP relay, upgrading the connection
// with StartTLS before authenticating.
type SMTPNotifier struct {
	cfg SMTPConfig
}

func NewSMTPNotifier(cfg SMTPConfig) *SMTPNotifier {
	return &SMTPNotifier{cfg: cfg}
}

func (n *SMTPNotifier) SendVerificationEmail(ctx context.Context, toEmail, confirmURL string) error {
	subject := "Confirm your registration"
	body := "Welcome! Click the link below to activate your account.\r\n" +
		"The link is valid for 24 hours.\r\n\r\n" + confirmURL + "\r\n"

	msg := []byte("From: " + n.cfg.From + "\r\n" +
		"To: " + toEmail + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"\r\n" + body)

	client, err := smtp.Dial(n.cfg.Host + ":" + n.cfg.Port)
	if err != nil {
		return fmt.Errorf("mailer: dial smtp: %w", err)
	}
	defer client.Close()

	if err := client.StartTLS(&tls.Config{ServerName: n.cfg.Host}); err != nil {
		return fmt.Errorf("mailer: starttls: %w", err)
	}

	auth := smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("mailer: auth: %w", err)
	}

	if err := client.Mail(n.cfg.From); err != nil {
		return fmt.Errorf("mailer: mail from: %w", err)
	}
	if err := client.Rcpt(toEmail); err != nil {
		return fmt.Errorf("mailer: rcpt to: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("mailer: data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		_ = w.Close()
		return fmt.Errorf("mailer: write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("mailer: close body: %w", err)
	}

	return client.Quit()
}

// LogNotifier writes the confirmation URL to the log instead of sending
// mail. Used in development and end-to-end tests where no relay exists.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) SendVerificationEmail(ctx context.Context, toEmail, confirmURL string) error {
	n.log.InfoContext(ctx, "verification email",
		"to", toEmail,
		"confirm_url", confirmURL,
	)
	return nil
}
