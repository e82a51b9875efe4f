package mailer

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"hacker-tracker.backend/internal/config"
	"hacker-tracker.backend/pkg/logger"
	"hacker-tracker.backend/pkg/utils"
)

var dialAndSend = func(d *gomail.Dialer, m *gomail.Message) error {
	return d.DialAndSend(m)
}

// SMTPSender delivers mail through an SMTP relay
type SMTPSender struct {
	from   string
	dialer *gomail.Dialer
}

func NewSMTPSender(cfg config.EmailConfig) (*SMTPSender, error) {
	if cfg.SMTPHost == "" || cfg.SMTPPort == 0 || cfg.FromEmail == "" {
		return nil, fmt.Errorf("SMTP host, port, and sender email must be configured")
	}
	return &SMTPSender{
		from:   formatAddress(cfg.FromName, cfg.FromEmail),
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword),
	}, nil
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) (string, error) {
	if err := validateMessage(msg); err != nil {
		return "", err
	}

	id := fmt.Sprintf("<%s@hacker-tracker>", utils.GenerateUUIDv7())
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", formatAddress(msg.ToName, msg.To))
	m.SetHeader("Subject", msg.Subject)
	m.SetHeader("Message-ID", id)

	if msg.HTML != "" {
		m.SetBody("text/html", msg.HTML)
		if msg.Text != "" {
			m.AddAlternative("text/plain", msg.Text)
		}
	} else {
		m.SetBody("text/plain", msg.Text)
	}

	done := make(chan error, 1)
	go func() {
		done <- dialAndSend(s.dialer, m)
	}()

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("email sending cancelled or timed out: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return "", fmt.Errorf("failed to send email: %w", err)
		}
	}

	logger.Info(ctx, "Email sent", zap.String("provider", ProviderSMTP), zap.String("to", msg.To), zap.String("message_id", id))
	return id, nil
}
