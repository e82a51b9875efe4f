package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/mailgun/mailgun-go/v4"
	"go.uber.org/zap"

	"hacker-tracker.backend/internal/config"
	"hacker-tracker.backend/pkg/logger"
)

const mailgunTimeout = 30 * time.Second

var mailgunSend = func(ctx context.Context, mg *mailgun.MailgunImpl, m *mailgun.Message) (string, error) {
	_, id, err := mg.Send(ctx, m)
	return id, err
}

// MailgunSender delivers mail through the Mailgun API
type MailgunSender struct {
	from   string
	client *mailgun.MailgunImpl
}

func NewMailgunSender(cfg config.EmailConfig) (*MailgunSender, error) {
	if cfg.MailgunDomain == "" {
		return nil, fmt.Errorf("MAILGUN_DOMAIN is required")
	}
	if cfg.MailgunAPIKey == "" {
		return nil, fmt.Errorf("MAILGUN_API_KEY is required")
	}
	if cfg.FromEmail == "" {
		return nil, fmt.Errorf("EMAIL_FROM_ADDRESS is required")
	}
	return &MailgunSender{
		from:   formatAddress(cfg.FromName, cfg.FromEmail),
		client: mailgun.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey),
	}, nil
}

func (s *MailgunSender) Send(ctx context.Context, msg Message) (string, error) {
	if err := validateMessage(msg); err != nil {
		return "", err
	}

	m := s.client.NewMessage(s.from, msg.Subject, msg.Text, formatAddress(msg.ToName, msg.To))
	if msg.HTML != "" {
		m.SetHtml(msg.HTML)
	}

	sendCtx, cancel := context.WithTimeout(ctx, mailgunTimeout)
	defer cancel()

	id, err := mailgunSend(sendCtx, s.client, m)
	if err != nil {
		return "", fmt.Errorf("failed to send email: %w", err)
	}

	logger.Info(ctx, "Email sent", zap.String("provider", ProviderMailgun), zap.String("to", msg.To), zap.String("message_id", id))
	return id, nil
}
