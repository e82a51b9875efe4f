package mailer

import (
	"context"
	"fmt"

	"hacker-tracker.backend/internal/config"
)

const (
	ProviderLog     = "log"
	ProviderSMTP    = "smtp"
	ProviderMailgun = "mailgun"
)

// Message is one outbound email
type Message struct {
	To      string
	ToName  string
	Subject string
	HTML    string
	Text    string
}

// Sender delivers a message and returns the provider message id
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// NewSender picks the sender configured by EMAIL_PROVIDER. The log sender
// prints message bodies only outside production.
func NewSender(cfg config.EmailConfig, env string) (Sender, error) {
	switch cfg.Provider {
	case "", ProviderLog:
		return NewLogSender(env != config.EnvProduction), nil
	case ProviderSMTP:
		return NewSMTPSender(cfg)
	case ProviderMailgun:
		return NewMailgunSender(cfg)
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.Provider)
	}
}

func formatAddress(name, email string) string {
	if name == "" {
		return email
	}
	return fmt.Sprintf("%s <%s>", name, email)
}

func validateMessage(msg Message) error {
	if msg.To == "" {
		return fmt.Errorf("no recipient provided for email")
	}
	if msg.HTML == "" && msg.Text == "" {
		return fmt.Errorf("email body (HTML or Text) must be provided")
	}
	return nil
}
