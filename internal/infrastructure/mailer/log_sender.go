package mailer

import (
	"context"

	"go.uber.org/zap"

	"hacker-tracker.backend/pkg/logger"
	"hacker-tracker.backend/pkg/utils"
)

// LogSender writes messages to the application log instead of delivering them
type LogSender struct {
	includeBody bool
}

func NewLogSender(includeBody bool) *LogSender {
	return &LogSender{includeBody: includeBody}
}

func (s *LogSender) Send(ctx context.Context, msg Message) (string, error) {
	if err := validateMessage(msg); err != nil {
		return "", err
	}

	id := "log-" + utils.GenerateUUIDv7().String()
	fields := []zap.Field{
		zap.String("message_id", id),
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
	}
	if s.includeBody {
		fields = append(fields, zap.String("text", msg.Text))
	}
	logger.Info(ctx, "Email not sent, log provider active", fields...)
	return id, nil
}
