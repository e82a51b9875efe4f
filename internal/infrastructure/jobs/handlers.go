package jobs

import (
	"context"

	"go.uber.org/zap"

	"hacker-tracker.backend/internal/domain/entities"
	"hacker-tracker.backend/internal/infrastructure/mailer"
	"hacker-tracker.backend/pkg/crypto"
	"hacker-tracker.backend/pkg/logger"
)

// ConfirmationPurger deletes expired and old used confirmation records
type ConfirmationPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// EmailConfirmationHandler renders and delivers the confirmation mail
func EmailConfirmationHandler(renderer *mailer.Renderer, sender mailer.Sender, appName string) func(ctx context.Context, job entities.EmailConfirmationJob) error {
	return func(ctx context.Context, job entities.EmailConfirmationJob) error {
		logger.Info(ctx, "Processing email confirmation",
			zap.String("user_id", job.UserID.String()),
			zap.String("email", job.Email))

		msg, err := renderer.Confirmation(job.Email, mailer.ConfirmationData{
			AppName:          appName,
			Username:         job.Username,
			Code:             job.Code,
			ExpiresInMinutes: int(crypto.ConfirmationCodeTTL.Minutes()),
		})
		if err != nil {
			return err
		}

		id, err := sender.Send(ctx, msg)
		if err != nil {
			return err
		}
		logger.Info(ctx, "Email confirmation sent", zap.String("email", job.Email), zap.String("message_id", id))
		return nil
	}
}

// PurgeHandler removes stale confirmation records
func PurgeHandler(purger ConfirmationPurger) func(ctx context.Context, job entities.PurgeConfirmationsJob) error {
	return func(ctx context.Context, _ entities.PurgeConfirmationsJob) error {
		_, err := purger.PurgeExpired(ctx)
		return err
	}
}

// RegisterHandlers binds the confirmation and purge handlers to w
func RegisterHandlers(w *Worker, renderer *mailer.Renderer, sender mailer.Sender, purger ConfirmationPurger, appName string) {
	Handle(w, EmailConfirmationHandler(renderer, sender, appName))
	Handle(w, PurgeHandler(purger))
}
