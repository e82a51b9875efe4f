package usecases

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"hacker-tracker.backend/internal/config"
	"hacker-tracker.backend/internal/domain/entities"
	domainerrors "hacker-tracker.backend/internal/domain/errors"
	"hacker-tracker.backend/internal/domain/repositories"
	"hacker-tracker.backend/pkg/crypto"
	"hacker-tracker.backend/pkg/logger"
	"hacker-tracker.backend/pkg/metrics"
	"hacker-tracker.backend/pkg/utils"
)

var generateConfirmationCode = crypto.GenerateNumericCode

// EmailConfirmationUsecase owns the confirmation code lifecycle
type EmailConfirmationUsecase struct {
	confirmRepo repositories.EmailConfirmationRepository
	userRepo    repositories.UserRepository
	uow         repositories.UnitOfWork
	metrics     *metrics.Metrics
	env         string
	now         func() time.Time
}

// NewEmailConfirmationUsecase creates a new email confirmation usecase
func NewEmailConfirmationUsecase(
	confirmRepo repositories.EmailConfirmationRepository,
	userRepo repositories.UserRepository,
	uow repositories.UnitOfWork,
	env string,
	m *metrics.Metrics,
) *EmailConfirmationUsecase {
	return &EmailConfirmationUsecase{
		confirmRepo: confirmRepo,
		userRepo:    userRepo,
		uow:         uow,
		metrics:     m,
		env:         env,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the time source
func (u *EmailConfirmationUsecase) SetClock(now func() time.Time) {
	u.now = now
}

// Create issues a new code for userID, valid for ConfirmationCodeTTL. It joins
// the unit of work carried by ctx.
func (u *EmailConfirmationUsecase) Create(ctx context.Context, userID uuid.UUID) (string, error) {
	code, err := generateConfirmationCode()
	if err != nil {
		return "", err
	}

	now := u.now()
	record := &entities.EmailConfirmation{
		ID:        utils.GenerateUUIDv7(),
		UserID:    userID,
		Code:      code,
		ExpiresAt: now.Add(crypto.ConfirmationCodeTTL),
		CreatedAt: now,
	}
	if err := u.confirmRepo.Create(ctx, record); err != nil {
		return "", err
	}
	return code, nil
}

// Verify consumes a matching unused unexpired code and confirms the user.
// Of several concurrent calls for the same code at most one returns true.
func (u *EmailConfirmationUsecase) Verify(ctx context.Context, userID uuid.UUID, code string) (bool, error) {
	record, err := u.confirmRepo.FindUnused(ctx, userID, code)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			u.metrics.Confirmation(metrics.ConfirmationInvalid)
			return false, nil
		}
		return false, err
	}
	if record.IsExpired(u.now()) {
		u.metrics.Confirmation(metrics.ConfirmationExpired)
		return false, nil
	}

	consumed := false
	err = u.uow.Do(ctx, func(txCtx context.Context) error {
		ok, err := u.confirmRepo.MarkUsed(txCtx, record.ID)
		if err != nil || !ok {
			return err
		}
		if err := u.userRepo.SetEmailConfirmed(txCtx, userID, true); err != nil {
			return err
		}
		consumed = true
		return nil
	})
	if err != nil {
		return false, err
	}

	if !consumed {
		u.metrics.Confirmation(metrics.ConfirmationRaced)
		return false, nil
	}
	u.metrics.Confirmation(metrics.ConfirmationConfirmed)
	logger.Info(ctx, "Email confirmed", zap.String("user_id", userID.String()))
	return true, nil
}

// LatestUnusedCode returns the newest unused code for userID, or nil. Only
// available in development and test.
func (u *EmailConfirmationUsecase) LatestUnusedCode(ctx context.Context, userID uuid.UUID) (*string, error) {
	if u.env != config.EnvDevelopment && u.env != config.EnvTest {
		return nil, domainerrors.ErrPermissionDenied
	}

	record, err := u.confirmRepo.LatestUnused(ctx, userID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record.Code, nil
}

// PurgeExpired deletes expired codes and used codes older than
// UsedConfirmationRetention.
func (u *EmailConfirmationUsecase) PurgeExpired(ctx context.Context) (int64, error) {
	now := u.now()
	n, err := u.confirmRepo.DeleteStale(ctx, now, now.Add(-crypto.UsedConfirmationRetention))
	if err != nil {
		logger.Warn(ctx, "Failed to purge email confirmations", zap.Error(err))
		return 0, err
	}
	u.metrics.ConfirmationsPurged(n)
	if n > 0 {
		logger.Info(ctx, "Purged email confirmations", zap.Int64("count", n))
	}
	return n, nil
}
