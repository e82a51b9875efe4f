package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"hacker-tracker.backend/internal/domain/entities"
	domainerrors "hacker-tracker.backend/internal/domain/errors"
	"hacker-tracker.backend/internal/infrastructure/models"
)

// EmailConfirmationRepository implements confirmation code persistence
type EmailConfirmationRepository struct {
	db *gorm.DB
}

// NewEmailConfirmationRepository creates a new email confirmation repository
func NewEmailConfirmationRepository(db *gorm.DB) *EmailConfirmationRepository {
	return &EmailConfirmationRepository{db: db}
}

// Create stores a new confirmation code
func (r *EmailConfirmationRepository) Create(ctx context.Context, c *entities.EmailConfirmation) error {
	m := &models.EmailConfirmation{
		ID:        c.ID,
		UserID:    c.UserID,
		Code:      c.Code,
		ExpiresAt: c.ExpiresAt,
		Used:      c.Used,
		CreatedAt: c.CreatedAt,
	}
	return GetDB(ctx, r.db).Omit("User").Create(m).Error
}

// FindUnused returns the newest unused record matching userID and code
func (r *EmailConfirmationRepository) FindUnused(ctx context.Context, userID uuid.UUID, code string) (*entities.EmailConfirmation, error) {
	var m models.EmailConfirmation
	err := GetDB(ctx, r.db).
		Where("user_id = ? AND code = ? AND used = ?", userID, code, false).
		Order("created_at DESC").
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return toEmailConfirmationEntity(&m), nil
}

// MarkUsed flips used to true only if it is still false
func (r *EmailConfirmationRepository) MarkUsed(ctx context.Context, id uuid.UUID) (bool, error) {
	result := GetDB(ctx, r.db).
		Model(&models.EmailConfirmation{}).
		Where("id = ? AND used = ?", id, false).
		Update("used", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// LatestUnused returns the most recently created unused record for userID
func (r *EmailConfirmationRepository) LatestUnused(ctx context.Context, userID uuid.UUID) (*entities.EmailConfirmation, error) {
	var m models.EmailConfirmation
	err := GetDB(ctx, r.db).
		Where("user_id = ? AND used = ?", userID, false).
		Order("created_at DESC").
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return toEmailConfirmationEntity(&m), nil
}

// DeleteStale removes expired rows and used rows created before usedBefore
func (r *EmailConfirmationRepository) DeleteStale(ctx context.Context, now, usedBefore time.Time) (int64, error) {
	result := GetDB(ctx, r.db).
		Where("expires_at < ? OR (used = ? AND created_at < ?)", now, true, usedBefore).
		Delete(&models.EmailConfirmation{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func toEmailConfirmationEntity(m *models.EmailConfirmation) *entities.EmailConfirmation {
	return &entities.EmailConfirmation{
		ID:        m.ID,
		UserID:    m.UserID,
		Code:      m.Code,
		ExpiresAt: m.ExpiresAt,
		Used:      m.Used,
		CreatedAt: m.CreatedAt,
	}
}
