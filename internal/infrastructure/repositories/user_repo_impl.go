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

// UserRepository implements user data operations
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create creates a new user. A unique violation on email or username is
// reported as ErrConflict.
func (r *UserRepository) Create(ctx context.Context, user *entities.User) error {
	m := &models.User{
		ID:             user.ID,
		Email:          user.Email,
		Username:       user.Username,
		PasswordHash:   user.PasswordHash,
		EmailConfirmed: user.EmailConfirmed,
		Role:           string(user.Role),
		CreatedAt:      user.CreatedAt,
		UpdatedAt:      user.UpdatedAt,
	}

	if err := GetDB(ctx, r.db).Create(m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domainerrors.ErrConflict
		}
		return err
	}
	return nil
}

// GetByID gets a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.User, error) {
	return r.first(ctx, "id = ?", id)
}

// GetByEmail gets a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	return r.first(ctx, "email = ?", email)
}

// GetByUsername gets a user by username
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*entities.User, error) {
	return r.first(ctx, "username = ?", username)
}

// SetEmailConfirmed updates the confirmation flag
func (r *UserRepository) SetEmailConfirmed(ctx context.Context, id uuid.UUID, confirmed bool) error {
	return r.update(ctx, id, "email_confirmed", confirmed)
}

// UpdateRole changes the role of a user
func (r *UserRepository) UpdateRole(ctx context.Context, id uuid.UUID, role entities.UserRole) error {
	return r.update(ctx, id, "role", string(role))
}

func (r *UserRepository) update(ctx context.Context, id uuid.UUID, column string, value interface{}) error {
	result := GetDB(ctx, r.db).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			column:       value,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

func (r *UserRepository) first(ctx context.Context, query string, arg interface{}) (*entities.User, error) {
	var m models.User
	if err := GetDB(ctx, r.db).Where(query, arg).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return toUserEntity(&m), nil
}

func toUserEntity(m *models.User) *entities.User {
	return &entities.User{
		ID:             m.ID,
		Email:          m.Email,
		Username:       m.Username,
		PasswordHash:   m.PasswordHash,
		EmailConfirmed: m.EmailConfirmed,
		Role:           entities.UserRole(m.Role),
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}
