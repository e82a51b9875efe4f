package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"hacker-tracker.backend/internal/domain/entities"
)

// UserRepository defines user data operations
type UserRepository interface {
	Create(ctx context.Context, user *entities.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.User, error)
	GetByEmail(ctx context.Context, email string) (*entities.User, error)
	GetByUsername(ctx context.Context, username string) (*entities.User, error)
	SetEmailConfirmed(ctx context.Context, id uuid.UUID, confirmed bool) error
	UpdateRole(ctx context.Context, id uuid.UUID, role entities.UserRole) error
}

// EmailConfirmationRepository persists issued confirmation codes
type EmailConfirmationRepository interface {
	Create(ctx context.Context, confirmation *entities.EmailConfirmation) error
	// FindUnused returns the newest unused record for (userID, code)
	FindUnused(ctx context.Context, userID uuid.UUID, code string) (*entities.EmailConfirmation, error)
	// MarkUsed flips used to true. It reports false when another caller got there first.
	MarkUsed(ctx context.Context, id uuid.UUID) (bool, error)
	LatestUnused(ctx context.Context, userID uuid.UUID) (*entities.EmailConfirmation, error)
	// DeleteStale removes rows expired before now or used and created before usedBefore
	DeleteStale(ctx context.Context, now, usedBefore time.Time) (int64, error)
}
