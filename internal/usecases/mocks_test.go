package usecases_test

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"hacker-tracker.backend/internal/domain/entities"
)

// Mock UnitOfWork
type MockUnitOfWork struct {
	mock.Mock
}

func (m *MockUnitOfWork) Do(ctx context.Context, f func(context.Context) error) error {
	m.Called(ctx, f)
	return f(ctx)
}

// Mock UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *entities.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*entities.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockUserRepository) SetEmailConfirmed(ctx context.Context, id uuid.UUID, confirmed bool) error {
	args := m.Called(ctx, id, confirmed)
	return args.Error(0)
}

func (m *MockUserRepository) UpdateRole(ctx context.Context, id uuid.UUID, role entities.UserRole) error {
	args := m.Called(ctx, id, role)
	return args.Error(0)
}

// Mock EmailConfirmationRepository
type MockEmailConfirmationRepository struct {
	mock.Mock
}

func (m *MockEmailConfirmationRepository) Create(ctx context.Context, c *entities.EmailConfirmation) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockEmailConfirmationRepository) FindUnused(ctx context.Context, userID uuid.UUID, code string) (*entities.EmailConfirmation, error) {
	args := m.Called(ctx, userID, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.EmailConfirmation), args.Error(1)
}

func (m *MockEmailConfirmationRepository) MarkUsed(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockEmailConfirmationRepository) LatestUnused(ctx context.Context, userID uuid.UUID) (*entities.EmailConfirmation, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.EmailConfirmation), args.Error(1)
}

func (m *MockEmailConfirmationRepository) DeleteStale(ctx context.Context, now, usedBefore time.Time) (int64, error) {
	args := m.Called(ctx, now, usedBefore)
	return args.Get(0).(int64), args.Error(1)
}

// Mock JobDispatcher
type MockJobDispatcher struct {
	mock.Mock
}

func (m *MockJobDispatcher) Connect(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockJobDispatcher) Disconnect() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockJobDispatcher) Enqueue(ctx context.Context, payload entities.JobPayload, opts entities.EnqueueOptions) (uuid.UUID, error) {
	args := m.Called(ctx, payload, opts)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockJobDispatcher) Status(ctx context.Context, id uuid.UUID) (*entities.Job, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Job), args.Error(1)
}

func (m *MockJobDispatcher) Complete(ctx context.Context, id uuid.UUID, result any) error {
	args := m.Called(ctx, id, result)
	return args.Error(0)
}

func (m *MockJobDispatcher) Fail(ctx context.Context, id uuid.UUID, jobErr error) error {
	args := m.Called(ctx, id, jobErr)
	return args.Error(0)
}

func (m *MockJobDispatcher) Stats(ctx context.Context) (*entities.JobStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.JobStats), args.Error(1)
}
