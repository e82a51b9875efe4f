package usecases

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"hacker-tracker.backend/internal/domain/entities"
	domainerrors "hacker-tracker.backend/internal/domain/errors"
	"hacker-tracker.backend/internal/domain/repositories"
	"hacker-tracker.backend/pkg/crypto"
	"hacker-tracker.backend/pkg/jwt"
	"hacker-tracker.backend/pkg/logger"
)

var hashPassword = crypto.HashPassword

// AuthUsecase handles registration, login and email confirmation
type AuthUsecase struct {
	userRepo      repositories.UserRepository
	confirmations *EmailConfirmationUsecase
	dispatcher    repositories.JobDispatcher
	uow           repositories.UnitOfWork
	jwtService    *jwt.JWTService
	bcryptCost    int
	jobOptions    entities.EnqueueOptions
	now           func() time.Time
}

// NewAuthUsecase creates a new auth usecase
func NewAuthUsecase(
	userRepo repositories.UserRepository,
	confirmations *EmailConfirmationUsecase,
	dispatcher repositories.JobDispatcher,
	uow repositories.UnitOfWork,
	jwtService *jwt.JWTService,
	bcryptCost int,
) *AuthUsecase {
	return &AuthUsecase{
		userRepo:      userRepo,
		confirmations: confirmations,
		dispatcher:    dispatcher,
		uow:           uow,
		jwtService:    jwtService,
		bcryptCost:    bcryptCost,
		jobOptions:    entities.DefaultEmailConfirmationOptions,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// SetJobOptions overrides the retry policy of confirmation email jobs
func (u *AuthUsecase) SetJobOptions(opts entities.EnqueueOptions) {
	u.jobOptions = opts
}

// Register creates an unconfirmed user, a confirmation code and the email job
// in one unit of work, then issues tokens.
func (u *AuthUsecase) Register(ctx context.Context, input *entities.RegisterInput) (*entities.AuthResponse, error) {
	email := strings.TrimSpace(input.Email)
	username := strings.TrimSpace(input.Username)
	if email == "" || username == "" || input.Password == "" {
		return nil, domainerrors.Validation("Email, username, and password are required")
	}
	if len(input.Password) < entities.MinPasswordLength {
		return nil, domainerrors.Validation("Password must be at least 8 characters long")
	}

	if err := u.checkAvailable(ctx, email, username); err != nil {
		return nil, err
	}

	passwordHash, err := hashPassword(input.Password, u.bcryptCost)
	if err != nil {
		return nil, err
	}

	now := u.now()
	user := &entities.User{
		ID:             uuid.New(),
		Email:          email,
		Username:       username,
		PasswordHash:   passwordHash,
		EmailConfirmed: false,
		Role:           entities.UserRoleUser,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err = u.uow.Do(ctx, func(txCtx context.Context) error {
		if err := u.userRepo.Create(txCtx, user); err != nil {
			return err
		}
		return u.issueConfirmation(txCtx, user)
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrConflict) {
			// lost a race with a concurrent registration
			if cerr := u.checkAvailable(ctx, email, username); cerr != nil {
				return nil, cerr
			}
			return nil, domainerrors.Conflict("User already exists")
		}
		logger.Error(ctx, "Registration failed", zap.String("email", email), zap.Error(err))
		return nil, transient("Registration temporarily unavailable", err)
	}

	logger.Info(ctx, "User registered", zap.String("user_id", user.ID.String()))
	return u.authResponse(user)
}

// ResendConfirmation issues a new code and email job. Earlier codes stay valid.
func (u *AuthUsecase) ResendConfirmation(ctx context.Context, userID uuid.UUID) error {
	user, err := u.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.EmailConfirmed {
		return domainerrors.AlreadyConfirmed()
	}

	if err := u.uow.Do(ctx, func(txCtx context.Context) error {
		return u.issueConfirmation(txCtx, user)
	}); err != nil {
		return transient("Unable to send confirmation email", err)
	}
	return nil
}

// ConfirmEmail consumes a confirmation code for userID
func (u *AuthUsecase) ConfirmEmail(ctx context.Context, input *entities.ConfirmEmailInput) error {
	if input.UserID == uuid.Nil || strings.TrimSpace(input.Code) == "" {
		return domainerrors.Validation("User ID and confirmation code are required")
	}

	ok, err := u.confirmations.Verify(ctx, input.UserID, strings.TrimSpace(input.Code))
	if err != nil {
		return err
	}
	if !ok {
		return domainerrors.InvalidCode()
	}
	return nil
}

// Login authenticates a user and returns tokens
func (u *AuthUsecase) Login(ctx context.Context, input *entities.LoginInput) (*entities.AuthResponse, error) {
	user, err := u.userRepo.GetByEmail(ctx, strings.TrimSpace(input.Email))
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return nil, domainerrors.InvalidCredentials()
		}
		return nil, err
	}

	if !crypto.CheckPassword(input.Password, user.PasswordHash) {
		return nil, domainerrors.InvalidCredentials()
	}

	return u.authResponse(user)
}

// RefreshToken generates new tokens from a refresh token
func (u *AuthUsecase) RefreshToken(ctx context.Context, refreshToken string) (*jwt.TokenPair, error) {
	claims, err := u.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, domainerrors.Unauthorized("Invalid refresh token")
	}

	user, err := u.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return nil, domainerrors.Unauthorized("User not found")
		}
		return nil, err
	}

	return u.jwtService.GenerateTokenPair(user.ID, user.Email, string(user.Role))
}

// GetUserByID gets a user by ID
func (u *AuthUsecase) GetUserByID(ctx context.Context, id uuid.UUID) (*entities.User, error) {
	return u.userRepo.GetByID(ctx, id)
}

// LatestConfirmationCode exposes the newest unused code in development and test
func (u *AuthUsecase) LatestConfirmationCode(ctx context.Context, userID uuid.UUID) (*string, error) {
	return u.confirmations.LatestUnusedCode(ctx, userID)
}

// AdminSetEmailConfirmed overrides the confirmation flag of a user
func (u *AuthUsecase) AdminSetEmailConfirmed(ctx context.Context, userID uuid.UUID, confirmed bool) error {
	if err := u.userRepo.SetEmailConfirmed(ctx, userID, confirmed); err != nil {
		return err
	}
	logger.Info(ctx, "Email confirmation overridden",
		zap.String("user_id", userID.String()),
		zap.Bool("confirmed", confirmed))
	return nil
}

// checkAvailable reports a conflict naming email before username
func (u *AuthUsecase) checkAvailable(ctx context.Context, email, username string) error {
	_, err := u.userRepo.GetByEmail(ctx, email)
	if err == nil {
		return domainerrors.FieldConflict("email")
	}
	if !errors.Is(err, domainerrors.ErrNotFound) {
		return transient("Registration temporarily unavailable", err)
	}

	_, err = u.userRepo.GetByUsername(ctx, username)
	if err == nil {
		return domainerrors.FieldConflict("username")
	}
	if !errors.Is(err, domainerrors.ErrNotFound) {
		return transient("Registration temporarily unavailable", err)
	}
	return nil
}

func (u *AuthUsecase) issueConfirmation(ctx context.Context, user *entities.User) error {
	code, err := u.confirmations.Create(ctx, user.ID)
	if err != nil {
		return err
	}

	jobID, err := u.dispatcher.Enqueue(ctx, entities.EmailConfirmationJob{
		UserID:   user.ID,
		Email:    user.Email,
		Username: user.Username,
		Code:     code,
	}, u.jobOptions)
	if err != nil {
		return err
	}

	logger.Debug(ctx, "Email confirmation job queued",
		zap.String("user_id", user.ID.String()),
		zap.String("job_id", jobID.String()))
	return nil
}

func (u *AuthUsecase) authResponse(user *entities.User) (*entities.AuthResponse, error) {
	tokenPair, err := u.jwtService.GenerateTokenPair(user.ID, user.Email, string(user.Role))
	if err != nil {
		return nil, err
	}
	return &entities.AuthResponse{
		User:                      user,
		AccessToken:               tokenPair.AccessToken,
		RefreshToken:              tokenPair.RefreshToken,
		RequiresEmailConfirmation: !user.EmailConfirmed,
	}, nil
}

// transient keeps domain errors as they are and marks everything else retryable
func transient(message string, err error) error {
	var appErr *domainerrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return domainerrors.Transient(message, err)
}
