package entities

import (
	"time"

	"github.com/google/uuid"
)

// UserRole represents user roles
type UserRole string

const (
	UserRoleAdmin UserRole = "admin"
	UserRoleUser  UserRole = "user"
)

// MinPasswordLength is the shortest accepted password
const MinPasswordLength = 8

// User represents a user entity
type User struct {
	ID             uuid.UUID `json:"id"`
	Email          string    `json:"email"`
	Username       string    `json:"username"`
	PasswordHash   string    `json:"-"`
	EmailConfirmed bool      `json:"emailConfirmed"`
	Role           UserRole  `json:"role"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// RegisterInput represents input for registering a user. Presence and length
// are enforced by the usecase so every caller gets the same rules.
type RegisterInput struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginInput represents input for user login
type LoginInput struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// ConfirmEmailInput carries a confirmation attempt
type ConfirmEmailInput struct {
	UserID uuid.UUID `json:"userId" binding:"required"`
	Code   string    `json:"code" binding:"required"`
}

// AuthResponse represents authentication response
type AuthResponse struct {
	User                      *User  `json:"user"`
	AccessToken               string `json:"accessToken"`
	RefreshToken              string `json:"refreshToken"`
	RequiresEmailConfirmation bool   `json:"requiresEmailConfirmation"`
}
