package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email          string    `gorm:"type:varchar(255);uniqueIndex;not null"`
	Username       string    `gorm:"type:varchar(100);uniqueIndex;not null"`
	PasswordHash   string    `gorm:"type:varchar(255);not null"`
	EmailConfirmed bool      `gorm:"not null;default:false"`
	Role           string    `gorm:"type:varchar(20);not null;default:'user'"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (User) TableName() string { return "users" }
