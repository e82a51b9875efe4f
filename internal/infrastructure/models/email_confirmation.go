package models

import (
	"time"

	"github.com/google/uuid"
)

type EmailConfirmation struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index:idx_email_confirmations_user_code,priority:1"`
	Code      string    `gorm:"type:varchar(6);not null;index:idx_email_confirmations_user_code,priority:2"`
	ExpiresAt time.Time `gorm:"not null;index"`
	Used      bool      `gorm:"not null;default:false"`
	CreatedAt time.Time

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (EmailConfirmation) TableName() string { return "email_confirmations" }
