package models

import (
	"time"

	"github.com/google/uuid"
)

type Job struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name        string    `gorm:"type:varchar(100);not null;index:idx_jobs_fetch,priority:1"`
	State       string    `gorm:"type:varchar(20);not null;index:idx_jobs_fetch,priority:2"`
	Data        string    `gorm:"type:jsonb;not null"`
	Output      *string   `gorm:"type:text"`
	RetryLimit  int       `gorm:"not null;default:0"`
	RetryCount  int       `gorm:"not null;default:0"`
	RetryDelay  int       `gorm:"not null;default:0"`
	StartAfter  time.Time `gorm:"not null;index:idx_jobs_fetch,priority:3"`
	StartedOn   *time.Time
	CompletedOn *time.Time
	CreatedOn   time.Time `gorm:"not null"`
}

func (Job) TableName() string { return "jobs" }
