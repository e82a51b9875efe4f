package entities

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
)

// JobState is the lifecycle state of a queued job
type JobState string

const (
	JobStateCreated   JobState = "created"
	JobStateRetry     JobState = "retry"
	JobStateActive    JobState = "active"
	JobStateCompleted JobState = "completed"
	JobStateFailed    JobState = "failed"
)

// IsTerminal reports whether no further transition is possible
func (s JobState) IsTerminal() bool {
	return s == JobStateCompleted || s == JobStateFailed
}

func (s JobState) Valid() bool {
	switch s {
	case JobStateCreated, JobStateRetry, JobStateActive, JobStateCompleted, JobStateFailed:
		return true
	}
	return false
}

// Queue names
const (
	QueueSendEmailConfirmation   = "send-email-confirmation"
	QueuePurgeEmailConfirmations = "purge-email-confirmations"
)

// Job is a durable unit of background work
type Job struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	State       JobState        `json:"state"`
	Data        json.RawMessage `json:"data"`
	Output      null.String     `json:"output"`
	RetryLimit  int             `json:"retryLimit"`
	RetryCount  int             `json:"retryCount"`
	RetryDelay  int             `json:"retryDelay"`
	StartAfter  time.Time       `json:"startAfter"`
	StartedOn   null.Time       `json:"startedOn"`
	CompletedOn null.Time       `json:"completedOn"`
	CreatedOn   time.Time       `json:"createdOn"`
}

// Decode unmarshals the job payload into v
func (j *Job) Decode(v any) error {
	if err := json.Unmarshal(j.Data, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", j.Name, err)
	}
	return nil
}

// JobStats counts jobs per state
type JobStats struct {
	Created   int64 `json:"created"`
	Retry     int64 `json:"retry"`
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Total     int64 `json:"total"`
}

// JobFilter narrows a job listing. Zero fields match every job.
type JobFilter struct {
	Name  string
	State JobState
}

// EnqueueOptions is the retry policy attached to a job at enqueue time
type EnqueueOptions struct {
	RetryLimit        int
	RetryDelaySeconds int
	StartAfter        time.Duration
}

// JobPayload is a typed job body. Each variant names the queue it belongs to.
type JobPayload interface {
	QueueName() string
}

// EmailConfirmationJob asks the worker to deliver a confirmation code
type EmailConfirmationJob struct {
	UserID   uuid.UUID `json:"userId"`
	Email    string    `json:"email"`
	Username string    `json:"username"`
	Code     string    `json:"code"`
}

func (EmailConfirmationJob) QueueName() string { return QueueSendEmailConfirmation }

// DefaultEmailConfirmationOptions retries delivery three times a minute apart
var DefaultEmailConfirmationOptions = EnqueueOptions{RetryLimit: 3, RetryDelaySeconds: 60}

// PurgeConfirmationsJob asks the worker to delete stale confirmation records
type PurgeConfirmationsJob struct {
	RequestedAt time.Time `json:"requestedAt"`
}

func (PurgeConfirmationsJob) QueueName() string { return QueuePurgeEmailConfirmations }
