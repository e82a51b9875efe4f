package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"hacker-tracker.backend/internal/domain/entities"
)

// JobDispatcher is the producer and admin side of the durable job queue
type JobDispatcher interface {
	Connect(ctx context.Context) error
	Disconnect() error
	// Enqueue joins the unit of work carried by ctx, if any
	Enqueue(ctx context.Context, payload entities.JobPayload, opts entities.EnqueueOptions) (uuid.UUID, error)
	Status(ctx context.Context, id uuid.UUID) (*entities.Job, error)
	Complete(ctx context.Context, id uuid.UUID, result any) error
	Fail(ctx context.Context, id uuid.UUID, jobErr error) error
	Stats(ctx context.Context) (*entities.JobStats, error)
}

// JobQueue is the consumer side used by workers and maintenance
type JobQueue interface {
	JobDispatcher
	Fetch(ctx context.Context, name string, batch int) ([]*entities.Job, error)
	RecoverStale(ctx context.Context, olderThan time.Duration) (int64, error)
	DeleteFinished(ctx context.Context, olderThan time.Duration) (int64, error)
}
