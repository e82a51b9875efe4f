package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"hacker-tracker.backend/internal/domain/entities"
	domainerrors "hacker-tracker.backend/internal/domain/errors"
	domainRepos "hacker-tracker.backend/internal/domain/repositories"
	"hacker-tracker.backend/internal/infrastructure/models"
	"hacker-tracker.backend/internal/infrastructure/repositories"
	"hacker-tracker.backend/pkg/logger"
	"hacker-tracker.backend/pkg/metrics"
	"hacker-tracker.backend/pkg/utils"
)

// NotifyChannel is the Postgres channel signalled on every enqueue
const NotifyChannel = "job_created"

const maxOutputLength = 500

// Opener returns the database session the dispatcher owns while connected
type Opener func(ctx context.Context) (*gorm.DB, error)

var pingDB = func(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Dispatcher is the Postgres backed job queue. State transitions are guarded
// by conditional updates in the store, the mutex only covers connect/disconnect.
type Dispatcher struct {
	open    Opener
	metrics *metrics.Metrics
	now     func() time.Time

	mu sync.RWMutex
	db *gorm.DB
}

var _ domainRepos.JobQueue = (*Dispatcher)(nil)

// NewDispatcher creates a dispatcher. Call Connect before use.
func NewDispatcher(open Opener, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		open:    open,
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Connect opens the dispatcher session. Calling it while connected is a no-op.
func (d *Dispatcher) Connect(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db != nil {
		return nil
	}

	db, err := d.open(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", domainerrors.ErrTransient, err)
	}
	if err := pingDB(ctx, db); err != nil {
		closeDB(db)
		return fmt.Errorf("%w: %w", domainerrors.ErrTransient, err)
	}

	d.db = db
	logger.Info(ctx, "Job dispatcher connected")
	return nil
}

// Disconnect closes the dispatcher session. Calling it while disconnected is a no-op.
func (d *Dispatcher) Disconnect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db == nil {
		return nil
	}

	sqlDB, err := d.db.DB()
	d.db = nil
	if err != nil {
		return err
	}
	if err := sqlDB.Close(); err != nil {
		return err
	}
	logger.Info(context.Background(), "Job dispatcher disconnected")
	return nil
}

// Connected reports whether Connect has succeeded and Disconnect not yet run
func (d *Dispatcher) Connected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.db != nil
}

func (d *Dispatcher) session(ctx context.Context) (*gorm.DB, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.db == nil {
		return nil, domainerrors.ErrDispatcherNotConnected
	}
	return d.db.WithContext(ctx), nil
}

// Enqueue inserts a new job. When ctx carries a unit of work the insert joins
// that transaction and becomes visible only on commit.
func (d *Dispatcher) Enqueue(ctx context.Context, payload entities.JobPayload, opts entities.EnqueueOptions) (uuid.UUID, error) {
	conn, err := d.session(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	if payload == nil {
		return uuid.Nil, fmt.Errorf("%w: job payload is required", domainerrors.ErrInvalidInput)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("encode %s payload: %w", payload.QueueName(), err)
	}

	now := d.now()
	m := &models.Job{
		ID:         utils.GenerateUUIDv7(),
		Name:       payload.QueueName(),
		State:      string(entities.JobStateCreated),
		Data:       string(data),
		RetryLimit: max(opts.RetryLimit, 0),
		RetryDelay: max(opts.RetryDelaySeconds, 0),
		StartAfter: now.Add(opts.StartAfter),
		CreatedOn:  now,
	}

	db := repositories.GetDB(ctx, conn)
	if err := db.Create(m).Error; err != nil {
		return uuid.Nil, fmt.Errorf("enqueue %s: %w", m.Name, err)
	}

	// delivered to listeners when the surrounding transaction commits
	if db.Dialector.Name() == "postgres" {
		if err := db.Exec("SELECT pg_notify(?, ?)", NotifyChannel, m.Name).Error; err != nil {
			return uuid.Nil, fmt.Errorf("notify %s: %w", m.Name, err)
		}
	}

	d.metrics.JobEnqueued(m.Name)
	logger.Debug(ctx, "Job enqueued", zap.String("job_id", m.ID.String()), zap.String("queue", m.Name))
	return m.ID, nil
}

// Status returns the current record of a job
func (d *Dispatcher) Status(ctx context.Context, id uuid.UUID) (*entities.Job, error) {
	conn, err := d.session(ctx)
	if err != nil {
		return nil, err
	}
	m, err := findJob(conn, id)
	if err != nil {
		return nil, err
	}
	return toJobEntity(m), nil
}

// Complete moves a pending or active job to completed. Completing an already
// completed job is a no-op, completing a failed job is a conflict.
func (d *Dispatcher) Complete(ctx context.Context, id uuid.UUID, result any) error {
	conn, err := d.session(ctx)
	if err != nil {
		return err
	}

	updates := map[string]interface{}{
		"state":        string(entities.JobStateCompleted),
		"completed_on": d.now(),
	}
	if result != nil {
		out, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("encode job result: %w", err)
		}
		updates["output"] = string(out)
	}

	res := conn.Model(&models.Job{}).
		Where("id = ? AND state IN ?", id, pendingStates()).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}

	m, err := findJob(conn, id)
	if err != nil {
		return err
	}
	switch entities.JobState(m.State) {
	case entities.JobStateCompleted:
		return nil
	case entities.JobStateFailed:
		return fmt.Errorf("%w: job %s already failed", domainerrors.ErrJobStateConflict, id)
	default:
		return fmt.Errorf("%w: job %s changed concurrently", domainerrors.ErrJobStateConflict, id)
	}
}

// Fail records a failed attempt. The job is rescheduled after its retry delay
// while retries remain, otherwise it becomes failed. Failing an already
// failed job is a no-op, failing a completed job is a conflict.
func (d *Dispatcher) Fail(ctx context.Context, id uuid.UUID, jobErr error) error {
	conn, err := d.session(ctx)
	if err != nil {
		return err
	}

	msg := "job failed"
	if jobErr != nil {
		msg = truncate(jobErr.Error(), maxOutputLength)
	}

	// optimistic: retry when another writer moved the row between read and update
	for attempt := 0; attempt < 3; attempt++ {
		m, err := findJob(conn, id)
		if err != nil {
			return err
		}

		switch entities.JobState(m.State) {
		case entities.JobStateFailed:
			return nil
		case entities.JobStateCompleted:
			return fmt.Errorf("%w: job %s already completed", domainerrors.ErrJobStateConflict, id)
		}

		now := d.now()
		updates := map[string]interface{}{
			"retry_count": m.RetryCount + 1,
			"output":      msg,
		}
		if m.RetryCount < m.RetryLimit {
			updates["state"] = string(entities.JobStateRetry)
			updates["start_after"] = now.Add(time.Duration(m.RetryDelay) * time.Second)
			updates["started_on"] = nil
		} else {
			updates["state"] = string(entities.JobStateFailed)
			updates["completed_on"] = now
		}

		res := conn.Model(&models.Job{}).
			Where("id = ? AND state = ? AND retry_count = ?", id, m.State, m.RetryCount).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 1 {
			return nil
		}
	}

	return fmt.Errorf("%w: job %s changed concurrently", domainerrors.ErrJobStateConflict, id)
}

// Fetch claims up to batch due jobs of the named queue and marks them active.
// Concurrent workers never claim the same job.
func (d *Dispatcher) Fetch(ctx context.Context, name string, batch int) ([]*entities.Job, error) {
	conn, err := d.session(ctx)
	if err != nil {
		return nil, err
	}
	if batch <= 0 {
		batch = 1
	}

	var claimed []models.Job
	err = conn.Transaction(func(tx *gorm.DB) error {
		now := d.now()
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("name = ? AND state IN ? AND start_after <= ?", name, []string{string(entities.JobStateCreated), string(entities.JobStateRetry)}, now).
			Order("created_on ASC").
			Limit(batch).
			Find(&claimed).Error; err != nil {
			return err
		}
		if len(claimed) == 0 {
			return nil
		}

		ids := make([]uuid.UUID, len(claimed))
		for i := range claimed {
			ids[i] = claimed[i].ID
			claimed[i].State = string(entities.JobStateActive)
			claimed[i].StartedOn = &now
		}
		return tx.Model(&models.Job{}).
			Where("id IN ?", ids).
			Updates(map[string]interface{}{
				"state":      string(entities.JobStateActive),
				"started_on": now,
			}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", name, err)
	}

	jobs := make([]*entities.Job, len(claimed))
	for i := range claimed {
		jobs[i] = toJobEntity(&claimed[i])
	}
	return jobs, nil
}

// RecoverStale puts active jobs started more than olderThan ago back to retry
func (d *Dispatcher) RecoverStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	conn, err := d.session(ctx)
	if err != nil {
		return 0, err
	}

	res := conn.Model(&models.Job{}).
		Where("state = ? AND started_on < ?", string(entities.JobStateActive), d.now().Add(-olderThan)).
		Updates(map[string]interface{}{
			"state":       string(entities.JobStateRetry),
			"started_on":  nil,
			"start_after": d.now(),
		})
	if res.Error != nil {
		return 0, fmt.Errorf("recover stale jobs: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		logger.Warn(ctx, "Recovered stale jobs", zap.Int64("count", res.RowsAffected), zap.Duration("older_than", olderThan))
	}
	return res.RowsAffected, nil
}

// DeleteFinished removes completed and failed jobs finished more than olderThan ago
func (d *Dispatcher) DeleteFinished(ctx context.Context, olderThan time.Duration) (int64, error) {
	conn, err := d.session(ctx)
	if err != nil {
		return 0, err
	}

	res := conn.
		Where("state IN ? AND completed_on < ?", []string{string(entities.JobStateCompleted), string(entities.JobStateFailed)}, d.now().Add(-olderThan)).
		Delete(&models.Job{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete finished jobs: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Stats counts jobs per state
func (d *Dispatcher) Stats(ctx context.Context) (*entities.JobStats, error) {
	conn, err := d.session(ctx)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		State string
		Count int64
	}
	if err := conn.Model(&models.Job{}).
		Select("state, COUNT(*) AS count").
		Group("state").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}

	stats := &entities.JobStats{}
	for _, r := range rows {
		switch entities.JobState(r.State) {
		case entities.JobStateCreated:
			stats.Created = r.Count
		case entities.JobStateRetry:
			stats.Retry = r.Count
		case entities.JobStateActive:
			stats.Active = r.Count
		case entities.JobStateCompleted:
			stats.Completed = r.Count
		case entities.JobStateFailed:
			stats.Failed = r.Count
		}
		stats.Total += r.Count
	}
	return stats, nil
}

// List returns jobs newest first along with the total matching the filter
func (d *Dispatcher) List(ctx context.Context, filter entities.JobFilter, pagination utils.PaginationParams) ([]*entities.Job, int64, error) {
	conn, err := d.session(ctx)
	if err != nil {
		return nil, 0, err
	}

	var rows []models.Job
	var total int64

	query := conn.Model(&models.Job{})
	if filter.Name != "" {
		query = query.Where("name = ?", filter.Name)
	}
	if filter.State != "" {
		query = query.Where("state = ?", string(filter.State))
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count jobs: %w", err)
	}
	if pagination.Limit > 0 {
		query = query.Limit(pagination.Limit).Offset(pagination.CalculateOffset())
	}
	if err := query.Order("created_on DESC").Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("list jobs: %w", err)
	}

	items := make([]*entities.Job, 0, len(rows))
	for i := range rows {
		items = append(items, toJobEntity(&rows[i]))
	}
	return items, total, nil
}

func findJob(db *gorm.DB, id uuid.UUID) (*models.Job, error) {
	var m models.Job
	if err := db.Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

func pendingStates() []string {
	return []string{
		string(entities.JobStateCreated),
		string(entities.JobStateRetry),
		string(entities.JobStateActive),
	}
}

func toJobEntity(m *models.Job) *entities.Job {
	return &entities.Job{
		ID:          m.ID,
		Name:        m.Name,
		State:       entities.JobState(m.State),
		Data:        json.RawMessage(m.Data),
		Output:      null.StringFromPtr(m.Output),
		RetryLimit:  m.RetryLimit,
		RetryCount:  m.RetryCount,
		RetryDelay:  m.RetryDelay,
		StartAfter:  m.StartAfter,
		StartedOn:   null.TimeFromPtr(m.StartedOn),
		CompletedOn: null.TimeFromPtr(m.CompletedOn),
		CreatedOn:   m.CreatedOn,
	}
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
