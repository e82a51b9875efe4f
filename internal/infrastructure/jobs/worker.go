package jobs

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"hacker-tracker.backend/internal/domain/entities"
	domainRepos "hacker-tracker.backend/internal/domain/repositories"
	"hacker-tracker.backend/pkg/logger"
	"hacker-tracker.backend/pkg/metrics"
)

// HandlerFunc processes one claimed job. A returned error fails the attempt.
type HandlerFunc func(ctx context.Context, job *entities.Job) error

// bookkeepingTimeout bounds the Complete/Fail update after a handler returns.
// The update runs detached from the caller's cancellation.
const bookkeepingTimeout = 10 * time.Second

// WorkerConfig controls polling and stale job recovery
type WorkerConfig struct {
	PollInterval    time.Duration
	BatchSize       int
	StaleAfter      time.Duration
	RecoverInterval time.Duration
}

// Worker polls the queue and runs the handler registered for each queue name
type Worker struct {
	queue   domainRepos.JobQueue
	cfg     WorkerConfig
	metrics *metrics.Metrics
	log     *zap.Logger

	handlers map[string]HandlerFunc
	wake     chan struct{}

	mu        sync.Mutex
	running   bool
	stopCh    chan struct{}
	stoppedCh chan struct{}
	cancel    context.CancelFunc
}

// NewWorker creates a worker with no handlers registered
func NewWorker(queue domainRepos.JobQueue, cfg WorkerConfig, m *metrics.Metrics) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 15 * time.Minute
	}
	if cfg.RecoverInterval <= 0 {
		cfg.RecoverInterval = 2 * time.Minute
	}
	return &Worker{
		queue:    queue,
		cfg:      cfg,
		metrics:  m,
		log:      logger.Scope("jobs.worker"),
		handlers: make(map[string]HandlerFunc),
		wake:     make(chan struct{}, 1),
	}
}

// Register binds a raw handler to a queue name
func (w *Worker) Register(queue string, h HandlerFunc) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[queue] = h
}

// Handle registers a typed handler. The queue name comes from the payload type.
func Handle[T entities.JobPayload](w *Worker, h func(ctx context.Context, payload T) error) {
	var zero T
	w.Register(zero.QueueName(), func(ctx context.Context, job *entities.Job) error {
		var payload T
		if err := job.Decode(&payload); err != nil {
			return err
		}
		return h(ctx, payload)
	})
}

// Queues returns the registered queue names in sorted order
func (w *Worker) Queues() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	names := make([]string, 0, len(w.handlers))
	for name := range w.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Notify wakes the poll loop early. It never blocks.
func (w *Worker) Notify() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Start begins polling. Calling Start on a running worker is a no-op. The poll
// loop keeps ctx values but not its cancellation, only Stop ends it.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.stoppedCh = make(chan struct{})
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	w.cancel = cancel
	stopCh, stoppedCh := w.stopCh, w.stoppedCh
	w.mu.Unlock()

	w.RecoverStale(runCtx)

	w.log.Info("job worker starting",
		zap.Strings("queues", w.Queues()),
		zap.Duration("poll_interval", w.cfg.PollInterval),
		zap.Int("batch_size", w.cfg.BatchSize),
		zap.Duration("recover_interval", w.cfg.RecoverInterval))

	go w.run(runCtx, stopCh, stoppedCh)
	return nil
}

// RecoverStale puts jobs left active longer than StaleAfter back to retry,
// covering claims lost to a crashed process. It returns the number recovered.
func (w *Worker) RecoverStale(ctx context.Context) int64 {
	n, err := w.queue.RecoverStale(ctx, w.cfg.StaleAfter)
	if err != nil {
		w.log.Warn("failed to recover stale jobs", zap.Error(err))
		return 0
	}
	return n
}

// Stop waits for the current batch to finish or ctx to expire
func (w *Worker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	close(w.stopCh)
	stopped, cancel := w.stoppedCh, w.cancel
	w.mu.Unlock()
	defer cancel()

	select {
	case <-stopped:
		w.log.Info("job worker stopped gracefully")
		return nil
	case <-ctx.Done():
		w.log.Warn("job worker stop timeout")
		return ctx.Err()
	}
}

func (w *Worker) stopping() bool {
	w.mu.Lock()
	stopCh := w.stopCh
	w.mu.Unlock()
	if stopCh == nil {
		return false
	}
	select {
	case <-stopCh:
		return true
	default:
		return false
	}
}

func (w *Worker) run(ctx context.Context, stopCh <-chan struct{}, stoppedCh chan struct{}) {
	defer close(stoppedCh)

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()
	recoverTicker := time.NewTicker(w.cfg.RecoverInterval)
	defer recoverTicker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-recoverTicker.C:
			w.RecoverStale(ctx)
			continue
		case <-ticker.C:
		case <-w.wake:
		}
		w.ProcessOnce(ctx)
	}
}

// ProcessOnce drains one batch from every registered queue and returns the
// number of jobs handled. Nothing new is claimed once Stop has been called,
// jobs already claimed are still run to completion.
func (w *Worker) ProcessOnce(ctx context.Context) int {
	processed := 0
	for _, name := range w.Queues() {
		if ctx.Err() != nil || w.stopping() {
			return processed
		}

		claimed, err := w.queue.Fetch(ctx, name, w.cfg.BatchSize)
		if err != nil {
			w.log.Warn("fetch failed", zap.String("queue", name), zap.Error(err))
			continue
		}
		for _, job := range claimed {
			w.process(ctx, job)
			processed++
		}
	}
	return processed
}

func (w *Worker) process(ctx context.Context, job *entities.Job) {
	w.mu.Lock()
	h := w.handlers[job.Name]
	w.mu.Unlock()

	jobCtx := logger.WithJobID(ctx, job.ID.String())
	start := time.Now()

	err := safeRun(jobCtx, h, job)

	doneCtx, cancel := context.WithTimeout(context.WithoutCancel(jobCtx), bookkeepingTimeout)
	defer cancel()

	if err == nil {
		if cerr := w.queue.Complete(doneCtx, job.ID, nil); cerr != nil {
			logger.Error(jobCtx, "failed to mark job completed", zap.Error(cerr))
			return
		}
		w.metrics.JobProcessed(job.Name, "completed")
		logger.Debug(jobCtx, "job completed", zap.String("queue", job.Name), zap.Duration("duration", time.Since(start)))
		return
	}

	if ferr := w.queue.Fail(doneCtx, job.ID, err); ferr != nil {
		logger.Error(jobCtx, "failed to mark job failed", zap.Error(ferr))
		return
	}

	if job.RetryCount < job.RetryLimit {
		w.metrics.JobProcessed(job.Name, "retry")
		logger.Warn(jobCtx, "job failed, will retry",
			zap.String("queue", job.Name),
			zap.Int("attempt", job.RetryCount+1),
			zap.Error(err))
		return
	}

	w.metrics.JobProcessed(job.Name, "failed")
	logger.Error(jobCtx, "job permanently failed",
		zap.String("queue", job.Name),
		zap.Int("attempts", job.RetryCount+1),
		zap.Error(err))
}

func safeRun(ctx context.Context, h HandlerFunc, job *entities.Job) (err error) {
	if h == nil {
		return fmt.Errorf("no handler registered for queue %s", job.Name)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job handler panic: %v", r)
		}
	}()
	return h(ctx, job)
}
