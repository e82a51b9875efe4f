package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"hacker-tracker.backend/internal/domain/entities"
	domainRepos "hacker-tracker.backend/internal/domain/repositories"
	"hacker-tracker.backend/pkg/logger"
)

// SchedulerConfig holds cron specs for the periodic tasks
type SchedulerConfig struct {
	PurgeSchedule       string
	MaintenanceSchedule string
	DeleteAfter         time.Duration
	StaleAfter          time.Duration
	TaskTimeout         time.Duration
}

// Scheduler runs periodic queue tasks on robfig/cron
type Scheduler struct {
	cron  *cron.Cron
	queue domainRepos.JobQueue
	cfg   SchedulerConfig
	log   *zap.Logger
	now   func() time.Time

	mu      sync.Mutex
	tasks   map[string]cron.EntryID
	running bool
}

// NewScheduler creates a scheduler with the purge and maintenance tasks registered
func NewScheduler(queue domainRepos.JobQueue, cfg SchedulerConfig) (*Scheduler, error) {
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = 5 * time.Minute
	}
	s := &Scheduler{
		cron:  cron.New(),
		queue: queue,
		cfg:   cfg,
		log:   logger.Scope("jobs.scheduler"),
		now:   func() time.Time { return time.Now().UTC() },
		tasks: make(map[string]cron.EntryID),
	}

	if err := s.addTask("purge-email-confirmations", cfg.PurgeSchedule, s.EnqueuePurge); err != nil {
		return nil, err
	}
	if err := s.addTask("queue-maintenance", cfg.MaintenanceSchedule, func(ctx context.Context) error {
		_, err := s.RunMaintenance(ctx)
		return err
	}); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) addTask(name, spec string, task func(ctx context.Context) error) error {
	if spec == "" {
		return nil
	}
	id, err := s.cron.AddFunc(spec, func() { s.runTask(name, task) })
	if err != nil {
		return fmt.Errorf("invalid schedule %q for %s: %w", spec, name, err)
	}
	s.tasks[name] = id
	return nil
}

// Tasks returns the registered task names
func (s *Scheduler) Tasks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.tasks))
	for name := range s.tasks {
		names = append(names, name)
	}
	return names
}

// Start begins the cron loop. Calling Start twice is a no-op.
func (s *Scheduler) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}
	s.cron.Start()
	s.running = true
	s.log.Info("scheduler started", zap.Int("tasks", len(s.tasks)))
	return nil
}

// Stop waits for running tasks to finish or ctx to expire
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false

	select {
	case <-s.cron.Stop().Done():
		s.log.Info("scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.log.Warn("scheduler stop timeout")
		return ctx.Err()
	}
}

// EnqueuePurge schedules one purge of stale confirmation records
func (s *Scheduler) EnqueuePurge(ctx context.Context) error {
	_, err := s.queue.Enqueue(ctx, entities.PurgeConfirmationsJob{RequestedAt: s.now()}, entities.EnqueueOptions{})
	return err
}

// MaintenanceResult counts what one maintenance pass changed
type MaintenanceResult struct {
	Recovered int64
	Deleted   int64
}

// RunMaintenance returns jobs stuck active past StaleAfter to retry and
// deletes finished jobs older than DeleteAfter. A zero duration skips that step.
func (s *Scheduler) RunMaintenance(ctx context.Context) (MaintenanceResult, error) {
	var res MaintenanceResult
	if s.cfg.StaleAfter > 0 {
		n, err := s.queue.RecoverStale(ctx, s.cfg.StaleAfter)
		if err != nil {
			return res, err
		}
		res.Recovered = n
	}
	if s.cfg.DeleteAfter > 0 {
		n, err := s.queue.DeleteFinished(ctx, s.cfg.DeleteAfter)
		if err != nil {
			return res, err
		}
		res.Deleted = n
		if n > 0 {
			s.log.Info("deleted finished jobs", zap.Int64("count", n))
		}
	}
	return res, nil
}

func (s *Scheduler) runTask(name string, task func(ctx context.Context) error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.TaskTimeout)
	defer cancel()

	if err := task(ctx); err != nil {
		s.log.Error("scheduled task failed",
			zap.String("name", name),
			zap.Error(err),
			zap.Duration("duration", time.Since(start)))
		return
	}
	s.log.Debug("scheduled task completed", zap.String("name", name), zap.Duration("duration", time.Since(start)))
}
