package jobs

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"hacker-tracker.backend/internal/config"
	domainRepos "hacker-tracker.backend/internal/domain/repositories"
	"hacker-tracker.backend/internal/infrastructure/mailer"
	"hacker-tracker.backend/pkg/logger"
	"hacker-tracker.backend/pkg/metrics"
)

// Runner owns the background side of the queue: the worker, its optional
// NOTIFY listener and the optional cron scheduler.
type Runner struct {
	worker    *Worker
	listener  *Listener
	scheduler *Scheduler
	log       *zap.Logger
}

// NewRunner groups the components. listener and scheduler may be nil.
func NewRunner(worker *Worker, listener *Listener, scheduler *Scheduler) *Runner {
	return &Runner{
		worker:    worker,
		listener:  listener,
		scheduler: scheduler,
		log:       logger.Scope("jobs.runner"),
	}
}

// Start launches the worker, then the listener and scheduler. A listener
// that cannot subscribe is logged and the worker keeps polling.
func (r *Runner) Start(ctx context.Context) error {
	if err := r.worker.Start(ctx); err != nil {
		return err
	}

	if r.listener != nil {
		if err := r.listener.Start(ctx); err != nil {
			r.log.Warn("job listener unavailable, relying on polling", zap.Error(err))
		}
	}

	if r.scheduler != nil {
		if err := r.scheduler.Start(ctx); err != nil {
			_ = r.worker.Stop(ctx)
			return err
		}
	}
	return nil
}

// Stop shuts components down in reverse order and returns every error seen
func (r *Runner) Stop(ctx context.Context) error {
	var errs []error
	if r.scheduler != nil {
		errs = append(errs, r.scheduler.Stop(ctx))
	}
	if r.listener != nil {
		errs = append(errs, r.listener.Close())
	}
	errs = append(errs, r.worker.Stop(ctx))
	return errors.Join(errs...)
}

// RuntimeOptions configures NewRuntime
type RuntimeOptions struct {
	Jobs    config.JobsConfig
	Email   config.EmailConfig
	Env     string
	AppName string
	// ListenDSN enables the NOTIFY listener when set
	ListenDSN string
}

// NewRuntime builds a Runner with the confirmation and purge handlers bound
// to a worker on queue. The scheduler is added when opts.Jobs.Enabled.
func NewRuntime(queue domainRepos.JobQueue, purger ConfirmationPurger, opts RuntimeOptions, m *metrics.Metrics) (*Runner, error) {
	renderer, err := mailer.NewRenderer()
	if err != nil {
		return nil, err
	}
	sender, err := mailer.NewSender(opts.Email, opts.Env)
	if err != nil {
		return nil, err
	}

	worker := NewWorker(queue, WorkerConfig{
		PollInterval: opts.Jobs.PollInterval,
		BatchSize:    opts.Jobs.BatchSize,
		StaleAfter:   opts.Jobs.StaleAfter,
	}, m)
	RegisterHandlers(worker, renderer, sender, purger, opts.AppName)

	var listener *Listener
	if opts.ListenDSN != "" {
		listener = NewListener(opts.ListenDSN, worker.Notify)
	}

	var scheduler *Scheduler
	if opts.Jobs.Enabled {
		scheduler, err = NewScheduler(queue, SchedulerConfig{
			PurgeSchedule:       opts.Jobs.PurgeSchedule,
			MaintenanceSchedule: opts.Jobs.MaintenanceSchedule,
			DeleteAfter:         opts.Jobs.DeleteAfter,
			StaleAfter:          opts.Jobs.StaleAfter,
		})
		if err != nil {
			return nil, err
		}
	}

	return NewRunner(worker, listener, scheduler), nil
}
