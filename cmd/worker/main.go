package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"hacker-tracker.backend/internal/config"
	"hacker-tracker.backend/internal/infrastructure/datasources/postgres"
	"hacker-tracker.backend/internal/infrastructure/jobs"
	"hacker-tracker.backend/internal/infrastructure/repositories"
	"hacker-tracker.backend/internal/usecases"
	"hacker-tracker.backend/pkg/logger"
	"hacker-tracker.backend/pkg/metrics"
)

const (
	shutdownTimeout = 30 * time.Second
	metricsPort     = "9091"
)

var (
	loadDotenv      = godotenv.Load
	loadCfg         = config.Load
	initLog         = logger.Init
	openDB          = postgres.NewConnection
	migrateDB       = postgres.Migrate
	listenDSN       = func(cfg *config.Config) string { return cfg.Database.URL() }
	waitForShutdown = func(ctx context.Context) { <-ctx.Done() }
	serveMetrics    = func(m *metrics.Metrics) {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		srv := &http.Server{Addr: ":" + metricsPort, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warn(context.Background(), "Worker metrics endpoint stopped", zap.Error(err))
		}
	}
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	if err := loadDotenv(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := loadCfg()
	initLog(cfg.Server.Env)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	db, err := openDB(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer postgres.Close(db)

	if err := migrateDB(db); err != nil {
		return err
	}

	dispatcher := jobs.NewDispatcher(func(context.Context) (*gorm.DB, error) {
		return openDB(cfg.Database)
	}, m)
	if err := dispatcher.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect job dispatcher: %w", err)
	}
	defer dispatcher.Disconnect()

	userRepo := repositories.NewUserRepository(db)
	confirmationRepo := repositories.NewEmailConfirmationRepository(db)
	confirmations := usecases.NewEmailConfirmationUsecase(confirmationRepo, userRepo, repositories.NewUnitOfWork(db), cfg.Server.Env, m)

	runner, err := jobs.NewRuntime(dispatcher, confirmations, jobs.RuntimeOptions{
		Jobs:      cfg.Jobs,
		Email:     cfg.Email,
		Env:       cfg.Server.Env,
		AppName:   cfg.Email.FromName,
		ListenDSN: listenDSN(cfg),
	}, m)
	if err != nil {
		return fmt.Errorf("failed to build job runtime: %w", err)
	}

	if err := runner.Start(ctx); err != nil {
		return fmt.Errorf("failed to start job runtime: %w", err)
	}
	go serveMetrics(m)

	logger.Info(ctx, "Job worker started",
		zap.String("email_provider", cfg.Email.Provider),
		zap.Bool("scheduler", cfg.Jobs.Enabled))

	waitForShutdown(ctx)
	logger.Info(context.Background(), "Shutting down job worker")

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return runner.Stop(stopCtx)
}
