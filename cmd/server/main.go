package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"hacker-tracker.backend/internal/config"
	"hacker-tracker.backend/internal/domain/entities"
	"hacker-tracker.backend/internal/infrastructure/datasources/postgres"
	"hacker-tracker.backend/internal/infrastructure/jobs"
	"hacker-tracker.backend/internal/infrastructure/repositories"
	"hacker-tracker.backend/internal/interfaces/http/handlers"
	"hacker-tracker.backend/internal/interfaces/http/middleware"
	"hacker-tracker.backend/internal/usecases"
	"hacker-tracker.backend/pkg/jwt"
	"hacker-tracker.backend/pkg/logger"
	"hacker-tracker.backend/pkg/metrics"
	"hacker-tracker.backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

var (
	loadDotenv = godotenv.Load
	loadCfg    = config.Load
	initLog    = logger.Init
	initRedis  = redis.Init
	openDB     = postgres.NewConnection
	migrateDB  = postgres.Migrate
	runServer  = func(ctx context.Context, handler http.Handler, port string) error {
		srv := &http.Server{
			Addr:              ":" + port,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() { errCh <- srv.ListenAndServe() }()

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		}
	}
)

func main() {
	if err := runMainProcess(); err != nil {
		log.Fatal(err)
	}
}

func runMainProcess() error {
	if err := loadDotenv(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := loadCfg()

	initLog(cfg.Server.Env)
	defer logger.Sync()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	logger.Info(ctx, "Logger initialized", zap.String("env", cfg.Server.Env))

	m := metrics.New()

	// Redis only backs the rate limiter, which fails open
	var limiter middleware.RateLimiter
	if err := initRedis(cfg.Redis.URL, cfg.Redis.PASSWORD); err != nil {
		logger.Warn(ctx, "Redis unavailable, rate limiting disabled", zap.Error(err))
	} else {
		defer redis.Close()
		limiter = redis.NewRateLimiter(redis.GetClient(), "ratelimit:", cfg.RateLimit.Requests, cfg.RateLimit.Window)
		logger.Info(ctx, "Redis initialized")
	}

	if cfg.Server.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := openDB(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer postgres.Close(db)

	if err := migrateDB(db); err != nil {
		return err
	}
	logger.Info(ctx, "Connected to PostgreSQL via GORM")

	dispatcher := jobs.NewDispatcher(func(context.Context) (*gorm.DB, error) {
		return openDB(cfg.Database)
	}, m)
	if err := dispatcher.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect job dispatcher: %w", err)
	}
	defer dispatcher.Disconnect()

	jwtService := jwt.NewJWTService(
		cfg.JWT.Secret,
		cfg.JWT.Issuer,
		cfg.JWT.AccessExpiry,
		cfg.JWT.RefreshExpiry,
	)

	userRepo := repositories.NewUserRepository(db)
	confirmationRepo := repositories.NewEmailConfirmationRepository(db)
	uow := repositories.NewUnitOfWork(db)

	confirmationUsecase := usecases.NewEmailConfirmationUsecase(confirmationRepo, userRepo, uow, cfg.Server.Env, m)
	authUsecase := usecases.NewAuthUsecase(userRepo, confirmationUsecase, dispatcher, uow, jwtService, cfg.Auth.BcryptCost)
	authUsecase.SetJobOptions(entities.EnqueueOptions{
		RetryLimit:        cfg.Jobs.RetryLimit,
		RetryDelaySeconds: int(cfg.Jobs.RetryDelay.Seconds()),
	})

	if cfg.Jobs.RunInServer {
		runner, err := jobs.NewRuntime(dispatcher, confirmationUsecase, jobs.RuntimeOptions{
			Jobs:      cfg.Jobs,
			Email:     cfg.Email,
			Env:       cfg.Server.Env,
			AppName:   cfg.Email.FromName,
			ListenDSN: cfg.Database.URL(),
		}, m)
		if err != nil {
			return fmt.Errorf("failed to build job runtime: %w", err)
		}
		if err := runner.Start(ctx); err != nil {
			return fmt.Errorf("failed to start job runtime: %w", err)
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := runner.Stop(stopCtx); err != nil {
				logger.Warn(context.Background(), "Job runtime stop failed", zap.Error(err))
			}
		}()
		logger.Info(ctx, "Job worker running in server process")
	}

	r := newRouter(cfg, m, limiter, routeDeps{
		authHandler:    handlers.NewAuthHandler(authUsecase, cfg.Server.IsProduction()),
		adminHandler:   handlers.NewAdminHandler(dispatcher, authUsecase),
		authMiddleware: middleware.AuthMiddleware(jwtService),
		debugEndpoints: cfg.Server.DebugEndpointsEnabled(),
	})

	logger.Info(ctx, "Hacker Tracker backend starting",
		zap.String("port", cfg.Server.Port),
		zap.Int("routes", len(r.Routes())))

	if err := runServer(ctx, r, cfg.Server.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	logger.Info(context.Background(), "Server stopped")
	return nil
}
