package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"hacker-tracker.backend/internal/config"
	"hacker-tracker.backend/internal/domain/entities"
	domainrepo "hacker-tracker.backend/internal/domain/repositories"
	"hacker-tracker.backend/internal/infrastructure/datasources/postgres"
	"hacker-tracker.backend/internal/infrastructure/repositories"
)

// adminUserRuntime is the store access the command needs
type adminUserRuntime interface {
	GetByEmail(ctx context.Context, email string) (*entities.User, error)
	Promote(ctx context.Context, user *entities.User, confirm bool) error
}

type adminUserDeps struct {
	loadEnv func() error
	loadCfg func() *config.Config
	prepare func(cfg *config.Config) (adminUserRuntime, io.Closer, error)
	out     io.Writer
}

type adminUserRuntimeImpl struct {
	userRepo domainrepo.UserRepository
	uow      domainrepo.UnitOfWork
}

func (r adminUserRuntimeImpl) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	return r.userRepo.GetByEmail(ctx, email)
}

func (r adminUserRuntimeImpl) Promote(ctx context.Context, user *entities.User, confirm bool) error {
	return r.uow.Do(ctx, func(txCtx context.Context) error {
		if err := r.userRepo.UpdateRole(txCtx, user.ID, entities.UserRoleAdmin); err != nil {
			return err
		}
		if confirm && !user.EmailConfirmed {
			return r.userRepo.SetEmailConfirmed(txCtx, user.ID, true)
		}
		return nil
	})
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func defaultAdminUserDeps() adminUserDeps {
	return adminUserDeps{
		loadEnv: func() error { return godotenv.Load() },
		loadCfg: config.Load,
		prepare: func(cfg *config.Config) (adminUserRuntime, io.Closer, error) {
			db, err := postgres.NewConnection(cfg.Database)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to connect db: %w", err)
			}
			return adminUserRuntimeImpl{
				userRepo: repositories.NewUserRepository(db),
				uow:      repositories.NewUnitOfWork(db),
			}, closerFunc(func() error { return postgres.Close(db) }), nil
		},
		out: os.Stdout,
	}
}

func parseEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", errors.New("--email is required")
	}
	if !strings.Contains(email, "@") {
		return "", fmt.Errorf("invalid email %q", email)
	}
	return email, nil
}

func runAdminUser(args []string, deps adminUserDeps) error {
	if deps.loadEnv == nil || deps.loadCfg == nil || deps.prepare == nil {
		def := defaultAdminUserDeps()
		if deps.loadEnv == nil {
			deps.loadEnv = def.loadEnv
		}
		if deps.loadCfg == nil {
			deps.loadCfg = def.loadCfg
		}
		if deps.prepare == nil {
			deps.prepare = def.prepare
		}
	}
	if deps.out == nil {
		deps.out = os.Stdout
	}

	fs := flag.NewFlagSet("admin-user", flag.ContinueOnError)
	emailFlag := fs.String("email", "", "email of the registered user to promote (required)")
	confirmFlag := fs.Bool("confirm", true, "also mark the email as confirmed")
	if err := fs.Parse(args); err != nil {
		return err
	}

	email, err := parseEmail(*emailFlag)
	if err != nil {
		return err
	}

	if err := deps.loadEnv(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := deps.loadCfg()
	runtime, closer, err := deps.prepare(cfg)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}

	ctx := context.Background()
	user, err := runtime.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to load user %s: %w", email, err)
	}

	if err := runtime.Promote(ctx, user, *confirmFlag); err != nil {
		return fmt.Errorf("failed to promote user %s: %w", email, err)
	}

	_, _ = fmt.Fprintln(deps.out, "Promoted user to admin")
	_, _ = fmt.Fprintf(deps.out, "user_id=%s\n", user.ID.String())
	_, _ = fmt.Fprintf(deps.out, "email=%s\n", user.Email)
	_, _ = fmt.Fprintf(deps.out, "email_confirmed=%t\n", user.EmailConfirmed || *confirmFlag)
	return nil
}

func main() {
	if err := runAdminUser(os.Args[1:], defaultAdminUserDeps()); err != nil {
		log.Fatal(err)
	}
}
