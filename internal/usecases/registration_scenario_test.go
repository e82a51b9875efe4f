package usecases_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"hacker-tracker.backend/internal/config"
	"hacker-tracker.backend/internal/domain/entities"
	domainerrors "hacker-tracker.backend/internal/domain/errors"
	"hacker-tracker.backend/internal/infrastructure/jobs"
	"hacker-tracker.backend/internal/infrastructure/repositories"
	"hacker-tracker.backend/internal/usecases"
	"hacker-tracker.backend/pkg/jwt"
)

type scenario struct {
	db            *gorm.DB
	dispatcher    *jobs.Dispatcher
	confirmations *usecases.EmailConfirmationUsecase
	auth          *usecases.AuthUsecase
	now           time.Time
}

func mustExec(t *testing.T, db *gorm.DB, q string, args ...interface{}) {
	t.Helper()
	require.NoError(t, db.Exec(q, args...).Error, "exec failed: query=%s", q)
}

func newScenario(t *testing.T) *scenario {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", t.Name(), time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	mustExec(t, db, `CREATE TABLE users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		email_confirmed BOOLEAN NOT NULL DEFAULT false,
		role TEXT NOT NULL DEFAULT 'user',
		created_at DATETIME,
		updated_at DATETIME
	);`)
	mustExec(t, db, `CREATE TABLE email_confirmations (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		code TEXT NOT NULL,
		expires_at DATETIME NOT NULL,
		used BOOLEAN NOT NULL DEFAULT false,
		created_at DATETIME
	);`)
	mustExec(t, db, `CREATE TABLE jobs (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		state TEXT NOT NULL,
		data TEXT NOT NULL,
		output TEXT,
		retry_limit INTEGER NOT NULL DEFAULT 0,
		retry_count INTEGER NOT NULL DEFAULT 0,
		retry_delay INTEGER NOT NULL DEFAULT 0,
		start_after DATETIME NOT NULL,
		started_on DATETIME,
		completed_on DATETIME,
		created_on DATETIME NOT NULL
	);`)

	dispatcher := jobs.NewDispatcher(func(context.Context) (*gorm.DB, error) {
		return gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	}, nil)
	require.NoError(t, dispatcher.Connect(context.Background()))
	t.Cleanup(func() { _ = dispatcher.Disconnect() })

	s := &scenario{db: db, dispatcher: dispatcher, now: time.Now().UTC()}
	users := repositories.NewUserRepository(db)
	uow := repositories.NewUnitOfWork(db)
	s.confirmations = usecases.NewEmailConfirmationUsecase(repositories.NewEmailConfirmationRepository(db), users, uow, config.EnvTest, nil)
	s.confirmations.SetClock(func() time.Time { return s.now })
	s.auth = usecases.NewAuthUsecase(users, s.confirmations, dispatcher, uow,
		jwt.NewJWTService("test-secret", "hacker-tracker", 15*time.Minute, 24*time.Hour), bcrypt.MinCost)
	return s
}

func (s *scenario) count(t *testing.T, table string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, s.db.Table(table).Count(&n).Error)
	return n
}

func (s *scenario) queuedConfirmation(t *testing.T) entities.EmailConfirmationJob {
	t.Helper()
	claimed, err := s.dispatcher.Fetch(context.Background(), entities.QueueSendEmailConfirmation, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	var payload entities.EmailConfirmationJob
	require.NoError(t, claimed[0].Decode(&payload))
	return payload
}

func TestScenario_RegisterConfirmAlice(t *testing.T) {
	s := newScenario(t)
	ctx := context.Background()

	resp, err := s.auth.Register(ctx, &entities.RegisterInput{Email: "a@x.com", Username: "alice", Password: "password123"})
	require.NoError(t, err)
	assert.False(t, resp.User.EmailConfirmed)
	assert.Equal(t, entities.UserRoleUser, resp.User.Role)
	assert.True(t, resp.RequiresEmailConfirmation)

	assert.Equal(t, int64(1), s.count(t, "users"))
	assert.Equal(t, int64(1), s.count(t, "email_confirmations"))

	code, err := s.auth.LatestConfirmationCode(ctx, resp.User.ID)
	require.NoError(t, err)
	require.NotNil(t, code)

	job := s.queuedConfirmation(t)
	assert.Equal(t, entities.EmailConfirmationJob{
		UserID:   resp.User.ID,
		Email:    "a@x.com",
		Username: "alice",
		Code:     *code,
	}, job)

	wrong := "000000"
	if *code == wrong {
		wrong = "999999"
	}
	err = s.auth.ConfirmEmail(ctx, &entities.ConfirmEmailInput{UserID: resp.User.ID, Code: wrong})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidCode)

	require.NoError(t, s.auth.ConfirmEmail(ctx, &entities.ConfirmEmailInput{UserID: resp.User.ID, Code: *code}))

	me, err := s.auth.GetUserByID(ctx, resp.User.ID)
	require.NoError(t, err)
	assert.True(t, me.EmailConfirmed)

	err = s.auth.ConfirmEmail(ctx, &entities.ConfirmEmailInput{UserID: resp.User.ID, Code: *code})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidCode, "a code verifies at most once")

	login, err := s.auth.Login(ctx, &entities.LoginInput{Email: "a@x.com", Password: "password123"})
	require.NoError(t, err)
	assert.False(t, login.RequiresEmailConfirmation)
}

func TestScenario_RegisterConflicts(t *testing.T) {
	s := newScenario(t)
	ctx := context.Background()

	_, err := s.auth.Register(ctx, &entities.RegisterInput{Email: "a@x.com", Username: "alice", Password: "password123"})
	require.NoError(t, err)

	_, err = s.auth.Register(ctx, &entities.RegisterInput{Email: "a@x.com", Username: "alice", Password: "password123"})
	assert.ErrorIs(t, err, domainerrors.ErrConflict)
	assert.Equal(t, "User with this email already exists", domainerrors.FromError(err).Message)

	_, err = s.auth.Register(ctx, &entities.RegisterInput{Email: "b@x.com", Username: "alice", Password: "password123"})
	assert.ErrorIs(t, err, domainerrors.ErrConflict)
	assert.Equal(t, "User with this username already exists", domainerrors.FromError(err).Message)

	assert.Equal(t, int64(1), s.count(t, "users"))
	assert.Equal(t, int64(1), s.count(t, "email_confirmations"))
	assert.Equal(t, int64(1), s.count(t, "jobs"))
}

func TestScenario_RegisterRollsBackWhenDispatcherDown(t *testing.T) {
	s := newScenario(t)
	ctx := context.Background()
	require.NoError(t, s.dispatcher.Disconnect())

	_, err := s.auth.Register(ctx, &entities.RegisterInput{Email: "a@x.com", Username: "alice", Password: "password123"})
	assert.ErrorIs(t, err, domainerrors.ErrTransient)

	assert.Zero(t, s.count(t, "users"))
	assert.Zero(t, s.count(t, "email_confirmations"))
	assert.Zero(t, s.count(t, "jobs"))
}

func TestScenario_ExpiredCodeFails(t *testing.T) {
	s := newScenario(t)
	ctx := context.Background()

	resp, err := s.auth.Register(ctx, &entities.RegisterInput{Email: "a@x.com", Username: "alice", Password: "password123"})
	require.NoError(t, err)
	code, err := s.auth.LatestConfirmationCode(ctx, resp.User.ID)
	require.NoError(t, err)

	s.now = s.now.Add(16 * time.Minute)
	ok, err := s.confirmations.Verify(ctx, resp.User.ID, *code)
	require.NoError(t, err)
	assert.False(t, ok)

	me, err := s.auth.GetUserByID(ctx, resp.User.ID)
	require.NoError(t, err)
	assert.False(t, me.EmailConfirmed)
}

func TestScenario_ResendKeepsEarlierCodesValid(t *testing.T) {
	s := newScenario(t)
	ctx := context.Background()

	resp, err := s.auth.Register(ctx, &entities.RegisterInput{Email: "a@x.com", Username: "alice", Password: "password123"})
	require.NoError(t, err)
	first, err := s.auth.LatestConfirmationCode(ctx, resp.User.ID)
	require.NoError(t, err)

	s.now = s.now.Add(time.Second)
	require.NoError(t, s.auth.ResendConfirmation(ctx, resp.User.ID))
	assert.Equal(t, int64(2), s.count(t, "email_confirmations"))
	assert.Equal(t, int64(2), s.count(t, "jobs"))

	ok, err := s.confirmations.Verify(ctx, resp.User.ID, *first)
	require.NoError(t, err)
	assert.True(t, ok)

	err = s.auth.ResendConfirmation(ctx, resp.User.ID)
	assert.ErrorIs(t, err, domainerrors.ErrAlreadyConfirmed)
	assert.Equal(t, int64(2), s.count(t, "email_confirmations"))
	assert.Equal(t, int64(2), s.count(t, "jobs"))
}

func TestScenario_ConcurrentVerifySucceedsOnce(t *testing.T) {
	s := newScenario(t)
	ctx := context.Background()

	resp, err := s.auth.Register(ctx, &entities.RegisterInput{Email: "a@x.com", Username: "alice", Password: "password123"})
	require.NoError(t, err)
	code, err := s.auth.LatestConfirmationCode(ctx, resp.User.ID)
	require.NoError(t, err)

	const attempts = 8
	var wg sync.WaitGroup
	results := make(chan bool, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.confirmations.Verify(ctx, resp.User.ID, *code)
			assert.NoError(t, err)
			results <- ok
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for ok := range results {
		if ok {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded)
}

func TestScenario_PurgeRemovesExpiredKeepsFresh(t *testing.T) {
	s := newScenario(t)
	ctx := context.Background()

	resp, err := s.auth.Register(ctx, &entities.RegisterInput{Email: "a@x.com", Username: "alice", Password: "password123"})
	require.NoError(t, err)

	mustExec(t, s.db, `DELETE FROM email_confirmations`)
	mustExec(t, s.db, `INSERT INTO email_confirmations (id, user_id, code, expires_at, used, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		"0190f2a6-0000-7000-8000-00000000000a", resp.User.ID, "111111", s.now.Add(-16*time.Minute), false, s.now.Add(-31*time.Minute))
	mustExec(t, s.db, `INSERT INTO email_confirmations (id, user_id, code, expires_at, used, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		"0190f2a6-0000-7000-8000-00000000000b", resp.User.ID, "222222", s.now.Add(time.Minute), false, s.now.Add(-14*time.Minute))

	n, err := s.confirmations.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var codes []string
	require.NoError(t, s.db.Table("email_confirmations").Pluck("code", &codes).Error)
	assert.Equal(t, []string{"222222"}, codes)
}
