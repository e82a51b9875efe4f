package repositories

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", t.Name(), time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err, "open sqlite")
	return db
}

func mustExec(t *testing.T, db *gorm.DB, q string, args ...interface{}) {
	t.Helper()
	require.NoError(t, db.Exec(q, args...).Error, "exec failed: query=%s", q)
}

func createUserTable(t *testing.T, db *gorm.DB) {
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
}

func createEmailConfirmationTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE email_confirmations (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		code TEXT NOT NULL,
		expires_at DATETIME NOT NULL,
		used BOOLEAN NOT NULL DEFAULT false,
		created_at DATETIME
	);`)
}

func insertUser(t *testing.T, db *gorm.DB, email, username string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	now := time.Now().UTC()
	mustExec(t, db, `INSERT INTO users(id,email,username,password_hash,email_confirmed,role,created_at,updated_at)
		VALUES (?,?,?,?,?,?,?,?)`,
		id, email, username, "hash", false, "user", now, now,
	)
	return id
}
