package jobs

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var testEpoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time         { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestDSN(t *testing.T) string {
	t.Helper()
	return fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", t.Name(), time.Now().UnixNano())
}

func openTestDB(t *testing.T, dsn string) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err, "open sqlite")
	return db
}

func mustExec(t *testing.T, db *gorm.DB, q string, args ...interface{}) {
	t.Helper()
	require.NoError(t, db.Exec(q, args...).Error, "exec failed: query=%s", q)
}

func createJobTable(t *testing.T, db *gorm.DB) {
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
}

// newTestDispatcher returns the application DB and a connected dispatcher
// holding its own session to the same in-memory database.
func newTestDispatcher(t *testing.T) (*gorm.DB, *Dispatcher, *fakeClock) {
	t.Helper()
	dsn := newTestDSN(t)
	appDB := openTestDB(t, dsn)
	createJobTable(t, appDB)

	clock := &fakeClock{now: testEpoch}
	d := NewDispatcher(func(context.Context) (*gorm.DB, error) {
		return gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	}, nil)
	d.now = clock.Now

	require.NoError(t, d.Connect(context.Background()))
	t.Cleanup(func() { _ = d.Disconnect() })
	return appDB, d, clock
}
