package database

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"testing/fstest"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testMigrations() fstest.MapFS {
	return fstest.MapFS{
		"001_users.up.sql":   {Data: []byte("CREATE TABLE users (id UUID PRIMARY KEY)")},
		"001_users.down.sql": {Data: []byte("DROP TABLE users")},
		"002_posts.up.sql":   {Data: []byte("CREATE TABLE posts (id UUID PRIMARY KEY)")},
		"README.md":          {Data: []byte("not sql")},
	}
}

func expectTracking(mock pgxmock.PgxPoolIface) {
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
}

func expectLockAndCheck(mock pgxmock.PgxPoolIface, name string, applied bool) {
	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock`).
		WithArgs(migrationLockID).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(name).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(applied))
}

func TestRunMigrations_AppliesPendingInOrder(t *testing.T) {
	mock, err := NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	expectTracking(mock)

	expectLockAndCheck(mock, "001_users.up.sql", false)
	mock.ExpectExec("CREATE TABLE users").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("INSERT INTO schema_migrations").
		WithArgs("001_users.up.sql").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	expectLockAndCheck(mock, "002_posts.up.sql", false)
	mock.ExpectExec("CREATE TABLE posts").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("INSERT INTO schema_migrations").
		WithArgs("002_posts.up.sql").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, RunMigrations(context.Background(), mock, testMigrations(), quietLogger()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrations_SkipsApplied(t *testing.T) {
	mock, err := NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	expectTracking(mock)
	expectLockAndCheck(mock, "001_users.up.sql", true)
	mock.ExpectRollback()
	expectLockAndCheck(mock, "002_posts.up.sql", true)
	mock.ExpectRollback()

	require.NoError(t, RunMigrations(context.Background(), mock, testMigrations(), quietLogger()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrations_SQLErrorIsNotRetried(t *testing.T) {
	mock, err := NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	expectTracking(mock)
	expectLockAndCheck(mock, "001_users.up.sql", false)
	mock.ExpectExec("CREATE TABLE users").WillReturnError(errors.New(`syntax error at or near "CREAT"`))
	mock.ExpectRollback()

	err = RunMigrations(context.Background(), mock, testMigrations(), quietLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "execute migration 001_users.up.sql")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrations_ContextCancelledDuringRetry(t *testing.T) {
	mock, err := NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
		WillReturnError(errors.New("dial tcp 127.0.0.1:5432: connection refused"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = RunMigrations(ctx, mock, testMigrations(), quietLogger())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPendingFiles(t *testing.T) {
	names, err := pendingFiles(testMigrations())
	require.NoError(t, err)
	assert.Equal(t, []string{"001_users.up.sql", "002_posts.up.sql"}, names)
}
