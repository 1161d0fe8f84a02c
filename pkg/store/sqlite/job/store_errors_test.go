package job

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobStore_DatabaseErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store, err := NewStore(db)
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("create propagates insert failure", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO jobs").
			WillReturnError(errors.New("database is locked"))

		_, err := store.Create(ctx, testJob("broken"), nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "insert job")
	})

	t.Run("set status propagates update failure", func(t *testing.T) {
		mock.ExpectExec("UPDATE jobs SET status").
			WithArgs("executing", int64(1)).
			WillReturnError(errors.New("disk I/O error"))

		err := store.SetStatus(ctx, 1, "executing")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "update job status")
	})

	t.Run("get propagates scan failure", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM jobs WHERE id").
			WithArgs(int64(1)).
			WillReturnError(errors.New("table is corrupt"))

		_, err := store.Get(ctx, 1)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrNotFound)
	})

	t.Run("list propagates query failure", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM jobs ORDER BY id DESC").
			WillReturnError(errors.New("no such table"))

		_, err := store.List(ctx, 10)
		assert.Error(t, err)
	})

	t.Run("stopped_at scans as a pointer", func(t *testing.T) {
		stopped := time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)
		rows := sqlmock.NewRows([]string{
			"id", "description", "mode", "status", "user", "engine_version",
			"checksum32", "ini_path", "started_at", "stopped_at",
		}).AddRow(int64(1), "d", "scenario", "complete", "u", "1.4.2",
			uint32(7), "/tmp/job.ini", stopped.Add(-time.Hour), stopped)

		mock.ExpectQuery("SELECT (.+) FROM jobs WHERE id").
			WithArgs(int64(1)).
			WillReturnRows(rows)

		job, err := store.Get(ctx, 1)
		require.NoError(t, err)
		require.NotNil(t, job.StoppedAt)
		assert.Equal(t, stopped, *job.StoppedAt)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
