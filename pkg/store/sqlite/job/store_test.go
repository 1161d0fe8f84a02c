package job

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/seismo-tools/hazengine/pkg/models/store"
	"github.com/seismo-tools/hazengine/pkg/store/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	db    *sql.DB
	store Store
}

func setupFixture(t *testing.T) *fixture {
	db, err := sqlite.NewDB(sqlite.Settings{Dir: ":memory:"})
	require.NoError(t, err)

	store, err := NewStore(db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return &fixture{db: db, store: store}
}

func testJob(description string) store.Job {
	return store.Job{
		Description:   description,
		Mode:          "scenario",
		Status:        "created",
		User:          "tester",
		EngineVersion: "1.4.2",
		Checksum32:    123456,
		IniPath:       "/tmp/job.ini",
		StartedAt:     time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestJobStore_Create(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	t.Run("success - job with inputs", func(t *testing.T) {
		inputs := []store.JobInput{
			{Key: "rupture_model", Path: "/tmp/rupture.xml", Size: 512},
			{Key: "gsim_logic_tree", Path: "/tmp/gmpe_lt.xml", Size: 1024},
		}

		jobID, err := f.store.Create(ctx, testJob("first"), inputs)
		require.NoError(t, err)
		assert.Greater(t, jobID, int64(0))

		stored, err := f.store.GetInputs(ctx, jobID)
		require.NoError(t, err)
		require.Len(t, stored, 2)
		assert.Equal(t, "gsim_logic_tree", stored[0].Key)
		assert.Equal(t, jobID, stored[0].JobID)
	})

	t.Run("rolled-back transaction leaves no job", func(t *testing.T) {
		tx, err := f.db.BeginTx(ctx, nil)
		require.NoError(t, err)

		txCtx := sqlite.WithTransaction(ctx, tx)
		jobID, err := f.store.Create(txCtx, testJob("rolled back"), nil)
		require.NoError(t, err)
		require.NoError(t, tx.Rollback())

		_, err = f.store.Get(ctx, jobID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("ids are monotonic", func(t *testing.T) {
		first, err := f.store.Create(ctx, testJob("a"), nil)
		require.NoError(t, err)
		second, err := f.store.Create(ctx, testJob("b"), nil)
		require.NoError(t, err)
		assert.Greater(t, second, first)
	})
}

func TestJobStore_SetStatus(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	jobID, err := f.store.Create(ctx, testJob("status"), nil)
	require.NoError(t, err)

	t.Run("executing keeps stopped_at empty", func(t *testing.T) {
		require.NoError(t, f.store.SetStatus(ctx, jobID, "executing"))

		job, err := f.store.Get(ctx, jobID)
		require.NoError(t, err)
		assert.Equal(t, "executing", job.Status)
		assert.Nil(t, job.StoppedAt)
	})

	t.Run("complete sets stopped_at", func(t *testing.T) {
		require.NoError(t, f.store.SetStatus(ctx, jobID, "complete"))

		job, err := f.store.Get(ctx, jobID)
		require.NoError(t, err)
		assert.Equal(t, "complete", job.Status)
		require.NotNil(t, job.StoppedAt)
	})

	t.Run("error - unknown job", func(t *testing.T) {
		err := f.store.SetStatus(ctx, 9999, "complete")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestJobStore_Get(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	jobID, err := f.store.Create(ctx, testJob("lookup"), nil)
	require.NoError(t, err)

	t.Run("success", func(t *testing.T) {
		job, err := f.store.Get(ctx, jobID)
		require.NoError(t, err)
		assert.Equal(t, jobID, job.ID)
		assert.Equal(t, "lookup", job.Description)
		assert.Equal(t, "scenario", job.Mode)
		assert.Equal(t, uint32(123456), job.Checksum32)
	})

	t.Run("error - not found", func(t *testing.T) {
		_, err := f.store.Get(ctx, 9999)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestJobStore_List(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	for _, desc := range []string{"one", "two", "three"} {
		_, err := f.store.Create(ctx, testJob(desc), nil)
		require.NoError(t, err)
	}

	t.Run("newest first", func(t *testing.T) {
		jobs, err := f.store.List(ctx, 10)
		require.NoError(t, err)
		require.Len(t, jobs, 3)
		assert.Equal(t, "three", jobs[0].Description)
		assert.Equal(t, "one", jobs[2].Description)
	})

	t.Run("limit is respected", func(t *testing.T) {
		jobs, err := f.store.List(ctx, 2)
		require.NoError(t, err)
		assert.Len(t, jobs, 2)
	})
}

func TestNewStore(t *testing.T) {
	_, err := NewStore(nil)
	assert.Error(t, err)
}
