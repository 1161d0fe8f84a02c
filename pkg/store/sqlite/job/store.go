package job

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/seismo-tools/hazengine/pkg/models/store"
	"github.com/seismo-tools/hazengine/pkg/store/sqlite"
)

// ErrNotFound marks lookups for calculation ids that do not exist
var ErrNotFound = errors.New("not found")

// Store manages job rows and their input listings
type Store interface {
	Create(ctx context.Context, job store.Job, inputs []store.JobInput) (int64, error)
	SetStatus(ctx context.Context, jobID int64, status string) error
	Get(ctx context.Context, jobID int64) (*store.Job, error)
	List(ctx context.Context, limit int) ([]store.Job, error)
	GetInputs(ctx context.Context, jobID int64) ([]store.JobInput, error)
}

type jobStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return &jobStore{db: db}, nil
}

func (s *jobStore) Create(ctx context.Context, job store.Job, inputs []store.JobInput) (int64, error) {
	tx := sqlite.GetTransaction(ctx)

	query := `
		INSERT INTO jobs (
			description, mode, status, user, engine_version,
			checksum32, ini_path, started_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	var res sql.Result
	var err error
	args := []interface{}{
		job.Description, job.Mode, job.Status, job.User,
		job.EngineVersion, job.Checksum32, job.IniPath, job.StartedAt,
	}
	if tx == nil {
		res, err = s.db.ExecContext(ctx, query, args...)
	} else {
		res, err = tx.ExecContext(ctx, query, args...)
	}
	if err != nil {
		return 0, fmt.Errorf("insert job: %w", err)
	}

	jobID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("job id: %w", err)
	}

	inputQuery := `INSERT INTO job_inputs (job_id, key, path, size) VALUES (?, ?, ?, ?)`
	for _, input := range inputs {
		if tx == nil {
			_, err = s.db.ExecContext(ctx, inputQuery, jobID, input.Key, input.Path, input.Size)
		} else {
			_, err = tx.ExecContext(ctx, inputQuery, jobID, input.Key, input.Path, input.Size)
		}
		if err != nil {
			return 0, fmt.Errorf("insert job input %s: %w", input.Key, err)
		}
	}
	return jobID, nil
}

func (s *jobStore) SetStatus(ctx context.Context, jobID int64, status string) error {
	query := `UPDATE jobs SET status = ? WHERE id = ?`
	args := []interface{}{status, jobID}
	if status == "complete" || status == "failed" {
		query = `UPDATE jobs SET status = ?, stopped_at = ? WHERE id = ?`
		args = []interface{}{status, time.Now().UTC(), jobID}
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("job %d: %w", jobID, ErrNotFound)
	}
	return nil
}

func (s *jobStore) Get(ctx context.Context, jobID int64) (*store.Job, error) {
	query := `
		SELECT id, description, mode, status, user, engine_version,
		       checksum32, ini_path, started_at, stopped_at
		FROM jobs WHERE id = ?`

	var job store.Job
	var stopped sql.NullTime
	err := s.db.QueryRowContext(ctx, query, jobID).Scan(
		&job.ID, &job.Description, &job.Mode, &job.Status, &job.User,
		&job.EngineVersion, &job.Checksum32, &job.IniPath, &job.StartedAt, &stopped,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("job %d: %w", jobID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	if stopped.Valid {
		t := stopped.Time
		job.StoppedAt = &t
	}
	return &job, nil
}

func (s *jobStore) List(ctx context.Context, limit int) ([]store.Job, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, description, mode, status, user, engine_version,
		       checksum32, ini_path, started_at, stopped_at
		FROM jobs ORDER BY id DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]store.Job, 0)
	for rows.Next() {
		var job store.Job
		var stopped sql.NullTime
		if err := rows.Scan(
			&job.ID, &job.Description, &job.Mode, &job.Status, &job.User,
			&job.EngineVersion, &job.Checksum32, &job.IniPath, &job.StartedAt, &stopped,
		); err != nil {
			return nil, err
		}
		if stopped.Valid {
			t := stopped.Time
			job.StoppedAt = &t
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (s *jobStore) GetInputs(ctx context.Context, jobID int64) ([]store.JobInput, error) {
	query := `SELECT job_id, key, path, size FROM job_inputs WHERE job_id = ? ORDER BY key`
	rows, err := s.db.QueryContext(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("get job inputs: %w", err)
	}
	defer rows.Close()

	inputs := make([]store.JobInput, 0)
	for rows.Next() {
		var input store.JobInput
		if err := rows.Scan(&input.JobID, &input.Key, &input.Path, &input.Size); err != nil {
			return nil, err
		}
		inputs = append(inputs, input)
	}
	return inputs, rows.Err()
}
