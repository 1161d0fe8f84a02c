package result

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/seismo-tools/hazengine/pkg/models/store"
	"github.com/seismo-tools/hazengine/pkg/store/sqlite"
)

// Store persists calculation results: realizations, performance rows
// and keyed output payloads
type Store interface {
	AddRealizations(ctx context.Context, rlzs []store.Realization) error
	GetRealizations(ctx context.Context, jobID int64) ([]store.Realization, error)
	AddPerformance(ctx context.Context, rows []store.PerformanceRow) error
	GetPerformance(ctx context.Context, jobID int64) ([]store.PerformanceRow, error)
	PutOutput(ctx context.Context, jobID int64, key string, payload interface{}) error
	GetOutput(ctx context.Context, jobID int64, key string, out interface{}) error
	ListOutputKeys(ctx context.Context, jobID int64) ([]string, error)
}

type resultStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return &resultStore{db: db}, nil
}

func (s *resultStore) AddRealizations(ctx context.Context, rlzs []store.Realization) error {
	if len(rlzs) == 0 {
		return nil
	}

	tx := sqlite.GetTransaction(ctx)
	query := `
		INSERT INTO realizations (job_id, ordinal, smlt_path, gsim_path, weight)
		VALUES (?, ?, ?, ?, ?)`

	var stmt *sql.Stmt
	var err error
	if tx == nil {
		stmt, err = s.db.PrepareContext(ctx, query)
	} else {
		stmt, err = tx.PrepareContext(ctx, query)
	}
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, rlz := range rlzs {
		if _, err := stmt.ExecContext(ctx,
			rlz.JobID, rlz.Ordinal, rlz.SmltPath, rlz.GsimPath, rlz.Weight,
		); err != nil {
			return fmt.Errorf("insert realization %d: %w", rlz.Ordinal, err)
		}
	}
	return nil
}

func (s *resultStore) GetRealizations(ctx context.Context, jobID int64) ([]store.Realization, error) {
	query := `
		SELECT job_id, ordinal, smlt_path, gsim_path, weight
		FROM realizations WHERE job_id = ? ORDER BY ordinal`

	rows, err := s.db.QueryContext(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("query realizations: %w", err)
	}
	defer rows.Close()

	rlzs := make([]store.Realization, 0)
	for rows.Next() {
		var rlz store.Realization
		if err := rows.Scan(&rlz.JobID, &rlz.Ordinal, &rlz.SmltPath, &rlz.GsimPath, &rlz.Weight); err != nil {
			return nil, err
		}
		rlzs = append(rlzs, rlz)
	}
	return rlzs, rows.Err()
}

func (s *resultStore) AddPerformance(ctx context.Context, rows []store.PerformanceRow) error {
	if len(rows) == 0 {
		return nil
	}

	// flushed more than once per run; last flush wins
	query := `
		INSERT INTO performance (job_id, operation, time_sec, time_sq, time_min, time_max, memory_mb, counts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (job_id, operation)
		DO UPDATE SET time_sec = excluded.time_sec,
		              time_sq = excluded.time_sq,
		              time_min = excluded.time_min,
		              time_max = excluded.time_max,
		              memory_mb = excluded.memory_mb,
		              counts = excluded.counts`

	stmt, err := s.db.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx,
			row.JobID, row.Operation, row.TimeSec, row.TimeSq,
			row.TimeMin, row.TimeMax, row.MemoryMB, row.Counts,
		); err != nil {
			return fmt.Errorf("insert performance row %s: %w", row.Operation, err)
		}
	}
	return nil
}

func (s *resultStore) GetPerformance(ctx context.Context, jobID int64) ([]store.PerformanceRow, error) {
	query := `
		SELECT job_id, operation, time_sec, time_sq, time_min, time_max, memory_mb, counts
		FROM performance WHERE job_id = ? ORDER BY time_sec DESC`

	rows, err := s.db.QueryContext(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("query performance: %w", err)
	}
	defer rows.Close()

	out := make([]store.PerformanceRow, 0)
	for rows.Next() {
		var row store.PerformanceRow
		if err := rows.Scan(&row.JobID, &row.Operation, &row.TimeSec, &row.TimeSq,
			&row.TimeMin, &row.TimeMax, &row.MemoryMB, &row.Counts); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (s *resultStore) PutOutput(ctx context.Context, jobID int64, key string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal output %s: %w", key, err)
	}

	query := `
		INSERT INTO outputs (job_id, key, payload) VALUES (?, ?, ?)
		ON CONFLICT (job_id, key) DO UPDATE SET payload = excluded.payload`
	if _, err := s.db.ExecContext(ctx, query, jobID, key, string(data)); err != nil {
		return fmt.Errorf("insert output %s: %w", key, err)
	}
	return nil
}

func (s *resultStore) GetOutput(ctx context.Context, jobID int64, key string, out interface{}) error {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM outputs WHERE job_id = ? AND key = ?`, jobID, key,
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return fmt.Errorf("output %s for job %d not found", key, jobID)
	}
	if err != nil {
		return fmt.Errorf("get output %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(payload), out); err != nil {
		return fmt.Errorf("unmarshal output %s: %w", key, err)
	}
	return nil
}

func (s *resultStore) ListOutputKeys(ctx context.Context, jobID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM outputs WHERE job_id = ? ORDER BY key`, jobID)
	if err != nil {
		return nil, fmt.Errorf("list outputs: %w", err)
	}
	defer rows.Close()

	keys := make([]string, 0)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}
