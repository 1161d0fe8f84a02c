package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const JobsSchema = `
	CREATE TABLE IF NOT EXISTS jobs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		description TEXT NOT NULL,
		mode TEXT NOT NULL,
		status TEXT NOT NULL,
		user TEXT NOT NULL,
		engine_version TEXT NOT NULL,
		checksum32 INTEGER NOT NULL,
		ini_path TEXT NOT NULL,
		started_at TIMESTAMP NOT NULL,
		stopped_at TIMESTAMP NULL
	);
`

const JobInputsSchema = `
	CREATE TABLE IF NOT EXISTS job_inputs (
		job_id INTEGER NOT NULL,
		key TEXT NOT NULL,
		path TEXT NOT NULL,
		size INTEGER NOT NULL,
		PRIMARY KEY (job_id, key)
	);
`

const RealizationsSchema = `
	CREATE TABLE IF NOT EXISTS realizations (
		job_id INTEGER NOT NULL,
		ordinal INTEGER NOT NULL,
		smlt_path TEXT NOT NULL,
		gsim_path TEXT NOT NULL,
		weight DOUBLE NOT NULL,
		PRIMARY KEY (job_id, ordinal)
	);
`

const PerformanceSchema = `
	CREATE TABLE IF NOT EXISTS performance (
		job_id INTEGER NOT NULL,
		operation TEXT NOT NULL,
		time_sec DOUBLE NOT NULL,
		time_sq DOUBLE NOT NULL,
		time_min DOUBLE NOT NULL,
		time_max DOUBLE NOT NULL,
		memory_mb DOUBLE NOT NULL,
		counts INTEGER NOT NULL,
		PRIMARY KEY (job_id, operation)
	);
`

const OutputsSchema = `
	CREATE TABLE IF NOT EXISTS outputs (
		job_id INTEGER NOT NULL,
		key TEXT NOT NULL,
		payload TEXT NOT NULL,
		PRIMARY KEY (job_id, key)
	);
`

var bootQueries = []string{
	JobsSchema,
	JobInputsSchema,
	RealizationsSchema,
	PerformanceSchema,
	OutputsSchema,
}

type Settings struct {
	// Dir is the datastore directory; ":memory:" opens an in-memory
	// database for tests
	Dir string
}

// NewDB opens the calculation database and bootstraps the schema.
func NewDB(settings Settings) (*sql.DB, error) {
	dsn := ":memory:"
	if settings.Dir != ":memory:" {
		if err := os.MkdirAll(settings.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create datastore dir: %w", err)
		}
		dsn = filepath.Join(settings.Dir, "calc.db") + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open datastore: %w", err)
	}
	// single writer keeps sqlite happy under the task pool
	db.SetMaxOpenConns(1)

	for _, query := range bootQueries {
		if _, err := db.Exec(query); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to bootstrap schema: %w", err)
		}
	}
	return db, nil
}
