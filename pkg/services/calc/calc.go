// Package calc hosts the calculator lifecycle and the mode registry.
// A calculator runs in three phases: PreExecute parses inputs and
// records pre-execution data, Execute distributes the core task over
// the pool, PostExecute consolidates partial results into the
// datastore.
package calc

import (
	"context"

	"github.com/seismo-tools/hazengine/pkg/models/domain"
	"github.com/seismo-tools/hazengine/pkg/performance"
	jobstore "github.com/seismo-tools/hazengine/pkg/store/sqlite/job"
	resultstore "github.com/seismo-tools/hazengine/pkg/store/sqlite/result"
)

// EngineVersion is stamped into every job row and report
const EngineVersion = "1.4.2"

// Calculator is implemented by every calculation mode
type Calculator interface {
	PreExecute(ctx context.Context) error
	Execute(ctx context.Context) error
	PostExecute(ctx context.Context) error
}

// Environment carries everything a calculator needs for one run
type Environment struct {
	JobID           int64
	Params          domain.Params
	Jobs            jobstore.Store
	Results         resultstore.Store
	Monitor         *performance.Monitor
	ConcurrentTasks int
	DatastoreDir    string
}

// Exporter turns a finished calculation into an on-disk artifact;
// the report writer satisfies this
type Exporter interface {
	Export(ctx context.Context, jobID int64, dir string) (string, error)
}
