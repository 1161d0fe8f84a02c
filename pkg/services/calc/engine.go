package calc

import (
	"context"
	"fmt"
	"os/user"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/seismo-tools/hazengine/pkg/adapters"
	"github.com/seismo-tools/hazengine/pkg/metrics"
	"github.com/seismo-tools/hazengine/pkg/models/domain"
	"github.com/seismo-tools/hazengine/pkg/models/store"
	"github.com/seismo-tools/hazengine/pkg/performance"
	"github.com/seismo-tools/hazengine/pkg/services/job"
	jobstore "github.com/seismo-tools/hazengine/pkg/store/sqlite/job"
	resultstore "github.com/seismo-tools/hazengine/pkg/store/sqlite/result"
)

// Engine drives a calculation from a loaded job config through the
// calculator lifecycle to a persisted, exportable result.
type Engine struct {
	registry Registry
	jobs     jobstore.Store
	results  resultstore.Store
	settings job.Settings
	metrics  *metrics.Engine
	exporter Exporter
}

// NewEngine wires the engine dependencies; metrics and exporter are
// optional.
func NewEngine(
	registry Registry,
	jobs jobstore.Store,
	results resultstore.Store,
	settings job.Settings,
	m *metrics.Engine,
	exporter Exporter,
) *Engine {
	return &Engine{
		registry: registry,
		jobs:     jobs,
		results:  results,
		settings: settings,
		metrics:  m,
		exporter: exporter,
	}
}

// Run executes the calculation described by cfg and returns the job id.
// The job row is created up front; any phase failure marks it failed
// and the error is returned wrapped with the failing phase.
func (e *Engine) Run(ctx context.Context, cfg *job.Config) (int64, error) {
	logger := zerolog.Ctx(ctx)

	username := "unknown"
	if u, err := user.Current(); err == nil {
		username = u.Username
	}

	inputs := make([]store.JobInput, 0, len(cfg.Params.Inputs))
	for _, input := range cfg.Params.Inputs {
		inputs = append(inputs, store.JobInput{Key: input.Key, Path: input.Path, Size: input.Size})
	}

	jobID, err := e.jobs.Create(ctx, adapters.MapDomainJobToStore(domain.Job{
		Description:   cfg.Params.Description,
		Mode:          cfg.Params.Mode,
		Status:        domain.JobCreated,
		User:          username,
		EngineVersion: EngineVersion,
		Checksum32:    cfg.Checksum32,
		IniPath:       cfg.IniPath,
		StartedAt:     time.Now().UTC(),
	}), inputs)
	if err != nil {
		return 0, fmt.Errorf("failed to create job: %w", err)
	}

	logger.Info().
		Int64("calc_id", jobID).
		Str("mode", cfg.Params.Mode).
		Uint32("checksum32", cfg.Checksum32).
		Msg("calculation created")

	if err := e.execute(ctx, jobID, cfg); err != nil {
		if serr := e.jobs.SetStatus(ctx, jobID, string(domain.JobFailed)); serr != nil {
			logger.Error().Err(serr).Int64("calc_id", jobID).Msg("failed to mark job failed")
		}
		if e.metrics != nil {
			e.metrics.JobsFailed.WithLabelValues(cfg.Params.Mode).Inc()
		}
		return jobID, err
	}

	if err := e.jobs.SetStatus(ctx, jobID, string(domain.JobComplete)); err != nil {
		return jobID, fmt.Errorf("failed to mark job complete: %w", err)
	}
	if e.metrics != nil {
		e.metrics.JobsCompleted.WithLabelValues(cfg.Params.Mode).Inc()
	}

	if e.exporter != nil {
		fname, err := e.exporter.Export(ctx, jobID, e.settings.DatastoreDir)
		if err != nil {
			return jobID, fmt.Errorf("export failed: %w", err)
		}
		logger.Info().Str("file", fname).Msg("exported")
	}
	return jobID, nil
}

func (e *Engine) execute(ctx context.Context, jobID int64, cfg *job.Config) error {
	monitor := performance.NewMonitor(jobID, e.results)

	concurrent := cfg.Params.ConcurrentTasks
	if concurrent <= 0 {
		concurrent = e.settings.ConcurrentTasks
	}

	env := &Environment{
		JobID:           jobID,
		Params:          cfg.Params,
		Jobs:            e.jobs,
		Results:         e.results,
		Monitor:         monitor,
		ConcurrentTasks: concurrent,
		DatastoreDir:    e.settings.DatastoreDir,
	}

	calculator, err := e.registry.Create(cfg.Params.Mode, env)
	if err != nil {
		return err
	}

	if err := e.results.PutOutput(ctx, jobID, "params", ParamsMap(cfg.Params)); err != nil {
		return fmt.Errorf("failed to store job params: %w", err)
	}
	if err := e.results.PutOutput(ctx, jobID, "sitecol", map[string]int{
		"num_sites":  len(cfg.Params.Sites),
		"num_levels": NumLevels(cfg.Params),
	}); err != nil {
		return fmt.Errorf("failed to store site collection info: %w", err)
	}

	if err := e.jobs.SetStatus(ctx, jobID, string(domain.JobExecuting)); err != nil {
		return fmt.Errorf("failed to mark job executing: %w", err)
	}
	if e.metrics != nil {
		e.metrics.JobsStarted.WithLabelValues(cfg.Params.Mode).Inc()
		e.metrics.RunningJobs.Inc()
		defer e.metrics.RunningJobs.Dec()
	}

	phases := []struct {
		name string
		run  func(context.Context) error
	}{
		{"pre_execute", calculator.PreExecute},
		{"execute", calculator.Execute},
		{"post_execute", calculator.PostExecute},
	}
	for _, phase := range phases {
		if err := monitor.Timed(phase.name, func() error { return phase.run(ctx) }); err != nil {
			// flush what we have so failed runs still show timings
			_ = monitor.Flush(ctx)
			return fmt.Errorf("%s: %w", phase.name, err)
		}
	}

	if err := monitor.Flush(ctx); err != nil {
		return fmt.Errorf("failed to flush performance data: %w", err)
	}

	if e.metrics != nil {
		// core task operations are recorded as "total <task name>"
		for _, op := range monitor.Stats() {
			if strings.HasPrefix(op.Operation, "total ") {
				e.metrics.TaskDuration.Observe(op.TimeSec)
			}
		}
	}
	return nil
}
