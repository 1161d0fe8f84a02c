// Package classical implements the classical hazard calculation mode:
// it composes the source model logic tree with the ground-motion logic
// tree and distributes the sources over the task pool.
package classical

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/seismo-tools/hazengine/pkg/models/domain"
	"github.com/seismo-tools/hazengine/pkg/models/store"
	"github.com/seismo-tools/hazengine/pkg/services/calc"
	"github.com/seismo-tools/hazengine/pkg/services/logictree"
	"github.com/seismo-tools/hazengine/pkg/services/source"
)

type calculator struct {
	env *calc.Environment

	lt      *domain.LogicTree
	glt     *domain.GsimLogicTree
	rlzs    []domain.Realization
	sources []domain.SeismicSource

	// per-TRT aggregates from the core task
	byTRT map[string]*domain.SourceInfo
}

// CalculatorFactory creates the classical calculator
func CalculatorFactory(env *calc.Environment) (calc.Calculator, error) {
	if env == nil {
		return nil, fmt.Errorf("environment is nil")
	}
	return &calculator{env: env, byTRT: make(map[string]*domain.SourceInfo)}, nil
}

func (c *calculator) PreExecute(ctx context.Context) error {
	params := c.env.Params

	ltInput := params.Inputs["source_model_logic_tree"]
	t := c.env.Monitor.Operation("reading composite source model")
	lt, err := logictree.Parse(ltInput.Path)
	if err != nil {
		t.Stop()
		return err
	}
	c.lt = lt

	glt, err := logictree.ParseGsim(params.Inputs["gsim_logic_tree"].Path)
	if err != nil {
		t.Stop()
		return err
	}
	c.glt = glt

	baseDir := filepath.Dir(ltInput.Path)
	if err := c.readSourceModels(baseDir); err != nil {
		t.Stop()
		return err
	}
	t.Stop()

	if params.LogicTreeSamples > 0 {
		c.rlzs, err = logictree.Sample(c.lt, c.glt, params.LogicTreeSamples, params.RandomSeed)
		if err != nil {
			return err
		}
	} else {
		c.rlzs = logictree.Enumerate(c.lt, c.glt)
	}
	if len(c.rlzs) == 0 {
		return fmt.Errorf("logic tree composition produced no realizations")
	}
	return nil
}

// readSourceModels parses every source model file referenced by the
// sourceModel branches and checks each TRT against the gsim tree
func (c *calculator) readSourceModels(baseDir string) error {
	coveredTRTs := make(map[string]struct{})
	for _, bs := range c.glt.BranchSets {
		coveredTRTs[bs.AppliesToTRT] = struct{}{}
	}

	parsed := make(map[string]struct{})
	for _, bs := range c.lt.BranchSets {
		if bs.UncertaintyType != "sourceModel" {
			continue
		}
		for _, branch := range bs.Branches {
			path := branch.Model
			if !filepath.IsAbs(path) {
				path = filepath.Join(baseDir, path)
			}
			if _, done := parsed[path]; done {
				continue
			}
			parsed[path] = struct{}{}

			model, err := source.ParseModel(path)
			if err != nil {
				return err
			}
			for _, src := range model.Sources {
				if _, ok := coveredTRTs[src.TectonicRegionType]; !ok {
					return fmt.Errorf("source %s: tectonic region type %q is not covered by the gsim logic tree",
						src.ID, src.TectonicRegionType)
				}
			}
			c.sources = append(c.sources, model.Sources...)
		}
	}
	if len(c.sources) == 0 {
		return fmt.Errorf("no sourceModel branches in %s", c.lt.Path)
	}
	return nil
}

func (c *calculator) Execute(ctx context.Context) error {
	blocks, err := calc.SplitInBlocks(c.sources, c.env.ConcurrentTasks, source.Weight)
	if err != nil {
		return err
	}

	// The core task weighs a block of sources and groups the totals by
	// tectonic region type.
	tasks := make([]calc.Task, 0, len(blocks))
	for _, block := range blocks {
		tasks = append(tasks, func(ctx context.Context) (interface{}, error) {
			t := c.env.Monitor.Operation("total count_eff_ruptures")
			defer t.Stop()
			return source.CollectInfo(block), nil
		})
	}

	runner := &calc.Runner{Concurrency: c.env.ConcurrentTasks}
	return runner.Run(ctx, tasks, func(result interface{}) error {
		for _, partial := range result.([]domain.SourceInfo) {
			agg, ok := c.byTRT[partial.TRT]
			if !ok {
				agg = &domain.SourceInfo{TRT: partial.TRT}
				c.byTRT[partial.TRT] = agg
			}
			agg.NumSources += partial.NumSources
			agg.TotalWeight += partial.TotalWeight
		}
		return nil
	})
}

func (c *calculator) PostExecute(ctx context.Context) error {
	rows := make([]store.Realization, 0, len(c.rlzs))
	for _, rlz := range c.rlzs {
		rows = append(rows, store.Realization{
			JobID:    c.env.JobID,
			Ordinal:  rlz.Ordinal,
			SmltPath: rlz.SmltPath,
			GsimPath: calc.EncodeGsimPath(rlz.GsimPath),
			Weight:   rlz.Weight,
		})
	}
	if err := c.env.Results.AddRealizations(ctx, rows); err != nil {
		return err
	}

	outputs := map[string]interface{}{
		"composite_source_model": logictree.CompositionInfo(c.lt, c.glt, c.rlzs),
		"source_info":            c.sourceInfo(),
		"rlzs_assoc":             logictree.AssocRows(logictree.Assoc(c.rlzs)),
	}
	for key, payload := range outputs {
		if err := c.env.Results.PutOutput(ctx, c.env.JobID, key, payload); err != nil {
			return err
		}
	}
	return nil
}

func (c *calculator) sourceInfo() []domain.SourceInfo {
	out := make([]domain.SourceInfo, 0, len(c.byTRT))
	for _, info := range c.byTRT {
		out = append(out, *info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TRT < out[j].TRT })
	return out
}
