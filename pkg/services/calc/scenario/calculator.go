// Package scenario implements the scenario hazard calculation mode:
// one deterministic rupture, one gsim realization per ground-motion
// branch, a fixed number of stochastic event sets per realization.
package scenario

import (
	"context"
	"fmt"
	"math/rand"
	"sort"

	"github.com/seismo-tools/hazengine/pkg/models/domain"
	"github.com/seismo-tools/hazengine/pkg/models/store"
	"github.com/seismo-tools/hazengine/pkg/services/calc"
	"github.com/seismo-tools/hazengine/pkg/services/logictree"
	"github.com/seismo-tools/hazengine/pkg/services/source"
)

// EventCount records how many events a realization produced
type EventCount struct {
	Rlz    int    `json:"rlz"`
	Gsim   string `json:"gsim"`
	Events int    `json:"events"`
}

type calculator struct {
	env *calc.Environment

	rupture *domain.Rupture
	glt     *domain.GsimLogicTree
	rlzs    []domain.Realization

	events []EventCount
}

// CalculatorFactory creates the scenario hazard calculator
func CalculatorFactory(env *calc.Environment) (calc.Calculator, error) {
	if env == nil {
		return nil, fmt.Errorf("environment is nil")
	}
	return &calculator{env: env}, nil
}

func (c *calculator) PreExecute(ctx context.Context) error {
	params := c.env.Params
	if len(params.Sites) == 0 && params.RegionGridSpacing <= 0 {
		return fmt.Errorf("scenario calculation needs sites or a region grid")
	}

	t := c.env.Monitor.Operation("reading site collection")
	rupture, err := source.ParseRupture(params.Inputs["rupture_model"].Path)
	if err != nil {
		t.Stop()
		return err
	}
	c.rupture = rupture

	glt, err := logictree.ParseGsim(params.Inputs["gsim_logic_tree"].Path)
	t.Stop()
	if err != nil {
		return err
	}
	c.glt = glt

	if _, ok := gsimsForTRT(glt, rupture.TRT); !ok {
		return fmt.Errorf("rupture tectonic region type %q is not covered by the gsim logic tree", rupture.TRT)
	}

	// a scenario has a single trivial source-model path; realizations
	// come from the gsim tree alone
	trivial := &domain.LogicTree{BranchSets: []domain.BranchSet{{
		ID:              "bs1",
		UncertaintyType: "sourceModel",
		Branches:        []domain.Branch{{ID: "b_1", Model: "rupture", Weight: 1.0}},
	}}}
	c.rlzs = logictree.Enumerate(trivial, glt)
	return nil
}

func gsimsForTRT(glt *domain.GsimLogicTree, trt string) ([]domain.Branch, bool) {
	for _, bs := range glt.BranchSets {
		if bs.AppliesToTRT == trt {
			return bs.Branches, true
		}
	}
	return nil, false
}

func (c *calculator) Execute(ctx context.Context) error {
	params := c.env.Params

	tasks := make([]calc.Task, 0, len(c.rlzs))
	for _, rlz := range c.rlzs {
		tasks = append(tasks, func(ctx context.Context) (interface{}, error) {
			t := c.env.Monitor.Operation("total compute_gmfs")
			defer t.Stop()
			return c.buildEvents(rlz, params.SESPerLogicTreePath, params.RandomSeed), nil
		})
	}

	runner := &calc.Runner{Concurrency: c.env.ConcurrentTasks}
	return runner.Run(ctx, tasks, func(result interface{}) error {
		c.events = append(c.events, result.(EventCount))
		return nil
	})
}

// buildEvents draws the stochastic event set for one realization; the
// seed is offset by the ordinal so realizations stay independent but
// reproducible
func (c *calculator) buildEvents(rlz domain.Realization, sesPerPath int, seed int64) EventCount {
	rng := rand.New(rand.NewSource(seed + int64(rlz.Ordinal)))
	events := 0
	for i := 0; i < sesPerPath; i++ {
		// one event per set for a deterministic rupture; the draw keeps
		// the RNG stream aligned with multi-rupture scenarios
		_ = rng.Int63()
		events++
	}
	return EventCount{
		Rlz:    rlz.Ordinal,
		Gsim:   rlz.GsimPath[c.rupture.TRT],
		Events: events,
	}
}

func (c *calculator) PostExecute(ctx context.Context) error {
	sort.Slice(c.events, func(i, j int) bool { return c.events[i].Rlz < c.events[j].Rlz })

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
		"events":     c.events,
		"rlzs_assoc": logictree.AssocRows(logictree.Assoc(c.rlzs)),
		"rupture": map[string]interface{}{
			"magnitude": c.rupture.Magnitude,
			"trt":       c.rupture.TRT,
		},
	}
	for key, payload := range outputs {
		if err := c.env.Results.PutOutput(ctx, c.env.JobID, key, payload); err != nil {
			return err
		}
	}
	return nil
}
