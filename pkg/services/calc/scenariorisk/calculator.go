// Package scenariorisk implements the scenario risk calculation mode:
// a deterministic rupture applied to an exposure through per-taxonomy
// vulnerability functions, with assets distributed over the task pool.
package scenariorisk

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/seismo-tools/hazengine/pkg/models/domain"
	"github.com/seismo-tools/hazengine/pkg/services/calc"
	"github.com/seismo-tools/hazengine/pkg/services/exposure"
	"github.com/seismo-tools/hazengine/pkg/services/source"
)

type taxonomyLoss struct {
	numAssets int
	totalLoss float64
	sumSqLoss float64
}

type calculator struct {
	env *calc.Environment

	rupture  *domain.Rupture
	exposure *domain.Exposure
	vulns    map[string]domain.VulnerabilityFunction
	iml      float64

	losses map[string]*taxonomyLoss
}

// CalculatorFactory creates the scenario risk calculator
func CalculatorFactory(env *calc.Environment) (calc.Calculator, error) {
	if env == nil {
		return nil, fmt.Errorf("environment is nil")
	}
	return &calculator{env: env, losses: make(map[string]*taxonomyLoss)}, nil
}

func (c *calculator) PreExecute(ctx context.Context) error {
	params := c.env.Params

	t := c.env.Monitor.Operation("reading exposure")
	defer t.Stop()

	rupture, err := source.ParseRupture(params.Inputs["rupture_model"].Path)
	if err != nil {
		return err
	}
	c.rupture = rupture

	exp, err := exposure.Parse(params.Inputs["exposure"].Path)
	if err != nil {
		return err
	}
	c.exposure = exp

	vulns, err := exposure.ParseVulnerability(params.Inputs["structural_vulnerability"].Path)
	if err != nil {
		return err
	}
	c.vulns = vulns

	for _, asset := range exp.Assets {
		if _, ok := vulns[asset.Taxonomy]; !ok {
			return fmt.Errorf("asset %s: no vulnerability function for taxonomy %q", asset.ID, asset.Taxonomy)
		}
	}

	c.iml = c.referenceIntensity()
	return nil
}

// referenceIntensity picks the intensity level losses are evaluated
// at: the median configured level, else the middle level of the first
// vulnerability function in taxonomy order
func (c *calculator) referenceIntensity() float64 {
	if levels := c.env.Params.IntensityMeasureLevels; len(levels) > 0 {
		sorted := append([]float64{}, levels...)
		sort.Float64s(sorted)
		return sorted[len(sorted)/2]
	}
	taxonomies := make([]string, 0, len(c.vulns))
	for taxonomy := range c.vulns {
		taxonomies = append(taxonomies, taxonomy)
	}
	sort.Strings(taxonomies)
	for _, taxonomy := range taxonomies {
		if vf := c.vulns[taxonomy]; len(vf.Levels) > 0 {
			return vf.Levels[len(vf.Levels)/2]
		}
	}
	return 0
}

func (c *calculator) Execute(ctx context.Context) error {
	blocks, err := calc.SplitInBlocks(c.exposure.Assets, c.env.ConcurrentTasks,
		func(domain.Asset) float64 { return 1 })
	if err != nil {
		return err
	}

	tasks := make([]calc.Task, 0, len(blocks))
	for _, block := range blocks {
		tasks = append(tasks, func(ctx context.Context) (interface{}, error) {
			t := c.env.Monitor.Operation("total scenario_risk")
			defer t.Stop()
			return c.computeLosses(ctx, block), nil
		})
	}

	runner := &calc.Runner{Concurrency: c.env.ConcurrentTasks}
	return runner.Run(ctx, tasks, func(result interface{}) error {
		for taxonomy, partial := range result.(map[string]*taxonomyLoss) {
			agg, ok := c.losses[taxonomy]
			if !ok {
				agg = &taxonomyLoss{}
				c.losses[taxonomy] = agg
			}
			agg.numAssets += partial.numAssets
			agg.totalLoss += partial.totalLoss
			agg.sumSqLoss += partial.sumSqLoss
		}
		return nil
	})
}

// computeLosses is the core task: ground each asset's value through its
// vulnerability function at the reference intensity
func (c *calculator) computeLosses(ctx context.Context, block []domain.Asset) map[string]*taxonomyLoss {
	out := make(map[string]*taxonomyLoss)
	for _, asset := range block {
		select {
		case <-ctx.Done():
			return out
		default:
		}
		vf := c.vulns[asset.Taxonomy]
		loss := asset.Value * asset.Number * exposure.LossRatio(vf, c.iml)

		agg, ok := out[asset.Taxonomy]
		if !ok {
			agg = &taxonomyLoss{}
			out[asset.Taxonomy] = agg
		}
		agg.numAssets++
		agg.totalLoss += loss
		agg.sumSqLoss += loss * loss
	}
	return out
}

func (c *calculator) PostExecute(ctx context.Context) error {
	stats := make([]domain.LossStats, 0, len(c.losses))
	for taxonomy, agg := range c.losses {
		ls := domain.LossStats{
			Taxonomy:  taxonomy,
			NumAssets: agg.numAssets,
			TotalLoss: agg.totalLoss,
		}
		if agg.numAssets > 0 {
			ls.MeanLoss = agg.totalLoss / float64(agg.numAssets)
		}
		if n := float64(agg.numAssets); agg.numAssets > 1 {
			// sample stddev over the per-asset losses
			if v := (agg.sumSqLoss - n*ls.MeanLoss*ls.MeanLoss) / (n - 1); v > 0 {
				ls.Stddev = math.Sqrt(v)
			}
		}
		stats = append(stats, ls)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Taxonomy < stats[j].Taxonomy })

	outputs := map[string]interface{}{
		"loss_stats":     stats,
		"taxonomy_stats": exposure.TaxonomyStats(c.exposure),
		"exposure_info": map[string]interface{}{
			"num_assets": len(c.exposure.Assets),
			"cost_type":  c.exposure.CostType,
		},
	}
	for key, payload := range outputs {
		if err := c.env.Results.PutOutput(ctx, c.env.JobID, key, payload); err != nil {
			return err
		}
	}
	return nil
}
