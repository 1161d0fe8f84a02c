package scenariorisk

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/seismo-tools/hazengine/pkg/models/domain"
	"github.com/seismo-tools/hazengine/pkg/performance"
	"github.com/seismo-tools/hazengine/pkg/services/calc"
	"github.com/seismo-tools/hazengine/pkg/store/sqlite"
	jobstore "github.com/seismo-tools/hazengine/pkg/store/sqlite/job"
	resultstore "github.com/seismo-tools/hazengine/pkg/store/sqlite/result"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ruptureXML = `<nrml>
  <singlePlaneRupture>
    <magnitude>6.8</magnitude>
    <rake>90.0</rake>
    <hypocenter lon="81.1" lat="29.0" depth="10.0"/>
  </singlePlaneRupture>
</nrml>`

const exposureXML = `<nrml>
  <exposureModel id="ep">
    <conversions>
      <costTypes>
        <costType name="structural"/>
      </costTypes>
    </conversions>
    <assets>
      <asset id="a1" taxonomy="RM" number="2">
        <location lon="81.1" lat="29.0"/>
        <costs><cost type="structural" value="1000"/></costs>
      </asset>
      <asset id="a2" taxonomy="W" number="1">
        <location lon="81.2" lat="29.1"/>
        <costs><cost type="structural" value="500"/></costs>
      </asset>
    </assets>
  </exposureModel>
</nrml>`

const vulnerabilityXML = `<nrml>
  <vulnerabilityModel>
    <discreteVulnerabilitySet>
      <IML IMT="PGA">0.1 0.2 0.4</IML>
      <discreteVulnerability vulnerabilityFunctionID="RM">
        <lossRatio>0.05 0.10 0.30</lossRatio>
        <coefficientsVariation>0.1 0.1 0.1</coefficientsVariation>
      </discreteVulnerability>
      <discreteVulnerability vulnerabilityFunctionID="W">
        <lossRatio>0.02 0.08 0.20</lossRatio>
        <coefficientsVariation>0.2 0.2 0.2</coefficientsVariation>
      </discreteVulnerability>
    </discreteVulnerabilitySet>
  </vulnerabilityModel>
</nrml>`

func setupEnv(t *testing.T, params domain.Params) *calc.Environment {
	t.Helper()
	db, err := sqlite.NewDB(sqlite.Settings{Dir: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	jobs, err := jobstore.NewStore(db)
	require.NoError(t, err)
	results, err := resultstore.NewStore(db)
	require.NoError(t, err)

	return &calc.Environment{
		JobID:           1,
		Params:          params,
		Jobs:            jobs,
		Results:         results,
		Monitor:         performance.NewMonitor(1, nil),
		ConcurrentTasks: 2,
	}
}

func riskParams(t *testing.T, exposureContent string) domain.Params {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"rupture.xml":       ruptureXML,
		"exposure.xml":      exposureContent,
		"vulnerability.xml": vulnerabilityXML,
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}

	return domain.Params{
		Mode: "scenario_risk",
		Inputs: map[string]domain.InputFile{
			"rupture_model":            {Key: "rupture_model", Path: filepath.Join(dir, "rupture.xml")},
			"exposure":                 {Key: "exposure", Path: filepath.Join(dir, "exposure.xml")},
			"structural_vulnerability": {Key: "structural_vulnerability", Path: filepath.Join(dir, "vulnerability.xml")},
		},
	}
}

func TestScenarioRiskCalculator(t *testing.T) {
	ctx := context.Background()

	t.Run("full lifecycle", func(t *testing.T) {
		env := setupEnv(t, riskParams(t, exposureXML))
		calculator, err := CalculatorFactory(env)
		require.NoError(t, err)

		require.NoError(t, calculator.PreExecute(ctx))
		require.NoError(t, calculator.Execute(ctx))
		require.NoError(t, calculator.PostExecute(ctx))

		// No configured IML levels: the reference intensity is the middle
		// vulnerability level 0.2, hitting the tabulated ratios exactly.
		var losses []domain.LossStats
		require.NoError(t, env.Results.GetOutput(ctx, env.JobID, "loss_stats", &losses))
		require.Len(t, losses, 2)

		rm := losses[0]
		assert.Equal(t, "RM", rm.Taxonomy)
		assert.Equal(t, 1, rm.NumAssets)
		// 1000 value x 2 units x 0.10 loss ratio.
		assert.InDelta(t, 200.0, rm.TotalLoss, 1e-9)

		w := losses[1]
		assert.Equal(t, "W", w.Taxonomy)
		// 500 x 1 x 0.08.
		assert.InDelta(t, 40.0, w.TotalLoss, 1e-9)
		assert.InDelta(t, 40.0, w.MeanLoss, 1e-9)
		assert.Zero(t, w.Stddev)

		var taxonomies []domain.TaxonomyStats
		require.NoError(t, env.Results.GetOutput(ctx, env.JobID, "taxonomy_stats", &taxonomies))
		require.Len(t, taxonomies, 2)
		assert.Equal(t, "RM", taxonomies[0].Taxonomy)

		var info map[string]interface{}
		require.NoError(t, env.Results.GetOutput(ctx, env.JobID, "exposure_info", &info))
		assert.Equal(t, float64(2), info["num_assets"])
		assert.Equal(t, "structural", info["cost_type"])
	})

	t.Run("configured levels drive the reference intensity", func(t *testing.T) {
		params := riskParams(t, exposureXML)
		params.IntensityMeasureLevels = []float64{0.4, 0.1, 0.2}
		env := setupEnv(t, params)

		calculator, err := CalculatorFactory(env)
		require.NoError(t, err)
		require.NoError(t, calculator.PreExecute(ctx))
		require.NoError(t, calculator.Execute(ctx))
		require.NoError(t, calculator.PostExecute(ctx))

		// Median of the sorted levels is still 0.2.
		var losses []domain.LossStats
		require.NoError(t, env.Results.GetOutput(ctx, env.JobID, "loss_stats", &losses))
		require.Len(t, losses, 2)
		assert.InDelta(t, 200.0, losses[0].TotalLoss, 1e-9)
	})

	t.Run("loss spread within a taxonomy", func(t *testing.T) {
		spread := `<nrml>
  <exposureModel id="ep">
    <conversions>
      <costTypes>
        <costType name="structural"/>
      </costTypes>
    </conversions>
    <assets>
      <asset id="a1" taxonomy="RM" number="2">
        <location lon="81.1" lat="29.0"/>
        <costs><cost type="structural" value="1000"/></costs>
      </asset>
      <asset id="a2" taxonomy="RM" number="1">
        <location lon="81.2" lat="29.1"/>
        <costs><cost type="structural" value="500"/></costs>
      </asset>
    </assets>
  </exposureModel>
</nrml>`
		env := setupEnv(t, riskParams(t, spread))

		calculator, err := CalculatorFactory(env)
		require.NoError(t, err)
		require.NoError(t, calculator.PreExecute(ctx))
		require.NoError(t, calculator.Execute(ctx))
		require.NoError(t, calculator.PostExecute(ctx))

		// Per-asset losses at the 0.10 ratio are 200 and 50.
		var losses []domain.LossStats
		require.NoError(t, env.Results.GetOutput(ctx, env.JobID, "loss_stats", &losses))
		require.Len(t, losses, 1)
		assert.Equal(t, 2, losses[0].NumAssets)
		assert.InDelta(t, 250.0, losses[0].TotalLoss, 1e-9)
		assert.InDelta(t, 125.0, losses[0].MeanLoss, 1e-9)
		assert.InDelta(t, 106.06601717798213, losses[0].Stddev, 1e-9)
	})

	t.Run("reference intensity is stable across runs", func(t *testing.T) {
		c := &calculator{
			env: &calc.Environment{Params: domain.Params{}},
			vulns: map[string]domain.VulnerabilityFunction{
				"RC":  {Taxonomy: "RC", Levels: []float64{0.5, 0.6, 0.7}},
				"MUR": {Taxonomy: "MUR", Levels: []float64{0.1, 0.2, 0.3}},
			},
		}
		// The fallback must not depend on map iteration order.
		for i := 0; i < 100; i++ {
			assert.InDelta(t, 0.2, c.referenceIntensity(), 1e-9)
		}
	})

	t.Run("error - taxonomy without vulnerability function", func(t *testing.T) {
		orphan := `<nrml>
  <exposureModel id="ep">
    <assets>
      <asset id="a1" taxonomy="ADOBE" number="1">
        <location lon="81.1" lat="29.0"/>
        <costs><cost type="structural" value="100"/></costs>
      </asset>
    </assets>
  </exposureModel>
</nrml>`
		env := setupEnv(t, riskParams(t, orphan))

		calculator, err := CalculatorFactory(env)
		require.NoError(t, err)
		err = calculator.PreExecute(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no vulnerability function for taxonomy")
	})

	t.Run("error - empty exposure", func(t *testing.T) {
		empty := `<nrml><exposureModel id="ep"><assets/></exposureModel></nrml>`
		env := setupEnv(t, riskParams(t, empty))

		calculator, err := CalculatorFactory(env)
		require.NoError(t, err)
		err = calculator.PreExecute(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no assets")
	})
}
