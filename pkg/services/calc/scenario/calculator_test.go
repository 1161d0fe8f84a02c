package scenario

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

const gmpeLtXML = `<nrml>
  <logicTree logicTreeID="gmlt1">
    <logicTreeBranchSet branchSetID="bs1" uncertaintyType="gmpeModel"
        applyToTectonicRegionType="Active Shallow Crust">
      <logicTreeBranch branchID="b1">
        <uncertaintyModel>BooreAtkinson2008</uncertaintyModel>
        <uncertaintyWeight>0.75</uncertaintyWeight>
      </logicTreeBranch>
      <logicTreeBranch branchID="b2">
        <uncertaintyModel>ChiouYoungs2008</uncertaintyModel>
        <uncertaintyWeight>0.25</uncertaintyWeight>
      </logicTreeBranch>
    </logicTreeBranchSet>
  </logicTree>
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

func scenarioParams(t *testing.T, rupture, gmpeLt string) domain.Params {
	t.Helper()
	dir := t.TempDir()
	rupturePath := filepath.Join(dir, "rupture.xml")
	gmpePath := filepath.Join(dir, "gmpe_lt.xml")
	require.NoError(t, os.WriteFile(rupturePath, []byte(rupture), 0o644))
	require.NoError(t, os.WriteFile(gmpePath, []byte(gmpeLt), 0o644))

	return domain.Params{
		Mode:                "scenario",
		SESPerLogicTreePath: 3,
		Sites:               []domain.Site{{Lon: 81.1, Lat: 29.0}},
		Inputs: map[string]domain.InputFile{
			"rupture_model":   {Key: "rupture_model", Path: rupturePath},
			"gsim_logic_tree": {Key: "gsim_logic_tree", Path: gmpePath},
		},
	}
}

func TestScenarioCalculator(t *testing.T) {
	ctx := context.Background()

	t.Run("full lifecycle", func(t *testing.T) {
		env := setupEnv(t, scenarioParams(t, ruptureXML, gmpeLtXML))
		calculator, err := CalculatorFactory(env)
		require.NoError(t, err)

		require.NoError(t, calculator.PreExecute(ctx))
		require.NoError(t, calculator.Execute(ctx))
		require.NoError(t, calculator.PostExecute(ctx))

		rlzs, err := env.Results.GetRealizations(ctx, env.JobID)
		require.NoError(t, err)
		require.Len(t, rlzs, 2)
		assert.Equal(t, "b_1", rlzs[0].SmltPath)
		assert.Equal(t, "BooreAtkinson2008", rlzs[0].GsimPath)
		assert.InDelta(t, 0.75, rlzs[0].Weight, 1e-12)

		var events []EventCount
		require.NoError(t, env.Results.GetOutput(ctx, env.JobID, "events", &events))
		require.Len(t, events, 2)
		assert.Equal(t, 0, events[0].Rlz)
		assert.Equal(t, 3, events[0].Events)
		assert.Equal(t, "ChiouYoungs2008", events[1].Gsim)

		var rupture map[string]interface{}
		require.NoError(t, env.Results.GetOutput(ctx, env.JobID, "rupture", &rupture))
		assert.Equal(t, 6.8, rupture["magnitude"])

		keys, err := env.Results.ListOutputKeys(ctx, env.JobID)
		require.NoError(t, err)
		assert.Contains(t, keys, "rlzs_assoc")
	})

	t.Run("error - no sites and no grid", func(t *testing.T) {
		params := scenarioParams(t, ruptureXML, gmpeLtXML)
		params.Sites = nil
		env := setupEnv(t, params)

		calculator, err := CalculatorFactory(env)
		require.NoError(t, err)
		err = calculator.PreExecute(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sites or a region grid")
	})

	t.Run("region grid is accepted instead of sites", func(t *testing.T) {
		params := scenarioParams(t, ruptureXML, gmpeLtXML)
		params.Sites = nil
		params.RegionGridSpacing = 10.0
		env := setupEnv(t, params)

		calculator, err := CalculatorFactory(env)
		require.NoError(t, err)
		assert.NoError(t, calculator.PreExecute(ctx))
	})

	t.Run("error - rupture TRT not covered by gsim tree", func(t *testing.T) {
		stableOnly := `<nrml>
  <logicTree logicTreeID="gmlt1">
    <logicTreeBranchSet branchSetID="bs1" uncertaintyType="gmpeModel"
        applyToTectonicRegionType="Stable Shallow Crust">
      <logicTreeBranch branchID="b1">
        <uncertaintyModel>ToroEtAl2002</uncertaintyModel>
        <uncertaintyWeight>1.0</uncertaintyWeight>
      </logicTreeBranch>
    </logicTreeBranchSet>
  </logicTree>
</nrml>`
		env := setupEnv(t, scenarioParams(t, ruptureXML, stableOnly))

		calculator, err := CalculatorFactory(env)
		require.NoError(t, err)
		err = calculator.PreExecute(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not covered by the gsim logic tree")
	})

	t.Run("error - nil environment", func(t *testing.T) {
		_, err := CalculatorFactory(nil)
		assert.Error(t, err)
	})
}
