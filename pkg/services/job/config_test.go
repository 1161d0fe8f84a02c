package job

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "rupture.xml", "<rupture/>")
	writeFile(t, dir, "gmpe_lt.xml", "<logicTree/>")

	t.Run("success - scenario job", func(t *testing.T) {
		iniPath := writeFile(t, dir, "job.ini", `
[general]
description = Scenario in Nepal
calculation_mode = scenario
random_seed = 3

[geometry]
sites = 81.1 29.0, 81.3 29.2

[calculation]
rupture_model_file = rupture.xml
gsim_logic_tree_file = gmpe_lt.xml
intensity_measure_types = PGA SA(0.1)
intensity_measure_levels = 0.01 0.04 0.16
ses_per_logic_tree_path = 5
`)

		cfg, err := LoadConfig(iniPath)
		require.NoError(t, err)

		assert.Equal(t, "Scenario in Nepal", cfg.Params.Description)
		assert.Equal(t, "scenario", cfg.Params.Mode)
		assert.Equal(t, int64(3), cfg.Params.RandomSeed)
		assert.Equal(t, 5, cfg.Params.SESPerLogicTreePath)
		assert.Equal(t, []string{"PGA", "SA(0.1)"}, cfg.Params.IntensityMeasureTypes)
		assert.Equal(t, []float64{0.01, 0.04, 0.16}, cfg.Params.IntensityMeasureLevels)
		require.Len(t, cfg.Params.Sites, 2)
		assert.Equal(t, 81.1, cfg.Params.Sites[0].Lon)
		assert.Equal(t, 29.2, cfg.Params.Sites[1].Lat)

		require.Contains(t, cfg.Params.Inputs, "rupture_model")
		rupture := cfg.Params.Inputs["rupture_model"]
		assert.Equal(t, filepath.Join(dir, "rupture.xml"), rupture.Path)
		assert.Equal(t, int64(len("<rupture/>")), rupture.Size)

		assert.NotZero(t, cfg.Checksum32)
	})

	t.Run("success - defaults applied", func(t *testing.T) {
		iniPath := writeFile(t, dir, "defaults.ini", `
[general]
calculation_mode = scenario
rupture_model_file = rupture.xml
gsim_logic_tree_file = gmpe_lt.xml
`)

		cfg, err := LoadConfig(iniPath)
		require.NoError(t, err)

		assert.Equal(t, 3.0, cfg.Params.TruncationLevel)
		assert.Equal(t, 200.0, cfg.Params.MaximumDistance)
		assert.Equal(t, 2.0, cfg.Params.RuptureMeshSpacing)
		assert.Equal(t, 1, cfg.Params.SESPerLogicTreePath)
	})

	t.Run("checksum is stable across loads", func(t *testing.T) {
		iniPath := writeFile(t, dir, "stable.ini", `
calculation_mode = scenario
rupture_model_file = rupture.xml
gsim_logic_tree_file = gmpe_lt.xml
`)

		first, err := LoadConfig(iniPath)
		require.NoError(t, err)
		second, err := LoadConfig(iniPath)
		require.NoError(t, err)
		assert.Equal(t, first.Checksum32, second.Checksum32)
	})

	t.Run("checksum changes when an input changes", func(t *testing.T) {
		sub := t.TempDir()
		writeFile(t, sub, "rupture.xml", "<rupture mag='6.5'/>")
		writeFile(t, sub, "gmpe_lt.xml", "<logicTree/>")
		iniPath := writeFile(t, sub, "job.ini", `
calculation_mode = scenario
rupture_model_file = rupture.xml
gsim_logic_tree_file = gmpe_lt.xml
`)

		before, err := LoadConfig(iniPath)
		require.NoError(t, err)

		writeFile(t, sub, "rupture.xml", "<rupture mag='7.0'/>")
		after, err := LoadConfig(iniPath)
		require.NoError(t, err)

		assert.NotEqual(t, before.Checksum32, after.Checksum32)
	})

	t.Run("error - missing calculation_mode", func(t *testing.T) {
		iniPath := writeFile(t, dir, "nomode.ini", `
description = no mode here
`)

		_, err := LoadConfig(iniPath)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "calculation_mode is required")
	})

	t.Run("error - unknown calculation_mode", func(t *testing.T) {
		iniPath := writeFile(t, dir, "badmode.ini", `
calculation_mode = event_based
`)

		_, err := LoadConfig(iniPath)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown calculation_mode")
	})

	t.Run("error - missing required input", func(t *testing.T) {
		iniPath := writeFile(t, dir, "noinput.ini", `
calculation_mode = scenario
gsim_logic_tree_file = gmpe_lt.xml
`)

		_, err := LoadConfig(iniPath)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rupture_model_file")
	})

	t.Run("error - referenced input does not exist", func(t *testing.T) {
		iniPath := writeFile(t, dir, "ghost.ini", `
calculation_mode = scenario
rupture_model_file = missing.xml
gsim_logic_tree_file = gmpe_lt.xml
`)

		_, err := LoadConfig(iniPath)
		assert.Error(t, err)
	})

	t.Run("error - malformed sites", func(t *testing.T) {
		iniPath := writeFile(t, dir, "badsites.ini", `
calculation_mode = scenario
sites = 81.1
rupture_model_file = rupture.xml
gsim_logic_tree_file = gmpe_lt.xml
`)

		_, err := LoadConfig(iniPath)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "malformed site")
	})
}
