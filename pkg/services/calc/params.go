package calc

import (
	"fmt"
	"sort"
	"strings"

	"github.com/seismo-tools/hazengine/pkg/models/domain"
)

// ParamsMap flattens the job parameters into the key/value rows shown
// in the report's Parameters section.
func ParamsMap(params domain.Params) map[string]string {
	m := map[string]string{
		"calculation_mode":             fmt.Sprintf("'%s'", params.Mode),
		"random_seed":                  fmt.Sprintf("%d", params.RandomSeed),
		"master_seed":                  fmt.Sprintf("%d", params.MasterSeed),
		"number_of_logic_tree_samples": fmt.Sprintf("%d", params.LogicTreeSamples),
		"truncation_level":             fmt.Sprintf("%g", params.TruncationLevel),
		"maximum_distance":             fmt.Sprintf("{'default': %g}", params.MaximumDistance),
		"rupture_mesh_spacing":         fmt.Sprintf("%g", params.RuptureMeshSpacing),
		"ses_per_logic_tree_path":      fmt.Sprintf("%d", params.SESPerLogicTreePath),
	}
	if params.InvestigationTime > 0 {
		m["investigation_time"] = fmt.Sprintf("%g", params.InvestigationTime)
	} else {
		m["investigation_time"] = "None"
	}
	if len(params.IntensityMeasureTypes) > 0 {
		m["intensity_measure_types"] = strings.Join(params.IntensityMeasureTypes, " ")
	}
	if params.RegionGridSpacing > 0 {
		m["region_grid_spacing"] = fmt.Sprintf("%g", params.RegionGridSpacing)
	}
	return m
}

// EncodeGsimPath flattens a per-TRT gsim selection into a stable
// string, with TRTs in sorted order.
func EncodeGsimPath(byTRT map[string]string) string {
	trts := make([]string, 0, len(byTRT))
	for trt := range byTRT {
		trts = append(trts, trt)
	}
	sort.Strings(trts)
	gsims := make([]string, len(trts))
	for i, trt := range trts {
		gsims[i] = byTRT[trt]
	}
	return strings.Join(gsims, "_")
}

// NumLevels counts the configured intensity measure levels, never
// reporting less than one level for scenario modes
func NumLevels(params domain.Params) int {
	if n := len(params.IntensityMeasureLevels); n > 0 {
		return n
	}
	return 1
}
