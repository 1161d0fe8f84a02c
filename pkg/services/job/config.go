package job

import (
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/seismo-tools/hazengine/pkg/models/domain"
	"gopkg.in/ini.v1"
)

// Config is a fully loaded and validated calculation job definition
type Config struct {
	Params     domain.Params
	IniPath    string
	Checksum32 uint32
}

// requiredInputs maps each calculation mode to the input keys it cannot
// run without
var requiredInputs = map[string][]string{
	"scenario":      {"rupture_model", "gsim_logic_tree"},
	"classical":     {"source_model_logic_tree", "gsim_logic_tree"},
	"scenario_risk": {"rupture_model", "exposure", "structural_vulnerability"},
}

// LoadConfig reads a job.ini file, resolves the input files it
// references relative to its directory and computes the run checksum.
func LoadConfig(path string) (*Config, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read job file %s: %w", path, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	baseDir := filepath.Dir(abs)

	params := domain.Params{
		TruncationLevel:     3.0,
		MaximumDistance:     200.0,
		RuptureMeshSpacing:  2.0,
		SESPerLogicTreePath: 1,
		Inputs:              make(map[string]domain.InputFile),
	}

	// job.ini keys are section-scoped only by convention; look them up
	// across every section, later sections win
	for _, section := range cfg.Sections() {
		for _, key := range section.Keys() {
			if err := applyKey(&params, baseDir, key.Name(), key.String()); err != nil {
				return nil, fmt.Errorf("job file %s: %w", path, err)
			}
		}
	}

	if err := validate(params); err != nil {
		return nil, fmt.Errorf("job file %s: %w", path, err)
	}

	checksum, err := checksumInputs(abs, params.Inputs)
	if err != nil {
		return nil, err
	}

	return &Config{Params: params, IniPath: abs, Checksum32: checksum}, nil
}

func applyKey(params *domain.Params, baseDir, name, value string) error {
	var err error
	switch name {
	case "description":
		params.Description = value
	case "calculation_mode":
		params.Mode = value
	case "random_seed":
		params.RandomSeed, err = strconv.ParseInt(value, 10, 64)
	case "master_seed":
		params.MasterSeed, err = strconv.ParseInt(value, 10, 64)
	case "number_of_logic_tree_samples":
		params.LogicTreeSamples, err = strconv.Atoi(value)
	case "investigation_time":
		params.InvestigationTime, err = strconv.ParseFloat(value, 64)
	case "truncation_level":
		params.TruncationLevel, err = strconv.ParseFloat(value, 64)
	case "maximum_distance":
		params.MaximumDistance, err = strconv.ParseFloat(value, 64)
	case "rupture_mesh_spacing":
		params.RuptureMeshSpacing, err = strconv.ParseFloat(value, 64)
	case "ses_per_logic_tree_path":
		params.SESPerLogicTreePath, err = strconv.Atoi(value)
	case "region_grid_spacing":
		params.RegionGridSpacing, err = strconv.ParseFloat(value, 64)
	case "concurrent_tasks":
		params.ConcurrentTasks, err = strconv.Atoi(value)
	case "sites":
		params.Sites, err = parseSites(value)
	case "intensity_measure_types":
		params.IntensityMeasureTypes = strings.Fields(value)
	case "intensity_measure_levels":
		params.IntensityMeasureLevels, err = parseFloats(value)
	default:
		if strings.HasSuffix(name, "_file") {
			key := strings.TrimSuffix(name, "_file")
			input, ferr := resolveInput(baseDir, key, value)
			if ferr != nil {
				return ferr
			}
			params.Inputs[key] = input
		}
	}
	if err != nil {
		return fmt.Errorf("invalid value %q for %s: %w", value, name, err)
	}
	return nil
}

func resolveInput(baseDir, key, value string) (domain.InputFile, error) {
	path := value
	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}
	info, err := os.Stat(path)
	if err != nil {
		return domain.InputFile{}, fmt.Errorf("input %s_file: %w", key, err)
	}
	return domain.InputFile{Key: key, Path: path, Size: info.Size()}, nil
}

func validate(params domain.Params) error {
	if params.Mode == "" {
		return fmt.Errorf("calculation_mode is required")
	}
	required, ok := requiredInputs[params.Mode]
	if !ok {
		return fmt.Errorf("unknown calculation_mode %q", params.Mode)
	}
	for _, key := range required {
		if _, present := params.Inputs[key]; !present {
			return fmt.Errorf("calculation_mode %q requires input %s_file", params.Mode, key)
		}
	}
	if params.MaximumDistance <= 0 {
		return fmt.Errorf("maximum_distance must be positive, got %v", params.MaximumDistance)
	}
	if params.TruncationLevel < 0 {
		return fmt.Errorf("truncation_level must be non-negative, got %v", params.TruncationLevel)
	}
	return nil
}

// checksumInputs computes a CRC-32 over the job file and every input,
// read in sorted path order so the value is stable across runs
func checksumInputs(iniPath string, inputs map[string]domain.InputFile) (uint32, error) {
	paths := []string{iniPath}
	for _, input := range inputs {
		paths = append(paths, input.Path)
	}
	sort.Strings(paths)

	h := crc32.NewIEEE()
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return 0, fmt.Errorf("checksum input %s: %w", p, err)
		}
		if _, err := h.Write(data); err != nil {
			return 0, err
		}
	}
	return h.Sum32(), nil
}

func parseSites(value string) ([]domain.Site, error) {
	var sites []domain.Site
	for _, pair := range strings.Split(value, ",") {
		fields := strings.Fields(pair)
		if len(fields) != 2 {
			return nil, fmt.Errorf("malformed site %q, want \"lon lat\"", strings.TrimSpace(pair))
		}
		lon, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, err
		}
		lat, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, err
		}
		sites = append(sites, domain.Site{Lon: lon, Lat: lat})
	}
	return sites, nil
}

func parseFloats(value string) ([]float64, error) {
	var out []float64
	for _, f := range strings.Fields(value) {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
