package domain

import "fmt"

// Tectonic region types recognized by the engine
const (
	TRTActiveShallowCrust  = "Active Shallow Crust"
	TRTStableShallowCrust  = "Stable Shallow Crust"
	TRTSubductionInterface = "Subduction Interface"
	TRTSubductionIntraSlab = "Subduction IntraSlab"
	TRTVolcanic            = "Volcanic"
)

var knownTRTs = map[string]struct{}{
	TRTActiveShallowCrust:  {},
	TRTStableShallowCrust:  {},
	TRTSubductionInterface: {},
	TRTSubductionIntraSlab: {},
	TRTVolcanic:            {},
}

// SourceKind distinguishes the geometry families of seismic sources
type SourceKind string

const (
	PointSource               SourceKind = "pointSource"
	AreaSource                SourceKind = "areaSource"
	SimpleFaultSource         SourceKind = "simpleFaultSource"
	ComplexFaultSource        SourceKind = "complexFaultSource"
	CharacteristicFaultSource SourceKind = "characteristicFaultSource"
)

// MFD is a magnitude-frequency distribution, either truncated
// Gutenberg-Richter (AVal/BVal/MinMag/MaxMag) or incremental
// (MinMag/BinWidth/OccurRates).
type MFD struct {
	AVal       float64
	BVal       float64
	MinMag     float64
	MaxMag     float64
	BinWidth   float64
	OccurRates []float64
}

// SeismicSource represents the geometry and activity rate of a structure
// generating seismicity. The identifier is unique within a source model.
type SeismicSource struct {
	ID                 string
	Name               string
	Kind               SourceKind
	TectonicRegionType string
	MFD                MFD
	RuptureMeshSpacing float64
}

// Validate checks the invariants every source must satisfy regardless
// of its geometry family.
func (s SeismicSource) Validate() error {
	if _, ok := knownTRTs[s.TectonicRegionType]; !ok {
		return fmt.Errorf("unknown tectonic region type %q", s.TectonicRegionType)
	}
	if s.RuptureMeshSpacing <= 0 {
		return fmt.Errorf("rupture mesh spacing must be positive, got %v", s.RuptureMeshSpacing)
	}
	return nil
}

// SourceModel is a parsed NRML source model file
type SourceModel struct {
	Name    string
	Path    string
	Sources []SeismicSource
}

// SourceInfo aggregates per-TRT counts and weights for reporting
type SourceInfo struct {
	TRT         string
	NumSources  int
	TotalWeight float64
}

// Rupture describes a single deterministic rupture for scenario modes
type Rupture struct {
	Magnitude  float64
	Rake       float64
	TRT        string
	Hypocenter Site
	Depth      float64
}
