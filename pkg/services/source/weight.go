package source

import (
	"encoding/xml"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/seismo-tools/hazengine/pkg/models/domain"
)

// PointSourceWeight down-weights point sources relative to fault
// sources when splitting work into blocks; faults dominate runtime.
const PointSourceWeight = 1.0 / 40.0

// Weight returns the rupture-count proxy used to balance task blocks.
// Truncated Gutenberg-Richter counts magnitude bins; incremental MFDs
// count their rates.
func Weight(src domain.SeismicSource) float64 {
	var bins float64
	if len(src.MFD.OccurRates) > 0 {
		bins = float64(len(src.MFD.OccurRates))
	} else {
		bins = math.Round((src.MFD.MaxMag - src.MFD.MinMag) / src.MFD.BinWidth)
		if bins < 1 {
			bins = 1
		}
	}
	if src.Kind == domain.PointSource {
		return bins * PointSourceWeight
	}
	return bins
}

// CollectInfo aggregates sources by tectonic region type for the
// composite source model section of the report. Rows come back in
// TRT order.
func CollectInfo(sources []domain.SeismicSource) []domain.SourceInfo {
	byTRT := make(map[string]*domain.SourceInfo)
	for _, src := range sources {
		info, ok := byTRT[src.TectonicRegionType]
		if !ok {
			info = &domain.SourceInfo{TRT: src.TectonicRegionType}
			byTRT[src.TectonicRegionType] = info
		}
		info.NumSources++
		info.TotalWeight += Weight(src)
	}

	out := make([]domain.SourceInfo, 0, len(byTRT))
	for _, info := range byTRT {
		out = append(out, *info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TRT < out[j].TRT })
	return out
}

type xmlHypocenter struct {
	Lon   string `xml:"lon,attr"`
	Lat   string `xml:"lat,attr"`
	Depth string `xml:"depth,attr"`
}

type xmlRupture struct {
	Magnitude  string        `xml:"magnitude"`
	Rake       string        `xml:"rake"`
	TRT        string        `xml:"tectonicRegion,attr"`
	Hypocenter xmlHypocenter `xml:"hypocenter"`
}

type xmlRuptureDoc struct {
	XMLName     xml.Name    `xml:"nrml"`
	SinglePlane *xmlRupture `xml:"singlePlaneRupture"`
	MultiPlanes *xmlRupture `xml:"multiPlanesRupture"`
}

// ParseRupture reads a deterministic rupture model file used by the
// scenario modes.
func ParseRupture(path string) (*domain.Rupture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rupture model %s: %w", path, err)
	}
	var doc xmlRuptureDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse rupture model %s: %w", path, err)
	}

	raw := doc.SinglePlane
	if raw == nil {
		raw = doc.MultiPlanes
	}
	if raw == nil {
		return nil, fmt.Errorf("rupture model %s: no rupture element", path)
	}

	rupture := &domain.Rupture{TRT: raw.TRT}
	if rupture.TRT == "" {
		rupture.TRT = domain.TRTActiveShallowCrust
	}
	fields := []struct {
		name  string
		value string
		dst   *float64
	}{
		{"magnitude", raw.Magnitude, &rupture.Magnitude},
		{"rake", raw.Rake, &rupture.Rake},
		{"hypocenter lon", raw.Hypocenter.Lon, &rupture.Hypocenter.Lon},
		{"hypocenter lat", raw.Hypocenter.Lat, &rupture.Hypocenter.Lat},
		{"hypocenter depth", raw.Hypocenter.Depth, &rupture.Depth},
	}
	for _, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f.value), 64)
		if err != nil {
			return nil, fmt.Errorf("rupture model %s: bad %s %q", path, f.name, f.value)
		}
		*f.dst = v
	}
	if rupture.Magnitude <= 0 {
		return nil, fmt.Errorf("rupture model %s: magnitude must be positive", path)
	}
	return rupture, nil
}
