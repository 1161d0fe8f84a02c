package exposure

import (
	"encoding/xml"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/seismo-tools/hazengine/pkg/models/domain"
)

type xmlVulnFunction struct {
	ID         string `xml:"vulnerabilityFunctionID,attr"`
	LossRatios string `xml:"lossRatio"`
	Covs       string `xml:"coefficientsVariation"`
}

type xmlIML struct {
	IMT    string `xml:"IMT,attr"`
	Levels string `xml:",chardata"`
}

type xmlVulnSet struct {
	IML       xmlIML            `xml:"IML"`
	Functions []xmlVulnFunction `xml:"discreteVulnerability"`
}

type xmlVulnDoc struct {
	XMLName xml.Name     `xml:"nrml"`
	Sets    []xmlVulnSet `xml:"vulnerabilityModel>discreteVulnerabilitySet"`
}

// ParseVulnerability reads a vulnerability model keyed by taxonomy.
func ParseVulnerability(path string) (map[string]domain.VulnerabilityFunction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read vulnerability model %s: %w", path, err)
	}
	var doc xmlVulnDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse vulnerability model %s: %w", path, err)
	}
	if len(doc.Sets) == 0 {
		return nil, fmt.Errorf("vulnerability model %s: no discreteVulnerabilitySet", path)
	}

	funcs := make(map[string]domain.VulnerabilityFunction)
	for _, set := range doc.Sets {
		levels, err := parseFloats(set.IML.Levels)
		if err != nil {
			return nil, fmt.Errorf("vulnerability model %s: bad IML: %w", path, err)
		}
		for _, raw := range set.Functions {
			ratios, err := parseFloats(raw.LossRatios)
			if err != nil {
				return nil, fmt.Errorf("vulnerability model %s: function %s: %w", path, raw.ID, err)
			}
			if len(ratios) != len(levels) {
				return nil, fmt.Errorf("vulnerability model %s: function %s: %d loss ratios for %d levels",
					path, raw.ID, len(ratios), len(levels))
			}
			covs, err := parseFloats(raw.Covs)
			if err != nil {
				return nil, fmt.Errorf("vulnerability model %s: function %s: %w", path, raw.ID, err)
			}
			funcs[raw.ID] = domain.VulnerabilityFunction{
				Taxonomy:   raw.ID,
				IMT:        set.IML.IMT,
				Levels:     levels,
				LossRatios: ratios,
				Covs:       covs,
			}
		}
	}
	return funcs, nil
}

// LossRatio interpolates the mean loss ratio at the given intensity
// level, clamping outside the defined range.
func LossRatio(vf domain.VulnerabilityFunction, iml float64) float64 {
	if len(vf.Levels) == 0 {
		return 0
	}
	if iml <= vf.Levels[0] {
		return vf.LossRatios[0]
	}
	last := len(vf.Levels) - 1
	if iml >= vf.Levels[last] {
		return vf.LossRatios[last]
	}
	for i := 1; i <= last; i++ {
		if iml <= vf.Levels[i] {
			span := vf.Levels[i] - vf.Levels[i-1]
			frac := (iml - vf.Levels[i-1]) / span
			return vf.LossRatios[i-1] + frac*(vf.LossRatios[i]-vf.LossRatios[i-1])
		}
	}
	return vf.LossRatios[last]
}

func parseFloats(value string) ([]float64, error) {
	var out []float64
	for _, f := range strings.Fields(value) {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("bad float %q", f)
		}
		out = append(out, v)
	}
	return out, nil
}
