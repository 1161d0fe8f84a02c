package exposure

import (
	"encoding/xml"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"

	"github.com/seismo-tools/hazengine/pkg/models/domain"
)

type xmlLocation struct {
	Lon string `xml:"lon,attr"`
	Lat string `xml:"lat,attr"`
}

type xmlCost struct {
	Type  string `xml:"type,attr"`
	Value string `xml:"value,attr"`
}

type xmlAsset struct {
	ID       string      `xml:"id,attr"`
	Taxonomy string      `xml:"taxonomy,attr"`
	Number   string      `xml:"number,attr"`
	Location xmlLocation `xml:"location"`
	Costs    []xmlCost   `xml:"costs>cost"`
}

type xmlCostType struct {
	Name string `xml:"name,attr"`
}

type xmlExposureModel struct {
	ID          string        `xml:"id,attr"`
	Description string        `xml:"description"`
	CostTypes   []xmlCostType `xml:"conversions>costTypes>costType"`
	Assets      []xmlAsset    `xml:"assets>asset"`
}

type xmlExposureDoc struct {
	XMLName xml.Name          `xml:"nrml"`
	Model   *xmlExposureModel `xml:"exposureModel"`
}

// Parse reads an exposure model file. An exposure without assets is an
// error; downstream calculators have nothing to work on.
func Parse(path string) (*domain.Exposure, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read exposure %s: %w", path, err)
	}
	var doc xmlExposureDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse exposure %s: %w", path, err)
	}
	if doc.Model == nil {
		return nil, fmt.Errorf("exposure %s: no exposureModel element", path)
	}
	if len(doc.Model.Assets) == 0 {
		return nil, fmt.Errorf("exposure %s: no assets", path)
	}

	exp := &domain.Exposure{
		ID:          doc.Model.ID,
		Description: doc.Model.Description,
		CostType:    "structural",
	}
	if len(doc.Model.CostTypes) > 0 {
		exp.CostType = doc.Model.CostTypes[0].Name
	}

	for _, raw := range doc.Model.Assets {
		asset, err := convertAsset(raw, exp.CostType)
		if err != nil {
			return nil, fmt.Errorf("exposure %s: %w", path, err)
		}
		exp.Assets = append(exp.Assets, asset)
	}
	return exp, nil
}

func convertAsset(raw xmlAsset, costType string) (domain.Asset, error) {
	asset := domain.Asset{ID: raw.ID, Taxonomy: raw.Taxonomy, Number: 1}
	if raw.Taxonomy == "" {
		return asset, fmt.Errorf("asset %s: missing taxonomy", raw.ID)
	}
	if raw.Number != "" {
		n, err := strconv.ParseFloat(raw.Number, 64)
		if err != nil || n <= 0 {
			return asset, fmt.Errorf("asset %s: bad number %q", raw.ID, raw.Number)
		}
		asset.Number = n
	}

	lon, err := strconv.ParseFloat(raw.Location.Lon, 64)
	if err != nil {
		return asset, fmt.Errorf("asset %s: bad location lon %q", raw.ID, raw.Location.Lon)
	}
	lat, err := strconv.ParseFloat(raw.Location.Lat, 64)
	if err != nil {
		return asset, fmt.Errorf("asset %s: bad location lat %q", raw.ID, raw.Location.Lat)
	}
	asset.Location = domain.Site{Lon: lon, Lat: lat}

	for _, cost := range raw.Costs {
		if cost.Type != costType {
			continue
		}
		v, err := strconv.ParseFloat(cost.Value, 64)
		if err != nil {
			return asset, fmt.Errorf("asset %s: bad cost value %q", raw.ID, cost.Value)
		}
		asset.Value = v
	}
	return asset, nil
}

// TaxonomyStats computes the per-taxonomy value statistics shown in the
// exposure section of the report, sorted by taxonomy.
func TaxonomyStats(exp *domain.Exposure) []domain.TaxonomyStats {
	grouped := make(map[string][]float64)
	for _, asset := range exp.Assets {
		grouped[asset.Taxonomy] = append(grouped[asset.Taxonomy], asset.Value)
	}

	out := make([]domain.TaxonomyStats, 0, len(grouped))
	for taxonomy, values := range grouped {
		stats := domain.TaxonomyStats{
			Taxonomy:  taxonomy,
			NumAssets: len(values),
			Min:       values[0],
			Max:       values[0],
		}
		sum := 0.0
		for _, v := range values {
			sum += v
			stats.Min = math.Min(stats.Min, v)
			stats.Max = math.Max(stats.Max, v)
		}
		stats.Mean = sum / float64(len(values))
		if len(values) > 1 {
			ss := 0.0
			for _, v := range values {
				ss += (v - stats.Mean) * (v - stats.Mean)
			}
			stats.Stddev = math.Sqrt(ss / float64(len(values)-1))
		}
		out = append(out, stats)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Taxonomy < out[j].Taxonomy })
	return out
}
