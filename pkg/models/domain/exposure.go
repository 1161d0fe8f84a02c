package domain

// Asset is a single exposed asset from the exposure model
type Asset struct {
	ID       string
	Taxonomy string
	Number   float64
	Value    float64
	Location Site
}

// Exposure is a parsed exposure model
type Exposure struct {
	ID          string
	Description string
	CostType    string
	Assets      []Asset
}

// TaxonomyStats holds per-taxonomy value statistics for the exposure
// section of the report
type TaxonomyStats struct {
	Taxonomy  string
	NumAssets int
	Mean      float64
	Stddev    float64
	Min       float64
	Max       float64
}

// VulnerabilityFunction gives the mean loss ratio per intensity level
// for a taxonomy; ratios between levels are interpolated linearly
type VulnerabilityFunction struct {
	Taxonomy   string
	IMT        string
	Levels     []float64
	LossRatios []float64
	Covs       []float64
}

// LossStats is the aggregated scenario risk output per taxonomy
type LossStats struct {
	Taxonomy  string
	NumAssets int
	MeanLoss  float64
	Stddev    float64
	TotalLoss float64
}
