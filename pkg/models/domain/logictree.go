package domain

// Branch is one alternative inside a branch set, carrying the model it
// selects and its weight
type Branch struct {
	ID     string
	Model  string
	Weight float64
}

// BranchSet groups mutually exclusive branches; weights sum to one
type BranchSet struct {
	ID              string
	UncertaintyType string
	AppliesToTRT    string
	Branches        []Branch
}

// LogicTree is a parsed source model logic tree
type LogicTree struct {
	Path       string
	BranchSets []BranchSet
}

// GsimLogicTree maps tectonic region types to alternative ground-motion
// model identifiers with weights
type GsimLogicTree struct {
	Path       string
	BranchSets []BranchSet
}

// Realization is one sampled or enumerated combination of logic-tree
// branches
type Realization struct {
	Ordinal  int
	SmltPath string
	GsimPath map[string]string
	Weight   float64
}

// RlzsAssoc associates each (TRT, GSIM) pair with the ordinals of the
// realizations using it
type RlzsAssoc struct {
	Pairs map[TrtGsim][]int
}

// TrtGsim is the composite association key
type TrtGsim struct {
	TRT  string
	GSIM string
}

// AssocRow is one line of the realizations-per-(TRT, GSIM) section,
// in a form that survives JSON round-trips
type AssocRow struct {
	TRT  string `json:"trt"`
	GSIM string `json:"gsim"`
	Rlzs []int  `json:"rlzs"`
}

// CompositionInfo summarizes the composite source model for the report:
// one row per source-model path
type CompositionInfo struct {
	SmltPath        string
	Weight          float64
	GsimLogicTree   string
	NumRealizations string
}
