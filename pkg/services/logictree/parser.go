package logictree

import (
	"encoding/xml"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/seismo-tools/hazengine/pkg/models/domain"
)

const weightTolerance = 1e-6

type xmlBranch struct {
	ID     string `xml:"branchID,attr"`
	Model  string `xml:"uncertaintyModel"`
	Weight string `xml:"uncertaintyWeight"`
}

type xmlBranchSet struct {
	ID              string      `xml:"branchSetID,attr"`
	UncertaintyType string      `xml:"uncertaintyType,attr"`
	AppliesToTRT    string      `xml:"applyToTectonicRegionType,attr"`
	Branches        []xmlBranch `xml:"logicTreeBranch"`
}

type xmlBranchingLevel struct {
	BranchSets []xmlBranchSet `xml:"logicTreeBranchSet"`
}

type xmlLogicTree struct {
	ID              string              `xml:"logicTreeID,attr"`
	BranchingLevels []xmlBranchingLevel `xml:"logicTreeBranchingLevel"`
	BranchSets      []xmlBranchSet      `xml:"logicTreeBranchSet"`
}

type xmlDoc struct {
	XMLName   xml.Name      `xml:"nrml"`
	LogicTree *xmlLogicTree `xml:"logicTree"`
}

// Parse reads a source model logic tree file. Branch weights inside
// each branch set must sum to one within tolerance.
func Parse(path string) (*domain.LogicTree, error) {
	sets, err := parseBranchSets(path)
	if err != nil {
		return nil, err
	}
	return &domain.LogicTree{Path: path, BranchSets: sets}, nil
}

// ParseGsim reads a ground-motion logic tree file. Every branch set
// must declare the tectonic region type it applies to.
func ParseGsim(path string) (*domain.GsimLogicTree, error) {
	sets, err := parseBranchSets(path)
	if err != nil {
		return nil, err
	}
	for _, bs := range sets {
		if bs.AppliesToTRT == "" {
			return nil, fmt.Errorf("gsim logic tree %s: branch set %s has no applyToTectonicRegionType", path, bs.ID)
		}
	}
	return &domain.GsimLogicTree{Path: path, BranchSets: sets}, nil
}

func parseBranchSets(path string) ([]domain.BranchSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read logic tree %s: %w", path, err)
	}
	var doc xmlDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse logic tree %s: %w", path, err)
	}
	if doc.LogicTree == nil {
		return nil, fmt.Errorf("logic tree %s: no logicTree element", path)
	}

	// branch sets may sit directly under logicTree or be wrapped in
	// branching levels, both layouts occur in the wild
	var raw []xmlBranchSet
	raw = append(raw, doc.LogicTree.BranchSets...)
	for _, level := range doc.LogicTree.BranchingLevels {
		raw = append(raw, level.BranchSets...)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("logic tree %s: no branch sets", path)
	}

	sets := make([]domain.BranchSet, 0, len(raw))
	for _, rawSet := range raw {
		bs, err := convertBranchSet(rawSet)
		if err != nil {
			return nil, fmt.Errorf("logic tree %s: %w", path, err)
		}
		sets = append(sets, bs)
	}
	return sets, nil
}

func convertBranchSet(raw xmlBranchSet) (domain.BranchSet, error) {
	bs := domain.BranchSet{
		ID:              raw.ID,
		UncertaintyType: raw.UncertaintyType,
		AppliesToTRT:    raw.AppliesToTRT,
	}
	if len(raw.Branches) == 0 {
		return bs, fmt.Errorf("branch set %s has no branches", raw.ID)
	}

	total := 0.0
	for _, rawBranch := range raw.Branches {
		weight, err := strconv.ParseFloat(strings.TrimSpace(rawBranch.Weight), 64)
		if err != nil {
			return bs, fmt.Errorf("branch %s: bad uncertaintyWeight %q", rawBranch.ID, rawBranch.Weight)
		}
		if weight < 0 {
			return bs, fmt.Errorf("branch %s: negative weight %v", rawBranch.ID, weight)
		}
		total += weight
		bs.Branches = append(bs.Branches, domain.Branch{
			ID:     rawBranch.ID,
			Model:  strings.TrimSpace(rawBranch.Model),
			Weight: weight,
		})
	}
	if math.Abs(total-1.0) > weightTolerance {
		return bs, fmt.Errorf("branch set %s: weights sum to %v, want 1", raw.ID, total)
	}
	return bs, nil
}
