package logictree

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"github.com/seismo-tools/hazengine/pkg/models/domain"
)

// smltPath is an ordered selection of one branch per branch set
type smltPath struct {
	ids    []string
	models []string
	weight float64
}

func (p smltPath) String() string {
	return strings.Join(p.ids, "_")
}

// gsimPath picks one GSIM per tectonic region type
type gsimPath struct {
	byTRT  map[string]string
	weight float64
}

// Enumerate produces the full realization list as the cartesian product
// of source-model paths and gsim paths; weights are branch-weight
// products. Used when number_of_logic_tree_samples is zero.
func Enumerate(lt *domain.LogicTree, glt *domain.GsimLogicTree) []domain.Realization {
	var rlzs []domain.Realization
	ordinal := 0
	for _, sp := range enumerateSmlt(lt) {
		for _, gp := range enumerateGsim(glt) {
			rlzs = append(rlzs, domain.Realization{
				Ordinal:  ordinal,
				SmltPath: sp.String(),
				GsimPath: gp.byTRT,
				Weight:   sp.weight * gp.weight,
			})
			ordinal++
		}
	}
	return rlzs
}

// Sample draws n weighted realizations with the given seed; each
// sampled realization carries uniform weight 1/n. A single-branch tree
// yields n identical realizations, matching enumeration-free engines.
func Sample(lt *domain.LogicTree, glt *domain.GsimLogicTree, n int, seed int64) ([]domain.Realization, error) {
	if n <= 0 {
		return nil, fmt.Errorf("number of samples must be positive, got %d", n)
	}
	rng := rand.New(rand.NewSource(seed))
	rlzs := make([]domain.Realization, 0, n)
	for i := 0; i < n; i++ {
		var ids []string
		for _, bs := range lt.BranchSets {
			ids = append(ids, pickBranch(rng, bs).ID)
		}
		byTRT := make(map[string]string)
		for _, bs := range glt.BranchSets {
			byTRT[bs.AppliesToTRT] = pickBranch(rng, bs).Model
		}
		rlzs = append(rlzs, domain.Realization{
			Ordinal:  i,
			SmltPath: strings.Join(ids, "_"),
			GsimPath: byTRT,
			Weight:   1.0 / float64(n),
		})
	}
	return rlzs, nil
}

func pickBranch(rng *rand.Rand, bs domain.BranchSet) domain.Branch {
	x := rng.Float64()
	acc := 0.0
	for _, branch := range bs.Branches {
		acc += branch.Weight
		if x < acc {
			return branch
		}
	}
	return bs.Branches[len(bs.Branches)-1]
}

func enumerateSmlt(lt *domain.LogicTree) []smltPath {
	paths := []smltPath{{weight: 1.0}}
	for _, bs := range lt.BranchSets {
		var next []smltPath
		for _, p := range paths {
			for _, branch := range bs.Branches {
				next = append(next, smltPath{
					ids:    append(append([]string{}, p.ids...), branch.ID),
					models: append(append([]string{}, p.models...), branch.Model),
					weight: p.weight * branch.Weight,
				})
			}
		}
		paths = next
	}
	return paths
}

func enumerateGsim(glt *domain.GsimLogicTree) []gsimPath {
	paths := []gsimPath{{byTRT: map[string]string{}, weight: 1.0}}
	for _, bs := range glt.BranchSets {
		var next []gsimPath
		for _, p := range paths {
			for _, branch := range bs.Branches {
				byTRT := make(map[string]string, len(p.byTRT)+1)
				for trt, gsim := range p.byTRT {
					byTRT[trt] = gsim
				}
				byTRT[bs.AppliesToTRT] = branch.Model
				next = append(next, gsimPath{byTRT: byTRT, weight: p.weight * branch.Weight})
			}
		}
		paths = next
	}
	return paths
}

// Assoc groups realization ordinals by the (TRT, GSIM) pair they use
func Assoc(rlzs []domain.Realization) domain.RlzsAssoc {
	assoc := domain.RlzsAssoc{Pairs: make(map[domain.TrtGsim][]int)}
	for _, rlz := range rlzs {
		for trt, gsim := range rlz.GsimPath {
			key := domain.TrtGsim{TRT: trt, GSIM: gsim}
			assoc.Pairs[key] = append(assoc.Pairs[key], rlz.Ordinal)
		}
	}
	return assoc
}

// AssocRows flattens the association into rows sorted by TRT then GSIM
func AssocRows(assoc domain.RlzsAssoc) []domain.AssocRow {
	rows := make([]domain.AssocRow, 0, len(assoc.Pairs))
	for key, rlzs := range assoc.Pairs {
		ordinals := append([]int{}, rlzs...)
		sort.Ints(ordinals)
		rows = append(rows, domain.AssocRow{TRT: key.TRT, GSIM: key.GSIM, Rlzs: ordinals})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].TRT != rows[j].TRT {
			return rows[i].TRT < rows[j].TRT
		}
		return rows[i].GSIM < rows[j].GSIM
	})
	return rows
}

// GsimTreeLabel classifies the gsim logic tree by its branching factor
// per TRT, e.g. trivial(1), simple(2) or complex(2,3)
func GsimTreeLabel(glt *domain.GsimLogicTree) string {
	counts := make([]int, 0, len(glt.BranchSets))
	multi := 0
	for _, bs := range glt.BranchSets {
		counts = append(counts, len(bs.Branches))
		if len(bs.Branches) > 1 {
			multi++
		}
	}
	sort.Ints(counts)
	parts := make([]string, len(counts))
	for i, c := range counts {
		parts[i] = fmt.Sprintf("%d", c)
	}
	label := "trivial"
	if multi == 1 {
		label = "simple"
	} else if multi > 1 {
		label = "complex"
	}
	return fmt.Sprintf("%s(%s)", label, strings.Join(parts, ","))
}

// CompositionInfo builds the composite source model rows: one row per
// source-model path with its total weight and realization share
func CompositionInfo(lt *domain.LogicTree, glt *domain.GsimLogicTree, rlzs []domain.Realization) []domain.CompositionInfo {
	label := GsimTreeLabel(glt)
	byPath := make(map[string]*domain.CompositionInfo)
	var order []string
	counts := make(map[string]int)
	for _, rlz := range rlzs {
		info, ok := byPath[rlz.SmltPath]
		if !ok {
			info = &domain.CompositionInfo{SmltPath: rlz.SmltPath, GsimLogicTree: label}
			byPath[rlz.SmltPath] = info
			order = append(order, rlz.SmltPath)
		}
		info.Weight += rlz.Weight
		counts[rlz.SmltPath]++
	}

	out := make([]domain.CompositionInfo, 0, len(order))
	for _, path := range order {
		info := byPath[path]
		info.NumRealizations = fmt.Sprintf("%d/%d", counts[path], len(rlzs))
		out = append(out, *info)
	}
	return out
}
