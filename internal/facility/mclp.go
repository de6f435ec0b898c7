package facility

import (
	"sort"

	"github.com/rotisserie/eris"
)

// MCLPResult holds a maximal covering solution for a fixed site budget.
type MCLPResult struct {
	SiteIndexes   []int    `json:"site_indexes"`
	SiteIDs       []string `json:"site_ids"`
	CoveredDemand int      `json:"covered_demand"`
	CoveredWeight float64  `json:"covered_weight"`
	TotalWeight   float64  `json:"total_weight"`
}

// SolveMCLP places at most p sites to maximize covered demand weight
// (greedy weighted gain; the classic approximation for maximal covering).
// Demand point weights default to 1 when unset.
func SolveMCLP(cov *Coverage, p int) (*MCLPResult, error) {
	if cov == nil {
		return nil, eris.New("facility: nil coverage")
	}
	if p < 1 {
		return nil, eris.Errorf("facility: p must be >= 1, got %d", p)
	}
	if p > len(cov.Candidates) {
		p = len(cov.Candidates)
	}

	wt := make([]float64, len(cov.Demand))
	var total float64
	for i, d := range cov.Demand {
		wt[i] = d.Weight
		if wt[i] == 0 {
			wt[i] = 1
		}
		total += wt[i]
	}

	covered := make([]bool, len(cov.Demand))
	var sites []int
	for len(sites) < p {
		best, bestGain := -1, 0.0
		for j := range cov.Candidates {
			if containsInt(sites, j) {
				continue
			}
			var gain float64
			for _, i := range cov.Covers[j] {
				if !covered[i] {
					gain += wt[i]
				}
			}
			if gain > bestGain {
				best, bestGain = j, gain
			}
		}
		if best < 0 {
			// Remaining candidates add nothing.
			break
		}
		sites = append(sites, best)
		for _, i := range cov.Covers[best] {
			covered[i] = true
		}
	}

	sort.Ints(sites)
	ids := make([]string, len(sites))
	for i, j := range sites {
		ids[i] = cov.Candidates[j].ID
	}

	var coveredN int
	var coveredW float64
	for i, c := range covered {
		if c {
			coveredN++
			coveredW += wt[i]
		}
	}

	return &MCLPResult{
		SiteIndexes:   sites,
		SiteIDs:       ids,
		CoveredDemand: coveredN,
		CoveredWeight: coveredW,
		TotalWeight:   total,
	}, nil
}

func containsInt(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
