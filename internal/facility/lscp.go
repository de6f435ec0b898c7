package facility

import (
	"math/bits"
	"sort"

	"github.com/rotisserie/eris"
)

// exactThreshold is the candidate-count ceiling for the exhaustive
// branch-and-bound pass after reduction. Above it the greedy cover stands.
const exactThreshold = 22

// LSCPResult holds a location set covering solution.
type LSCPResult struct {
	SiteIndexes []int    `json:"site_indexes"`
	SiteIDs     []string `json:"site_ids"`

	// Optimal reports whether the solution is provably minimal (small
	// reduced instances) or a greedy cover.
	Optimal bool `json:"optimal"`
}

// SolveLSCP finds a minimal (or near-minimal) set of candidate sites
// covering every demand point. Mandatory sites (sole coverers of some
// demand) are fixed first, dominated candidates discarded, then the
// residual cover is solved exactly when small enough and greedily
// otherwise. A demand point with no covering candidate is an error.
func SolveLSCP(cov *Coverage) (*LSCPResult, error) {
	if cov == nil {
		return nil, eris.New("facility: nil coverage")
	}
	if un := cov.Uncoverable(); len(un) > 0 {
		return nil, eris.Errorf("facility: demand %q cannot be covered by any candidate at radius %gm", un[0], cov.RadiusMeters)
	}

	nDemand := len(cov.Demand)
	covered := make([]bool, nDemand)
	chosen := map[int]bool{}

	// Mandatory columns: a demand with a single coverer fixes that site.
	for _, coverers := range cov.CoveredBy {
		if len(coverers) == 1 {
			chosen[coverers[0]] = true
		}
	}
	for j := range chosen {
		for _, i := range cov.Covers[j] {
			covered[i] = true
		}
	}

	// Residual demand and useful candidates.
	var residual []int
	for i, c := range covered {
		if !c {
			residual = append(residual, i)
		}
	}

	if len(residual) == 0 {
		return result(cov, keys(chosen), true), nil
	}

	residualPos := make(map[int]int, len(residual))
	for pos, i := range residual {
		residualPos[i] = pos
	}

	// Candidate masks over residual demand, dominated candidates dropped.
	type cand struct {
		idx  int
		mask uint64
	}
	var cands []cand
	if len(residual) <= 64 {
		for j := range cov.Candidates {
			if chosen[j] {
				continue
			}
			var mask uint64
			for _, i := range cov.Covers[j] {
				if pos, ok := residualPos[i]; ok {
					mask |= 1 << uint(pos)
				}
			}
			if mask != 0 {
				cands = append(cands, cand{idx: j, mask: mask})
			}
		}

		// Drop candidates whose coverage is a subset of another's.
		kept := cands[:0]
		for a := range cands {
			dominated := false
			for b := range cands {
				if a == b {
					continue
				}
				if cands[a].mask&^cands[b].mask == 0 &&
					(cands[a].mask != cands[b].mask || b < a) {
					dominated = true
					break
				}
			}
			if !dominated {
				kept = append(kept, cands[a])
			}
		}
		cands = kept

		if len(cands) <= exactThreshold {
			full := uint64(1)<<uint(len(residual)) - 1
			masks := make([]uint64, len(cands))
			for i, c := range cands {
				masks[i] = c.mask
			}
			best := exactCover(masks, full)
			if best != nil {
				for _, pos := range best {
					chosen[cands[pos].idx] = true
				}
				return result(cov, keys(chosen), true), nil
			}
		}
	}

	// Greedy fallback: repeatedly take the candidate covering the most
	// uncovered demand.
	for {
		var uncovered int
		for _, i := range residual {
			if !covered[i] {
				uncovered++
			}
		}
		if uncovered == 0 {
			break
		}

		best, bestGain := -1, 0
		for j := range cov.Candidates {
			if chosen[j] {
				continue
			}
			gain := 0
			for _, i := range cov.Covers[j] {
				if !covered[i] {
					gain++
				}
			}
			if gain > bestGain {
				best, bestGain = j, gain
			}
		}
		if best < 0 {
			// Unreachable given the Uncoverable check, kept as a guard.
			return nil, eris.New("facility: greedy cover stalled")
		}
		chosen[best] = true
		for _, i := range cov.Covers[best] {
			covered[i] = true
		}
	}

	return result(cov, keys(chosen), false), nil
}

// exactCover finds a minimum subset of masks whose union is full, via
// depth-first branch and bound on the lowest uncovered bit.
func exactCover(masks []uint64, full uint64) []int {
	var best []int

	coverersOf := func(bit uint64) []int {
		var out []int
		for i, m := range masks {
			if m&bit != 0 {
				out = append(out, i)
			}
		}
		return out
	}

	var dfs func(covered uint64, picked []int)
	dfs = func(covered uint64, picked []int) {
		if covered == full {
			if best == nil || len(picked) < len(best) {
				best = append([]int(nil), picked...)
			}
			return
		}
		if best != nil && len(picked)+1 >= len(best) {
			// Even one more pick cannot beat the incumbent unless it
			// finishes the cover; the bound below handles that case.
			remaining := bits.OnesCount64(full &^ covered)
			maxCover := 0
			for _, m := range masks {
				if c := bits.OnesCount64(m &^ covered); c > maxCover {
					maxCover = c
				}
			}
			if maxCover < remaining {
				return
			}
		}

		// Branch on the lowest uncovered demand.
		bit := (full &^ covered) & -(full &^ covered)
		for _, i := range coverersOf(bit) {
			if best != nil && len(picked)+1 >= len(best) && covered|masks[i] != full {
				continue
			}
			dfs(covered|masks[i], append(picked, i))
		}
	}

	dfs(0, nil)
	return best
}

func result(cov *Coverage, sites []int, optimal bool) *LSCPResult {
	sort.Ints(sites)
	ids := make([]string, len(sites))
	for i, j := range sites {
		ids[i] = cov.Candidates[j].ID
	}
	return &LSCPResult{SiteIndexes: sites, SiteIDs: ids, Optimal: optimal}
}

func keys(set map[int]bool) []int {
	out := make([]int, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}
