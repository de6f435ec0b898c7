package hotspot

import (
	"math/rand/v2"

	"github.com/openspatial/spatial-cli/internal/weights"
)

// Quadrant labels for significant local Moran observations.
const (
	QuadrantHH = "HH" // high value among high neighbors (hotspot)
	QuadrantLL = "LL" // low among low (coldspot)
	QuadrantHL = "HL" // high outlier among low neighbors
	QuadrantLH = "LH" // low outlier among high neighbors
	QuadrantNS = ""   // not significant
)

// LocalResult is the per-observation LISA output.
type LocalResult struct {
	I        float64 `json:"i"`
	PValue   float64 `json:"p_value"`
	Quadrant string  `json:"quadrant,omitempty"`
}

// LISAResult holds local Moran statistics for every observation.
type LISAResult struct {
	Locals       []LocalResult `json:"locals"`
	Alpha        float64       `json:"alpha"`
	Significant  int           `json:"significant"`
	Permutations int           `json:"permutations"`
}

// LocalMoran computes local Moran's I per observation with conditional
// permutation p-values. Observations with p <= alpha get a quadrant label
// (HH/LL/HL/LH); others are left unlabeled. Alpha defaults to 0.05.
func LocalMoran(values []float64, w *weights.Matrix, alpha float64, opts PermOptions) (*LISAResult, error) {
	if err := checkInputs(values, w); err != nil {
		return nil, err
	}
	opts.applyDefaults()
	if alpha <= 0 || alpha >= 1 {
		alpha = 0.05
	}

	n := len(values)
	mean := meanOf(values)
	z := make([]float64, n)
	var m2 float64
	for i, v := range values {
		z[i] = v - mean
		m2 += z[i] * z[i]
	}
	m2 /= float64(n)

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed))

	// Pool of deviations excluding the focal observation, reused per site.
	pool := make([]float64, 0, n-1)
	idxs := make([]int, n-1)
	for i := range idxs {
		idxs[i] = i
	}

	locals := make([]LocalResult, n)
	significant := 0
	for i := 0; i < n; i++ {
		lag := 0.0
		for j, nb := range w.Neighbors[i] {
			lag += w.Weights[i][j] * z[nb]
		}
		obs := z[i] / m2 * lag

		nNeighbors := len(w.Neighbors[i])
		if nNeighbors == 0 {
			// Island: no inference possible.
			locals[i] = LocalResult{I: 0, PValue: 1}
			continue
		}

		pool = pool[:0]
		for j := 0; j < n; j++ {
			if j != i {
				pool = append(pool, z[j])
			}
		}

		// Conditional permutation: redraw the neighbor set from the pool
		// without replacement, so a permuted neighborhood never counts the
		// same observation twice.
		extreme := 0
		for p := 0; p < opts.Permutations; p++ {
			draw := drawDistinct(rng, idxs, nNeighbors)
			var permLag float64
			for j := 0; j < nNeighbors; j++ {
				permLag += w.Weights[i][j] * pool[draw[j]]
			}
			sim := z[i] / m2 * permLag
			if obs >= 0 && sim >= obs {
				extreme++
			}
			if obs < 0 && sim <= obs {
				extreme++
			}
		}
		pValue := float64(extreme+1) / float64(opts.Permutations+1)

		quadrant := QuadrantNS
		if pValue <= alpha {
			significant++
			switch {
			case z[i] >= 0 && lag >= 0:
				quadrant = QuadrantHH
			case z[i] < 0 && lag < 0:
				quadrant = QuadrantLL
			case z[i] >= 0 && lag < 0:
				quadrant = QuadrantHL
			default:
				quadrant = QuadrantLH
			}
		}

		locals[i] = LocalResult{I: obs, PValue: pValue, Quadrant: quadrant}
	}

	return &LISAResult{
		Locals:       locals,
		Alpha:        alpha,
		Significant:  significant,
		Permutations: opts.Permutations,
	}, nil
}

// drawDistinct returns k distinct entries of idxs via a partial
// Fisher-Yates shuffle. idxs stays a permutation between calls, so no
// reset is needed.
func drawDistinct(rng *rand.Rand, idxs []int, k int) []int {
	for j := 0; j < k; j++ {
		swap := j + rng.IntN(len(idxs)-j)
		idxs[j], idxs[swap] = idxs[swap], idxs[j]
	}
	return idxs[:k]
}
