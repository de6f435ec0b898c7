// Package hotspot implements spatial autocorrelation statistics: global
// Moran's I, local Moran (LISA), and Getis-Ord Gi*. Inference uses seeded
// permutation tests so published runs reproduce.
package hotspot

import (
	"math"
	"math/rand/v2"

	"github.com/rotisserie/eris"

	"github.com/openspatial/spatial-cli/internal/weights"
)

// PermOptions configures permutation inference.
type PermOptions struct {
	// Permutations is the number of random permutations. Default: 999.
	Permutations int

	// Seed drives the permutation RNG. Default: 1.
	Seed uint64
}

func (o *PermOptions) applyDefaults() {
	if o.Permutations <= 0 {
		o.Permutations = 999
	}
	if o.Seed == 0 {
		o.Seed = 1
	}
}

// GlobalResult holds global Moran's I with its permutation inference.
type GlobalResult struct {
	I            float64 `json:"i"`
	Expected     float64 `json:"expected"`
	PValue       float64 `json:"p_value"`
	ZScore       float64 `json:"z_score"`
	Permutations int     `json:"permutations"`
}

// GlobalMoran computes global Moran's I for values under the weights
// matrix w. The p-value is the one-sided pseudo p from permutation,
// testing in the direction of the observed deviation from E[I].
func GlobalMoran(values []float64, w *weights.Matrix, opts PermOptions) (*GlobalResult, error) {
	if err := checkInputs(values, w); err != nil {
		return nil, err
	}
	opts.applyDefaults()

	obs, err := moranStat(values, w)
	if err != nil {
		return nil, err
	}

	n := float64(len(values))
	expected := -1 / (n - 1)

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed))
	perm := make([]float64, len(values))
	copy(perm, values)

	sims := make([]float64, opts.Permutations)
	extreme := 0
	for p := 0; p < opts.Permutations; p++ {
		rng.Shuffle(len(perm), func(i, j int) { perm[i], perm[j] = perm[j], perm[i] })
		sim, err := moranStat(perm, w)
		if err != nil {
			return nil, err
		}
		sims[p] = sim
		if obs >= expected && sim >= obs {
			extreme++
		}
		if obs < expected && sim <= obs {
			extreme++
		}
	}

	pValue := float64(extreme+1) / float64(opts.Permutations+1)

	var mean, sd float64
	for _, s := range sims {
		mean += s
	}
	mean /= float64(len(sims))
	for _, s := range sims {
		sd += (s - mean) * (s - mean)
	}
	sd = math.Sqrt(sd / float64(len(sims)))

	z := 0.0
	if sd > 0 {
		z = (obs - mean) / sd
	}

	return &GlobalResult{
		I:            obs,
		Expected:     expected,
		PValue:       pValue,
		ZScore:       z,
		Permutations: opts.Permutations,
	}, nil
}

// moranStat computes the raw Moran's I statistic.
func moranStat(values []float64, w *weights.Matrix) (float64, error) {
	n := float64(len(values))
	mean := meanOf(values)

	z := make([]float64, len(values))
	var m2 float64
	for i, v := range values {
		z[i] = v - mean
		m2 += z[i] * z[i]
	}
	if m2 == 0 {
		return 0, eris.New("hotspot: variable has zero variance")
	}

	var num float64
	for i := range w.Neighbors {
		for j, nb := range w.Neighbors[i] {
			num += w.Weights[i][j] * z[i] * z[nb]
		}
	}

	s0 := w.S0()
	if s0 == 0 {
		return 0, eris.New("hotspot: weights matrix has no connections")
	}
	return (n / s0) * (num / m2), nil
}

func checkInputs(values []float64, w *weights.Matrix) error {
	if w == nil {
		return eris.New("hotspot: nil weights matrix")
	}
	if len(values) != w.N {
		return eris.Errorf("hotspot: %d values for %d observations", len(values), w.N)
	}
	if len(values) < 3 {
		return eris.Errorf("hotspot: need at least 3 observations, got %d", len(values))
	}
	return nil
}

func meanOf(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
