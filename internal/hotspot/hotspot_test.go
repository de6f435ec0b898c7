package hotspot

import (
	"math/rand/v2"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openspatial/spatial-cli/internal/model"
	"github.com/openspatial/spatial-cli/internal/weights"
)

// grid returns size x size points in row-major order. Longitude spacing is
// smaller in meters than latitude spacing at this latitude, so k=4 nearest
// neighbors reproduce rook contiguity.
func grid(size int) []model.Point {
	pts := make([]model.Point, 0, size*size)
	for row := 0; row < size; row++ {
		for col := 0; col < size; col++ {
			pts = append(pts, model.Point{
				Lon: float64(col) * 0.05,
				Lat: 50 + float64(row)*0.05,
			})
		}
	}
	return pts
}

func rookWeights(t *testing.T, size int) *weights.Matrix {
	t.Helper()
	w, err := weights.KNN(grid(size), 4)
	require.NoError(t, err)
	w.RowStandardize()
	return w
}

func TestGlobalMoranCheckerboard(t *testing.T) {
	const size = 8
	w := rookWeights(t, size)

	values := make([]float64, size*size)
	for row := 0; row < size; row++ {
		for col := 0; col < size; col++ {
			if (row+col)%2 == 0 {
				values[row*size+col] = 1
			}
		}
	}

	res, err := GlobalMoran(values, w, PermOptions{Seed: 2})
	require.NoError(t, err)
	assert.Less(t, res.I, -0.5, "checkerboard is negatively autocorrelated")
	assert.Less(t, res.PValue, 0.05)
	assert.InDelta(t, -1.0/63.0, res.Expected, 1e-9)
	assert.Equal(t, 999, res.Permutations)
}

func TestGlobalMoranGradient(t *testing.T) {
	const size = 8
	w := rookWeights(t, size)

	values := make([]float64, size*size)
	for row := 0; row < size; row++ {
		for col := 0; col < size; col++ {
			values[row*size+col] = float64(row + col)
		}
	}

	res, err := GlobalMoran(values, w, PermOptions{Seed: 2})
	require.NoError(t, err)
	assert.Greater(t, res.I, 0.5, "smooth gradient is positively autocorrelated")
	assert.Less(t, res.PValue, 0.05)
	assert.Greater(t, res.ZScore, 2.0)
}

func TestGlobalMoranDeterministic(t *testing.T) {
	w := rookWeights(t, 6)
	values := make([]float64, 36)
	for i := range values {
		values[i] = float64(i % 7)
	}

	a, err := GlobalMoran(values, w, PermOptions{Seed: 4})
	require.NoError(t, err)
	b, err := GlobalMoran(values, w, PermOptions{Seed: 4})
	require.NoError(t, err)
	assert.Equal(t, a.PValue, b.PValue)
	assert.Equal(t, a.I, b.I)
}

func TestGlobalMoranZeroVariance(t *testing.T) {
	w := rookWeights(t, 4)
	values := make([]float64, 16)
	_, err := GlobalMoran(values, w, PermOptions{})
	assert.Error(t, err)
}

func TestGlobalMoranInputValidation(t *testing.T) {
	w := rookWeights(t, 4)
	_, err := GlobalMoran([]float64{1, 2}, w, PermOptions{})
	assert.Error(t, err)

	_, err = GlobalMoran(nil, nil, PermOptions{})
	assert.Error(t, err)
}

// blockField returns a 6x6 field that is zero except a 2x2 high block in
// the southwest corner.
func blockField() []float64 {
	values := make([]float64, 36)
	for _, i := range []int{0, 1, 6, 7} {
		values[i] = 10
	}
	return values
}

func TestLocalMoranHighBlock(t *testing.T) {
	w := rookWeights(t, 6)

	res, err := LocalMoran(blockField(), w, 0.05, PermOptions{Seed: 3})
	require.NoError(t, err)
	require.Len(t, res.Locals, 36)

	// The corner of the high block is a significant HH observation.
	corner := res.Locals[0]
	assert.Greater(t, corner.I, 0.0)
	assert.LessOrEqual(t, corner.PValue, 0.05)
	assert.Equal(t, QuadrantHH, corner.Quadrant)

	assert.Greater(t, res.Significant, 0)
}

func TestLocalMoranDeterministic(t *testing.T) {
	w := rookWeights(t, 6)
	a, err := LocalMoran(blockField(), w, 0.05, PermOptions{Seed: 5})
	require.NoError(t, err)
	b, err := LocalMoran(blockField(), w, 0.05, PermOptions{Seed: 5})
	require.NoError(t, err)
	assert.Equal(t, a.Locals, b.Locals)
}

func TestGetisOrdHighBlock(t *testing.T) {
	w := rookWeights(t, 6)

	res, err := GetisOrd(blockField(), w)
	require.NoError(t, err)
	require.Len(t, res.Stars, 36)

	// Block corner is a 99% hotspot; the far corner is not hot.
	assert.Equal(t, Hot99, res.Stars[0].Class)
	assert.Greater(t, res.Stars[0].Z, z99)
	assert.Less(t, res.Stars[35].Z, z90)

	assert.GreaterOrEqual(t, res.Hot, 4)
	assert.Zero(t, res.Cold)
}

func TestLocalMoranPermutationDrawsDistinct(t *testing.T) {
	rng := rand.New(rand.NewPCG(9, 9))
	idxs := make([]int, 10)
	for i := range idxs {
		idxs[i] = i
	}

	for trial := 0; trial < 200; trial++ {
		draw := drawDistinct(rng, idxs, 4)
		require.Len(t, draw, 4)
		seen := map[int]bool{}
		for _, v := range draw {
			assert.GreaterOrEqual(t, v, 0)
			assert.Less(t, v, 10)
			assert.False(t, seen[v], "draw repeated index %d", v)
			seen[v] = true
		}
	}

	// idxs must remain a permutation of its original contents.
	sorted := append([]int(nil), idxs...)
	sort.Ints(sorted)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, sorted)
}

// With the self-weight following the row scheme, Gi* z-scores are invariant
// to uniformly rescaling a row, so binary and row-standardized weights
// agree.
func TestGetisOrdRowSchemeInvariance(t *testing.T) {
	binary := rookWeights(t, 6)
	for i := range binary.Weights {
		for j := range binary.Weights[i] {
			binary.Weights[i][j] = 1
		}
	}
	standardized := rookWeights(t, 6)

	a, err := GetisOrd(blockField(), binary)
	require.NoError(t, err)
	b, err := GetisOrd(blockField(), standardized)
	require.NoError(t, err)

	require.Len(t, b.Stars, len(a.Stars))
	for i := range a.Stars {
		assert.InDelta(t, a.Stars[i].Z, b.Stars[i].Z, 1e-9, "observation %d", i)
	}
}

func TestGetisOrdClassifyThresholds(t *testing.T) {
	tests := []struct {
		name     string
		z        float64
		expected string
	}{
		{name: "extreme hot", z: 3.0, expected: Hot99},
		{name: "hot at 95", z: 2.0, expected: Hot95},
		{name: "hot at 90", z: 1.7, expected: Hot90},
		{name: "not significant", z: 0.3, expected: NotSig},
		{name: "cold at 90", z: -1.7, expected: Cold90},
		{name: "cold at 95", z: -2.0, expected: Cold95},
		{name: "extreme cold", z: -3.0, expected: Cold99},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, classify(tt.z))
		})
	}
}
