package weights

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openspatial/spatial-cli/internal/model"
)

// line returns points evenly spaced along a parallel, ~7.2km apart
// (0.1 deg of longitude at latitude 50).
func line(n int) []model.Point {
	pts := make([]model.Point, n)
	for i := range pts {
		pts[i] = model.Point{Lon: float64(i) * 0.1, Lat: 50}
	}
	return pts
}

func TestKNNWeights(t *testing.T) {
	m, err := KNN(line(5), 2)
	require.NoError(t, err)
	assert.Equal(t, 5, m.N)

	for i := 0; i < 5; i++ {
		assert.Len(t, m.Neighbors[i], 2, "row %d", i)
	}
	// Endpoint neighbors are the two nearest along the line.
	assert.ElementsMatch(t, []int{1, 2}, m.Neighbors[0])
	assert.ElementsMatch(t, []int{1, 3}, m.Neighbors[2])
	assert.Empty(t, m.Islands())
}

func TestKNNValidation(t *testing.T) {
	_, err := KNN(line(1), 1)
	assert.Error(t, err)
	_, err = KNN(line(5), 0)
	assert.Error(t, err)
	_, err = KNN(line(5), 5)
	assert.Error(t, err)
}

func TestDistanceBand(t *testing.T) {
	// ~7.2km spacing; a 5km band keeps everyone islanded, a 10km band
	// chains immediate neighbors.
	pts := line(4)

	m, err := DistanceBand(pts, 5_000)
	require.NoError(t, err)
	assert.Len(t, m.Islands(), 4)

	m, err = DistanceBand(pts, 10_000)
	require.NoError(t, err)
	assert.Empty(t, m.Islands())
	assert.ElementsMatch(t, []int{1}, m.Neighbors[0])
	assert.ElementsMatch(t, []int{0, 2}, m.Neighbors[1])
}

func TestRowStandardize(t *testing.T) {
	m, err := DistanceBand(line(4), 10_000)
	require.NoError(t, err)
	m.RowStandardize()

	for i := range m.Weights {
		var sum float64
		for _, w := range m.Weights[i] {
			sum += w
		}
		assert.InDelta(t, 1.0, sum, 1e-9, "row %d", i)
	}
	assert.InDelta(t, 4.0, m.S0(), 1e-9)
}

func TestLag(t *testing.T) {
	m, err := DistanceBand(line(3), 10_000)
	require.NoError(t, err)
	m.RowStandardize()

	lag, err := m.Lag([]float64{10, 20, 30})
	require.NoError(t, err)
	// Middle point averages its two neighbors.
	assert.InDelta(t, 20.0, lag[1], 1e-9)
	assert.InDelta(t, 20.0, lag[0], 1e-9)

	_, err = m.Lag([]float64{1, 2})
	assert.Error(t, err)
}
