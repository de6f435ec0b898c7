// Package weights builds spatial weights matrices for the hotspot
// statistics: k-nearest and distance-band neighborhoods with optional row
// standardization.
package weights

import (
	"github.com/rotisserie/eris"

	"github.com/openspatial/spatial-cli/internal/knnindex"
	"github.com/openspatial/spatial-cli/internal/model"
)

// Matrix is a sparse spatial weights matrix: per observation, its
// neighbor indices and weights.
type Matrix struct {
	N         int
	Neighbors [][]int
	Weights   [][]float64
}

// KNN builds a binary k-nearest-neighbor weights matrix. Self-neighbors
// are excluded.
func KNN(points []model.Point, k int) (*Matrix, error) {
	if len(points) < 2 {
		return nil, eris.Errorf("weights: need at least 2 points, got %d", len(points))
	}
	if k < 1 {
		return nil, eris.Errorf("weights: k must be >= 1, got %d", k)
	}
	if k >= len(points) {
		return nil, eris.Errorf("weights: k=%d must be below point count %d", k, len(points))
	}

	idx, err := knnindex.Build(points, knnindex.MetricGeographic)
	if err != nil {
		return nil, err
	}

	m := newMatrix(len(points))
	for i, p := range points {
		// k+1 because the query point finds itself at distance zero.
		neighbors, err := idx.Nearest(p.Lon, p.Lat, k+1)
		if err != nil {
			return nil, err
		}
		for _, nb := range neighbors {
			if nb.Idx == i {
				continue
			}
			if len(m.Neighbors[i]) == k {
				break
			}
			m.Neighbors[i] = append(m.Neighbors[i], nb.Idx)
			m.Weights[i] = append(m.Weights[i], 1)
		}
	}
	return m, nil
}

// DistanceBand builds a binary weights matrix connecting observations
// within the given distance in meters. Observations with no neighbor in
// range become islands (see Islands).
func DistanceBand(points []model.Point, meters float64) (*Matrix, error) {
	if len(points) < 2 {
		return nil, eris.Errorf("weights: need at least 2 points, got %d", len(points))
	}
	if meters <= 0 {
		return nil, eris.Errorf("weights: band distance must be positive, got %g", meters)
	}

	idx, err := knnindex.Build(points, knnindex.MetricGeographic)
	if err != nil {
		return nil, err
	}

	m := newMatrix(len(points))
	for i, p := range points {
		neighbors, err := idx.Within(p.Lon, p.Lat, meters)
		if err != nil {
			return nil, err
		}
		for _, nb := range neighbors {
			if nb.Idx == i {
				continue
			}
			m.Neighbors[i] = append(m.Neighbors[i], nb.Idx)
			m.Weights[i] = append(m.Weights[i], 1)
		}
	}
	return m, nil
}

// RowStandardize scales each row to sum to one. Island rows are left
// untouched.
func (m *Matrix) RowStandardize() {
	for i := range m.Weights {
		var sum float64
		for _, w := range m.Weights[i] {
			sum += w
		}
		if sum == 0 {
			continue
		}
		for j := range m.Weights[i] {
			m.Weights[i][j] /= sum
		}
	}
}

// Islands returns the indices of observations with no neighbors.
func (m *Matrix) Islands() []int {
	var out []int
	for i, nbs := range m.Neighbors {
		if len(nbs) == 0 {
			out = append(out, i)
		}
	}
	return out
}

// S0 is the sum of all weights, a normalizing constant for Moran's I.
func (m *Matrix) S0() float64 {
	var s float64
	for i := range m.Weights {
		for _, w := range m.Weights[i] {
			s += w
		}
	}
	return s
}

// Lag computes the spatial lag of a variable: for each observation, the
// weighted sum of its neighbors' values.
func (m *Matrix) Lag(values []float64) ([]float64, error) {
	if len(values) != m.N {
		return nil, eris.Errorf("weights: %d values for %d observations", len(values), m.N)
	}
	out := make([]float64, m.N)
	for i := range m.Neighbors {
		for j, nb := range m.Neighbors[i] {
			out[i] += m.Weights[i][j] * values[nb]
		}
	}
	return out, nil
}

func newMatrix(n int) *Matrix {
	return &Matrix{
		N:         n,
		Neighbors: make([][]int, n),
		Weights:   make([][]float64, n),
	}
}
