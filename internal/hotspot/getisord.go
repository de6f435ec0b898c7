package hotspot

import (
	"math"

	"github.com/openspatial/spatial-cli/internal/weights"
)

// Hot/cold classification labels for Gi* z-scores.
const (
	Hot99  = "hot_99"
	Hot95  = "hot_95"
	Hot90  = "hot_90"
	Cold90 = "cold_90"
	Cold95 = "cold_95"
	Cold99 = "cold_99"
	NotSig = "not_significant"
)

// Critical z values for two-sided 90/95/99% confidence.
const (
	z90 = 1.645
	z95 = 1.960
	z99 = 2.576
)

// GiStar is the per-observation Getis-Ord output.
type GiStar struct {
	Z     float64 `json:"z"`
	Class string  `json:"class"`
}

// GiResult holds Gi* statistics for every observation.
type GiResult struct {
	Stars []GiStar `json:"stars"`
	Hot   int      `json:"hot"`
	Cold  int      `json:"cold"`
}

// GetisOrd computes the Gi* statistic per observation: the focal point is
// included in its own neighborhood, and the z-score measures how much the
// local sum deviates from its expectation under spatial randomness.
func GetisOrd(values []float64, w *weights.Matrix) (*GiResult, error) {
	if err := checkInputs(values, w); err != nil {
		return nil, err
	}

	n := float64(len(values))
	mean := meanOf(values)

	var sq float64
	for _, v := range values {
		sq += v * v
	}
	s := math.Sqrt(sq/n - mean*mean)

	stars := make([]GiStar, len(values))
	var hot, cold int
	for i := range values {
		// Gi* includes the focal observation in its own neighborhood. The
		// self-weight follows the row's scheme (1 for binary rows, 1/k for
		// row-standardized ones), so the focal value carries the same mass
		// as a neighbor.
		selfW := 1.0
		if len(w.Weights[i]) > 0 {
			var rowSum float64
			for _, wij := range w.Weights[i] {
				rowSum += wij
			}
			selfW = rowSum / float64(len(w.Weights[i]))
		}

		sumW := selfW
		sumW2 := selfW * selfW
		local := selfW * values[i]
		for j, nb := range w.Neighbors[i] {
			wij := w.Weights[i][j]
			sumW += wij
			sumW2 += wij * wij
			local += wij * values[nb]
		}

		denom := s * math.Sqrt((n*sumW2-sumW*sumW)/(n-1))
		z := 0.0
		if denom > 0 {
			z = (local - mean*sumW) / denom
		}

		class := classify(z)
		switch class {
		case Hot90, Hot95, Hot99:
			hot++
		case Cold90, Cold95, Cold99:
			cold++
		}
		stars[i] = GiStar{Z: z, Class: class}
	}

	return &GiResult{Stars: stars, Hot: hot, Cold: cold}, nil
}

func classify(z float64) string {
	switch {
	case z >= z99:
		return Hot99
	case z >= z95:
		return Hot95
	case z >= z90:
		return Hot90
	case z <= -z99:
		return Cold99
	case z <= -z95:
		return Cold95
	case z <= -z90:
		return Cold90
	default:
		return NotSig
	}
}
