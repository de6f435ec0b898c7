// Package facility implements facility-location coverage models: the
// location set covering problem (LSCP) and the maximal covering location
// problem (MCLP) over a demand/candidate coverage matrix.
package facility

import (
	"github.com/rotisserie/eris"

	"github.com/openspatial/spatial-cli/internal/geodata"
	"github.com/openspatial/spatial-cli/internal/model"
)

// Candidate is a potential facility site.
type Candidate struct {
	ID  string  `json:"id"`
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// Coverage is the demand/candidate incidence structure for a service
// radius: which candidates cover which demand points and vice versa.
type Coverage struct {
	Demand       []model.Point
	Candidates   []Candidate
	RadiusMeters float64

	// CoveredBy[i] lists candidate indices covering demand i.
	CoveredBy [][]int

	// Covers[j] lists demand indices covered by candidate j.
	Covers [][]int
}

// BuildCoverage computes the coverage matrix: candidate j covers demand i
// when their great-circle distance is at most the service radius.
func BuildCoverage(demand []model.Point, candidates []Candidate, radiusMeters float64) (*Coverage, error) {
	if len(demand) == 0 {
		return nil, eris.New("facility: no demand points")
	}
	if len(candidates) == 0 {
		return nil, eris.New("facility: no candidate sites")
	}
	if radiusMeters <= 0 {
		return nil, eris.Errorf("facility: service radius must be positive, got %g", radiusMeters)
	}

	cov := &Coverage{
		Demand:       demand,
		Candidates:   candidates,
		RadiusMeters: radiusMeters,
		CoveredBy:    make([][]int, len(demand)),
		Covers:       make([][]int, len(candidates)),
	}

	for j, c := range candidates {
		for i, d := range demand {
			if geodata.Haversine(c.Lon, c.Lat, d.Lon, d.Lat) <= radiusMeters {
				cov.Covers[j] = append(cov.Covers[j], i)
				cov.CoveredBy[i] = append(cov.CoveredBy[i], j)
			}
		}
	}
	return cov, nil
}

// Uncoverable returns the IDs of demand points no candidate can reach.
func (c *Coverage) Uncoverable() []string {
	var out []string
	for i, covers := range c.CoveredBy {
		if len(covers) == 0 {
			out = append(out, c.Demand[i].ID)
		}
	}
	return out
}
