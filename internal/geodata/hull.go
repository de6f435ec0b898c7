package geodata

import (
	"sort"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// Coord is a lon/lat pair.
type Coord struct {
	Lon float64
	Lat float64
}

// ConvexHull computes the convex hull of a coordinate set using the
// Andrew monotone chain algorithm. The hull is returned in counterclockwise
// order without a closing duplicate. Degenerate inputs (fewer than three
// distinct coordinates) are an error.
func ConvexHull(coords []Coord) ([]Coord, error) {
	pts := dedupe(coords)
	if len(pts) < 3 {
		return nil, eris.Errorf("geodata: convex hull needs at least 3 distinct points, got %d", len(pts))
	}

	sort.Slice(pts, func(i, j int) bool {
		if pts[i].Lon != pts[j].Lon {
			return pts[i].Lon < pts[j].Lon
		}
		return pts[i].Lat < pts[j].Lat
	})

	var lower []Coord
	for _, p := range pts {
		for len(lower) >= 2 && cross(lower[len(lower)-2], lower[len(lower)-1], p) <= 0 {
			lower = lower[:len(lower)-1]
		}
		lower = append(lower, p)
	}

	var upper []Coord
	for i := len(pts) - 1; i >= 0; i-- {
		p := pts[i]
		for len(upper) >= 2 && cross(upper[len(upper)-2], upper[len(upper)-1], p) <= 0 {
			upper = upper[:len(upper)-1]
		}
		upper = append(upper, p)
	}

	hull := append(lower[:len(lower)-1], upper[:len(upper)-1]...)
	if len(hull) < 3 {
		return nil, eris.New("geodata: collinear input has no polygonal hull")
	}
	return hull, nil
}

// HullPolygon computes the convex hull and returns it as a closed go-geom
// polygon with SRID 4326, ready for GeoJSON or EWKB encoding.
func HullPolygon(coords []Coord) (*geom.Polygon, error) {
	hull, err := ConvexHull(coords)
	if err != nil {
		return nil, err
	}

	flat := make([]float64, 0, (len(hull)+1)*2)
	for _, c := range hull {
		flat = append(flat, c.Lon, c.Lat)
	}
	// Close the ring.
	flat = append(flat, hull[0].Lon, hull[0].Lat)

	poly := geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)}).SetSRID(4326)
	return poly, nil
}

func cross(o, a, b Coord) float64 {
	return (a.Lon-o.Lon)*(b.Lat-o.Lat) - (a.Lat-o.Lat)*(b.Lon-o.Lon)
}

func dedupe(coords []Coord) []Coord {
	seen := make(map[Coord]bool, len(coords))
	out := make([]Coord, 0, len(coords))
	for _, c := range coords {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}
