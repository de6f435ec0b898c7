package network

import (
	"sort"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/openspatial/spatial-cli/internal/geodata"
)

// Band is one isochrone: the area reachable within Cutoff seconds,
// approximated by the convex hull of the reached nodes.
type Band struct {
	CutoffSeconds float64
	Nodes         int
	Polygon       *geom.Polygon
}

// Isochrones computes reachability bands from a source node for each
// cutoff. Cutoffs are processed in ascending order; a cutoff reaching
// fewer than three distinct node positions is an error (no polygon
// exists).
func (g *Graph) Isochrones(source string, cutoffs []float64) ([]Band, error) {
	if len(cutoffs) == 0 {
		return nil, eris.New("network: no isochrone cutoffs")
	}
	for _, c := range cutoffs {
		if c <= 0 {
			return nil, eris.Errorf("network: cutoff must be positive, got %g", c)
		}
	}

	dist, err := g.ShortestPaths(source)
	if err != nil {
		return nil, err
	}

	sorted := append([]float64(nil), cutoffs...)
	sort.Float64s(sorted)

	bands := make([]Band, 0, len(sorted))
	for _, cutoff := range sorted {
		var coords []geodata.Coord
		var reached int
		for id, d := range dist {
			if d <= cutoff {
				n := g.Nodes[id]
				coords = append(coords, geodata.Coord{Lon: n.Lon, Lat: n.Lat})
				reached++
			}
		}

		poly, err := geodata.HullPolygon(coords)
		if err != nil {
			return nil, eris.Wrapf(err, "network: isochrone at %gs reaches %d nodes", cutoff, reached)
		}
		bands = append(bands, Band{CutoffSeconds: cutoff, Nodes: reached, Polygon: poly})
	}
	return bands, nil
}

// BandsGeoJSON encodes isochrone bands as a GeoJSON FeatureCollection,
// one polygon feature per band.
func BandsGeoJSON(bands []Band) ([]byte, error) {
	fc := &geojson.FeatureCollection{}
	for _, b := range bands {
		fc.Features = append(fc.Features, &geojson.Feature{
			Geometry: b.Polygon,
			Properties: map[string]any{
				"cutoff_seconds": b.CutoffSeconds,
				"nodes":          b.Nodes,
			},
		})
	}
	data, err := fc.MarshalJSON()
	if err != nil {
		return nil, eris.Wrap(err, "network: encode isochrones")
	}
	return data, nil
}
