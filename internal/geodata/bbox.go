package geodata

import (
	"github.com/rotisserie/eris"

	"github.com/openspatial/spatial-cli/internal/model"
)

// BBoxOf computes the bounding box of a point set.
func BBoxOf(points []model.Point) (model.BBox, error) {
	if len(points) == 0 {
		return model.BBox{}, eris.New("geodata: bbox of empty point set")
	}
	b := model.BBox{
		MinLon: points[0].Lon, MaxLon: points[0].Lon,
		MinLat: points[0].Lat, MaxLat: points[0].Lat,
	}
	for _, p := range points[1:] {
		if p.Lon < b.MinLon {
			b.MinLon = p.Lon
		}
		if p.Lon > b.MaxLon {
			b.MaxLon = p.Lon
		}
		if p.Lat < b.MinLat {
			b.MinLat = p.Lat
		}
		if p.Lat > b.MaxLat {
			b.MaxLat = p.Lat
		}
	}
	return b, nil
}

// Centroid returns the unweighted mean coordinate of a point set.
func Centroid(points []model.Point) (lon, lat float64, err error) {
	if len(points) == 0 {
		return 0, 0, eris.New("geodata: centroid of empty point set")
	}
	for _, p := range points {
		lon += p.Lon
		lat += p.Lat
	}
	n := float64(len(points))
	return lon / n, lat / n, nil
}

// MeanLat returns the mean latitude of a point set, used as the reference
// latitude for equirectangular projection. Returns 0 for empty input.
func MeanLat(points []model.Point) float64 {
	if len(points) == 0 {
		return 0
	}
	var sum float64
	for _, p := range points {
		sum += p.Lat
	}
	return sum / float64(len(points))
}
