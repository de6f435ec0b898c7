// Package geodata provides the shared geometry math used by the analysis
// packages: great-circle distances, bounding boxes, centroids, convex
// hulls, and EWKB encoding for the PostGIS store.
package geodata

import "math"

// EarthRadiusMeters is the mean earth radius used for haversine distances.
const EarthRadiusMeters = 6371008.8

// MetersPerDegreeLat is the approximate north-south extent of one degree
// of latitude, used for equirectangular projection.
const MetersPerDegreeLat = 111320.0

// Haversine returns the great-circle distance in meters between two
// WGS84 coordinates.
func Haversine(lon1, lat1, lon2, lat2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLam := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLam/2)*math.Sin(dLam/2)
	return 2 * EarthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(a)))
}

// Euclidean returns the planar distance between two coordinates, treating
// lon/lat as plain x/y. Used for already-projected data.
func Euclidean(x1, y1, x2, y2 float64) float64 {
	dx := x2 - x1
	dy := y2 - y1
	return math.Sqrt(dx*dx + dy*dy)
}

// Project maps a lon/lat coordinate to approximate meters using an
// equirectangular projection about refLat. Good to well under 1% for
// regional extents, which is the scale every analysis here operates at.
func Project(lon, lat, refLat float64) (x, y float64) {
	kx := MetersPerDegreeLat * math.Cos(refLat*math.Pi/180)
	return lon * kx, lat * MetersPerDegreeLat
}

// SphereXYZ maps a WGS84 coordinate to a 3D point on the earth sphere in
// meters. Straight-line (chord) distance between two such points is
// monotonic with great-circle distance, so exact nearest-neighbor search
// can run in chord space and convert afterwards.
func SphereXYZ(lon, lat float64) (x, y, z float64) {
	phi := lat * math.Pi / 180
	lam := lon * math.Pi / 180
	cosPhi := math.Cos(phi)
	return EarthRadiusMeters * cosPhi * math.Cos(lam),
		EarthRadiusMeters * cosPhi * math.Sin(lam),
		EarthRadiusMeters * math.Sin(phi)
}

// ChordToArc converts a chord length between two sphere points to the
// great-circle distance in meters.
func ChordToArc(chord float64) float64 {
	half := chord / (2 * EarthRadiusMeters)
	if half > 1 {
		half = 1
	}
	return 2 * EarthRadiusMeters * math.Asin(half)
}

// ArcToChord converts a great-circle distance in meters to the chord
// length between the two sphere points. Arcs beyond half the globe clamp
// to the maximum chord.
func ArcToChord(arc float64) float64 {
	half := arc / (2 * EarthRadiusMeters)
	if half > math.Pi/2 {
		half = math.Pi / 2
	}
	return 2 * EarthRadiusMeters * math.Sin(half)
}
