package cluster

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openspatial/spatial-cli/internal/model"
)

// blob generates n points normally scattered around a center.
func blob(rng *rand.Rand, lon, lat, sigma float64, n int) []model.Point {
	pts := make([]model.Point, n)
	for i := range pts {
		pts[i] = model.Point{
			Lon: lon + rng.NormFloat64()*sigma,
			Lat: lat + rng.NormFloat64()*sigma,
		}
	}
	return pts
}

func twoBlobs() []model.Point {
	rng := rand.New(rand.NewPCG(42, 42))
	pts := blob(rng, -0.5, 51.2, 0.01, 60)
	return append(pts, blob(rng, 0.8, 52.0, 0.01, 60)...)
}

func TestKMeansSeparatesBlobs(t *testing.T) {
	pts := twoBlobs()
	res, err := KMeans(pts, KMeansOptions{K: 2, Seed: 3})
	require.NoError(t, err)
	require.Len(t, res.Labels, len(pts))
	require.Len(t, res.Centroids, 2)

	// All points within a blob share a label, and the blobs differ.
	first := res.Labels[0]
	for i := 1; i < 60; i++ {
		assert.Equal(t, first, res.Labels[i])
	}
	second := res.Labels[60]
	assert.NotEqual(t, first, second)
	for i := 61; i < 120; i++ {
		assert.Equal(t, second, res.Labels[i])
	}

	assert.Equal(t, 60, res.Centroids[0].Size)
	assert.Equal(t, 60, res.Centroids[1].Size)
	assert.Greater(t, res.Iterations, 0)
	assert.Greater(t, res.Inertia, 0.0)
}

func TestKMeansDeterministic(t *testing.T) {
	pts := twoBlobs()
	a, err := KMeans(pts, KMeansOptions{K: 3, Seed: 9})
	require.NoError(t, err)
	b, err := KMeans(pts, KMeansOptions{K: 3, Seed: 9})
	require.NoError(t, err)
	assert.Equal(t, a.Labels, b.Labels)
	assert.InDelta(t, a.Inertia, b.Inertia, 1e-9)
}

func TestKMeansKEqualsN(t *testing.T) {
	pts := []model.Point{
		{Lon: 0, Lat: 0}, {Lon: 1, Lat: 1}, {Lon: 2, Lat: 2},
	}
	res, err := KMeans(pts, KMeansOptions{K: 3})
	require.NoError(t, err)
	// Every point its own cluster: inertia collapses to zero.
	assert.InDelta(t, 0, res.Inertia, 1e-9)
}

func TestKMeansValidation(t *testing.T) {
	pts := twoBlobs()

	_, err := KMeans(nil, KMeansOptions{K: 2})
	assert.Error(t, err)

	_, err = KMeans(pts, KMeansOptions{K: 0})
	assert.Error(t, err)

	_, err = KMeans(pts, KMeansOptions{K: len(pts) + 1})
	assert.Error(t, err)
}

func TestKMeansProjected(t *testing.T) {
	pts := twoBlobs()
	res, err := KMeans(pts, KMeansOptions{K: 2, Seed: 3, Projected: true})
	require.NoError(t, err)

	// Centroids must come back in lon/lat space near the blob centers.
	var lons []float64
	for _, c := range res.Centroids {
		lons = append(lons, c.Lon)
	}
	assert.InDelta(t, -0.5, min(lons[0], lons[1]), 0.05)
	assert.InDelta(t, 0.8, max(lons[0], lons[1]), 0.05)
}
