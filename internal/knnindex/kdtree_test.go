package knnindex

import (
	"math/rand/v2"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openspatial/spatial-cli/internal/geodata"
	"github.com/openspatial/spatial-cli/internal/model"
)

func randomPoints(n int, seed uint64) []model.Point {
	rng := rand.New(rand.NewPCG(seed, seed))
	pts := make([]model.Point, n)
	for i := range pts {
		pts[i] = model.Point{
			Lon: rng.Float64()*2 - 1,
			Lat: 50 + rng.Float64(),
		}
	}
	return pts
}

// bruteNeighbors recomputes neighbors with a linear haversine scan.
func bruteNeighbors(pts []model.Point, lon, lat float64) []Neighbor {
	out := make([]Neighbor, len(pts))
	for i, p := range pts {
		out[i] = Neighbor{Idx: i, Dist: geodata.Haversine(lon, lat, p.Lon, p.Lat)}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Dist < out[j].Dist })
	return out
}

func TestBuildEmpty(t *testing.T) {
	_, err := Build(nil, MetricGeographic)
	assert.Error(t, err)
}

func TestNearestMatchesBruteForce(t *testing.T) {
	pts := randomPoints(300, 7)
	idx, err := Build(pts, MetricGeographic)
	require.NoError(t, err)

	for _, q := range []struct{ lon, lat float64 }{
		{0, 50.5}, {-0.9, 50.1}, {0.9, 50.9}, {2.0, 49.0},
	} {
		got, err := idx.Nearest(q.lon, q.lat, 10)
		require.NoError(t, err)
		require.Len(t, got, 10)

		want := bruteNeighbors(pts, q.lon, q.lat)[:10]
		for i := range got {
			assert.Equal(t, want[i].Idx, got[i].Idx, "neighbor rank %d", i)
			assert.InDelta(t, want[i].Dist, got[i].Dist, 1e-6)
		}
	}
}

// Distances must stay great-circle meters even when the indexed points span
// a wide latitude range, where a flat projection about the mean latitude is
// off by tens of percent.
func TestNearestWideLatitudeSpanIsHaversine(t *testing.T) {
	pts := []model.Point{
		{ID: "equator", Lon: 0, Lat: 0},
		{ID: "north", Lon: 10, Lat: 60},
		{ID: "mid", Lon: 5, Lat: 30},
	}
	idx, err := Build(pts, MetricGeographic)
	require.NoError(t, err)

	got, err := idx.Nearest(0.0001, 60, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].Idx)

	want := geodata.Haversine(0.0001, 60, 10, 60)
	assert.InDelta(t, want, got[0].Dist, want*1e-9)
	assert.InDelta(t, 555_000, got[0].Dist, 5_000)
}

func TestWithinWideLatitudeSpanIsHaversine(t *testing.T) {
	pts := []model.Point{
		{Lon: 0, Lat: 0},
		{Lon: 10, Lat: 60},
		{Lon: 11, Lat: 60},
		{Lon: 5, Lat: 30},
	}
	idx, err := Build(pts, MetricGeographic)
	require.NoError(t, err)

	// 600km catches both lat-60 points but nothing else.
	got, err := idx.Within(0.0001, 60, 600_000)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].Idx)
	assert.Equal(t, 2, got[1].Idx)
	for _, nb := range got {
		p := pts[nb.Idx]
		assert.InDelta(t, geodata.Haversine(0.0001, 60, p.Lon, p.Lat), nb.Dist, 1e-6)
	}
}

func TestNearestKLargerThanIndex(t *testing.T) {
	pts := randomPoints(5, 1)
	idx, err := Build(pts, MetricGeographic)
	require.NoError(t, err)

	got, err := idx.Nearest(0, 50.5, 50)
	require.NoError(t, err)
	assert.Len(t, got, 5)
}

func TestNearestInvalidK(t *testing.T) {
	idx, err := Build(randomPoints(5, 1), MetricGeographic)
	require.NoError(t, err)
	_, err = idx.Nearest(0, 50, 0)
	assert.Error(t, err)
}

func TestWithinMatchesBruteForce(t *testing.T) {
	pts := randomPoints(300, 11)
	idx, err := Build(pts, MetricGeographic)
	require.NoError(t, err)

	const radius = 20_000 // 20km
	got, err := idx.Within(0, 50.5, radius)
	require.NoError(t, err)

	var want []int
	for _, nb := range bruteNeighbors(pts, 0, 50.5) {
		if nb.Dist <= radius {
			want = append(want, nb.Idx)
		}
	}
	require.NotEmpty(t, want, "radius should catch some points")

	gotIdx := make([]int, len(got))
	for i, nb := range got {
		gotIdx[i] = nb.Idx
	}
	assert.Equal(t, want, gotIdx)
}

func TestWithinInvalidRadius(t *testing.T) {
	idx, err := Build(randomPoints(5, 1), MetricGeographic)
	require.NoError(t, err)
	_, err = idx.Within(0, 50, 0)
	assert.Error(t, err)
}

func TestEuclideanMetric(t *testing.T) {
	pts := []model.Point{
		{Lon: 0, Lat: 0},
		{Lon: 3, Lat: 4},
		{Lon: 10, Lat: 0},
	}
	idx, err := Build(pts, MetricEuclidean)
	require.NoError(t, err)

	got, err := idx.Nearest(0, 0, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 0, got[0].Idx)
	assert.Equal(t, 1, got[1].Idx)
	assert.InDelta(t, 5.0, got[1].Dist, 1e-9)
}
