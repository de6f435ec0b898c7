// Package knnindex provides a kd-tree over point datasets for k-nearest
// and radius queries. It backs DBSCAN neighborhoods, IDW neighbor search,
// spatial weights construction, and the nearest command.
//
// Geographic points are indexed by their 3D position on the earth sphere.
// Chord distance in that space is monotonic with great-circle distance, so
// tree search is exact and results convert back to haversine meters.
package knnindex

import (
	"container/heap"
	"math"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/openspatial/spatial-cli/internal/geodata"
	"github.com/openspatial/spatial-cli/internal/model"
)

// Metric selects how coordinates are interpreted.
type Metric int

const (
	// MetricGeographic treats coordinates as WGS84 lon/lat and measures
	// great-circle (haversine) meters.
	MetricGeographic Metric = iota
	// MetricEuclidean treats coordinates as already-projected x/y.
	MetricEuclidean
)

// bruteForceThreshold is the input size below which a linear scan beats
// building a tree.
const bruteForceThreshold = 16

// Neighbor is a query result: the index of the point in the source slice
// and its distance from the query location.
type Neighbor struct {
	Idx  int
	Dist float64
}

// Index is an immutable kd-tree over a point set. Geographic indexes hold
// three coordinates per point (sphere x/y/z), euclidean ones hold two.
type Index struct {
	coords [][3]float64 // indexed by source position
	dims   int
	order  []int // source positions sorted into tree layout
	metric Metric
	root   *node
}

type node struct {
	lo, hi      int // span of order covered by this subtree
	split       int // order position of the splitting point
	axis        int
	left, right *node
}

// Build constructs an index over the given points.
func Build(points []model.Point, metric Metric) (*Index, error) {
	if len(points) == 0 {
		return nil, eris.New("knnindex: build over empty point set")
	}

	idx := &Index{
		coords: make([][3]float64, len(points)),
		dims:   2,
		order:  make([]int, len(points)),
		metric: metric,
	}
	if metric == MetricGeographic {
		idx.dims = 3
	}
	for i, p := range points {
		idx.coords[i] = idx.mapPoint(p.Lon, p.Lat)
		idx.order[i] = i
	}

	if len(points) >= bruteForceThreshold {
		idx.root = idx.build(0, len(points), 0)
	}
	return idx, nil
}

// Len returns the number of indexed points.
func (idx *Index) Len() int { return len(idx.coords) }

func (idx *Index) mapPoint(lon, lat float64) [3]float64 {
	if idx.metric == MetricGeographic {
		x, y, z := geodata.SphereXYZ(lon, lat)
		return [3]float64{x, y, z}
	}
	return [3]float64{lon, lat, 0}
}

// toMeters converts an internal search distance to the reported one:
// chord length becomes arc meters for geographic indexes.
func (idx *Index) toMeters(d float64) float64 {
	if idx.metric == MetricGeographic {
		return geodata.ChordToArc(d)
	}
	return d
}

func (idx *Index) dist(q [3]float64, i int) float64 {
	c := idx.coords[i]
	dx := q[0] - c[0]
	dy := q[1] - c[1]
	sq := dx*dx + dy*dy
	if idx.dims == 3 {
		dz := q[2] - c[2]
		sq += dz * dz
	}
	return math.Sqrt(sq)
}

func (idx *Index) build(lo, hi, axis int) *node {
	if lo >= hi {
		return nil
	}
	span := idx.order[lo:hi]
	sort.Slice(span, func(i, j int) bool {
		return idx.coords[span[i]][axis] < idx.coords[span[j]][axis]
	})

	mid := lo + (hi-lo)/2
	next := (axis + 1) % idx.dims
	return &node{
		lo:    lo,
		hi:    hi,
		split: mid,
		axis:  axis,
		left:  idx.build(lo, mid, next),
		right: idx.build(mid+1, hi, next),
	}
}

// Nearest returns the k nearest indexed points to (lon, lat), closest
// first. Distances are haversine meters for geographic indexes. It returns
// fewer than k when the index is smaller.
func (idx *Index) Nearest(lon, lat float64, k int) ([]Neighbor, error) {
	if k < 1 {
		return nil, eris.Errorf("knnindex: k must be >= 1, got %d", k)
	}
	q := idx.mapPoint(lon, lat)

	var out []Neighbor
	if idx.root == nil {
		out = idx.bruteNearest(q, k)
	} else {
		h := &maxHeap{}
		idx.searchNearest(idx.root, q, k, h)
		out = make([]Neighbor, h.Len())
		for i := len(out) - 1; i >= 0; i-- {
			out[i] = heap.Pop(h).(Neighbor)
		}
	}

	for i := range out {
		out[i].Dist = idx.toMeters(out[i].Dist)
	}
	return out, nil
}

// Within returns all indexed points within radius of (lon, lat), closest
// first. Radius is haversine meters for geographic indexes and coordinate
// units for euclidean ones.
func (idx *Index) Within(lon, lat, radius float64) ([]Neighbor, error) {
	if radius <= 0 {
		return nil, eris.Errorf("knnindex: radius must be positive, got %g", radius)
	}
	q := idx.mapPoint(lon, lat)

	// Search in chord space; membership is equivalent because chord and
	// arc distance are monotonic in each other.
	searchRadius := radius
	if idx.metric == MetricGeographic {
		searchRadius = geodata.ArcToChord(radius)
	}

	var out []Neighbor
	if idx.root == nil {
		for i := range idx.coords {
			if d := idx.dist(q, i); d <= searchRadius {
				out = append(out, Neighbor{Idx: i, Dist: d})
			}
		}
	} else {
		idx.searchWithin(idx.root, q, searchRadius, &out)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Dist < out[j].Dist })
	for i := range out {
		out[i].Dist = idx.toMeters(out[i].Dist)
	}
	return out, nil
}

func (idx *Index) bruteNearest(q [3]float64, k int) []Neighbor {
	all := make([]Neighbor, len(idx.coords))
	for i := range idx.coords {
		all[i] = Neighbor{Idx: i, Dist: idx.dist(q, i)}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Dist < all[j].Dist })
	if len(all) > k {
		all = all[:k]
	}
	return all
}

func (idx *Index) searchNearest(n *node, q [3]float64, k int, h *maxHeap) {
	if n == nil {
		return
	}
	p := idx.order[n.split]
	d := idx.dist(q, p)
	if h.Len() < k {
		heap.Push(h, Neighbor{Idx: p, Dist: d})
	} else if d < (*h)[0].Dist {
		(*h)[0] = Neighbor{Idx: p, Dist: d}
		heap.Fix(h, 0)
	}

	splitCoord := idx.coords[p][n.axis]
	qCoord := q[n.axis]

	near, far := n.left, n.right
	if qCoord > splitCoord {
		near, far = far, near
	}
	idx.searchNearest(near, q, k, h)

	// Cross the splitting plane only if it could hold a closer point.
	planeDist := qCoord - splitCoord
	if planeDist < 0 {
		planeDist = -planeDist
	}
	if h.Len() < k || planeDist < (*h)[0].Dist {
		idx.searchNearest(far, q, k, h)
	}
}

func (idx *Index) searchWithin(n *node, q [3]float64, radius float64, out *[]Neighbor) {
	if n == nil {
		return
	}
	p := idx.order[n.split]
	if d := idx.dist(q, p); d <= radius {
		*out = append(*out, Neighbor{Idx: p, Dist: d})
	}

	splitCoord := idx.coords[p][n.axis]
	qCoord := q[n.axis]

	if qCoord-radius <= splitCoord {
		idx.searchWithin(n.left, q, radius, out)
	}
	if qCoord+radius >= splitCoord {
		idx.searchWithin(n.right, q, radius, out)
	}
}

// maxHeap keeps the k current-best neighbors with the worst on top.
type maxHeap []Neighbor

func (h maxHeap) Len() int           { return len(h) }
func (h maxHeap) Less(i, j int) bool { return h[i].Dist > h[j].Dist }
func (h maxHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *maxHeap) Push(x any)        { *h = append(*h, x.(Neighbor)) }
func (h *maxHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
