// Package cluster implements point clustering: K-Means with k-means++
// seeding and DBSCAN with metric-aware neighborhoods.
package cluster

import (
	"math"
	"math/rand/v2"

	"github.com/rotisserie/eris"

	"github.com/openspatial/spatial-cli/internal/geodata"
	"github.com/openspatial/spatial-cli/internal/model"
)

// KMeansOptions configures a K-Means run.
type KMeansOptions struct {
	// K is the number of clusters. Required.
	K int

	// MaxIter caps Lloyd iterations. Default: 100.
	MaxIter int

	// Tol stops iteration when the largest centroid shift (in coordinate
	// units) falls below it. Default: 1e-6.
	Tol float64

	// Seed drives k-means++ seeding so runs reproduce. Default: 1.
	Seed uint64

	// Projected, when true, projects lon/lat to planar meters about the
	// dataset's mean latitude before clustering, so distance is metric
	// rather than degree-based.
	Projected bool
}

// Centroid is a cluster center with its member count.
type Centroid struct {
	Lon  float64 `json:"lon"`
	Lat  float64 `json:"lat"`
	Size int     `json:"size"`
}

// KMeansResult holds the outcome of a K-Means run.
type KMeansResult struct {
	Labels     []int      `json:"labels"`
	Centroids  []Centroid `json:"centroids"`
	Inertia    float64    `json:"inertia"`
	Iterations int        `json:"iterations"`
}

// KMeans partitions points into opts.K clusters via Lloyd's algorithm with
// k-means++ seeding.
func KMeans(points []model.Point, opts KMeansOptions) (*KMeansResult, error) {
	n := len(points)
	if n == 0 {
		return nil, eris.New("cluster: kmeans over empty point set")
	}
	if opts.K < 1 {
		return nil, eris.Errorf("cluster: k must be >= 1, got %d", opts.K)
	}
	if opts.K > n {
		return nil, eris.Errorf("cluster: k=%d exceeds point count %d", opts.K, n)
	}
	if opts.MaxIter <= 0 {
		opts.MaxIter = 100
	}
	if opts.Tol <= 0 {
		opts.Tol = 1e-6
	}
	if opts.Seed == 0 {
		opts.Seed = 1
	}

	xs, ys := coords(points, opts.Projected)
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed))

	cx, cy := seedPlusPlus(xs, ys, opts.K, rng)
	labels := make([]int, n)

	var iter int
	for iter = 1; iter <= opts.MaxIter; iter++ {
		// Assign.
		for i := range xs {
			labels[i] = nearestCentroid(xs[i], ys[i], cx, cy)
		}

		// Update.
		sumX := make([]float64, opts.K)
		sumY := make([]float64, opts.K)
		count := make([]int, opts.K)
		for i, lbl := range labels {
			sumX[lbl] += xs[i]
			sumY[lbl] += ys[i]
			count[lbl]++
		}

		var maxShift float64
		for c := 0; c < opts.K; c++ {
			if count[c] == 0 {
				// Empty cluster: reseed on the point farthest from its centroid.
				far := farthestPoint(xs, ys, labels, cx, cy)
				cx[c], cy[c] = xs[far], ys[far]
				maxShift = math.Inf(1)
				continue
			}
			nx := sumX[c] / float64(count[c])
			ny := sumY[c] / float64(count[c])
			if shift := geodata.Euclidean(cx[c], cy[c], nx, ny); shift > maxShift {
				maxShift = shift
			}
			cx[c], cy[c] = nx, ny
		}

		if maxShift < opts.Tol {
			break
		}
	}
	if iter > opts.MaxIter {
		iter = opts.MaxIter
	}

	// Final assignment and inertia.
	var inertia float64
	sizes := make([]int, opts.K)
	for i := range xs {
		labels[i] = nearestCentroid(xs[i], ys[i], cx, cy)
		d := geodata.Euclidean(xs[i], ys[i], cx[labels[i]], cy[labels[i]])
		inertia += d * d
		sizes[labels[i]]++
	}

	centroids := make([]Centroid, opts.K)
	for c := 0; c < opts.K; c++ {
		lon, lat := cx[c], cy[c]
		if opts.Projected {
			lon, lat = unproject(points, cx[c], cy[c])
		}
		centroids[c] = Centroid{Lon: lon, Lat: lat, Size: sizes[c]}
	}

	return &KMeansResult{
		Labels:     labels,
		Centroids:  centroids,
		Inertia:    inertia,
		Iterations: iter,
	}, nil
}

// seedPlusPlus picks initial centers with the k-means++ scheme: the first
// uniformly, each subsequent one proportional to squared distance from the
// nearest existing center.
func seedPlusPlus(xs, ys []float64, k int, rng *rand.Rand) (cx, cy []float64) {
	n := len(xs)
	cx = make([]float64, 0, k)
	cy = make([]float64, 0, k)

	first := rng.IntN(n)
	cx = append(cx, xs[first])
	cy = append(cy, ys[first])

	d2 := make([]float64, n)
	for len(cx) < k {
		var total float64
		for i := range xs {
			d := geodata.Euclidean(xs[i], ys[i], cx[len(cx)-1], cy[len(cy)-1])
			if len(cx) == 1 || d*d < d2[i] {
				d2[i] = d * d
			}
			total += d2[i]
		}

		if total == 0 {
			// All remaining points coincide with a center.
			cx = append(cx, xs[rng.IntN(n)])
			cy = append(cy, ys[rng.IntN(n)])
			continue
		}

		target := rng.Float64() * total
		var acc float64
		pick := n - 1
		for i := range d2 {
			acc += d2[i]
			if acc >= target {
				pick = i
				break
			}
		}
		cx = append(cx, xs[pick])
		cy = append(cy, ys[pick])
	}
	return cx, cy
}

func nearestCentroid(x, y float64, cx, cy []float64) int {
	best := 0
	bestD := math.Inf(1)
	for c := range cx {
		if d := geodata.Euclidean(x, y, cx[c], cy[c]); d < bestD {
			best, bestD = c, d
		}
	}
	return best
}

func farthestPoint(xs, ys []float64, labels []int, cx, cy []float64) int {
	far := 0
	farD := -1.0
	for i := range xs {
		if d := geodata.Euclidean(xs[i], ys[i], cx[labels[i]], cy[labels[i]]); d > farD {
			far, farD = i, d
		}
	}
	return far
}

func coords(points []model.Point, projected bool) (xs, ys []float64) {
	xs = make([]float64, len(points))
	ys = make([]float64, len(points))
	refLat := geodata.MeanLat(points)
	for i, p := range points {
		if projected {
			xs[i], ys[i] = geodata.Project(p.Lon, p.Lat, refLat)
		} else {
			xs[i], ys[i] = p.Lon, p.Lat
		}
	}
	return xs, ys
}

func unproject(points []model.Point, x, y float64) (lon, lat float64) {
	refLat := geodata.MeanLat(points)
	kx := geodata.MetersPerDegreeLat * math.Cos(refLat*math.Pi/180)
	return x / kx, y / geodata.MetersPerDegreeLat
}
