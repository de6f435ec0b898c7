package cluster

import (
	"github.com/rotisserie/eris"

	"github.com/openspatial/spatial-cli/internal/knnindex"
	"github.com/openspatial/spatial-cli/internal/model"
)

// Noise is the DBSCAN label for points in no cluster.
const Noise = -1

// DBSCANOptions configures a DBSCAN run.
type DBSCANOptions struct {
	// EpsMeters is the neighborhood radius in meters. Required.
	EpsMeters float64

	// MinPts is the minimum neighborhood size (including the point itself)
	// for a core point. Default: 5.
	MinPts int
}

// DBSCANResult holds cluster labels (Noise for outliers) and counts.
type DBSCANResult struct {
	Labels   []int `json:"labels"`
	Clusters int   `json:"clusters"`
	NoisePts int   `json:"noise"`
}

// DBSCAN runs density-based clustering over geographic points. Cluster
// numbering is deterministic: clusters are discovered in input order.
func DBSCAN(points []model.Point, opts DBSCANOptions) (*DBSCANResult, error) {
	if len(points) == 0 {
		return nil, eris.New("cluster: dbscan over empty point set")
	}
	if opts.EpsMeters <= 0 {
		return nil, eris.Errorf("cluster: eps must be positive, got %g", opts.EpsMeters)
	}
	if opts.MinPts <= 0 {
		opts.MinPts = 5
	}

	idx, err := knnindex.Build(points, knnindex.MetricGeographic)
	if err != nil {
		return nil, err
	}

	const unvisited = -2
	labels := make([]int, len(points))
	for i := range labels {
		labels[i] = unvisited
	}

	cluster := 0
	for i := range points {
		if labels[i] != unvisited {
			continue
		}

		neighbors, err := idx.Within(points[i].Lon, points[i].Lat, opts.EpsMeters)
		if err != nil {
			return nil, err
		}
		if len(neighbors) < opts.MinPts {
			labels[i] = Noise
			continue
		}

		// i is a core point: grow a new cluster from it.
		labels[i] = cluster
		queue := make([]int, 0, len(neighbors))
		for _, nb := range neighbors {
			if nb.Idx != i {
				queue = append(queue, nb.Idx)
			}
		}

		for len(queue) > 0 {
			j := queue[0]
			queue = queue[1:]

			if labels[j] == Noise {
				// Border point reached from a core point.
				labels[j] = cluster
			}
			if labels[j] != unvisited {
				continue
			}
			labels[j] = cluster

			jNeighbors, err := idx.Within(points[j].Lon, points[j].Lat, opts.EpsMeters)
			if err != nil {
				return nil, err
			}
			if len(jNeighbors) >= opts.MinPts {
				for _, nb := range jNeighbors {
					if labels[nb.Idx] == unvisited || labels[nb.Idx] == Noise {
						queue = append(queue, nb.Idx)
					}
				}
			}
		}
		cluster++
	}

	var noise int
	for _, lbl := range labels {
		if lbl == Noise {
			noise++
		}
	}

	return &DBSCANResult{Labels: labels, Clusters: cluster, NoisePts: noise}, nil
}
