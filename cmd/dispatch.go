package main

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/openspatial/spatial-cli/internal/access"
	"github.com/openspatial/spatial-cli/internal/cluster"
	"github.com/openspatial/spatial-cli/internal/facility"
	"github.com/openspatial/spatial-cli/internal/hotspot"
	"github.com/openspatial/spatial-cli/internal/interp"
	"github.com/openspatial/spatial-cli/internal/knnindex"
	"github.com/openspatial/spatial-cli/internal/model"
	"github.com/openspatial/spatial-cli/internal/store"
	"github.com/openspatial/spatial-cli/internal/weights"
)

// analysisParams covers every field an API caller can pass for any kind.
// Zero values fall back to the same defaults the CLI flags use.
type analysisParams struct {
	// clustering
	K       int     `json:"k"`
	MaxIter int     `json:"max_iter"`
	Seed    uint64  `json:"seed"`
	Eps     float64 `json:"eps_meters"`
	MinPts  int     `json:"min_pts"`

	// interpolation
	CellSizeDeg  float64 `json:"cell_size_deg"`
	Power        float64 `json:"power"`
	Neighbors    int     `json:"neighbors"`
	RadiusMeters float64 `json:"radius_meters"`

	// hotspot
	Weights      string  `json:"weights"`
	BandMeters   float64 `json:"band_meters"`
	Permutations int     `json:"permutations"`
	Alpha        float64 `json:"alpha"`

	// accessibility and facility location
	Facilities string  `json:"facilities"`
	Candidates string  `json:"candidates"`
	D0Meters   float64 `json:"d0_meters"`
	Decay      string  `json:"decay"`
	P          int     `json:"p"`

	// nearest neighbor
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

func parseParams(raw json.RawMessage) (*analysisParams, error) {
	p := &analysisParams{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, p); err != nil {
			return nil, eris.Wrap(err, "parse params")
		}
	}
	if p.Seed == 0 {
		p.Seed = cfg.Analysis.Seed
	}
	if p.Permutations == 0 {
		p.Permutations = cfg.Analysis.Permutations
	}
	return p, nil
}

func (p *analysisParams) weightsMatrix(pts []model.Point) (*weights.Matrix, error) {
	scheme := p.Weights
	if scheme == "" {
		scheme = "knn"
	}

	var w *weights.Matrix
	var err error
	switch scheme {
	case "knn":
		k := p.K
		if k == 0 {
			k = 8
		}
		w, err = weights.KNN(pts, k)
	case "band":
		w, err = weights.DistanceBand(pts, p.BandMeters)
	default:
		return nil, eris.Errorf("unknown weights scheme %q (knn or band)", scheme)
	}
	if err != nil {
		return nil, err
	}
	w.RowStandardize()
	return w, nil
}

// dispatchAnalysis runs one analysis kind against a stored dataset. It backs
// the HTTP API; the CLI subcommands bind flags to the same internals directly.
func dispatchAnalysis(ctx context.Context, st store.Store, kind model.AnalysisKind, datasetName string, raw json.RawMessage) (any, error) {
	p, err := parseParams(raw)
	if err != nil {
		return nil, err
	}

	ds, err := st.GetDataset(ctx, datasetName)
	if err != nil {
		return nil, err
	}

	switch kind {
	case model.KindKMeans:
		k := p.K
		if k == 0 {
			k = 5
		}
		maxIter := p.MaxIter
		if maxIter == 0 {
			maxIter = 100
		}
		return cluster.KMeans(ds.Points, cluster.KMeansOptions{K: k, MaxIter: maxIter, Seed: p.Seed})

	case model.KindDBSCAN:
		eps := p.Eps
		if eps == 0 {
			eps = 500
		}
		minPts := p.MinPts
		if minPts == 0 {
			minPts = 5
		}
		return cluster.DBSCAN(ds.Points, cluster.DBSCANOptions{EpsMeters: eps, MinPts: minPts})

	case model.KindIDW:
		cellSize := p.CellSizeDeg
		if cellSize == 0 {
			cellSize = 0.01
		}
		power := p.Power
		if power == 0 {
			power = 2
		}
		neighbors := p.Neighbors
		if neighbors == 0 {
			neighbors = 12
		}
		return interp.IDW(ctx, ds.Points, interp.Options{
			CellSizeDeg:  cellSize,
			Power:        power,
			Neighbors:    neighbors,
			RadiusMeters: p.RadiusMeters,
			Workers:      cfg.Analysis.Workers,
		})

	case model.KindMoran:
		w, err := p.weightsMatrix(ds.Points)
		if err != nil {
			return nil, err
		}
		return hotspot.GlobalMoran(datasetValues(ds), w, hotspot.PermOptions{Permutations: p.Permutations, Seed: p.Seed})

	case model.KindLISA:
		w, err := p.weightsMatrix(ds.Points)
		if err != nil {
			return nil, err
		}
		alpha := p.Alpha
		if alpha == 0 {
			alpha = 0.05
		}
		return hotspot.LocalMoran(datasetValues(ds), w, alpha, hotspot.PermOptions{Permutations: p.Permutations, Seed: p.Seed})

	case model.KindGetisOrd:
		w, err := p.weightsMatrix(ds.Points)
		if err != nil {
			return nil, err
		}
		return hotspot.GetisOrd(datasetValues(ds), w)

	case model.KindTwoSFCA:
		if p.Facilities == "" {
			return nil, eris.New("2sfca requires a facilities dataset in params")
		}
		fac, err := st.GetDataset(ctx, p.Facilities)
		if err != nil {
			return nil, err
		}
		d0 := p.D0Meters
		if d0 == 0 {
			d0 = 5000
		}
		decay := p.Decay
		if decay == "" {
			decay = "binary"
		}
		return access.Compute(ds.Points, facilitiesFrom(fac), access.Options{D0Meters: d0, Decay: decay})

	case model.KindLSCP, model.KindMCLP:
		if p.Candidates == "" {
			return nil, eris.Errorf("%s requires a candidates dataset in params", kind)
		}
		radius := p.RadiusMeters
		if radius == 0 {
			radius = 5000
		}
		cov, _, err := buildCoverageFromArgs(ctx, st, datasetName, p.Candidates, radius)
		if err != nil {
			return nil, err
		}
		if kind == model.KindLSCP {
			return facility.SolveLSCP(cov)
		}
		pSites := p.P
		if pSites == 0 {
			pSites = 3
		}
		return facility.SolveMCLP(cov, pSites)

	case model.KindNearest:
		idx, err := knnindex.Build(ds.Points, knnindex.MetricGeographic)
		if err != nil {
			return nil, err
		}
		k := p.K
		if k == 0 {
			k = 5
		}
		var neighbors []knnindex.Neighbor
		if p.RadiusMeters > 0 {
			neighbors, err = idx.Within(p.Lon, p.Lat, p.RadiusMeters)
		} else {
			neighbors, err = idx.Nearest(p.Lon, p.Lat, k)
		}
		if err != nil {
			return nil, err
		}
		hits := make([]map[string]any, len(neighbors))
		for i, n := range neighbors {
			pt := ds.Points[n.Idx]
			hits[i] = map[string]any{
				"id": pt.ID, "label": pt.Label,
				"lon": pt.Lon, "lat": pt.Lat, "meters": n.Dist,
			}
		}
		return map[string]any{"neighbors": hits}, nil

	default:
		return nil, eris.Errorf("unsupported analysis kind %q", kind)
	}
}
