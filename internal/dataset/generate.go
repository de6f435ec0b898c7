package dataset

import (
	"fmt"
	"math/rand/v2"

	"github.com/rotisserie/eris"

	"github.com/openspatial/spatial-cli/internal/model"
)

// UniformOptions configures uniform synthetic generation.
type UniformOptions struct {
	N    int
	BBox model.BBox
	Seed uint64
}

// GenerateUniform scatters n points uniformly in a bounding box. Each
// point gets a uniform Value in [0, 100) and unit Weight.
func GenerateUniform(opts UniformOptions) ([]model.Point, error) {
	if opts.N < 1 {
		return nil, eris.Errorf("dataset: n must be >= 1, got %d", opts.N)
	}
	if opts.BBox.MaxLon <= opts.BBox.MinLon || opts.BBox.MaxLat <= opts.BBox.MinLat {
		return nil, eris.New("dataset: degenerate bounding box")
	}
	if opts.Seed == 0 {
		opts.Seed = 1
	}

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed))
	pts := make([]model.Point, opts.N)
	for i := range pts {
		pts[i] = model.Point{
			ID:     fmt.Sprintf("u%04d", i),
			Lon:    opts.BBox.MinLon + rng.Float64()*(opts.BBox.MaxLon-opts.BBox.MinLon),
			Lat:    opts.BBox.MinLat + rng.Float64()*(opts.BBox.MaxLat-opts.BBox.MinLat),
			Value:  rng.Float64() * 100,
			Weight: 1,
		}
	}
	return pts, nil
}

// BlobOptions configures gaussian blob generation.
type BlobOptions struct {
	// Centers are the blob centers. Required.
	Centers []model.Point

	// PerBlob is the point count per center. Default: 50.
	PerBlob int

	// SigmaDeg is the per-axis normal spread in degrees. Default: 0.01.
	SigmaDeg float64

	Seed uint64
}

// GenerateBlobs scatters gaussian clusters around the given centers. Each
// point's Value is drawn around the center's Value, and the Label records
// the blob index, which makes the output a labeled clustering benchmark.
func GenerateBlobs(opts BlobOptions) ([]model.Point, error) {
	if len(opts.Centers) == 0 {
		return nil, eris.New("dataset: blobs need at least one center")
	}
	if opts.PerBlob <= 0 {
		opts.PerBlob = 50
	}
	if opts.SigmaDeg <= 0 {
		opts.SigmaDeg = 0.01
	}
	if opts.Seed == 0 {
		opts.Seed = 1
	}

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed))
	pts := make([]model.Point, 0, len(opts.Centers)*opts.PerBlob)
	for b, c := range opts.Centers {
		for i := 0; i < opts.PerBlob; i++ {
			pts = append(pts, model.Point{
				ID:     fmt.Sprintf("b%d-%04d", b, i),
				Lon:    c.Lon + rng.NormFloat64()*opts.SigmaDeg,
				Lat:    c.Lat + rng.NormFloat64()*opts.SigmaDeg,
				Label:  fmt.Sprintf("blob-%d", b),
				Value:  c.Value + rng.NormFloat64()*5,
				Weight: 1,
			})
		}
	}
	return pts, nil
}
