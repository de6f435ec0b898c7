// Package interp implements inverse-distance-weighted interpolation of a
// point-sampled variable onto a regular grid.
package interp

import (
	"context"
	"math"
	"runtime"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/openspatial/spatial-cli/internal/geodata"
	"github.com/openspatial/spatial-cli/internal/knnindex"
	"github.com/openspatial/spatial-cli/internal/model"
)

// Options configures an IDW interpolation.
type Options struct {
	// BBox is the grid extent. Zero value means the point set's bbox.
	BBox model.BBox

	// CellSizeDeg is the grid cell edge in degrees. Required.
	CellSizeDeg float64

	// Power is the distance-decay exponent. Default: 2.
	Power float64

	// Neighbors is the number of nearest samples per cell. Default: 12.
	// Ignored when RadiusMeters is set.
	Neighbors int

	// RadiusMeters, when positive, uses all samples within the radius
	// instead of a fixed neighbor count. Cells with no sample in range
	// stay NaN.
	RadiusMeters float64

	// Workers bounds row-level parallelism. Default: GOMAXPROCS.
	Workers int
}

// Cell is one grid cell: its row/col, center coordinate, interpolated
// value, and the number of samples that contributed.
type Cell struct {
	Row   int     `json:"row"`
	Col   int     `json:"col"`
	Lon   float64 `json:"lon"`
	Lat   float64 `json:"lat"`
	Value float64 `json:"value"`
	N     int     `json:"n"`
}

// Grid is the interpolation output, cells in row-major order.
type Grid struct {
	NX    int        `json:"nx"`
	NY    int        `json:"ny"`
	BBox  model.BBox `json:"bbox"`
	Cells []Cell     `json:"cells"`
}

// IDW interpolates the Value field of points onto a regular grid. Cell
// values are the inverse-distance-weighted mean of nearby samples; a cell
// whose center coincides with a sample takes the sample value exactly.
func IDW(ctx context.Context, points []model.Point, opts Options) (*Grid, error) {
	if len(points) == 0 {
		return nil, eris.New("interp: idw over empty point set")
	}
	if opts.CellSizeDeg <= 0 {
		return nil, eris.Errorf("interp: cell size must be positive, got %g", opts.CellSizeDeg)
	}
	if opts.Power <= 0 {
		opts.Power = 2
	}
	if opts.Neighbors <= 0 {
		opts.Neighbors = 12
	}
	if opts.Neighbors > len(points) {
		opts.Neighbors = len(points)
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}

	bbox := opts.BBox
	if bbox == (model.BBox{}) {
		var err error
		bbox, err = geodata.BBoxOf(points)
		if err != nil {
			return nil, err
		}
	}

	nx := int(math.Ceil((bbox.MaxLon-bbox.MinLon)/opts.CellSizeDeg))
	ny := int(math.Ceil((bbox.MaxLat-bbox.MinLat)/opts.CellSizeDeg))
	if nx < 1 {
		nx = 1
	}
	if ny < 1 {
		ny = 1
	}

	idx, err := knnindex.Build(points, knnindex.MetricGeographic)
	if err != nil {
		return nil, err
	}

	grid := &Grid{NX: nx, NY: ny, BBox: bbox, Cells: make([]Cell, nx*ny)}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for row := 0; row < ny; row++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			lat := bbox.MinLat + (float64(row)+0.5)*opts.CellSizeDeg
			for col := 0; col < nx; col++ {
				lon := bbox.MinLon + (float64(col)+0.5)*opts.CellSizeDeg
				cell, err := interpolateCell(idx, points, lon, lat, opts)
				if err != nil {
					return err
				}
				cell.Row, cell.Col = row, col
				grid.Cells[row*nx+col] = cell
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "interp: idw grid")
	}
	return grid, nil
}

func interpolateCell(idx *knnindex.Index, points []model.Point, lon, lat float64, opts Options) (Cell, error) {
	var neighbors []knnindex.Neighbor
	var err error
	if opts.RadiusMeters > 0 {
		neighbors, err = idx.Within(lon, lat, opts.RadiusMeters)
	} else {
		neighbors, err = idx.Nearest(lon, lat, opts.Neighbors)
	}
	if err != nil {
		return Cell{}, err
	}

	cell := Cell{Lon: lon, Lat: lat, N: len(neighbors), Value: math.NaN()}
	if len(neighbors) == 0 {
		return cell, nil
	}

	// Exact hit takes the sample value directly.
	if neighbors[0].Dist == 0 {
		cell.Value = points[neighbors[0].Idx].Value
		return cell, nil
	}

	var num, den float64
	for _, nb := range neighbors {
		w := 1 / math.Pow(nb.Dist, opts.Power)
		num += w * points[nb.Idx].Value
		den += w
	}
	cell.Value = num / den
	return cell, nil
}
