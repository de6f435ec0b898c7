package dataset

import (
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/openspatial/spatial-cli/internal/model"
)

// ShapefileOptions maps attribute table fields to point fields. Field
// names are matched case-insensitively.
type ShapefileOptions struct {
	IDField     string
	LabelField  string // default: "name"
	WeightField string
	ValueField  string
}

// ImportShapefile reads point records from a shapefile. Non-point shapes
// and records with nil geometry are skipped and counted.
func ImportShapefile(path string, opts ShapefileOptions) ([]model.Point, error) {
	if opts.LabelField == "" {
		opts.LabelField = "name"
	}

	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	// Build field name -> index map. DBF field names are padded with NULs.
	fields := reader.Fields()
	fieldIdx := make(map[string]int, len(fields))
	for i, f := range fields {
		name := strings.TrimRight(f.String(), "\x00")
		fieldIdx[strings.ToLower(name)] = i
	}

	attr := func(name string) string {
		if name == "" {
			return ""
		}
		idx, ok := fieldIdx[strings.ToLower(name)]
		if !ok {
			return ""
		}
		val := strings.TrimRight(reader.Attribute(idx), "\x00")
		return strings.TrimSpace(val)
	}

	var pts []model.Point
	var skipped, recNum int
	for reader.Next() {
		_, shape := reader.Shape()
		recNum++

		var lon, lat float64
		switch s := shape.(type) {
		case *shp.Point:
			lon, lat = s.X, s.Y
		case *shp.PointZ:
			lon, lat = s.X, s.Y
		case *shp.PointM:
			lon, lat = s.X, s.Y
		default:
			skipped++
			continue
		}

		p := model.Point{Lon: lon, Lat: lat, Weight: 1}
		p.ID = attr(opts.IDField)
		if p.ID == "" {
			p.ID = strconv.Itoa(recNum)
		}
		p.Label = norm.NFC.String(attr(opts.LabelField))
		if w, err := strconv.ParseFloat(attr(opts.WeightField), 64); err == nil {
			p.Weight = w
		}
		if v, err := strconv.ParseFloat(attr(opts.ValueField), 64); err == nil {
			p.Value = v
		}
		pts = append(pts, p)
	}

	if skipped > 0 {
		zap.L().Debug("dataset: skipped non-point shapefile records",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	if len(pts) == 0 {
		return nil, eris.Errorf("dataset: shapefile %s has no point records", path)
	}
	return pts, nil
}
