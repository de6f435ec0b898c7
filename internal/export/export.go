// Package export writes analysis results and datasets to XLSX, CSV, and
// GeoJSON files.
package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/openspatial/spatial-cli/internal/model"
)

// Table is a named grid of cells ready for tabular output.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

// Cell formats a float for tabular output, trimming trailing zeros.
func Cell(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteXLSX writes one sheet per table.
func WriteXLSX(path string, tables []Table) error {
	if len(tables) == 0 {
		return eris.New("export: no tables to write")
	}

	f := xlsx.NewFile()
	for _, t := range tables {
		sheet, err := f.AddSheet(t.Name)
		if err != nil {
			return eris.Wrapf(err, "export: add sheet %s", t.Name)
		}

		header := sheet.AddRow()
		for _, h := range t.Header {
			header.AddCell().Value = h
		}
		for _, row := range t.Rows {
			r := sheet.AddRow()
			for _, val := range row {
				r.AddCell().Value = val
			}
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}
	return nil
}

// WriteCSV writes a single table as CSV with a header row.
func WriteCSV(path string, t Table) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	defer f.Close() //nolint:errcheck

	w := csv.NewWriter(f)
	if err := w.Write(t.Header); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	for _, row := range t.Rows {
		if err := w.Write(row); err != nil {
			return eris.Wrap(err, "export: write csv row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "export: flush csv")
	}
	return nil
}

// WriteGeoJSON writes points as a GeoJSON FeatureCollection. The label and
// numeric fields become feature properties.
func WriteGeoJSON(path string, points []model.Point) error {
	if len(points) == 0 {
		return eris.New("export: no points to write")
	}

	fc := geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(points))}
	for _, p := range points {
		props := map[string]any{}
		if p.Label != "" {
			props["label"] = p.Label
		}
		if p.Weight != 0 {
			props["weight"] = p.Weight
		}
		if p.Value != 0 {
			props["value"] = p.Value
		}
		for k, v := range p.Attrs {
			props[k] = v
		}

		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         p.ID,
			Geometry:   geom.NewPointFlat(geom.XY, []float64{p.Lon, p.Lat}).SetSRID(4326),
			Properties: props,
		})
	}

	data, err := json.MarshalIndent(&fc, "", "  ")
	if err != nil {
		return eris.Wrap(err, "export: marshal geojson")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "export: write %s", path)
	}
	return nil
}
