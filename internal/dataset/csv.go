package dataset

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/openspatial/spatial-cli/internal/model"
)

// CSVOptions maps CSV columns to point fields. Lon/Lat columns are
// required; the rest are optional.
type CSVOptions struct {
	LonCol    string // default "lon"
	LatCol    string // default "lat"
	IDCol     string
	LabelCol  string
	WeightCol string
	ValueCol  string
}

// ImportCSV reads points from a CSV file with a header row. Rows with
// unparsable coordinates are skipped and counted, matching how shapefile
// records with bad geometry are handled. Labels are NFC-normalized so
// datasets from different encodings compare equal.
func ImportCSV(path string, opts CSVOptions) ([]model.Point, error) {
	if opts.LonCol == "" {
		opts.LonCol = "lon"
	}
	if opts.LatCol == "" {
		opts.LatCol = "lat"
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: open csv %s", path)
	}
	defer f.Close() //nolint:errcheck

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: read csv header %s", path)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}

	lonIdx, ok := col[strings.ToLower(opts.LonCol)]
	if !ok {
		return nil, eris.Errorf("dataset: csv missing column %q", opts.LonCol)
	}
	latIdx, ok := col[strings.ToLower(opts.LatCol)]
	if !ok {
		return nil, eris.Errorf("dataset: csv missing column %q", opts.LatCol)
	}

	var pts []model.Point
	var skipped, rowNum int
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "dataset: read csv %s", path)
		}
		rowNum++

		lon, lonErr := strconv.ParseFloat(rec[lonIdx], 64)
		lat, latErr := strconv.ParseFloat(rec[latIdx], 64)
		if lonErr != nil || latErr != nil {
			skipped++
			continue
		}

		p := model.Point{Lon: lon, Lat: lat, Weight: 1}
		p.ID = stringField(rec, col, opts.IDCol)
		if p.ID == "" {
			p.ID = strconv.Itoa(rowNum)
		}
		p.Label = norm.NFC.String(stringField(rec, col, opts.LabelCol))
		if w, ok := floatField(rec, col, opts.WeightCol); ok {
			p.Weight = w
		}
		if v, ok := floatField(rec, col, opts.ValueCol); ok {
			p.Value = v
		}
		pts = append(pts, p)
	}

	if skipped > 0 {
		zap.L().Debug("dataset: skipped csv rows with bad coordinates",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	if len(pts) == 0 {
		return nil, eris.Errorf("dataset: csv %s has no usable rows", path)
	}
	return pts, nil
}

func stringField(rec []string, col map[string]int, name string) string {
	if name == "" {
		return ""
	}
	idx, ok := col[strings.ToLower(name)]
	if !ok || idx >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[idx])
}

func floatField(rec []string, col map[string]int, name string) (float64, bool) {
	s := stringField(rec, col, name)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
