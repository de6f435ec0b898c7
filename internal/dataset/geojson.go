package dataset

import (
	"encoding/json"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/openspatial/spatial-cli/internal/model"
)

// ImportGeoJSON reads point features from a GeoJSON FeatureCollection.
// Non-point geometries are skipped and counted. The properties "name" (or
// "label"), "weight", and "value" map to the corresponding point fields;
// remaining numeric properties land in Attrs.
func ImportGeoJSON(path string) ([]model.Point, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: read geojson %s", path)
	}

	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, eris.Wrapf(err, "dataset: parse geojson %s", path)
	}

	var pts []model.Point
	var skipped int
	for i, feat := range fc.Features {
		pt, ok := feat.Geometry.(*geom.Point)
		if !ok || feat.Geometry == nil {
			skipped++
			continue
		}

		p := model.Point{
			ID:     feat.ID,
			Lon:    pt.X(),
			Lat:    pt.Y(),
			Weight: 1,
		}
		if p.ID == "" {
			p.ID = strconv.Itoa(i + 1)
		}

		for key, raw := range feat.Properties {
			switch key {
			case "name", "label":
				if s, ok := raw.(string); ok {
					p.Label = norm.NFC.String(s)
				}
			case "weight":
				if v, ok := toFloat(raw); ok {
					p.Weight = v
				}
			case "value":
				if v, ok := toFloat(raw); ok {
					p.Value = v
				}
			default:
				if v, ok := toFloat(raw); ok {
					if p.Attrs == nil {
						p.Attrs = make(map[string]float64)
					}
					p.Attrs[key] = v
				}
			}
		}
		pts = append(pts, p)
	}

	if skipped > 0 {
		zap.L().Debug("dataset: skipped non-point geojson features",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	if len(pts) == 0 {
		return nil, eris.Errorf("dataset: geojson %s has no point features", path)
	}
	return pts, nil
}

func toFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
