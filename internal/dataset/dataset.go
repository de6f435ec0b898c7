// Package dataset builds point datasets: synthetic generators for
// worked examples and importers for CSV, GeoJSON, and shapefile sources.
package dataset

import (
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/openspatial/spatial-cli/internal/geodata"
	"github.com/openspatial/spatial-cli/internal/model"
)

// New assembles a dataset from points, assigning an ID and computing the
// bounding box.
func New(name string, format model.DatasetFormat, points []model.Point) (*model.Dataset, error) {
	if name == "" {
		return nil, eris.New("dataset: name is required")
	}
	if len(points) == 0 {
		return nil, eris.Errorf("dataset: %q has no points", name)
	}

	bbox, err := geodata.BBoxOf(points)
	if err != nil {
		return nil, err
	}

	return &model.Dataset{
		ID:        uuid.New().String(),
		Name:      name,
		Format:    format,
		Points:    points,
		BBox:      bbox,
		CreatedAt: time.Now().UTC(),
	}, nil
}
