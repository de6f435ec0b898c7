// Package model defines the core record types shared across the CLI:
// point datasets and analysis runs.
package model

import (
	"encoding/json"
	"time"
)

// Point is a single observation: a WGS84 coordinate with optional
// attributes. Weight carries population or demand for accessibility and
// coverage models; Value carries the measured variable for interpolation
// and hotspot statistics.
type Point struct {
	ID     string             `json:"id"`
	Lon    float64            `json:"lon"`
	Lat    float64            `json:"lat"`
	Label  string             `json:"label,omitempty"`
	Weight float64            `json:"weight,omitempty"`
	Value  float64            `json:"value,omitempty"`
	Attrs  map[string]float64 `json:"attrs,omitempty"`
}

// BBox is a geographic bounding box in lon/lat degrees.
type BBox struct {
	MinLon float64 `json:"min_lon"`
	MinLat float64 `json:"min_lat"`
	MaxLon float64 `json:"max_lon"`
	MaxLat float64 `json:"max_lat"`
}

// Contains reports whether the point (lon, lat) falls inside the box.
func (b BBox) Contains(lon, lat float64) bool {
	return lon >= b.MinLon && lon <= b.MaxLon && lat >= b.MinLat && lat <= b.MaxLat
}

// DatasetFormat identifies how a dataset was produced.
type DatasetFormat string

const (
	FormatSynthetic DatasetFormat = "synthetic"
	FormatCSV       DatasetFormat = "csv"
	FormatGeoJSON   DatasetFormat = "geojson"
	FormatShapefile DatasetFormat = "shapefile"
)

// Dataset is a named collection of points.
type Dataset struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Format    DatasetFormat `json:"format"`
	Points    []Point       `json:"points"`
	BBox      BBox          `json:"bbox"`
	CreatedAt time.Time     `json:"created_at"`
}

// DatasetInfo is the listing view of a dataset (points omitted).
type DatasetInfo struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Format    DatasetFormat `json:"format"`
	Count     int           `json:"count"`
	BBox      BBox          `json:"bbox"`
	CreatedAt time.Time     `json:"created_at"`
}

// AnalysisKind identifies an analysis operation.
type AnalysisKind string

const (
	KindKMeans    AnalysisKind = "kmeans"
	KindDBSCAN    AnalysisKind = "dbscan"
	KindIDW       AnalysisKind = "idw"
	KindMoran     AnalysisKind = "moran"
	KindLISA      AnalysisKind = "lisa"
	KindGetisOrd  AnalysisKind = "gi"
	KindTwoSFCA   AnalysisKind = "2sfca"
	KindLSCP      AnalysisKind = "lscp"
	KindMCLP      AnalysisKind = "mclp"
	KindIsochrone AnalysisKind = "isochrone"
	KindNearest   AnalysisKind = "nearest"
)

// RunStatus is the lifecycle state of an analysis run.
type RunStatus string

const (
	RunStatusQueued   RunStatus = "queued"
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// AnalysisRun records one invocation of an analysis: its parameters, its
// status, and (when complete) its result payload.
type AnalysisRun struct {
	ID        string          `json:"id"`
	Kind      AnalysisKind    `json:"kind"`
	Dataset   string          `json:"dataset,omitempty"`
	Params    json.RawMessage `json:"params,omitempty"`
	Status    RunStatus       `json:"status"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
