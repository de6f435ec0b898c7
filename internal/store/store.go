// Package store persists datasets and analysis runs. Two backends are
// provided: SQLite for local single-user work and Postgres/PostGIS for
// shared deployments.
package store

import (
	"context"
	"encoding/json"

	"github.com/openspatial/spatial-cli/internal/model"
)

// RunFilter specifies criteria for listing analysis runs.
type RunFilter struct {
	Status  model.RunStatus    `json:"status,omitempty"`
	Kind    model.AnalysisKind `json:"kind,omitempty"`
	Dataset string             `json:"dataset,omitempty"`
	Limit   int                `json:"limit,omitempty"`
	Offset  int                `json:"offset,omitempty"`
}

// Store defines the persistence interface for datasets and runs.
type Store interface {
	// Datasets
	SaveDataset(ctx context.Context, ds *model.Dataset) error
	GetDataset(ctx context.Context, idOrName string) (*model.Dataset, error)
	ListDatasets(ctx context.Context) ([]model.DatasetInfo, error)
	DeleteDataset(ctx context.Context, id string) error

	// Runs
	CreateRun(ctx context.Context, kind model.AnalysisKind, dataset string, params json.RawMessage) (*model.AnalysisRun, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	CompleteRun(ctx context.Context, runID string, result json.RawMessage) error
	FailRun(ctx context.Context, runID string, message string) error
	GetRun(ctx context.Context, runID string) (*model.AnalysisRun, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.AnalysisRun, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
