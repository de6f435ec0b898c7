package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/openspatial/spatial-cli/internal/access"
	"github.com/openspatial/spatial-cli/internal/facility"
	"github.com/openspatial/spatial-cli/internal/model"
	"github.com/openspatial/spatial-cli/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		path := cfg.Store.Path
		if path == "" {
			path = "spatial.db"
		}
		return store.NewSQLite(path)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// openStore initializes the configured store and runs migrations.
func openStore(ctx context.Context) (store.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

// runAnalysis records an analysis run around fn: queued on create, failed
// with the error message if fn errors, complete with the marshaled result
// otherwise. The result is also printed to stdout.
func runAnalysis(ctx context.Context, st store.Store, kind model.AnalysisKind, dataset string, params any, fn func() (any, error)) error {
	var rawParams json.RawMessage
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return eris.Wrap(err, "marshal params")
		}
		rawParams = b
	}

	run, err := st.CreateRun(ctx, kind, dataset, rawParams)
	if err != nil {
		return err
	}
	if err := st.UpdateRunStatus(ctx, run.ID, model.RunStatusRunning); err != nil {
		return err
	}

	result, err := fn()
	if err != nil {
		if failErr := st.FailRun(ctx, run.ID, err.Error()); failErr != nil {
			zap.L().Error("record run failure", zap.String("run", run.ID), zap.Error(failErr))
		}
		return err
	}

	rawResult, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "marshal result")
	}
	if err := st.CompleteRun(ctx, run.ID, rawResult); err != nil {
		return err
	}

	zap.L().Info("analysis complete",
		zap.String("run", run.ID),
		zap.String("kind", string(kind)),
		zap.String("dataset", dataset),
	)
	return printJSON(map[string]any{"run_id": run.ID, "result": result})
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// datasetValues pulls the Value column out of a dataset's points.
func datasetValues(ds *model.Dataset) []float64 {
	vals := make([]float64, len(ds.Points))
	for i, p := range ds.Points {
		vals[i] = p.Value
	}
	return vals
}

// facilitiesFrom converts dataset points to facilities; Weight carries
// capacity, defaulting to 1.
func facilitiesFrom(ds *model.Dataset) []access.Facility {
	fs := make([]access.Facility, len(ds.Points))
	for i, p := range ds.Points {
		cap := p.Weight
		if cap == 0 {
			cap = 1
		}
		fs[i] = access.Facility{ID: p.ID, Lon: p.Lon, Lat: p.Lat, Capacity: cap}
	}
	return fs
}

// candidatesFrom converts dataset points to candidate sites.
func candidatesFrom(ds *model.Dataset) []facility.Candidate {
	cs := make([]facility.Candidate, len(ds.Points))
	for i, p := range ds.Points {
		cs[i] = facility.Candidate{ID: p.ID, Lon: p.Lon, Lat: p.Lat}
	}
	return cs
}

func fprintln(a ...any) {
	fmt.Fprintln(os.Stderr, a...)
}
