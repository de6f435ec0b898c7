package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openspatial/spatial-cli/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testDataset(name string) *model.Dataset {
	return &model.Dataset{
		Name:   name,
		Format: model.FormatSynthetic,
		Points: []model.Point{
			{ID: "a", Lon: -0.1, Lat: 51.5, Value: 3, Weight: 1},
			{ID: "b", Lon: 0.2, Lat: 51.7, Value: 7, Weight: 2},
		},
		BBox: model.BBox{MinLon: -0.1, MinLat: 51.5, MaxLon: 0.2, MaxLat: 51.7},
	}
}

func TestSQLiteDatasetRoundTrip(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	ds := testDataset("london")
	require.NoError(t, s.SaveDataset(ctx, ds))
	assert.NotEmpty(t, ds.ID)

	// By ID and by name.
	got, err := s.GetDataset(ctx, ds.ID)
	require.NoError(t, err)
	assert.Equal(t, ds.Name, got.Name)
	assert.Equal(t, ds.Points, got.Points)

	got, err = s.GetDataset(ctx, "london")
	require.NoError(t, err)
	assert.Equal(t, ds.ID, got.ID)

	_, err = s.GetDataset(ctx, "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLiteSaveDatasetUpsertsByName(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	first := testDataset("london")
	require.NoError(t, s.SaveDataset(ctx, first))

	updated := testDataset("london")
	updated.Points = updated.Points[:1]
	require.NoError(t, s.SaveDataset(ctx, updated))

	// The name conflict keeps the original row's identity, and the model
	// must reflect the id that is actually stored.
	assert.Equal(t, first.ID, updated.ID)

	got, err := s.GetDataset(ctx, updated.ID)
	require.NoError(t, err)
	assert.Len(t, got.Points, 1)

	got, err = s.GetDataset(ctx, "london")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	infos, err := s.ListDatasets(ctx)
	require.NoError(t, err)
	assert.Len(t, infos, 1)
}

func TestSQLiteListDatasets(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.SaveDataset(ctx, testDataset("alpha")))
	require.NoError(t, s.SaveDataset(ctx, testDataset("beta")))

	infos, err := s.ListDatasets(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, 2, infos[0].Count)
	assert.InDelta(t, -0.1, infos[0].BBox.MinLon, 1e-12)
}

func TestSQLiteDeleteDataset(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	ds := testDataset("gone")
	require.NoError(t, s.SaveDataset(ctx, ds))
	require.NoError(t, s.DeleteDataset(ctx, "gone"))

	_, err := s.GetDataset(ctx, "gone")
	assert.Error(t, err)

	err = s.DeleteDataset(ctx, "gone")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLiteRunLifecycle(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	params := json.RawMessage(`{"k":3}`)
	run, err := s.CreateRun(ctx, model.KindKMeans, "london", params)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusQueued, run.Status)

	require.NoError(t, s.UpdateRunStatus(ctx, run.ID, model.RunStatusRunning))

	result := json.RawMessage(`{"inertia":12.5}`)
	require.NoError(t, s.CompleteRun(ctx, run.ID, result))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, got.Status)
	assert.JSONEq(t, `{"k":3}`, string(got.Params))
	assert.JSONEq(t, `{"inertia":12.5}`, string(got.Result))
	assert.Empty(t, got.Error)
}

func TestSQLiteFailRun(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, model.KindDBSCAN, "london", nil)
	require.NoError(t, err)
	require.NoError(t, s.FailRun(ctx, run.ID, "eps must be positive"))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, got.Status)
	assert.Equal(t, "eps must be positive", got.Error)
	assert.Nil(t, got.Params)
}

func TestSQLiteRunNotFound(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	_, err := s.GetRun(ctx, "missing")
	assert.Error(t, err)
	assert.Error(t, s.UpdateRunStatus(ctx, "missing", model.RunStatusRunning))
	assert.Error(t, s.CompleteRun(ctx, "missing", nil))
	assert.Error(t, s.FailRun(ctx, "missing", "x"))
}

func TestSQLiteListRuns(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	r1, err := s.CreateRun(ctx, model.KindKMeans, "london", nil)
	require.NoError(t, err)
	_, err = s.CreateRun(ctx, model.KindMoran, "paris", nil)
	require.NoError(t, err)
	require.NoError(t, s.UpdateRunStatus(ctx, r1.ID, model.RunStatusRunning))

	all, err := s.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	running, err := s.ListRuns(ctx, RunFilter{Status: model.RunStatusRunning})
	require.NoError(t, err)
	require.Len(t, running, 1)
	assert.Equal(t, r1.ID, running[0].ID)

	byKind, err := s.ListRuns(ctx, RunFilter{Kind: model.KindMoran})
	require.NoError(t, err)
	require.Len(t, byKind, 1)

	byDataset, err := s.ListRuns(ctx, RunFilter{Dataset: "london"})
	require.NoError(t, err)
	require.Len(t, byDataset, 1)

	limited, err := s.ListRuns(ctx, RunFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
