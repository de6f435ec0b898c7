package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/openspatial/spatial-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS datasets (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL UNIQUE,
	format     TEXT NOT NULL,
	points     TEXT NOT NULL,
	min_lon    REAL NOT NULL,
	min_lat    REAL NOT NULL,
	max_lon    REAL NOT NULL,
	max_lat    REAL NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	kind       TEXT NOT NULL,
	dataset    TEXT,
	params     TEXT,
	status     TEXT NOT NULL DEFAULT 'queued',
	result     TEXT,
	error      TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_kind ON runs(kind);
CREATE INDEX IF NOT EXISTS idx_runs_dataset ON runs(dataset);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveDataset(ctx context.Context, ds *model.Dataset) error {
	if ds.ID == "" {
		ds.ID = uuid.New().String()
	}
	if ds.CreatedAt.IsZero() {
		ds.CreatedAt = time.Now().UTC()
	}

	pointsJSON, err := json.Marshal(ds.Points)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal points")
	}

	// On a name conflict the existing row keeps its id, so read the
	// persisted identity back into the model.
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO datasets (id, name, format, points, min_lon, min_lat, max_lon, max_lat, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
		   format = excluded.format,
		   points = excluded.points,
		   min_lon = excluded.min_lon,
		   min_lat = excluded.min_lat,
		   max_lon = excluded.max_lon,
		   max_lat = excluded.max_lat
		 RETURNING id, created_at`,
		ds.ID, ds.Name, string(ds.Format), string(pointsJSON),
		ds.BBox.MinLon, ds.BBox.MinLat, ds.BBox.MaxLon, ds.BBox.MaxLat,
		ds.CreatedAt,
	).Scan(&ds.ID, &ds.CreatedAt)
	return eris.Wrapf(err, "sqlite: save dataset %s", ds.Name)
}

func (s *SQLiteStore) GetDataset(ctx context.Context, idOrName string) (*model.Dataset, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, format, points, min_lon, min_lat, max_lon, max_lat, created_at
		 FROM datasets WHERE id = ? OR name = ?`,
		idOrName, idOrName,
	)

	var ds model.Dataset
	var pointsJSON string
	err := row.Scan(&ds.ID, &ds.Name, &ds.Format, &pointsJSON,
		&ds.BBox.MinLon, &ds.BBox.MinLat, &ds.BBox.MaxLon, &ds.BBox.MaxLat,
		&ds.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("dataset not found: %s", idOrName)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan dataset")
	}
	if err := json.Unmarshal([]byte(pointsJSON), &ds.Points); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal points")
	}
	return &ds, nil
}

func (s *SQLiteStore) ListDatasets(ctx context.Context) ([]model.DatasetInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, format, json_array_length(points), min_lon, min_lat, max_lon, max_lat, created_at
		 FROM datasets ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list datasets")
	}
	defer rows.Close()

	var infos []model.DatasetInfo
	for rows.Next() {
		var info model.DatasetInfo
		if err := rows.Scan(&info.ID, &info.Name, &info.Format, &info.Count,
			&info.BBox.MinLon, &info.BBox.MinLat, &info.BBox.MaxLon, &info.BBox.MaxLat,
			&info.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan dataset info")
		}
		infos = append(infos, info)
	}
	return infos, eris.Wrap(rows.Err(), "sqlite: list datasets iterate")
}

func (s *SQLiteStore) DeleteDataset(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM datasets WHERE id = ? OR name = ?`, id, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete dataset %s", id)
	}
	return checkRowsAffected(res, "dataset", id)
}

func (s *SQLiteStore) CreateRun(ctx context.Context, kind model.AnalysisKind, dataset string, params json.RawMessage) (*model.AnalysisRun, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, kind, dataset, params, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, string(kind), dataset, nullableJSON(params), string(model.RunStatusQueued), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.AnalysisRun{
		ID:        id,
		Kind:      kind,
		Dataset:   dataset,
		Params:    params,
		Status:    model.RunStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run status %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, result json.RawMessage) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET result = ?, status = ?, updated_at = ? WHERE id = ?`,
		nullableJSON(result), string(model.RunStatusComplete), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) FailRun(ctx context.Context, runID string, message string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET error = ?, status = ?, updated_at = ? WHERE id = ?`,
		message, string(model.RunStatusFailed), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.AnalysisRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, kind, dataset, params, status, result, error, created_at, updated_at FROM runs WHERE id = ?`,
		runID,
	)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.AnalysisRun, error) {
	query := `SELECT id, kind, dataset, params, status, result, error, created_at, updated_at FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(filter.Kind))
	}
	if filter.Dataset != "" {
		query += ` AND dataset = ?`
		args = append(args, filter.Dataset)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.AnalysisRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.AnalysisRun, error) {
	var r model.AnalysisRun
	var dataset, params, result, runErr sql.NullString

	err := row.Scan(&r.ID, &r.Kind, &dataset, &params, &r.Status, &result, &runErr, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("run not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	r.Dataset = dataset.String
	if params.Valid && params.String != "" {
		r.Params = json.RawMessage(params.String)
	}
	if result.Valid && result.String != "" {
		r.Result = json.RawMessage(result.String)
	}
	r.Error = runErr.String
	return &r, nil
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
