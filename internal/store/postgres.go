package store

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/openspatial/spatial-cli/internal/db"
	"github.com/openspatial/spatial-cli/internal/geodata"
	"github.com/openspatial/spatial-cli/internal/model"
)

// PostgresStore implements Store using pgxpool against a PostGIS-enabled
// database. Points are stored both as a JSONB payload (for exact round
// trips) and as geometry rows (for spatial queries).
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool. Used by tests with pgxmock.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, closeFn: pool.Close}
}

// Pool returns the underlying database pool for subsystems that need
// direct query access.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE EXTENSION IF NOT EXISTS postgis;

CREATE TABLE IF NOT EXISTS datasets (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name       TEXT NOT NULL UNIQUE,
	format     TEXT NOT NULL,
	points     JSONB NOT NULL,
	min_lon    DOUBLE PRECISION NOT NULL,
	min_lat    DOUBLE PRECISION NOT NULL,
	max_lon    DOUBLE PRECISION NOT NULL,
	max_lat    DOUBLE PRECISION NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS dataset_points (
	dataset_id TEXT NOT NULL REFERENCES datasets(id) ON DELETE CASCADE,
	point_id   TEXT NOT NULL,
	label      TEXT,
	weight     DOUBLE PRECISION,
	value      DOUBLE PRECISION,
	geom       GEOMETRY(Point, 4326) NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_dataset_points_dataset ON dataset_points(dataset_id);
CREATE INDEX IF NOT EXISTS idx_dataset_points_geom ON dataset_points USING GIST(geom);

CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	kind       TEXT NOT NULL,
	dataset    TEXT,
	params     JSONB,
	status     TEXT NOT NULL DEFAULT 'queued',
	result     JSONB,
	error      TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_kind ON runs(kind);
CREATE INDEX IF NOT EXISTS idx_runs_dataset ON runs(dataset);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) SaveDataset(ctx context.Context, ds *model.Dataset) error {
	if ds.ID == "" {
		ds.ID = uuid.New().String()
	}
	if ds.CreatedAt.IsZero() {
		ds.CreatedAt = time.Now().UTC()
	}

	pointsJSON, err := json.Marshal(ds.Points)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal points")
	}

	// On a name conflict the existing row keeps its id. Read the persisted
	// identity back so the geometry rows and the returned model reference
	// the row that actually exists.
	err = s.pool.QueryRow(ctx,
		`INSERT INTO datasets (id, name, format, points, min_lon, min_lat, max_lon, max_lat, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (name) DO UPDATE SET
		   format = EXCLUDED.format,
		   points = EXCLUDED.points,
		   min_lon = EXCLUDED.min_lon,
		   min_lat = EXCLUDED.min_lat,
		   max_lon = EXCLUDED.max_lon,
		   max_lat = EXCLUDED.max_lat
		 RETURNING id, created_at`,
		ds.ID, ds.Name, string(ds.Format), pointsJSON,
		ds.BBox.MinLon, ds.BBox.MinLat, ds.BBox.MaxLon, ds.BBox.MaxLat,
		ds.CreatedAt,
	).Scan(&ds.ID, &ds.CreatedAt)
	if err != nil {
		return eris.Wrapf(err, "postgres: save dataset %s", ds.Name)
	}

	if _, err := s.pool.Exec(ctx, `DELETE FROM dataset_points WHERE dataset_id = $1`, ds.ID); err != nil {
		return eris.Wrapf(err, "postgres: clear points for %s", ds.ID)
	}

	// Geometry accepts hex EWKB as text input, which keeps COPY usable.
	rows := make([][]any, 0, len(ds.Points))
	for _, p := range ds.Points {
		raw, err := geodata.EncodePointEWKB(p.Lon, p.Lat)
		if err != nil {
			return eris.Wrapf(err, "postgres: encode point %s", p.ID)
		}
		rows = append(rows, []any{ds.ID, p.ID, p.Label, p.Weight, p.Value, hex.EncodeToString(raw)})
	}

	_, err = db.CopyFrom(ctx, s.pool, "dataset_points",
		[]string{"dataset_id", "point_id", "label", "weight", "value", "geom"}, rows)
	return err
}

func (s *PostgresStore) GetDataset(ctx context.Context, idOrName string) (*model.Dataset, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, name, format, points, min_lon, min_lat, max_lon, max_lat, created_at
		 FROM datasets WHERE id = $1 OR name = $1`,
		idOrName,
	)

	var ds model.Dataset
	var pointsJSON []byte
	err := row.Scan(&ds.ID, &ds.Name, &ds.Format, &pointsJSON,
		&ds.BBox.MinLon, &ds.BBox.MinLat, &ds.BBox.MaxLon, &ds.BBox.MaxLat,
		&ds.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, eris.Errorf("dataset not found: %s", idOrName)
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan dataset")
	}
	if err := json.Unmarshal(pointsJSON, &ds.Points); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal points")
	}
	return &ds, nil
}

func (s *PostgresStore) ListDatasets(ctx context.Context) ([]model.DatasetInfo, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, format, jsonb_array_length(points), min_lon, min_lat, max_lon, max_lat, created_at
		 FROM datasets ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list datasets")
	}
	defer rows.Close()

	var infos []model.DatasetInfo
	for rows.Next() {
		var info model.DatasetInfo
		if err := rows.Scan(&info.ID, &info.Name, &info.Format, &info.Count,
			&info.BBox.MinLon, &info.BBox.MinLat, &info.BBox.MaxLon, &info.BBox.MaxLat,
			&info.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan dataset info")
		}
		infos = append(infos, info)
	}
	return infos, eris.Wrap(rows.Err(), "postgres: list datasets iterate")
}

func (s *PostgresStore) DeleteDataset(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM datasets WHERE id = $1 OR name = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete dataset %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("dataset not found: %s", id)
	}
	return nil
}

// WithinDistance returns the points of a dataset within radiusMeters of
// (lon, lat), using the PostGIS geography cast for spherical distance.
func (s *PostgresStore) WithinDistance(ctx context.Context, dataset string, lon, lat, radiusMeters float64) ([]model.Point, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT p.point_id, p.label, p.weight, p.value, ST_X(p.geom), ST_Y(p.geom)
		 FROM dataset_points p
		 JOIN datasets d ON d.id = p.dataset_id
		 WHERE (d.id = $1 OR d.name = $1)
		   AND ST_DWithin(p.geom::geography, ST_SetSRID(ST_MakePoint($2, $3), 4326)::geography, $4)`,
		dataset, lon, lat, radiusMeters,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: within distance")
	}
	defer rows.Close()

	var pts []model.Point
	for rows.Next() {
		var p model.Point
		if err := rows.Scan(&p.ID, &p.Label, &p.Weight, &p.Value, &p.Lon, &p.Lat); err != nil {
			return nil, eris.Wrap(err, "postgres: scan point")
		}
		pts = append(pts, p)
	}
	return pts, eris.Wrap(rows.Err(), "postgres: within distance iterate")
}

func (s *PostgresStore) CreateRun(ctx context.Context, kind model.AnalysisKind, dataset string, params json.RawMessage) (*model.AnalysisRun, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, kind, dataset, params, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, string(kind), dataset, nullableJSONB(params), string(model.RunStatusQueued), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
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

func (s *PostgresStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run status %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, result json.RawMessage) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET result = $1, status = $2, updated_at = $3 WHERE id = $4`,
		nullableJSONB(result), string(model.RunStatusComplete), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) FailRun(ctx context.Context, runID string, message string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET error = $1, status = $2, updated_at = $3 WHERE id = $4`,
		message, string(model.RunStatusFailed), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.AnalysisRun, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, kind, dataset, params, status, result, error, created_at, updated_at FROM runs WHERE id = $1`,
		runID,
	)

	var r model.AnalysisRun
	var dataset, errMsg *string
	var params, result []byte
	err := row.Scan(&r.ID, &r.Kind, &dataset, &params, &r.Status, &result, &errMsg, &r.CreatedAt, &r.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, eris.Errorf("run not found: %s", runID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan run")
	}
	if dataset != nil {
		r.Dataset = *dataset
	}
	if errMsg != nil {
		r.Error = *errMsg
	}
	r.Params = json.RawMessage(params)
	r.Result = json.RawMessage(result)
	return &r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.AnalysisRun, error) {
	query := `SELECT id, kind, dataset, params, status, result, error, created_at, updated_at FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` AND status = $` + itoa(len(args))
	}
	if filter.Kind != "" {
		args = append(args, string(filter.Kind))
		query += ` AND kind = $` + itoa(len(args))
	}
	if filter.Dataset != "" {
		args = append(args, filter.Dataset)
		query += ` AND dataset = $` + itoa(len(args))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += ` LIMIT $` + itoa(len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.AnalysisRun
	for rows.Next() {
		var r model.AnalysisRun
		var dataset, errMsg *string
		var params, result []byte
		if err := rows.Scan(&r.ID, &r.Kind, &dataset, &params, &r.Status, &result, &errMsg, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		if dataset != nil {
			r.Dataset = *dataset
		}
		if errMsg != nil {
			r.Error = *errMsg
		}
		r.Params = json.RawMessage(params)
		r.Result = json.RawMessage(result)
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func nullableJSONB(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
