package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/geoalarm/internal/db"
	"github.com/sells-group/geoalarm/internal/model"
)

// PostgresStore implements Repository using a pgx pool.
type PostgresStore struct {
	pool db.Pool
}

var _ Repository = (*PostgresStore)(nil)

// NewPostgres connects to Postgres and returns a repository backed by it.
func NewPostgres(ctx context.Context, connString string, poolCfg *db.PoolConfig) (*PostgresStore, error) {
	pool, err := db.Connect(ctx, connString, poolCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS geofences (
	id         BIGSERIAL PRIMARY KEY,
	latitude   DOUBLE PRECISION NOT NULL CHECK (latitude BETWEEN -90 AND 90),
	longitude  DOUBLE PRECISION NOT NULL CHECK (longitude BETWEEN -180 AND 180),
	radius     DOUBLE PRECISION NOT NULL CHECK (radius > 0),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Insert(ctx context.Context, g model.Geofence) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO geofences (latitude, longitude, radius) VALUES ($1, $2, $3) RETURNING id`,
		g.Latitude, g.Longitude, g.Radius,
	).Scan(&id)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: insert geofence")
	}
	return id, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM geofences WHERE id = $1`, id)
	return eris.Wrapf(err, "postgres: delete geofence %d", id)
}

// Clear deletes rows rather than truncating so the id sequence keeps counting.
func (s *PostgresStore) Clear(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM geofences`)
	return eris.Wrap(err, "postgres: clear geofences")
}

func (s *PostgresStore) List(ctx context.Context) ([]model.Geofence, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, latitude, longitude, radius FROM geofences ORDER BY id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list geofences")
	}
	defer rows.Close()

	geofences := []model.Geofence{}
	for rows.Next() {
		var g model.Geofence
		if err := rows.Scan(&g.ID, &g.Latitude, &g.Longitude, &g.Radius); err != nil {
			return nil, eris.Wrap(err, "postgres: scan geofence")
		}
		geofences = append(geofences, g)
	}
	return geofences, eris.Wrap(rows.Err(), "postgres: list geofences iterate")
}
