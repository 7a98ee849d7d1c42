package store

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/geoalarm/internal/model"
)

// SQLiteStore implements Repository using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

var _ Repository = (*SQLiteStore)(nil)

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
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// AUTOINCREMENT keeps ids of deleted rows from being handed out again.
const sqliteMigration = `
CREATE TABLE IF NOT EXISTS geofences (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	latitude   REAL NOT NULL CHECK (latitude BETWEEN -90 AND 90),
	longitude  REAL NOT NULL CHECK (longitude BETWEEN -180 AND 180),
	radius     REAL NOT NULL CHECK (radius > 0),
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Insert(ctx context.Context, g model.Geofence) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO geofences (latitude, longitude, radius) VALUES (?, ?, ?)`,
		g.Latitude, g.Longitude, g.Radius,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: insert geofence")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: last insert id")
	}
	return id, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM geofences WHERE id = ?`, id)
	return eris.Wrapf(err, "sqlite: delete geofence %d", id)
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM geofences`)
	return eris.Wrap(err, "sqlite: clear geofences")
}

func (s *SQLiteStore) List(ctx context.Context) ([]model.Geofence, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, latitude, longitude, radius FROM geofences ORDER BY id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list geofences")
	}
	defer rows.Close() //nolint:errcheck

	geofences := []model.Geofence{}
	for rows.Next() {
		var g model.Geofence
		if err := rows.Scan(&g.ID, &g.Latitude, &g.Longitude, &g.Radius); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan geofence")
		}
		geofences = append(geofences, g)
	}
	return geofences, eris.Wrap(rows.Err(), "sqlite: list geofences iterate")
}
