package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Open opens a DB and ensures schema exists.
func Open(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite" // modernc driver
		if dsn == "" {
			dsn = "file:toeigo.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/toeigo?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	if err := ensureSchema(ctx, db, driver); err != nil {
		return nil, err
	}
	return db, nil
}

func ensureSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	var schema string
	switch driver {
	case DriverSQLite:
		schema = schemaSQLite
	case DriverPostgres:
		schema = schemaPostgres
	}
	_, err := db.ExecContext(ctx, schema)
	return err
}

const schemaSQLite = `
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  pass_hash TEXT NOT NULL DEFAULT '',
  role TEXT NOT NULL DEFAULT 'student',
  level INTEGER NOT NULL DEFAULT 1,
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS stimuli (
  id TEXT PRIMARY KEY,
  images_json TEXT NOT NULL DEFAULT '[]',
  audio_url TEXT NOT NULL DEFAULT '',
  transcript TEXT NOT NULL DEFAULT '',
  explanation TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS items (
  id TEXT PRIMARY KEY,
  part TEXT NOT NULL,
  stimulus_id TEXT NOT NULL DEFAULT '',
  stem TEXT NOT NULL DEFAULT '',
  choices_json TEXT NOT NULL DEFAULT '[]',
  answer TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS tests (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  level INTEGER NOT NULL DEFAULT 1,
  part_keys_json TEXT NOT NULL DEFAULT '[]',
  item_ids_json TEXT NOT NULL DEFAULT '[]',
  time_limit_sec INTEGER NOT NULL DEFAULT 0,
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS attempts (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  test_ref TEXT NOT NULL,
  part_keys_json TEXT NOT NULL DEFAULT '[]',
  total INTEGER NOT NULL,
  correct INTEGER NOT NULL,
  acc REAL NOT NULL,
  l_total INTEGER NOT NULL,
  l_correct INTEGER NOT NULL,
  l_acc REAL NOT NULL,
  r_total INTEGER NOT NULL,
  r_correct INTEGER NOT NULL,
  r_acc REAL NOT NULL,
  items_json TEXT NOT NULL,
  time_sec INTEGER NOT NULL DEFAULT 0,
  started_at TEXT,
  submitted_at INTEGER NOT NULL,
  version TEXT NOT NULL,
  level INTEGER NOT NULL,
  is_full INTEGER NOT NULL DEFAULT 0,
  first_locked INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_attempts_user_submitted
  ON attempts(user_id, submitted_at DESC);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  pass_hash TEXT NOT NULL DEFAULT '',
  role TEXT NOT NULL DEFAULT 'student',
  level INTEGER NOT NULL DEFAULT 1,
  created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS stimuli (
  id TEXT PRIMARY KEY,
  images_json TEXT NOT NULL DEFAULT '[]',
  audio_url TEXT NOT NULL DEFAULT '',
  transcript TEXT NOT NULL DEFAULT '',
  explanation TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS items (
  id TEXT PRIMARY KEY,
  part TEXT NOT NULL,
  stimulus_id TEXT NOT NULL DEFAULT '',
  stem TEXT NOT NULL DEFAULT '',
  choices_json TEXT NOT NULL DEFAULT '[]',
  answer TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS tests (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  level INTEGER NOT NULL DEFAULT 1,
  part_keys_json TEXT NOT NULL DEFAULT '[]',
  item_ids_json TEXT NOT NULL DEFAULT '[]',
  time_limit_sec INTEGER NOT NULL DEFAULT 0,
  created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS attempts (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  test_ref TEXT NOT NULL,
  part_keys_json TEXT NOT NULL DEFAULT '[]',
  total INTEGER NOT NULL,
  correct INTEGER NOT NULL,
  acc DOUBLE PRECISION NOT NULL,
  l_total INTEGER NOT NULL,
  l_correct INTEGER NOT NULL,
  l_acc DOUBLE PRECISION NOT NULL,
  r_total INTEGER NOT NULL,
  r_correct INTEGER NOT NULL,
  r_acc DOUBLE PRECISION NOT NULL,
  items_json TEXT NOT NULL,
  time_sec INTEGER NOT NULL DEFAULT 0,
  started_at TEXT,
  submitted_at BIGINT NOT NULL,
  version TEXT NOT NULL,
  level INTEGER NOT NULL,
  is_full BOOLEAN NOT NULL DEFAULT FALSE,
  first_locked BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS idx_attempts_user_submitted
  ON attempts(user_id, submitted_at DESC);
`
