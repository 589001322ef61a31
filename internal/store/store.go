package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type OpenParams struct {
	Driver         string
	PostgresHost   string
	PostgresPort   string
	PostgresDBName string
	SQLitePath     string
	TracingEnabled bool
}

// Store holds the opened database handle. Exactly one of PG and SQLite
// is set, depending on the configured driver.
type Store struct {
	Driver string
	PG     *pgxpool.Pool
	SQLite *sql.DB
}

func Open(ctx context.Context, params OpenParams) (*Store, error) {
	switch params.Driver {
	case DriverPostgres:
		pool, err := newPostgresPool(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("open postgres pool: %w", err)
		}
		return &Store{Driver: DriverPostgres, PG: pool}, nil
	case DriverSQLite:
		db, err := openSQLite(params.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return &Store{Driver: DriverSQLite, SQLite: db}, nil
	default:
		return nil, fmt.Errorf("unknown store driver: %q", params.Driver)
	}
}

func (s *Store) Close() error {
	switch s.Driver {
	case DriverPostgres:
		if s.PG != nil {
			s.PG.Close()
		}
		return nil
	case DriverSQLite:
		if s.SQLite != nil {
			return s.SQLite.Close()
		}
		return nil
	}
	return nil
}

// Bootstrap creates the schema when missing. Idempotent, safe to run on
// every start.
func (s *Store) Bootstrap(ctx context.Context) error {
	switch s.Driver {
	case DriverPostgres:
		for _, stmt := range postgresSchema {
			if _, err := s.PG.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("bootstrap postgres schema: %w", err)
			}
		}
	case DriverSQLite:
		for _, stmt := range sqliteSchema {
			if _, err := s.SQLite.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("bootstrap sqlite schema: %w", err)
			}
		}
	default:
		return errors.New("bootstrap: no database opened")
	}
	log.Debugf("store [%s]: schema bootstrap done", s.Driver)
	return nil
}

func newPostgresPool(ctx context.Context, params OpenParams) (*pgxpool.Pool, error) {
	connString := fmt.Sprintf(
		"postgres://postgres@%s:%s/%s",
		params.PostgresHost, params.PostgresPort, params.PostgresDBName,
	)
	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}

	if params.TracingEnabled {
		poolConfig.ConnConfig.Tracer = otelpgx.NewTracer()
	}

	db, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	return db, nil
}

func openSQLite(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// the sqlite driver serializes access through a single connection
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return db, nil
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS app_user (
		id SERIAL PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		display_name TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE TABLE IF NOT EXISTS activity (
		id SERIAL PRIMARY KEY,
		user_id INTEGER NOT NULL REFERENCES app_user (id),
		kind TEXT NOT NULL,
		date TEXT NOT NULL,
		distance_miles DOUBLE PRECISION NOT NULL DEFAULT 0,
		duration_seconds INTEGER NOT NULL DEFAULT 0,
		effort INTEGER NOT NULL DEFAULT 0,
		notes TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE INDEX IF NOT EXISTS activity_user_kind_date_idx ON activity (user_id, kind, date);`,
	`CREATE TABLE IF NOT EXISTS plan (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL REFERENCES app_user (id),
		week_start TEXT NOT NULL,
		document JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE INDEX IF NOT EXISTS plan_user_created_idx ON plan (user_id, created_at);`,
	`CREATE TABLE IF NOT EXISTS journal_entry (
		id SERIAL PRIMARY KEY,
		user_id INTEGER NOT NULL REFERENCES app_user (id),
		title TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS app_user (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		display_name TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS activity (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES app_user (id),
		kind TEXT NOT NULL,
		date TEXT NOT NULL,
		distance_miles REAL NOT NULL DEFAULT 0,
		duration_seconds INTEGER NOT NULL DEFAULT 0,
		effort INTEGER NOT NULL DEFAULT 0,
		notes TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS activity_user_kind_date_idx ON activity (user_id, kind, date);`,
	`CREATE TABLE IF NOT EXISTS plan (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL REFERENCES app_user (id),
		week_start TEXT NOT NULL,
		document TEXT NOT NULL,
		created_at TEXT NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS plan_user_created_idx ON plan (user_id, created_at);`,
	`CREATE TABLE IF NOT EXISTS journal_entry (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES app_user (id),
		title TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL,
		created_at TEXT NOT NULL
	);`,
}
