// Package store persists visitor metrics and calculator history through sqlx.
// SQLite (modernc.org/sqlite) is the default driver; Postgres (lib/pq) is
// supported for hosted deployments.
package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

func init() {
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

var schemas = map[string][]string{
	DriverSQLite: {
		`CREATE TABLE IF NOT EXISTS visitors (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			hashed_ip TEXT NOT NULL,
			user_agent TEXT NOT NULL DEFAULT '',
			path TEXT NOT NULL DEFAULT '',
			timestamp DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_visitors_timestamp ON visitors(timestamp)`,
		`CREATE TABLE IF NOT EXISTS calculations (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL DEFAULT '',
			state TEXT NOT NULL,
			monthly_units REAL NOT NULL,
			latlong TEXT NOT NULL,
			outcome TEXT NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			recommended_kw REAL NOT NULL DEFAULT 0,
			net_cost REAL NOT NULL DEFAULT 0,
			lifetime_savings REAL NOT NULL DEFAULT 0,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_calculations_created_at ON calculations(created_at)`,
	},
	DriverPostgres: {
		`CREATE TABLE IF NOT EXISTS visitors (
			id BIGSERIAL PRIMARY KEY,
			hashed_ip TEXT NOT NULL,
			user_agent TEXT NOT NULL DEFAULT '',
			path TEXT NOT NULL DEFAULT '',
			timestamp TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_visitors_timestamp ON visitors(timestamp)`,
		`CREATE TABLE IF NOT EXISTS calculations (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL DEFAULT '',
			state TEXT NOT NULL,
			monthly_units DOUBLE PRECISION NOT NULL,
			latlong TEXT NOT NULL,
			outcome TEXT NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			recommended_kw DOUBLE PRECISION NOT NULL DEFAULT 0,
			net_cost DOUBLE PRECISION NOT NULL DEFAULT 0,
			lifetime_savings DOUBLE PRECISION NOT NULL DEFAULT 0,
			duration_ms BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_calculations_created_at ON calculations(created_at)`,
	},
}

// Store wraps the database handle.
type Store struct {
	db     *sqlx.DB
	driver string
}

// Open connects with driver and dsn and applies the schema.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	stmts, ok := schemas[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// SQLite allows a single writer.
		db.SetMaxOpenConns(1)
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}
	return &Store{db: db, driver: driver}, nil
}

// Driver returns the driver name the store was opened with.
func (s *Store) Driver() string { return s.driver }

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) q(query string) string { return s.db.Rebind(query) }
