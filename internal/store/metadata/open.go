package metadata

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	_ "github.com/mattn/go-sqlite3"    // registers the "sqlite3" driver
)

// ConnectionConfig bounds the connection pool. Mirrors the teacher's
// db.ConnectionConfig shape.
type ConnectionConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DefaultConnectionConfig matches the teacher's defaults.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		MaxOpenConns:    25,
		MaxIdleConns:    10,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 30 * time.Minute,
	}
}

// OpenPostgres opens a connection pool against dsn via the pgx stdlib
// driver and ensures the schema exists.
func OpenPostgres(ctx context.Context, dsn string, cfg ConnectionConfig) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("metadata: open postgres: %w", err)
	}
	applyPoolConfig(db, cfg)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("metadata: ping postgres: %w", err)
	}

	if _, err := db.ExecContext(ctx, postgresSchema); err != nil {
		return nil, fmt.Errorf("metadata: create schema: %w", err)
	}

	return NewPostgresStore(db), nil
}

// OpenSQLite opens path (a single file) via mattn/go-sqlite3, enables
// write-ahead logging so readers aren't blocked by a writer (spec.md §4.4:
// "must be configured for concurrent readers"), and ensures the schema
// exists.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("metadata: open sqlite: %w", err)
	}
	// SQLite serializes writers internally; a single open connection
	// avoids "database is locked" errors under concurrent writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return nil, fmt.Errorf("metadata: create schema: %w", err)
	}

	return NewSQLiteStore(db), nil
}

func applyPoolConfig(db *sql.DB, cfg ConnectionConfig) {
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
}
