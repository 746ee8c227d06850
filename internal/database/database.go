// ListenKeep - Personal Music Listening History and Statistics
// Copyright 2026 ListenKeep Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/listenkeep/listenkeep

// Package database implements listen storage on DuckDB.
//
// DuckDB fits this workload: one writer (the import pipeline), heavy
// analytical reads (the statistics endpoints scan the whole listens
// table), a single file on disk, no server process.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/listenkeep/listenkeep/internal/config"
	"github.com/listenkeep/listenkeep/internal/logging"
)

const defaultQueryTimeout = 30 * time.Second

// DB wraps the DuckDB connection and the listens schema.
type DB struct {
	conn *sql.DB
	path string
}

// New opens the database file, configures the pool and initializes the
// schema. The parent directory is created if missing.
func New(cfg config.DatabaseConfig) (*DB, error) {
	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	dbDir := filepath.Dir(cfg.Path)
	if dbDir != "" && dbDir != "." {
		if err := os.MkdirAll(dbDir, 0o750); err != nil {
			return nil, fmt.Errorf("creating database directory %s: %w", dbDir, err)
		}
	}

	// Auto-install/auto-load stays off so startup cannot hang on a
	// network fetch in restricted environments.
	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s&autoinstall_known_extensions=false&autoload_known_extensions=false",
		cfg.Path, threads, cfg.MaxMemory)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db := &DB{conn: conn, path: cfg.Path}
	db.configureConnectionPool()

	if err := db.initialize(); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("initializing database: %w", err)
	}

	logging.Info().Str("path", cfg.Path).Int("threads", threads).Msg("database ready")
	return db, nil
}

// NewMemory opens an in-memory database, used by tests.
func NewMemory() (*DB, error) {
	conn, err := sql.Open("duckdb", ":memory:?autoinstall_known_extensions=false&autoload_known_extensions=false")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory database: %w", err)
	}

	db := &DB{conn: conn, path: ":memory:"}
	db.configureConnectionPool()

	if err := db.initialize(); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("initializing in-memory database: %w", err)
	}
	return db, nil
}

// configureConnectionPool sizes the pool for DuckDB's in-process model:
// connections are cheap but share one storage engine, so a small pool
// avoids write contention.
func (db *DB) configureConnectionPool() {
	db.conn.SetMaxOpenConns(4)
	db.conn.SetMaxIdleConns(2)
	db.conn.SetConnMaxLifetime(0)
}

// initialize creates the listens schema if absent.
func (db *DB) initialize() error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultQueryTimeout)
	defer cancel()

	statements := []string{
		`CREATE TABLE IF NOT EXISTS listens (
			id UUID PRIMARY KEY,
			listened_at BIGINT NOT NULL,
			track_name VARCHAR NOT NULL,
			artist_name VARCHAR NOT NULL,
			release_name VARCHAR,
			additional_info VARCHAR,
			created_at TIMESTAMP NOT NULL DEFAULT current_timestamp
		)`,
		`CREATE INDEX IF NOT EXISTS idx_listens_listened_at ON listens(listened_at)`,
		`CREATE INDEX IF NOT EXISTS idx_listens_identity ON listens(track_name, artist_name)`,
	}

	for _, stmt := range statements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Conn exposes the underlying pool for callers that need raw access.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Ping verifies the connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	return db.conn.PingContext(ctx)
}

// Close releases the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// ensureContext guarantees queries run with a deadline.
func (db *DB) ensureContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return context.WithTimeout(context.Background(), defaultQueryTimeout)
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		return context.WithTimeout(ctx, defaultQueryTimeout)
	}
	return ctx, func() {}
}

func closeQuietly(conn *sql.DB) {
	if err := conn.Close(); err != nil {
		logging.Warn().Err(err).Msg("closing database connection")
	}
}
