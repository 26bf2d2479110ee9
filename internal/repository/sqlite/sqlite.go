package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"entityvault/internal/repository"
	"entityvault/internal/repository/sqltable"
)

// Database owns a SQLite connection pool and hands out repositories over it.
type Database struct {
	db *sql.DB
}

// New opens the database at dbPath and creates the schema if needed.
// ":memory:" gives a private in-memory database.
func New(ctx context.Context, dbPath string) (*Database, error) {
	db, err := Open(dbPath)
	if err != nil {
		return nil, err
	}

	if err := EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Database{db: db}, nil
}

// Open opens a connection pool with WAL, a busy timeout and foreign keys on.
func Open(dbPath string) (*sql.DB, error) {
	if dbPath == "" {
		return nil, errors.New("sqlite: empty database path")
	}

	memory := dbPath == ":memory:"
	if !memory {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if memory {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}
	return db, nil
}

func dsn(dbPath string) string {
	pragmas := []string{"_pragma=busy_timeout(5000)", "_pragma=foreign_keys(1)"}
	if dbPath != ":memory:" {
		pragmas = append(pragmas, "_pragma=journal_mode(WAL)")
	}
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return "file:" + dbPath + sep + strings.Join(pragmas, "&")
}

// EnsureSchema creates the users and organizations tables. Timestamps are
// TEXT so the driver hands back the RFC 3339 strings it was given.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		CONSTRAINT users_email_key UNIQUE (email)
	);

	CREATE TABLE IF NOT EXISTS organizations (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		slug TEXT NOT NULL,
		owner_id TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		CONSTRAINT organizations_slug_key UNIQUE (slug),
		FOREIGN KEY (owner_id) REFERENCES users(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_organizations_owner ON organizations(owner_id);
	`

	_, err := db.ExecContext(ctx, schema)
	return err
}

// DB exposes the underlying pool.
func (d *Database) DB() *sql.DB { return d.db }

// Ping checks the database is reachable.
func (d *Database) Ping(ctx context.Context) error { return d.db.PingContext(ctx) }

// Users returns the user repository.
func (d *Database) Users(opts ...repository.Option) (*repository.Users, error) {
	return sqltable.Users(d.db, Dialect{}, opts...)
}

// Organizations returns the organization repository.
func (d *Database) Organizations(opts ...repository.Option) (*repository.Organizations, error) {
	return sqltable.Organizations(d.db, Dialect{}, opts...)
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}
