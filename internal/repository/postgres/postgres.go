// Package postgres backs the repositories with PostgreSQL through the pgx
// database/sql driver.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"entityvault/internal/repository"
	"entityvault/internal/repository/sqltable"
)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/entityvault?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Database owns a PostgreSQL connection pool and hands out repositories over it.
type Database struct {
	db *sql.DB
}

// New connects to dsn (defaultDSN when empty), pings the server and creates
// the schema if needed.
func New(ctx context.Context, dsn string) (*Database, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Database{db: db}, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		CONSTRAINT users_email_key UNIQUE (email)
	)`,
	`CREATE TABLE IF NOT EXISTS organizations (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		slug TEXT NOT NULL,
		owner_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		CONSTRAINT organizations_slug_key UNIQUE (slug)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_organizations_owner ON organizations(owner_id)`,
}

// Execer runs a statement.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// EnsureSchema creates the users and organizations tables one statement at a time.
func EnsureSchema(ctx context.Context, db Execer) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (d *Database) DB() *sql.DB { return d.db }

// Ping checks the server is reachable.
func (d *Database) Ping(ctx context.Context) error { return d.db.PingContext(ctx) }

// Users returns the user repository.
func (d *Database) Users(opts ...repository.Option) (*repository.Users, error) {
	return sqltable.Users(d.db, Dialect{}, opts...)
}

// Organizations returns the organization repository.
func (d *Database) Organizations(opts ...repository.Option) (*repository.Organizations, error) {
	return sqltable.Organizations(d.db, Dialect{}, opts...)
}

// Close closes the pool.
func (d *Database) Close() error { return d.db.Close() }

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
