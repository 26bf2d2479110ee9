package sqltable

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"entityvault/internal/mapper"
	"entityvault/internal/repository"
)

// recordingDB captures statements instead of running them.
type recordingDB struct {
	queries []string
	args    [][]any
}

func (d *recordingDB) QueryContext(_ context.Context, q string, args ...any) (*sql.Rows, error) {
	d.record(q, args)
	return nil, errors.New("query not supported")
}

func (d *recordingDB) QueryRowContext(_ context.Context, q string, args ...any) *sql.Row {
	d.record(q, args)
	return nil
}

func (d *recordingDB) ExecContext(_ context.Context, q string, args ...any) (sql.Result, error) {
	d.record(q, args)
	return driverResult(1), nil
}

func (d *recordingDB) record(q string, args []any) {
	d.queries = append(d.queries, q)
	d.args = append(d.args, args)
}

type driverResult int64

func (r driverResult) LastInsertId() (int64, error) { return 0, nil }
func (r driverResult) RowsAffected() (int64, error) { return int64(r), nil }

// numbered renders $n placeholders and passes errors through.
type numbered struct{}

func (numbered) Placeholder(n int) string { return "$" + strconv.Itoa(n) }
func (numbered) Paginate(page repository.Page, next func(any) string) string {
	if page.Limit == nil {
		return ""
	}
	return "LIMIT " + next(*page.Limit)
}
func (numbered) Classify(_ string, err error) error { return err }

func TestNewValidatesConfig(t *testing.T) {
	db := &recordingDB{}
	valid := Config{Name: "things", PrimaryKey: "id", Columns: []string{"id", "label"}}

	tests := []struct {
		name string
		db   DB
		d    Dialect
		cfg  func(Config) Config
	}{
		{"nil db", nil, numbered{}, func(c Config) Config { return c }},
		{"nil dialect", db, nil, func(c Config) Config { return c }},
		{"bad table name", db, numbered{}, func(c Config) Config { c.Name = "things; DROP"; return c }},
		{"bad column name", db, numbered{}, func(c Config) Config { c.Columns = []string{"id", "la bel"}; return c }},
		{"unknown primary key", db, numbered{}, func(c Config) Config { c.PrimaryKey = "uuid"; return c }},
		{"unknown immutable", db, numbered{}, func(c Config) Config { c.Immutable = []string{"created_at"}; return c }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.db, tt.d, tt.cfg(valid))
			assert.Error(t, err)
		})
	}

	table, err := New(db, numbered{}, valid)
	require.NoError(t, err)
	assert.Equal(t, "things", table.Name())
	assert.Equal(t, "id", table.PrimaryKey())
	assert.Equal(t, []string{"id", "label"}, table.Columns())
}

func TestUpsertStatement(t *testing.T) {
	db := &recordingDB{}
	table, err := New(db, numbered{}, Config{
		Name:       "users",
		PrimaryKey: "id",
		Columns:    []string{"id", "email", "created_at"},
		Immutable:  []string{"created_at"},
	})
	require.NoError(t, err)

	_, err = table.Upsert(context.Background(), mapper.Record{"id": "u1", "email": "a@b.c", "created_at": "t0"})
	assert.ErrorContains(t, err, "upsert users")

	require.Len(t, db.queries, 1)
	assert.Equal(t,
		`INSERT INTO "users" ("id", "email", "created_at") VALUES ($1, $2, $3) ON CONFLICT ("id") DO UPDATE SET "email" = excluded."email" RETURNING "id", "email", "created_at"`,
		db.queries[0])
	assert.Equal(t, []any{"u1", "a@b.c", "t0"}, db.args[0])
}

func TestUpsertWithoutMutableColumnsStillReturnsRow(t *testing.T) {
	db := &recordingDB{}
	table, err := New(db, numbered{}, Config{Name: "tags", PrimaryKey: "id", Columns: []string{"id"}})
	require.NoError(t, err)

	_, err = table.Upsert(context.Background(), mapper.Record{"id": "t1"})
	require.Error(t, err)
	assert.Equal(t, `INSERT INTO "tags" ("id") VALUES ($1) ON CONFLICT ("id") DO UPDATE SET "id" = excluded."id" RETURNING "id"`, db.queries[0])
}

func TestSelectByPaginates(t *testing.T) {
	db := &recordingDB{}
	table, err := New(db, numbered{}, OrganizationsConfig())
	require.NoError(t, err)

	_, err = table.SelectBy(context.Background(), "owner_id", "u1", repository.Limit(2))
	require.Error(t, err)
	assert.Equal(t,
		`SELECT "id", "name", "slug", "owner_id", "created_at", "updated_at" FROM "organizations" WHERE "owner_id" = $1 ORDER BY "id" LIMIT $2`,
		db.queries[0])
	assert.Equal(t, []any{"u1", 2}, db.args[0])
}

func TestUnknownColumnsAreRejectedBeforeQuerying(t *testing.T) {
	db := &recordingDB{}
	table, err := New(db, numbered{}, UsersConfig())
	require.NoError(t, err)

	_, err = table.Upsert(context.Background(), mapper.Record{"id": "u1", "is_admin": true})
	assert.ErrorContains(t, err, `unknown column "is_admin"`)

	_, err = table.SelectBy(context.Background(), "is_admin", true, repository.Page{})
	assert.ErrorContains(t, err, `unknown column "is_admin"`)

	assert.Empty(t, db.queries)
}

func TestDeleteByKeyReportsRows(t *testing.T) {
	db := &recordingDB{}
	table, err := New(db, numbered{}, OrganizationsConfig())
	require.NoError(t, err)

	n, err := table.DeleteByKey(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, `DELETE FROM "organizations" WHERE "id" = $1`, db.queries[0])
}

func TestSelectWrapsQueryErrors(t *testing.T) {
	db := &recordingDB{}
	table, err := New(db, numbered{}, UsersConfig())
	require.NoError(t, err)

	_, err = table.Select(context.Background(), repository.Limit(5))
	require.Error(t, err)
	assert.Equal(t,
		`SELECT "id", "name", "email", "password_hash", "created_at", "updated_at" FROM "users" ORDER BY "id" LIMIT $1`,
		db.queries[0])
	assert.Equal(t, []any{5}, db.args[0])
}
