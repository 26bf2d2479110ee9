// Package sqltable implements repository.Table over database/sql. Engine
// differences (placeholders, paging syntax, error decoding) live behind the
// Dialect interface so the sqlite and postgres packages stay small.
package sqltable

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"entityvault/internal/mapper"
	"entityvault/internal/repository"
)

// DB is the subset of *sql.DB the table uses.
type DB interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Dialect captures what differs between SQL engines.
type Dialect interface {
	// Placeholder returns the bind marker for the n-th (1-based) argument.
	Placeholder(n int) string
	// Paginate renders the LIMIT/OFFSET clause. next allocates placeholders.
	Paginate(page repository.Page, next func(v any) string) string
	// Classify decodes an engine error, returning *repository.UniqueViolation
	// for unique-constraint failures and err otherwise.
	Classify(table string, err error) error
}

// Config describes one table.
type Config struct {
	Name       string
	PrimaryKey string
	Columns    []string
	// Immutable columns are written on insert and never on conflict update.
	Immutable []string
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Table is a dialect-parameterised repository.Table.
type Table struct {
	db      DB
	dialect Dialect
	cfg     Config
	known   map[string]bool
}

var _ repository.Table = (*Table)(nil)

// New validates cfg and returns a table handle.
func New(db DB, dialect Dialect, cfg Config) (*Table, error) {
	if db == nil {
		return nil, errors.New("sqltable: nil db")
	}
	if dialect == nil {
		return nil, errors.New("sqltable: nil dialect")
	}
	if !identPattern.MatchString(cfg.Name) {
		return nil, fmt.Errorf("sqltable: invalid table name %q", cfg.Name)
	}

	known := make(map[string]bool, len(cfg.Columns))
	for _, c := range cfg.Columns {
		if !identPattern.MatchString(c) {
			return nil, fmt.Errorf("sqltable: invalid column name %q", c)
		}
		known[c] = true
	}
	if !known[cfg.PrimaryKey] {
		return nil, fmt.Errorf("sqltable: primary key %q is not a column of %s", cfg.PrimaryKey, cfg.Name)
	}
	for _, c := range cfg.Immutable {
		if !known[c] {
			return nil, fmt.Errorf("sqltable: immutable column %q is not a column of %s", c, cfg.Name)
		}
	}

	return &Table{db: db, dialect: dialect, cfg: cfg, known: known}, nil
}

func (t *Table) Name() string       { return t.cfg.Name }
func (t *Table) PrimaryKey() string { return t.cfg.PrimaryKey }

// Columns returns the column list in declaration order.
func (t *Table) Columns() []string {
	return append([]string(nil), t.cfg.Columns...)
}

// SelectByKey loads the row whose primary key equals key.
func (t *Table) SelectByKey(ctx context.Context, key any) (mapper.Record, bool, error) {
	b := t.builder()
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s",
		t.columnList(), quote(t.cfg.Name), quote(t.cfg.PrimaryKey), b.next(key))

	recs, err := t.query(ctx, query, b.args)
	if err != nil {
		return nil, false, fmt.Errorf("select %s by key: %w", t.cfg.Name, err)
	}
	if len(recs) == 0 {
		return nil, false, nil
	}
	return recs[0], true, nil
}

// SelectBy loads a page of the rows whose column equals value, ordered by
// primary key.
func (t *Table) SelectBy(ctx context.Context, column string, value any, page repository.Page) ([]mapper.Record, error) {
	if !t.known[column] {
		return nil, fmt.Errorf("select %s: unknown column %q", t.cfg.Name, column)
	}

	b := t.builder()
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s ORDER BY %s",
		t.columnList(), quote(t.cfg.Name), quote(column), b.next(value), quote(t.cfg.PrimaryKey))
	if clause := t.dialect.Paginate(page, b.next); clause != "" {
		query += " " + clause
	}

	recs, err := t.query(ctx, query, b.args)
	if err != nil {
		return nil, fmt.Errorf("select %s by %s: %w", t.cfg.Name, column, err)
	}
	return recs, nil
}

// Select loads a page of rows ordered by primary key.
func (t *Table) Select(ctx context.Context, page repository.Page) ([]mapper.Record, error) {
	b := t.builder()
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		t.columnList(), quote(t.cfg.Name), quote(t.cfg.PrimaryKey))
	if clause := t.dialect.Paginate(page, b.next); clause != "" {
		query += " " + clause
	}

	recs, err := t.query(ctx, query, b.args)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", t.cfg.Name, err)
	}
	return recs, nil
}

// Upsert inserts row or, when the primary key already exists, overwrites
// every mutable column in the same statement. It returns the row as stored,
// so immutable columns reflect the original insert.
func (t *Table) Upsert(ctx context.Context, row mapper.Record) (mapper.Record, error) {
	for k := range row {
		if !t.known[k] {
			return nil, fmt.Errorf("upsert %s: unknown column %q", t.cfg.Name, k)
		}
	}

	immutable := make(map[string]bool, len(t.cfg.Immutable)+1)
	immutable[t.cfg.PrimaryKey] = true
	for _, c := range t.cfg.Immutable {
		immutable[c] = true
	}

	b := t.builder()
	cols := make([]string, 0, len(t.cfg.Columns))
	marks := make([]string, 0, len(t.cfg.Columns))
	sets := make([]string, 0, len(t.cfg.Columns))
	for _, c := range t.cfg.Columns {
		cols = append(cols, quote(c))
		marks = append(marks, b.next(row[c]))
		if !immutable[c] {
			sets = append(sets, fmt.Sprintf("%s = excluded.%s", quote(c), quote(c)))
		}
	}
	// DO NOTHING would return no row on conflict.
	if len(sets) == 0 {
		pk := quote(t.cfg.PrimaryKey)
		sets = append(sets, fmt.Sprintf("%s = excluded.%s", pk, pk))
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s RETURNING %s",
		quote(t.cfg.Name), strings.Join(cols, ", "), strings.Join(marks, ", "), quote(t.cfg.PrimaryKey),
		strings.Join(sets, ", "), t.columnList())

	recs, err := t.query(ctx, query, b.args)
	if err != nil {
		return nil, fmt.Errorf("upsert %s: %w", t.cfg.Name, err)
	}
	if len(recs) != 1 {
		return nil, fmt.Errorf("upsert %s: returned %d rows", t.cfg.Name, len(recs))
	}
	return recs[0], nil
}

// DeleteByKey removes the row for key and reports how many rows went away.
func (t *Table) DeleteByKey(ctx context.Context, key any) (int64, error) {
	b := t.builder()
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = %s", quote(t.cfg.Name), quote(t.cfg.PrimaryKey), b.next(key))

	res, err := t.db.ExecContext(ctx, query, b.args...)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", t.cfg.Name, t.dialect.Classify(t.cfg.Name, err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete %s: rows affected: %w", t.cfg.Name, err)
	}
	return n, nil
}

// CountByKey counts rows whose primary key equals key.
func (t *Table) CountByKey(ctx context.Context, key any) (int64, error) {
	b := t.builder()
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = %s", quote(t.cfg.Name), quote(t.cfg.PrimaryKey), b.next(key))

	var n int64
	if err := t.db.QueryRowContext(ctx, query, b.args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", t.cfg.Name, t.dialect.Classify(t.cfg.Name, err))
	}
	return n, nil
}

func (t *Table) query(ctx context.Context, query string, args []any) ([]mapper.Record, error) {
	rows, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, t.dialect.Classify(t.cfg.Name, err)
	}
	defer func() { _ = rows.Close() }()

	var out []mapper.Record
	for rows.Next() {
		rec, err := scanRecord(rows, t.cfg.Columns)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", t.dialect.Classify(t.cfg.Name, err))
	}
	return out, nil
}

// scanRecord reads one row into a Record. Text arriving as []byte is
// converted to string so value objects see one shape per column type.
func scanRecord(rows *sql.Rows, columns []string) (mapper.Record, error) {
	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, fmt.Errorf("scan row: %w", err)
	}

	rec := make(mapper.Record, len(columns))
	for i, c := range columns {
		if b, ok := values[i].([]byte); ok {
			rec[c] = string(b)
			continue
		}
		rec[c] = values[i]
	}
	return rec, nil
}

func (t *Table) columnList() string {
	quoted := make([]string, len(t.cfg.Columns))
	for i, c := range t.cfg.Columns {
		quoted[i] = quote(c)
	}
	return strings.Join(quoted, ", ")
}

type argBuilder struct {
	dialect Dialect
	args    []any
}

func (t *Table) builder() *argBuilder {
	return &argBuilder{dialect: t.dialect}
}

func (b *argBuilder) next(v any) string {
	b.args = append(b.args, v)
	return b.dialect.Placeholder(len(b.args))
}

func quote(ident string) string {
	return `"` + ident + `"`
}
