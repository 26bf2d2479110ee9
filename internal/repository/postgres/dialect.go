package postgres

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"entityvault/internal/repository"
	"entityvault/internal/repository/sqltable"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// Dialect is the sqltable.Dialect for PostgreSQL.
type Dialect struct{}

var _ sqltable.Dialect = Dialect{}

func (Dialect) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }

func (Dialect) Paginate(page repository.Page, next func(any) string) string {
	var parts []string
	if page.Limit != nil {
		parts = append(parts, "LIMIT "+next(*page.Limit))
	}
	if page.Offset != nil {
		parts = append(parts, "OFFSET "+next(*page.Offset))
	}
	return strings.Join(parts, " ")
}

// Detail reads "Key (email)=(a@example.com) already exists."
var keyDetail = regexp.MustCompile(`Key \(([^)]+)\)=`)

// Classify turns SQLSTATE 23505 into a *repository.UniqueViolation and
// 23503 into a *repository.ForeignKeyViolation.
func (Dialect) Classify(table string, err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case uniqueViolation:
		return uniqueFrom(table, pgErr, err)
	case foreignKeyViolation:
		// Detail reads "Key (owner_id)=(...) is not present in table "users"."
		fk := &repository.ForeignKeyViolation{
			Table:      table,
			Column:     pgErr.ColumnName,
			Constraint: pgErr.ConstraintName,
			Detail:     pgErr.Detail,
			Err:        err,
		}
		if pgErr.TableName != "" {
			fk.Table = pgErr.TableName
		}
		if fk.Column == "" {
			fk.Column = firstKeyColumn(pgErr.Detail)
		}
		return fk
	}
	return err
}

func uniqueFrom(table string, pgErr *pgconn.PgError, err error) error {
	uv := &repository.UniqueViolation{
		Table:      table,
		Column:     pgErr.ColumnName,
		Constraint: pgErr.ConstraintName,
		Detail:     pgErr.Detail,
		Err:        err,
	}
	if pgErr.TableName != "" {
		uv.Table = pgErr.TableName
	}
	if uv.Column == "" {
		uv.Column = firstKeyColumn(pgErr.Detail)
	}
	if uv.Column == "" && uv.Constraint != "" {
		uv.Column = columnFromConstraint(uv.Table, uv.Constraint)
	}
	return uv
}

// firstKeyColumn reads the column list of a "Key (...)=" detail. Composite
// keys list every column; the first one names the conflict.
func firstKeyColumn(detail string) string {
	m := keyDetail.FindStringSubmatch(detail)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(strings.Split(m[1], ",")[0])
}

// columnFromConstraint recovers "email" from the default name "users_email_key".
func columnFromConstraint(table, constraint string) string {
	name := strings.TrimPrefix(constraint, table+"_")
	name = strings.TrimSuffix(name, "_key")
	if name == constraint {
		return ""
	}
	return name
}
