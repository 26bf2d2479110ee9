package sqlite

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"entityvault/internal/repository"
	"entityvault/internal/repository/sqltable"
)

// Dialect is the sqltable.Dialect for SQLite.
type Dialect struct{}

var _ sqltable.Dialect = Dialect{}

func (Dialect) Placeholder(int) string { return "?" }

// Paginate renders LIMIT/OFFSET. SQLite has no bare OFFSET, so an offset
// without a limit uses LIMIT -1.
func (Dialect) Paginate(page repository.Page, next func(any) string) string {
	switch {
	case page.Limit != nil && page.Offset != nil:
		return fmt.Sprintf("LIMIT %s OFFSET %s", next(*page.Limit), next(*page.Offset))
	case page.Limit != nil:
		return "LIMIT " + next(*page.Limit)
	case page.Offset != nil:
		return "LIMIT -1 OFFSET " + next(*page.Offset)
	}
	return ""
}

// "UNIQUE constraint failed: users.email" or, for composite keys,
// "UNIQUE constraint failed: t.a, t.b".
var uniqueFailed = regexp.MustCompile(`UNIQUE constraint failed: ([^\s,()]+)`)

// Classify turns a unique or primary-key constraint failure into a
// *repository.UniqueViolation and a foreign-key failure into a
// *repository.ForeignKeyViolation. SQLite does not name the offending column
// of a foreign key.
func (Dialect) Classify(table string, err error) error {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return err
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
		return &repository.ForeignKeyViolation{Table: table, Detail: se.Error(), Err: err}
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
	case sqlite3.SQLITE_CONSTRAINT:
		// Primary result code only; fall back to the message.
		if strings.Contains(se.Error(), "FOREIGN KEY constraint failed") {
			return &repository.ForeignKeyViolation{Table: table, Detail: se.Error(), Err: err}
		}
		if !uniqueFailed.MatchString(se.Error()) {
			return err
		}
	default:
		return err
	}

	uv := &repository.UniqueViolation{Table: table, Detail: se.Error(), Err: err}
	if m := uniqueFailed.FindStringSubmatch(se.Error()); m != nil {
		qualified := m[1]
		if i := strings.LastIndex(qualified, "."); i >= 0 {
			if t := qualified[:i]; t != "" {
				uv.Table = t
			}
			uv.Column = qualified[i+1:]
		} else {
			uv.Column = qualified
		}
	}
	if uv.Column != "" {
		uv.Constraint = uv.Table + "_" + uv.Column + "_key"
	}
	return uv
}
