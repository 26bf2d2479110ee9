package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"entityvault/internal/domain"
	"entityvault/internal/mapper"
)

// Repository is the CRUD surface offered for one entity type. Every method
// returns typed domain errors; absence on FindByID is (zero, false, nil).
type Repository[ID domain.Identifier, E domain.Entity[ID]] interface {
	FindByID(ctx context.Context, id ID) (E, bool, error)
	Save(ctx context.Context, e E) (E, error)
	Delete(ctx context.Context, id ID) error
	Exists(ctx context.Context, id ID) (bool, error)
	FindAll(ctx context.Context, page Page) ([]E, error)
}

// Page bounds a FindAll call. Nil fields are not applied.
type Page struct {
	Limit  *int
	Offset *int
}

// Limit returns a Page applying only a limit.
func Limit(n int) Page { return Page{Limit: &n} }

// LimitOffset returns a Page applying both bounds.
func LimitOffset(limit, offset int) Page { return Page{Limit: &limit, Offset: &offset} }

// Offset returns a Page applying only an offset.
func Offset(n int) Page { return Page{Offset: &n} }

func (p Page) validate() error {
	if p.Limit != nil && *p.Limit < 0 {
		return domain.NewValidationError("limit", "must not be negative")
	}
	if p.Offset != nil && *p.Offset < 0 {
		return domain.NewValidationError("offset", "must not be negative")
	}
	return nil
}

// Table is the storage handle a Store drives. Implementations report a
// unique-constraint failure as *UniqueViolation and a dangling reference as
// *ForeignKeyViolation; any other error is treated as a storage failure. Upsert returns the row as it was stored.
type Table interface {
	Name() string
	PrimaryKey() string
	Columns() []string
	SelectByKey(ctx context.Context, key any) (mapper.Record, bool, error)
	SelectBy(ctx context.Context, column string, value any, page Page) ([]mapper.Record, error)
	Select(ctx context.Context, page Page) ([]mapper.Record, error)
	Upsert(ctx context.Context, row mapper.Record) (mapper.Record, error)
	DeleteByKey(ctx context.Context, key any) (int64, error)
	CountByKey(ctx context.Context, key any) (int64, error)
}

// UniqueViolation is the structured failure a Table returns when a write
// collides with a unique constraint.
type UniqueViolation struct {
	Table      string
	Column     string
	Constraint string
	Detail     string
	Err        error
}

func (e *UniqueViolation) Error() string {
	return fmt.Sprintf("unique violation on %s.%s (%s): %s", e.Table, e.Column, e.Constraint, e.Detail)
}

func (e *UniqueViolation) Unwrap() error { return e.Err }

// ForeignKeyViolation is returned when a write references a row that does
// not exist. Column is empty when the engine does not name it.
type ForeignKeyViolation struct {
	Table      string
	Column     string
	Constraint string
	Detail     string
	Err        error
}

func (e *ForeignKeyViolation) Error() string {
	return fmt.Sprintf("foreign key violation on %s.%s: %s", e.Table, e.Column, e.Detail)
}

func (e *ForeignKeyViolation) Unwrap() error { return e.Err }

// Logger is the structured log sink repositories write to. *slog.Logger
// satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// MetricsRecorder receives one observation per repository operation.
// Outcome is "ok" or the domain.ErrorKind of the failure.
type MetricsRecorder interface {
	ObserveOperation(table, op, outcome string, elapsed time.Duration)
}

type nopMetrics struct{}

func (nopMetrics) ObserveOperation(string, string, string, time.Duration) {}

type options struct {
	logger          Logger
	metrics         MetricsRecorder
	now             func() time.Time
	updatedAtColumn string
}

func defaultOptions() options {
	return options{
		logger:          slog.New(slog.DiscardHandler),
		metrics:         nopMetrics{},
		now:             time.Now,
		updatedAtColumn: "updated_at",
	}
}

// Option configures a Store.
type Option func(*options)

// WithLogger routes operation logs to l.
func WithLogger(l Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics records per-operation outcomes and latency.
func WithMetrics(m MetricsRecorder) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithClock overrides the clock used to stamp updated_at.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithUpdatedAtColumn names the column the Store stamps on every save.
func WithUpdatedAtColumn(column string) Option {
	return func(o *options) {
		if column != "" {
			o.updatedAtColumn = column
		}
	}
}
