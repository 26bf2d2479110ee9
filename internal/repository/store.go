package repository

import (
	"context"
	"errors"
	"time"

	"entityvault/internal/domain"
	"entityvault/internal/mapper"
)

// Store is the generic repository: one mapper and one table handle serving
// a single entity type. The type parameters tie the identity, entity, DTO
// and table types together so a mismatched pairing does not compile.
//
// Store holds no state besides its collaborators and takes no locks. Two
// concurrent saves of the same identity are serialized by the table's
// atomic upsert.
type Store[ID domain.Identifier, E domain.Entity[ID], D any, T Table] struct {
	table  T
	mapper *mapper.Mapper[E, D]
	opts   options
}

// Compile-time contract assertion.
var _ Repository[domain.UserID, *domain.User] = (*Store[domain.UserID, *domain.User, domain.UserDTO, Table])(nil)

// NewStore builds a repository over table using m for conversions.
func NewStore[ID domain.Identifier, E domain.Entity[ID], D any, T Table](table T, m *mapper.Mapper[E, D], opts ...Option) *Store[ID, E, D, T] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Store[ID, E, D, T]{table: table, mapper: m, opts: o}
}

// Mapper exposes the conversion tables, e.g. for producing DTOs.
func (s *Store[ID, E, D, T]) Mapper() *mapper.Mapper[E, D] { return s.mapper }

// Table exposes the underlying handle.
func (s *Store[ID, E, D, T]) Table() T { return s.table }

// FindByID loads one entity. A missing row is not an error.
func (s *Store[ID, E, D, T]) FindByID(ctx context.Context, id ID) (E, bool, error) {
	const op = "findById"
	start := time.Now()
	var zero E

	rec, found, err := s.table.SelectByKey(ctx, id.Value())
	if err != nil {
		return zero, false, s.fail(op, start, domain.NewStorageError(s.op(op), err), "id", id.Value())
	}
	if !found {
		s.done(op, start, "id", id.Value(), "found", false)
		return zero, false, nil
	}

	e, err := s.mapper.ToDomain(rec)
	if err != nil {
		return zero, false, s.fail(op, start, domain.Wrap(domain.KindMapping, s.op(op), err), "id", id.Value())
	}

	s.done(op, start, "id", id.Value(), "found", true)
	return e, true, nil
}

// Save upserts e and returns the entity rebuilt from the stored row, so
// immutable columns such as created_at show what the table kept. updated_at
// is always stamped here, overriding whatever the entity carried.
func (s *Store[ID, E, D, T]) Save(ctx context.Context, e E) (E, error) {
	const op = "save"
	start := time.Now()
	var zero E

	rec, err := s.mapper.ToPersistence(e)
	if err != nil {
		return zero, s.fail(op, start, domain.Wrap(domain.KindMapping, s.op(op), err))
	}
	rec[s.opts.updatedAtColumn] = domain.TimestampOf(s.opts.now()).String()

	stored, err := s.table.Upsert(ctx, rec)
	if err != nil {
		var uv *UniqueViolation
		if errors.As(err, &uv) {
			cerr := domain.NewConflictError(s.op(op), uv.Column, uv.Constraint, uv.Detail, err)
			return zero, s.fail(op, start, cerr, "id", rec[s.table.PrimaryKey()], "conflict_field", uv.Column)
		}
		var fk *ForeignKeyViolation
		if errors.As(err, &fk) {
			rerr := domain.NewReferenceError(s.op(op), fk.Column, fk.Constraint, err)
			return zero, s.fail(op, start, rerr, "id", rec[s.table.PrimaryKey()], "column", fk.Column)
		}
		return zero, s.fail(op, start, domain.NewStorageError(s.op(op), err), "id", rec[s.table.PrimaryKey()])
	}

	saved, err := s.mapper.ToDomain(stored)
	if err != nil {
		return zero, s.fail(op, start, domain.Wrap(domain.KindMapping, s.op(op), err))
	}

	s.done(op, start, "id", rec[s.table.PrimaryKey()])
	return saved, nil
}

// Delete removes the row for id. Deleting an absent id succeeds; callers
// that need "must have existed" check Exists first.
func (s *Store[ID, E, D, T]) Delete(ctx context.Context, id ID) error {
	const op = "delete"
	start := time.Now()

	n, err := s.table.DeleteByKey(ctx, id.Value())
	if err != nil {
		return s.fail(op, start, domain.NewStorageError(s.op(op), err), "id", id.Value())
	}

	s.done(op, start, "id", id.Value(), "rows", n)
	return nil
}

// Exists reports whether a row for id is stored.
func (s *Store[ID, E, D, T]) Exists(ctx context.Context, id ID) (bool, error) {
	const op = "exists"
	start := time.Now()

	n, err := s.table.CountByKey(ctx, id.Value())
	if err != nil {
		return false, s.fail(op, start, domain.NewStorageError(s.op(op), err), "id", id.Value())
	}

	s.done(op, start, "id", id.Value(), "exists", n > 0)
	return n > 0, nil
}

// FindAll loads a page of entities. One unmappable row aborts the batch.
func (s *Store[ID, E, D, T]) FindAll(ctx context.Context, page Page) ([]E, error) {
	const op = "findAll"
	start := time.Now()

	if err := page.validate(); err != nil {
		return nil, s.fail(op, start, err)
	}

	recs, err := s.table.Select(ctx, page)
	if err != nil {
		return nil, s.fail(op, start, domain.NewStorageError(s.op(op), err))
	}

	out, err := s.mapper.ToDomainArray(recs)
	if err != nil {
		return nil, s.fail(op, start, err)
	}

	s.done(op, start, "rows", len(out))
	return out, nil
}

// findBy loads a page of the entities whose column equals value.
func (s *Store[ID, E, D, T]) findBy(ctx context.Context, op, column string, value any, page Page) ([]E, error) {
	start := time.Now()

	if err := page.validate(); err != nil {
		return nil, s.fail(op, start, err, column, value)
	}

	recs, err := s.table.SelectBy(ctx, column, value, page)
	if err != nil {
		return nil, s.fail(op, start, domain.NewStorageError(s.op(op), err), column, value)
	}

	out, err := s.mapper.ToDomainArray(recs)
	if err != nil {
		return nil, s.fail(op, start, err, column, value)
	}

	s.done(op, start, column, value, "rows", len(out))
	return out, nil
}

func (s *Store[ID, E, D, T]) op(name string) string {
	return s.table.Name() + "." + name
}

func (s *Store[ID, E, D, T]) done(op string, start time.Time, args ...any) {
	elapsed := time.Since(start)
	s.opts.metrics.ObserveOperation(s.table.Name(), op, "ok", elapsed)
	s.opts.logger.Debug("repository."+op, append([]any{"table", s.table.Name(), "elapsed", elapsed}, args...)...)
}

func (s *Store[ID, E, D, T]) fail(op string, start time.Time, err error, args ...any) error {
	elapsed := time.Since(start)
	kind := domain.KindOf(err)
	s.opts.metrics.ObserveOperation(s.table.Name(), op, string(kind), elapsed)

	fields := append([]any{"table", s.table.Name(), "kind", kind, "error", err}, args...)
	switch kind {
	case domain.KindStorage, domain.KindMapping:
		s.opts.logger.Error("repository."+op+" failed", fields...)
	default:
		s.opts.logger.Warn("repository."+op+" rejected", fields...)
	}
	return err
}
