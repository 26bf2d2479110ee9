// Package mapper converts between flat persistence records, domain entities
// and DTOs using small declarative tables per entity type.
//
// Inbound conversion (record to entity) is described by a MappingConfig: the
// fields that must be present, one ValueObjectMapping per value object, and a
// constructor closure that assembles the entity. Outbound conversion (entity
// to record or DTO) is described by a Properties table of typed accessor
// closures, each labelled with the dotted path it reads.
//
// Aggregation policy differs per operation and callers rely on it:
//   - CreateValueObjects evaluates every definition and reports all invalid
//     fields in one validation error.
//   - ExtractValues, ToDomainArray and ToObjects stop at the first failure.
package mapper

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"entityvault/internal/domain"
)

// Record is one flat storage row: column name to primitive value.
type Record map[string]any

// Clone returns a shallow copy of r.
func (r Record) Clone() Record {
	cp := make(Record, len(r))
	for k, v := range r {
		cp[k] = v
	}
	return cp
}

// ValueObjects holds the value objects built from one record, by key.
type ValueObjects map[string]any

// Get returns the value object stored under key as a T.
func Get[T any](vos ValueObjects, key string) (T, error) {
	var zero T
	raw, ok := vos[key]
	if !ok {
		return zero, domain.NewMappingError("valueObjects", fmt.Sprintf("value object %q not built", key),
			map[string]any{domain.MetaField: key}, nil)
	}
	v, ok := raw.(T)
	if !ok {
		return zero, domain.NewMappingError("valueObjects", fmt.Sprintf("value object %q is %T, want %T", key, raw, zero),
			map[string]any{domain.MetaField: key}, nil)
	}
	return v, nil
}

// Transform rewrites a primitive before it is validated or emitted.
type Transform func(any) (any, error)

// Factory builds one value object from a primitive.
type Factory func(raw any) (any, error)

// VO adapts a typed value-object constructor to a Factory.
func VO[T any](ctor func(any) (T, error)) Factory {
	return func(raw any) (any, error) {
		v, err := ctor(raw)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
}

// ValueObjectMapping declares how one value object is built from a record.
// SourceField defaults to the mapping's key.
type ValueObjectMapping struct {
	SourceField string
	Transform   Transform
	Factory     Factory
}

// PropertyMapping declares how one primitive is read from an entity. Get
// reports false when a segment along Path is absent.
type PropertyMapping[E any] struct {
	Path      string
	Get       func(E) (any, bool)
	Transform Transform
}

// Properties maps output keys to their property mappings.
type Properties[E any] map[string]PropertyMapping[E]

// Keys returns the output keys in a stable order.
func (p Properties[E]) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Field builds an accessor for a value that is always present.
func Field[E, V any](fn func(E) V) func(E) (any, bool) {
	return func(e E) (any, bool) { return fn(e), true }
}

// Optional builds an accessor for a value that may be absent.
func Optional[E, V any](fn func(E) (V, bool)) func(E) (any, bool) {
	return func(e E) (any, bool) {
		v, ok := fn(e)
		if !ok {
			return nil, false
		}
		return v, true
	}
}

// MappingConfig declares how a record becomes an entity.
type MappingConfig[E any] struct {
	RequiredFields []string
	ValueObjects   map[string]ValueObjectMapping
	Construct      func(vos ValueObjects, rec Record) (E, error)
}

// CreateValueObjects builds every declared value object from rec. All
// definitions are evaluated; on failure the returned validation error lists
// every invalid field under domain.MetaErrors.
func CreateValueObjects(rec Record, defs map[string]ValueObjectMapping) (ValueObjects, error) {
	keys := make([]string, 0, len(defs))
	for k := range defs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	vos := make(ValueObjects, len(defs))
	var failures []*domain.Error

	for _, key := range keys {
		def := defs[key]
		source := def.SourceField
		if source == "" {
			source = key
		}

		raw := rec[source]
		if def.Transform != nil {
			t, err := def.Transform(raw)
			if err != nil {
				failures = append(failures, fieldFailure(key, err))
				continue
			}
			raw = t
		}

		if def.Factory == nil {
			failures = append(failures, domain.NewValidationError(key, "no value object factory declared"))
			continue
		}

		v, err := def.Factory(raw)
		if err != nil {
			failures = append(failures, fieldFailure(key, err))
			continue
		}
		vos[key] = v
	}

	if len(failures) > 0 {
		return nil, domain.NewAggregateValidationError("createValueObjects", failures)
	}
	return vos, nil
}

// fieldFailure pins a factory or transform error to the mapping key.
func fieldFailure(key string, err error) *domain.Error {
	de, ok := domain.AsError(err)
	if !ok {
		return domain.NewValidationError(key, err.Error())
	}

	cp := *de
	cp.Op = key
	cp.Metadata = make(map[string]any, len(de.Metadata)+1)
	for k, v := range de.Metadata {
		cp.Metadata[k] = v
	}
	cp.Metadata[domain.MetaField] = key
	return &cp
}

// ExtractValues reads every declared property from e. It stops at the first
// absent path segment and names that path in the error.
func ExtractValues[E any](e E, props Properties[E]) (Record, error) {
	out := make(Record, len(props))
	for _, key := range props.Keys() {
		p := props[key]
		path := p.Path
		if path == "" {
			path = key
		}

		if p.Get == nil {
			return nil, domain.NewMappingError("extractValues", fmt.Sprintf("no accessor declared for %q", key),
				map[string]any{domain.MetaPath: path}, nil)
		}

		v, ok, err := safeGet(p.Get, e)
		if err != nil {
			return nil, domain.NewMappingError("extractValues", fmt.Sprintf("reading %q", path),
				map[string]any{domain.MetaPath: path}, err)
		}
		if m, isMissing := v.(missingSegment); !ok && isMissing {
			path = string(m)
		}
		if !ok || isNil(v) {
			return nil, domain.NewMappingError("extractValues", fmt.Sprintf("missing value at path %q", path),
				map[string]any{domain.MetaPath: path}, nil)
		}

		if p.Transform != nil {
			t, err := p.Transform(v)
			if err != nil {
				return nil, domain.Wrap(domain.KindMapping, "extractValues", err)
			}
			v = t
		}
		out[key] = v
	}
	return out, nil
}

// safeGet turns a nil dereference inside an accessor into an error.
func safeGet[E any](get func(E) (any, bool), e E) (v any, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("accessor panicked: %v", r)
		}
	}()
	v, ok = get(e)
	return v, ok, nil
}

// ToDomainUsingDefinition converts rec into an entity. Missing required
// fields fail before any value object is built. Invalid values come back as
// a mapping error listing every failure under domain.MetaErrors. Errors
// raised by the constructor are wrapped unless they are already typed.
func ToDomainUsingDefinition[E any](rec Record, cfg MappingConfig[E]) (E, error) {
	var zero E

	if rec == nil {
		return zero, domain.NewMappingError("toDomain", "record is nil", nil, nil)
	}

	var missing []string
	for _, f := range cfg.RequiredFields {
		if v, ok := rec[f]; !ok || isNil(v) {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return zero, domain.NewMappingError("toDomain",
			"missing required fields: "+strings.Join(missing, ", "),
			map[string]any{domain.MetaMissingFields: missing}, nil)
	}

	// Records come from storage, so a value failing its schema is a mapping
	// failure, not a caller's validation error.
	vos, err := CreateValueObjects(rec, cfg.ValueObjects)
	if err != nil {
		invalid := domain.ValidationErrors(err)
		fields := make([]string, 0, len(invalid))
		for _, fe := range invalid {
			fields = append(fields, fe.Field())
		}
		return zero, domain.NewMappingError("toDomain",
			"record holds invalid values: "+strings.Join(fields, ", "),
			map[string]any{domain.MetaErrors: invalid}, err)
	}

	if cfg.Construct == nil {
		return zero, domain.NewMappingError("toDomain", "no entity constructor declared", nil, nil)
	}

	e, err := safeConstruct(cfg.Construct, vos, rec)
	if err != nil {
		return zero, domain.Wrap(domain.KindMapping, "toDomain", err)
	}
	return e, nil
}

func safeConstruct[E any](construct func(ValueObjects, Record) (E, error), vos ValueObjects, rec Record) (e E, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("entity constructor panicked: %v", r)
		}
	}()
	return construct(vos, rec)
}

// ToObjectUsingDefinition converts a non-nil entity into a record.
func ToObjectUsingDefinition[E any](e E, props Properties[E]) (Record, error) {
	if isNil(e) {
		return nil, domain.NewMappingError("toObject", "entity is nil", nil, nil)
	}
	return ExtractValues(e, props)
}

// ToDomainArray converts every record, stopping at the first failure. The
// returned error is a mapping error naming the failing index and wrapping
// the original cause.
func ToDomainArray[E any](recs []Record, cfg MappingConfig[E]) ([]E, error) {
	out := make([]E, 0, len(recs))
	for i, rec := range recs {
		e, err := ToDomainUsingDefinition(rec, cfg)
		if err != nil {
			return nil, batchFailure("toDomainArray", i, err)
		}
		out = append(out, e)
	}
	return out, nil
}

// ToObjects converts every entity, stopping at the first failure.
func ToObjects[E any](entities []E, props Properties[E]) ([]Record, error) {
	out := make([]Record, 0, len(entities))
	for i, e := range entities {
		rec, err := ToObjectUsingDefinition(e, props)
		if err != nil {
			return nil, batchFailure("toObjects", i, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func batchFailure(op string, index int, err error) error {
	return domain.NewMappingError(op, fmt.Sprintf("item %d", index),
		map[string]any{domain.MetaIndex: index}, err)
}

// Decode shapes a record into S through its JSON field tags.
func Decode[S any](rec Record) (S, error) {
	var out S
	data, err := json.Marshal(rec)
	if err != nil {
		return out, domain.NewMappingError("decode", "encode record", nil, err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, domain.NewMappingError("decode", fmt.Sprintf("shape record into %T", out), nil, err)
	}
	return out, nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
