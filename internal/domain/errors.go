package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by callers that need "must exist" semantics on top of
// repositories, which report absence as a plain (zero, false, nil) result.
var ErrNotFound = errors.New("not found")

// ErrorKind classifies failures crossing a component boundary.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindConflict   ErrorKind = "conflict"
	KindStorage    ErrorKind = "storage"
	KindMapping    ErrorKind = "mapping"
)

// Metadata keys carried by typed errors.
const (
	MetaField         = "field"
	MetaErrors        = "errors"
	MetaConflictField = "conflictField"
	MetaConstraint    = "constraint"
	MetaDetail        = "detail"
	MetaPath          = "path"
	MetaIndex         = "index"
	MetaMissingFields = "missingFields"
)

// Error is the typed failure returned by value objects, the mapper and
// repositories. Metadata holds kind-specific diagnostics.
type Error struct {
	Kind     ErrorKind
	Op       string
	Message  string
	Metadata map[string]any
	Err      error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}

	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(string(e.Kind))
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Field returns the field the error refers to, if any.
func (e *Error) Field() string {
	if e == nil {
		return ""
	}
	s, _ := e.Metadata[MetaField].(string)
	return s
}

// ConflictField returns the column that violated a unique constraint.
func (e *Error) ConflictField() string {
	if e == nil {
		return ""
	}
	s, _ := e.Metadata[MetaConflictField].(string)
	return s
}

// NewValidationError reports raw input failing a value object's schema.
func NewValidationError(field, message string) *Error {
	return &Error{
		Kind:     KindValidation,
		Op:       field,
		Message:  message,
		Metadata: map[string]any{MetaField: field},
	}
}

// NewAggregateValidationError folds several validation failures into one
// error whose metadata lists all of them.
func NewAggregateValidationError(op string, errs []*Error) *Error {
	fields := make([]string, 0, len(errs))
	for _, e := range errs {
		fields = append(fields, e.Field())
	}
	return &Error{
		Kind:     KindValidation,
		Op:       op,
		Message:  fmt.Sprintf("%d invalid field(s): %s", len(errs), strings.Join(fields, ", ")),
		Metadata: map[string]any{MetaErrors: errs},
	}
}

// NewConflictError reports a unique-constraint violation.
func NewConflictError(op, conflictField, constraint, detail string, cause error) *Error {
	return &Error{
		Kind:    KindConflict,
		Op:      op,
		Message: fmt.Sprintf("%s already in use", conflictField),
		Metadata: map[string]any{
			MetaConflictField: conflictField,
			MetaConstraint:    constraint,
			MetaDetail:        detail,
		},
		Err: cause,
	}
}

// NewReferenceError reports a write whose field points at a row that does
// not exist. It is a validation failure: the caller supplied the reference.
func NewReferenceError(op, field, constraint string, cause error) *Error {
	return &Error{
		Kind:     KindValidation,
		Op:       op,
		Message:  "does not refer to an existing record",
		Metadata: map[string]any{MetaField: field, MetaConstraint: constraint},
		Err:      cause,
	}
}

// NewStorageError reports any engine-level failure other than a conflict.
func NewStorageError(op string, cause error) *Error {
	return &Error{Kind: KindStorage, Op: op, Message: "storage operation failed", Err: cause}
}

// NewMappingError reports a record/entity/DTO conversion failure.
func NewMappingError(op, message string, metadata map[string]any, cause error) *Error {
	return &Error{Kind: KindMapping, Op: op, Message: message, Metadata: metadata, Err: cause}
}

// AsError extracts a *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// KindOf returns the kind of the first typed error in err's chain, or "".
func KindOf(err error) ErrorKind {
	if de, ok := AsError(err); ok {
		return de.Kind
	}
	return ""
}

// IsKind reports whether err carries a typed error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

// Wrap converts a native error into a typed one. Errors that are already
// typed are returned unchanged so the original diagnostic is never buried.
func Wrap(kind ErrorKind, op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := AsError(err); ok {
		return err
	}
	return &Error{Kind: kind, Op: op, Message: string(kind) + " failure", Err: err}
}

// ValidationErrors flattens err into the individual field failures it holds.
func ValidationErrors(err error) []*Error {
	de, ok := AsError(err)
	if !ok || de.Kind != KindValidation {
		return nil
	}
	if list, ok := de.Metadata[MetaErrors].([]*Error); ok {
		return list
	}
	return []*Error{de}
}
