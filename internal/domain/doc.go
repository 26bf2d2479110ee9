// Package domain defines the entities, value objects and typed errors of
// entityvault.
//
// # Value Objects
//
// Every primitive that crosses a boundary is wrapped in a value object
// (UserID, UserName, Email, PasswordHash, Slug, Timestamp, ...). The only
// way to obtain one is its constructor, which validates and normalizes the
// raw input and returns a validation *Error on failure. Value objects are
// immutable and compare by wrapped value.
//
// # Entities
//
// User and Organization are identity-bearing aggregates of value objects
// plus created/updated timestamps. NewUser and NewOrganization mint a fresh
// identity; Reconstruct* rehydrate stored rows without re-stamping. The
// With* methods return modified copies.
//
// # Errors
//
// Error carries a Kind (validation, conflict, storage, mapping) and
// kind-specific Metadata. Use KindOf, IsKind and ValidationErrors to
// inspect a returned error.
//
// # Design Principles
//
// - No database or external dependencies beyond validation and UUIDs
// - Constructors validate, accessors never fail
package domain
