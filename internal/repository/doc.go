// Package repository provides generic, typed persistence for domain entities.
//
// A Store pairs one mapper.Mapper with one Table handle and implements the
// Repository CRUD surface for a single entity type. Users and Organizations
// are the concrete repositories built on it.
//
// # Table handles
//
// The Table interface is the only thing a Store needs from an engine:
// keyed select, paged select, an atomic insert-or-update on primary key,
// keyed delete and keyed count. The sqltable subpackage implements it over
// database/sql, with the sqlite and postgres subpackages supplying the
// engine dialects and schema.
//
// # Errors
//
// Every method returns a *domain.Error:
//
//   - conflict when a write hits a unique constraint, naming the column
//   - storage for any other engine failure
//   - mapping or validation when a row cannot be turned into an entity
//
// Absence is not an error: FindByID reports it through its bool result and
// Delete of a missing id succeeds.
//
// # Timestamps
//
// Save always stamps updated_at from the Store's clock. created_at is
// written on insert only.
package repository
