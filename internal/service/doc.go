// Package service implements the account and organization use cases on top
// of the repositories.
//
// # Services
//
// UserService registers users (hashing passwords with bcrypt), renames
// them, moves them to a new email, deletes them and authenticates them.
// Registration input runs through the mapper's value-object step, so a
// request with several bad fields reports all of them.
//
// OrganizationService creates organizations for existing users and looks
// them up by ID, slug or owner.
//
// # Errors
//
// Services return the repositories' typed errors unchanged and add
// domain.ErrNotFound for operations on an entity that must exist.
//
// # Event System
//
// Services publish lifecycle events on an EventBus. The HTTP layer
// relays them to Server-Sent Events clients.
package service
