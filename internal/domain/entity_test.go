package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestUser(t *testing.T) *User {
	t.Helper()
	name, err := NewUserName("Ada")
	require.NoError(t, err)
	email, err := NewEmail("ada@example.com")
	require.NoError(t, err)
	hash, err := NewPasswordHash("hash")
	require.NoError(t, err)
	return NewUser(NewUserParams{Name: name, Email: email, PasswordHash: hash})
}

func TestNewUser(t *testing.T) {
	u := newTestUser(t)

	_, err := ParseUserID(u.ID().Value())
	require.NoError(t, err)
	assert.Equal(t, u.ID(), u.Identity())
	assert.False(t, u.CreatedAt().IsZero())
	assert.True(t, u.CreatedAt().Equals(ptr(u.UpdatedAt())))
}

func TestUserWithIsCopyOnWrite(t *testing.T) {
	u := newTestUser(t)
	name, _ := NewUserName("Grace")
	email, _ := NewEmail("grace@example.com")
	hash, _ := NewPasswordHash("other")

	renamed := u.WithName(name).WithEmail(email).WithPasswordHash(hash)

	assert.Equal(t, "Ada", u.Name().Value())
	assert.Equal(t, "ada@example.com", u.Email().Value())
	assert.Equal(t, "Grace", renamed.Name().Value())
	assert.Equal(t, "grace@example.com", renamed.Email().Value())
	assert.Equal(t, "other", renamed.PasswordHash().Value())
	assert.Equal(t, u.ID(), renamed.ID())
	assert.True(t, u.CreatedAt().Equals(ptr(renamed.CreatedAt())))
}

func TestReconstructUserKeepsTimestamps(t *testing.T) {
	created := TimestampOf(time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC))
	updated := TimestampOf(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))

	u := ReconstructUser(ReconstructUserParams{ID: NewUserID(), CreatedAt: created, UpdatedAt: updated})
	assert.True(t, u.CreatedAt().Equals(&created))
	assert.True(t, u.UpdatedAt().Equals(&updated))
}

func TestOrganization(t *testing.T) {
	owner := newTestUser(t)
	name, _ := NewOrganizationName("Acme Labs")
	slug, _ := NewSlug("acme-labs")

	o := NewOrganization(NewOrganizationParams{Name: name, Slug: slug, OwnerID: owner.ID()})
	assert.Equal(t, owner.ID(), o.OwnerID())
	assert.Equal(t, o.ID(), o.Identity())

	other, _ := NewOrganizationName("Acme")
	renamed := o.WithName(other)
	assert.Equal(t, "Acme Labs", o.Name().Value())
	assert.Equal(t, "Acme", renamed.Name().Value())
	assert.Equal(t, "acme-labs", renamed.Slug().Value())
}

func TestErrorClassification(t *testing.T) {
	conflict := NewConflictError("users.save", "email", "users_email_key", "duplicate", errors.New("driver"))
	wrapped := fmt.Errorf("register: %w", conflict)

	assert.Equal(t, KindConflict, KindOf(wrapped))
	assert.True(t, IsKind(wrapped, KindConflict))
	de, ok := AsError(wrapped)
	require.True(t, ok)
	assert.Equal(t, "email", de.ConflictField())
	assert.Equal(t, "users_email_key", de.Metadata[MetaConstraint])
	assert.Contains(t, conflict.Error(), "users.save: conflict: email already in use: driver")

	assert.Equal(t, ErrorKind(""), KindOf(errors.New("plain")))
	assert.Nil(t, ValidationErrors(conflict))
}

func TestWrapPassesTypedErrorsThrough(t *testing.T) {
	typed := NewValidationError("name", "bad")
	assert.Same(t, typed, Wrap(KindStorage, "op", typed))

	plain := errors.New("disk full")
	w := Wrap(KindStorage, "users.save", plain)
	assert.True(t, IsKind(w, KindStorage))
	assert.ErrorIs(t, w, plain)

	assert.NoError(t, Wrap(KindStorage, "op", nil))
}

func TestAggregateValidationError(t *testing.T) {
	agg := NewAggregateValidationError("register", []*Error{
		NewValidationError("name", "cannot be empty"),
		NewValidationError("email", "must be a valid email address"),
	})

	assert.Contains(t, agg.Error(), "2 invalid field(s): name, email")
	list := ValidationErrors(agg)
	require.Len(t, list, 2)
	assert.Equal(t, "email", list[1].Field())

	single := NewValidationError("slug", "bad")
	assert.Equal(t, []*Error{single}, ValidationErrors(single))
}

func TestNilErrorAccessors(t *testing.T) {
	var e *Error
	assert.Equal(t, "<nil>", e.Error())
	assert.Empty(t, e.Field())
	assert.Empty(t, e.ConflictField())
	assert.NoError(t, e.Unwrap())
}

func ptr[T any](v T) *T { return &v }
