package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// UserID is the identity of a User: a canonical lowercase UUID v4.
type UserID struct{ value string }

// NewUserID generates a fresh random identity.
func NewUserID() UserID {
	return UserID{value: uuid.NewString()}
}

// ParseUserID validates raw as a UUID v4.
func ParseUserID(raw any) (UserID, error) {
	s, err := parseUUID4("id", raw)
	if err != nil {
		return UserID{}, err
	}
	return UserID{value: s}, nil
}

func (id UserID) Value() string  { return id.value }
func (id UserID) String() string { return id.value }

func (id UserID) Equals(other *UserID) bool {
	return other != nil && id.value == other.value
}

// OrganizationID is the identity of an Organization.
type OrganizationID struct{ value string }

// NewOrganizationID generates a fresh random identity.
func NewOrganizationID() OrganizationID {
	return OrganizationID{value: uuid.NewString()}
}

// ParseOrganizationID validates raw as a UUID v4.
func ParseOrganizationID(raw any) (OrganizationID, error) {
	s, err := parseUUID4("id", raw)
	if err != nil {
		return OrganizationID{}, err
	}
	return OrganizationID{value: s}, nil
}

func (id OrganizationID) Value() string  { return id.value }
func (id OrganizationID) String() string { return id.value }

func (id OrganizationID) Equals(other *OrganizationID) bool {
	return other != nil && id.value == other.value
}

func parseUUID4(field string, raw any) (string, error) {
	s, verr := rawString(field, raw)
	if verr != nil {
		return "", verr
	}
	s = strings.ToLower(strings.TrimSpace(s))
	if verr := checkVar(field, s, "required,uuid4"); verr != nil {
		return "", verr
	}
	return s, nil
}

// Timestamp is a real calendar instant, normalized to UTC and truncated to
// microseconds, the finest precision both SQLite text and Postgres
// TIMESTAMPTZ round-trip.
type Timestamp struct{ value time.Time }

// TimestampPrecision is the resolution every Timestamp is truncated to.
const TimestampPrecision = time.Microsecond

func normalize(t time.Time) time.Time { return t.UTC().Truncate(TimestampPrecision) }

// Now returns the current instant as a Timestamp.
func Now() Timestamp {
	return Timestamp{value: normalize(time.Now())}
}

// TimestampOf wraps an instant produced by trusted code (clocks, drivers).
func TimestampOf(t time.Time) Timestamp {
	return Timestamp{value: normalize(t)}
}

// NewTimestamp accepts an ISO-8601 (RFC 3339) string or a time.Time. Strings
// naming impossible dates such as 2024-02-30 are rejected.
func NewTimestamp(field string, raw any) (Timestamp, error) {
	switch v := raw.(type) {
	case time.Time:
		if v.IsZero() {
			return Timestamp{}, NewValidationError(field, "cannot be empty")
		}
		return Timestamp{value: normalize(v)}, nil
	case *time.Time:
		if v == nil || v.IsZero() {
			return Timestamp{}, NewValidationError(field, "cannot be empty")
		}
		return Timestamp{value: normalize(*v)}, nil
	}

	s, verr := rawString(field, raw)
	if verr != nil {
		return Timestamp{}, verr
	}
	s = strings.TrimSpace(s)
	if verr := checkVar(field, s, "required"); verr != nil {
		return Timestamp{}, verr
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return Timestamp{}, NewValidationError(field, fmt.Sprintf("must be an ISO-8601 datetime: %v", err))
	}
	return Timestamp{value: normalize(t)}, nil
}

func (t Timestamp) Value() time.Time { return t.value }

// String renders the instant in RFC 3339 with fractional seconds, the persisted form.
func (t Timestamp) String() string { return t.value.Format(time.RFC3339Nano) }

func (t Timestamp) IsZero() bool { return t.value.IsZero() }

func (t Timestamp) Equals(other *Timestamp) bool {
	return other != nil && t.value.Equal(other.value)
}
