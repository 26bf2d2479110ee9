package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValueObject is the contract shared by every self-validating wrapper: the
// only way to obtain one is its constructor, which validates first.
type ValueObject[T any] interface {
	Value() T
	String() string
}

// Identifier is the constraint satisfied by entity identity value objects.
type Identifier interface {
	comparable
	Value() string
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// validate is shared; building a validator is expensive.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	err := v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slugPattern.MatchString(fl.Field().String())
	})
	if err != nil {
		panic(fmt.Sprintf("register slug validation: %v", err))
	}
	return v
}

// checkVar runs a validator tag against value and turns the first failing
// rule into a ValidationError for field.
func checkVar(field string, value any, tag string) *Error {
	err := validate.Var(value, tag)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return NewValidationError(field, err.Error())
	}
	return NewValidationError(field, ruleMessage(verrs[0]))
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "cannot be empty"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "email":
		return "must be a valid email address"
	case "uuid4":
		return "must be a UUID v4"
	case "slug":
		return "must contain only lowercase letters, digits and single hyphens"
	default:
		return fmt.Sprintf("failed %q rule", fe.Tag())
	}
}

// rawString accepts the primitive shapes a record may carry for a text column.
func rawString(field string, raw any) (string, *Error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case fmt.Stringer:
		return v.String(), nil
	case nil:
		return "", NewValidationError(field, "cannot be empty")
	default:
		return "", NewValidationError(field, fmt.Sprintf("expected text, got %T", raw))
	}
}

// UserName is a trimmed display name of 1 to 50 characters.
type UserName struct{ value string }

// NewUserName validates raw and returns the normalized name.
func NewUserName(raw any) (UserName, error) {
	s, verr := rawString("name", raw)
	if verr != nil {
		return UserName{}, verr
	}
	s = strings.TrimSpace(s)
	if verr := checkVar("name", s, "required,max=50"); verr != nil {
		return UserName{}, verr
	}
	return UserName{value: s}, nil
}

func (n UserName) Value() string  { return n.value }
func (n UserName) String() string { return n.value }

// Equals compares by wrapped value; a nil other is never equal.
func (n UserName) Equals(other *UserName) bool {
	return other != nil && n.value == other.value
}

// OrganizationName follows the same rules as UserName.
type OrganizationName struct{ value string }

// NewOrganizationName validates raw and returns the normalized name.
func NewOrganizationName(raw any) (OrganizationName, error) {
	s, verr := rawString("name", raw)
	if verr != nil {
		return OrganizationName{}, verr
	}
	s = strings.TrimSpace(s)
	if verr := checkVar("name", s, "required,max=50"); verr != nil {
		return OrganizationName{}, verr
	}
	return OrganizationName{value: s}, nil
}

func (n OrganizationName) Value() string  { return n.value }
func (n OrganizationName) String() string { return n.value }

func (n OrganizationName) Equals(other *OrganizationName) bool {
	return other != nil && n.value == other.value
}

// Email is an address accepted by the validator's RFC 5322 pattern.
type Email struct{ value string }

// NewEmail validates raw. Surrounding whitespace is dropped.
func NewEmail(raw any) (Email, error) {
	s, verr := rawString("email", raw)
	if verr != nil {
		return Email{}, verr
	}
	s = strings.TrimSpace(s)
	if verr := checkVar("email", s, "required,email"); verr != nil {
		return Email{}, verr
	}
	return Email{value: s}, nil
}

func (e Email) Value() string  { return e.value }
func (e Email) String() string { return e.value }

func (e Email) Equals(other *Email) bool {
	return other != nil && e.value == other.value
}

// PasswordHash wraps an already-hashed password. It never holds plaintext.
type PasswordHash struct{ value string }

// NewPasswordHash accepts any non-empty hash string.
func NewPasswordHash(raw any) (PasswordHash, error) {
	s, verr := rawString("passwordHash", raw)
	if verr != nil {
		return PasswordHash{}, verr
	}
	if verr := checkVar("passwordHash", s, "required"); verr != nil {
		return PasswordHash{}, verr
	}
	return PasswordHash{value: s}, nil
}

func (p PasswordHash) Value() string { return p.value }

// String redacts the hash so it does not leak into logs.
func (p PasswordHash) String() string { return "[redacted]" }

func (p PasswordHash) Equals(other *PasswordHash) bool {
	return other != nil && p.value == other.value
}

// Slug is a URL-safe lowercase handle.
type Slug struct{ value string }

// NewSlug validates raw as 2 to 63 lowercase letters, digits and hyphens.
func NewSlug(raw any) (Slug, error) {
	s, verr := rawString("slug", raw)
	if verr != nil {
		return Slug{}, verr
	}
	s = strings.TrimSpace(s)
	if verr := checkVar("slug", s, "required,min=2,max=63,slug"); verr != nil {
		return Slug{}, verr
	}
	return Slug{value: s}, nil
}

func (s Slug) Value() string  { return s.value }
func (s Slug) String() string { return s.value }

func (s Slug) Equals(other *Slug) bool {
	return other != nil && s.value == other.value
}
