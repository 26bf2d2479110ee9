package repository

import (
	"context"

	"entityvault/internal/domain"
	"entityvault/internal/mapper"
)

// Column names of the users table.
const (
	UsersTable          = "users"
	UserColID           = "id"
	UserColName         = "name"
	UserColEmail        = "email"
	UserColPasswordHash = "password_hash"
	UserColCreatedAt    = "created_at"
	UserColUpdatedAt    = "updated_at"
)

// UserColumns lists the users table columns in declaration order.
var UserColumns = []string{UserColID, UserColName, UserColEmail, UserColPasswordHash, UserColCreatedAt, UserColUpdatedAt}

// NewUserMapper returns the declarative conversion tables for users.
func NewUserMapper() *mapper.Mapper[*domain.User, domain.UserDTO] {
	return &mapper.Mapper[*domain.User, domain.UserDTO]{
		Domain: mapper.MappingConfig[*domain.User]{
			RequiredFields: UserColumns,
			ValueObjects: map[string]mapper.ValueObjectMapping{
				"id":           {SourceField: UserColID, Factory: mapper.VO(domain.ParseUserID)},
				"name":         {SourceField: UserColName, Factory: mapper.VO(domain.NewUserName)},
				"email":        {SourceField: UserColEmail, Factory: mapper.VO(domain.NewEmail)},
				"passwordHash": {SourceField: UserColPasswordHash, Factory: mapper.VO(domain.NewPasswordHash)},
				"createdAt":    {SourceField: UserColCreatedAt, Factory: timestampFactory("createdAt")},
				"updatedAt":    {SourceField: UserColUpdatedAt, Factory: timestampFactory("updatedAt")},
			},
			Construct: func(vos mapper.ValueObjects, _ mapper.Record) (*domain.User, error) {
				r := mapper.NewReader(vos)
				p := domain.ReconstructUserParams{
					ID:           mapper.Read[domain.UserID](r, "id"),
					Name:         mapper.Read[domain.UserName](r, "name"),
					Email:        mapper.Read[domain.Email](r, "email"),
					PasswordHash: mapper.Read[domain.PasswordHash](r, "passwordHash"),
					CreatedAt:    mapper.Read[domain.Timestamp](r, "createdAt"),
					UpdatedAt:    mapper.Read[domain.Timestamp](r, "updatedAt"),
				}
				if err := r.Err(); err != nil {
					return nil, err
				}
				return domain.ReconstructUser(p), nil
			},
		},
		Persistence: mapper.Properties[*domain.User]{
			UserColID:           {Path: "id.value", Get: mapper.Field(func(u *domain.User) string { return u.ID().Value() })},
			UserColName:         {Path: "name.value", Get: mapper.Field(func(u *domain.User) string { return u.Name().Value() })},
			UserColEmail:        {Path: "email.value", Get: mapper.Field(func(u *domain.User) string { return u.Email().Value() })},
			UserColPasswordHash: {Path: "passwordHash.value", Get: mapper.Field(func(u *domain.User) string { return u.PasswordHash().Value() })},
			UserColCreatedAt:    {Path: "createdAt.value", Get: timestampField(func(u *domain.User) domain.Timestamp { return u.CreatedAt() })},
			UserColUpdatedAt:    {Path: "updatedAt.value", Get: timestampField(func(u *domain.User) domain.Timestamp { return u.UpdatedAt() })},
		},
		DTO: mapper.Properties[*domain.User]{
			"id":        {Path: "id.value", Get: mapper.Field(func(u *domain.User) string { return u.ID().Value() })},
			"name":      {Path: "name.value", Get: mapper.Field(func(u *domain.User) string { return u.Name().Value() })},
			"email":     {Path: "email.value", Get: mapper.Field(func(u *domain.User) string { return u.Email().Value() })},
			"createdAt": {Path: "createdAt.value", Get: timestampField(func(u *domain.User) domain.Timestamp { return u.CreatedAt() })},
			"updatedAt": {Path: "updatedAt.value", Get: timestampField(func(u *domain.User) domain.Timestamp { return u.UpdatedAt() })},
		},
	}
}

func timestampFactory(field string) mapper.Factory {
	return func(raw any) (any, error) {
		ts, err := domain.NewTimestamp(field, raw)
		if err != nil {
			return nil, err
		}
		return ts, nil
	}
}

// timestampField reads a timestamp as its persisted string. A zero
// timestamp counts as absent.
func timestampField[E any](get func(E) domain.Timestamp) func(E) (any, bool) {
	return mapper.Optional(func(e E) (string, bool) {
		ts := get(e)
		if ts.IsZero() {
			return "", false
		}
		return ts.String(), true
	})
}

// Users is the user repository: the generic Store plus lookups by email.
type Users struct {
	*Store[domain.UserID, *domain.User, domain.UserDTO, Table]
}

// NewUsers builds a user repository over table.
func NewUsers(table Table, opts ...Option) *Users {
	return &Users{Store: NewStore[domain.UserID](table, NewUserMapper(), opts...)}
}

// FindByEmail loads the user holding email, if any.
func (r *Users) FindByEmail(ctx context.Context, email domain.Email) (*domain.User, bool, error) {
	users, err := r.findBy(ctx, "findByEmail", UserColEmail, email.Value(), Limit(1))
	if err != nil {
		return nil, false, err
	}
	if len(users) == 0 {
		return nil, false, nil
	}
	return users[0], true, nil
}

// EnsureEmailAvailable returns a conflict error when a user other than
// owner already holds email.
//
// The check and the following Save are two round trips, so a concurrent
// writer can claim the address in between. The unique constraint on the
// email column still rejects the second write with a conflict error.
func (r *Users) EnsureEmailAvailable(ctx context.Context, email domain.Email, owner domain.UserID) error {
	existing, found, err := r.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if found && existing.ID() != owner {
		return domain.NewConflictError(r.op("ensureEmailAvailable"), UserColEmail, "", "email already registered", nil)
	}
	return nil
}
