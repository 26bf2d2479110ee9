package domain

// Entity is an identity-bearing aggregate with lifecycle timestamps.
type Entity[ID Identifier] interface {
	Identity() ID
	CreatedAt() Timestamp
	UpdatedAt() Timestamp
}

// lifecycle holds the timestamps shared by every entity. createdAt is set
// once; updatedAt is only ever replaced by the repository on save.
type lifecycle struct {
	createdAt Timestamp
	updatedAt Timestamp
}

func (l lifecycle) CreatedAt() Timestamp { return l.createdAt }
func (l lifecycle) UpdatedAt() Timestamp { return l.updatedAt }

// User is an account holder.
type User struct {
	lifecycle
	id           UserID
	name         UserName
	email        Email
	passwordHash PasswordHash
}

// NewUserParams carries the validated fields of a brand-new user.
type NewUserParams struct {
	Name         UserName
	Email        Email
	PasswordHash PasswordHash
}

// NewUser creates a user with a fresh identity; createdAt and updatedAt are
// the same instant.
func NewUser(p NewUserParams) *User {
	now := Now()
	return &User{
		lifecycle:    lifecycle{createdAt: now, updatedAt: now},
		id:           NewUserID(),
		name:         p.Name,
		email:        p.Email,
		passwordHash: p.PasswordHash,
	}
}

// ReconstructUserParams carries every persisted field of a user.
type ReconstructUserParams struct {
	ID           UserID
	Name         UserName
	Email        Email
	PasswordHash PasswordHash
	CreatedAt    Timestamp
	UpdatedAt    Timestamp
}

// ReconstructUser rehydrates a stored user.
func ReconstructUser(p ReconstructUserParams) *User {
	return &User{
		lifecycle:    lifecycle{createdAt: p.CreatedAt, updatedAt: p.UpdatedAt},
		id:           p.ID,
		name:         p.Name,
		email:        p.Email,
		passwordHash: p.PasswordHash,
	}
}

func (u *User) Identity() UserID           { return u.id }
func (u *User) ID() UserID                 { return u.id }
func (u *User) Name() UserName             { return u.name }
func (u *User) Email() Email               { return u.email }
func (u *User) PasswordHash() PasswordHash { return u.passwordHash }

// WithName returns a copy of u holding name.
func (u *User) WithName(name UserName) *User {
	cp := *u
	cp.name = name
	return &cp
}

// WithEmail returns a copy of u holding email.
func (u *User) WithEmail(email Email) *User {
	cp := *u
	cp.email = email
	return &cp
}

// WithPasswordHash returns a copy of u holding hash.
func (u *User) WithPasswordHash(hash PasswordHash) *User {
	cp := *u
	cp.passwordHash = hash
	return &cp
}
