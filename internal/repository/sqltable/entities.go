package sqltable

import "entityvault/internal/repository"

// UsersConfig describes the users table.
func UsersConfig() Config {
	return Config{
		Name:       repository.UsersTable,
		PrimaryKey: repository.UserColID,
		Columns:    repository.UserColumns,
		Immutable:  []string{repository.UserColCreatedAt},
	}
}

// OrganizationsConfig describes the organizations table.
func OrganizationsConfig() Config {
	return Config{
		Name:       repository.OrganizationsTable,
		PrimaryKey: repository.OrgColID,
		Columns:    repository.OrganizationColumns,
		Immutable:  []string{repository.OrgColCreatedAt},
	}
}

// Users builds the user repository over db.
func Users(db DB, dialect Dialect, opts ...repository.Option) (*repository.Users, error) {
	t, err := New(db, dialect, UsersConfig())
	if err != nil {
		return nil, err
	}
	return repository.NewUsers(t, opts...), nil
}

// Organizations builds the organization repository over db.
func Organizations(db DB, dialect Dialect, opts ...repository.Option) (*repository.Organizations, error) {
	t, err := New(db, dialect, OrganizationsConfig())
	if err != nil {
		return nil, err
	}
	return repository.NewOrganizations(t, opts...), nil
}
