package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"entityvault/internal/domain"
	"entityvault/internal/repository"
)

type recordingExec struct {
	execs []string
	err   error
}

func (r *recordingExec) ExecContext(_ context.Context, query string, _ ...any) (sql.Result, error) {
	r.execs = append(r.execs, query)
	return nil, r.err
}

func TestEnsureSchemaCreatesTables(t *testing.T) {
	rec := &recordingExec{}
	require.NoError(t, EnsureSchema(context.Background(), rec))

	require.Len(t, rec.execs, len(schema))
	assert.Contains(t, rec.execs[0], "CREATE TABLE IF NOT EXISTS users")
	assert.Contains(t, rec.execs[0], "users_email_key UNIQUE (email)")
	assert.Contains(t, rec.execs[1], "CREATE TABLE IF NOT EXISTS organizations")
}

func TestEnsureSchemaStopsOnError(t *testing.T) {
	rec := &recordingExec{err: errors.New("permission denied")}
	err := EnsureSchema(context.Background(), rec)
	require.Error(t, err)
	assert.Len(t, rec.execs, 1)
}

func TestNewPropagatesOpenError(t *testing.T) {
	restore := OverrideSQLOpen(func(driver, dsn string) (*sql.DB, error) {
		assert.Equal(t, "pgx", driver)
		assert.Equal(t, defaultDSN, dsn)
		return nil, errors.New("no driver")
	})
	defer restore()

	_, err := New(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open postgres")
}

func TestPlaceholder(t *testing.T) {
	assert.Equal(t, "$1", Dialect{}.Placeholder(1))
	assert.Equal(t, "$12", Dialect{}.Placeholder(12))
}

func TestPaginate(t *testing.T) {
	n := 0
	next := func(any) string { n++; return fmt.Sprintf("$%d", n) }

	assert.Equal(t, "", Dialect{}.Paginate(repository.Page{}, next))
	assert.Equal(t, "LIMIT $1", Dialect{}.Paginate(repository.Limit(5), next))
	assert.Equal(t, "OFFSET $2", Dialect{}.Paginate(repository.Offset(5), next))
	assert.Equal(t, "LIMIT $3 OFFSET $4", Dialect{}.Paginate(repository.LimitOffset(1, 2), next))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name           string
		err            *pgconn.PgError
		wantColumn     string
		wantConstraint string
	}{
		{
			name: "detail names the key",
			err: &pgconn.PgError{
				Code:           "23505",
				ConstraintName: "users_email_key",
				Detail:         "Key (email)=(a@example.com) already exists.",
			},
			wantColumn:     "email",
			wantConstraint: "users_email_key",
		},
		{
			name: "composite key uses first column",
			err: &pgconn.PgError{
				Code:           "23505",
				ConstraintName: "memberships_pkey",
				Detail:         "Key (org_id, user_id)=(1, 2) already exists.",
			},
			wantColumn:     "org_id",
			wantConstraint: "memberships_pkey",
		},
		{
			name: "no detail falls back to constraint name",
			err: &pgconn.PgError{
				Code:           "23505",
				TableName:      "organizations",
				ConstraintName: "organizations_slug_key",
			},
			wantColumn:     "slug",
			wantConstraint: "organizations_slug_key",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("upsert users: %w", tt.err)

			var uv *repository.UniqueViolation
			require.ErrorAs(t, Dialect{}.Classify("users", wrapped), &uv)
			assert.Equal(t, tt.wantColumn, uv.Column)
			assert.Equal(t, tt.wantConstraint, uv.Constraint)
			assert.ErrorIs(t, uv, tt.err)
		})
	}
}

func TestClassifyForeignKey(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:           "23503",
		TableName:      "organizations",
		ConstraintName: "organizations_owner_id_fkey",
		Detail:         `Key (owner_id)=(7f3c2a1e-9b4d-4c8e-a2f1-0d6b5e4c3a21) is not present in table "users".`,
	}

	var fk *repository.ForeignKeyViolation
	require.ErrorAs(t, Dialect{}.Classify("organizations", fmt.Errorf("upsert organizations: %w", pgErr)), &fk)
	assert.Equal(t, "organizations", fk.Table)
	assert.Equal(t, "owner_id", fk.Column)
	assert.Equal(t, "organizations_owner_id_fkey", fk.Constraint)
	assert.ErrorIs(t, fk, pgErr)
}

func TestClassifyLeavesOtherErrors(t *testing.T) {
	check := &pgconn.PgError{Code: "23514"}
	assert.Same(t, error(check), Dialect{}.Classify("users", check))

	plain := errors.New("connection reset")
	assert.Same(t, plain, Dialect{}.Classify("users", plain))
}

// TestIntegration runs against a real server when
// ENTITYVAULT_TEST_POSTGRES_DSN is set.
func TestIntegration(t *testing.T) {
	dsn := os.Getenv("ENTITYVAULT_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("ENTITYVAULT_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()

	db, err := New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.DB().ExecContext(ctx, "TRUNCATE users CASCADE")
	require.NoError(t, err)

	users, err := db.Users()
	require.NoError(t, err)

	newUser := func(email string) *domain.User {
		n, _ := domain.NewUserName("Alice")
		e, err := domain.NewEmail(email)
		require.NoError(t, err)
		h, _ := domain.NewPasswordHash("hash")
		return domain.NewUser(domain.NewUserParams{Name: n, Email: e, PasswordHash: h})
	}

	u := newUser("alice@example.com")
	saved, err := users.Save(ctx, u)
	require.NoError(t, err)

	got, found, err := users.FindByID(ctx, u.ID())
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, u.Email(), got.Email())
	assert.True(t, u.CreatedAt().Equals(ptr(got.CreatedAt())))
	assert.True(t, saved.CreatedAt().Equals(ptr(got.CreatedAt())))
	assert.True(t, saved.UpdatedAt().Equals(ptr(got.UpdatedAt())))

	orgs, err := db.Organizations()
	require.NoError(t, err)
	name, _ := domain.NewOrganizationName("Acme")
	slug, _ := domain.NewSlug("acme")
	_, err = orgs.Save(ctx, domain.NewOrganization(domain.NewOrganizationParams{Name: name, Slug: slug, OwnerID: domain.NewUserID()}))
	derr, ok := domain.AsError(err)
	require.True(t, ok)
	assert.Equal(t, domain.KindValidation, derr.Kind)
	assert.Equal(t, "owner_id", derr.Field())

	_, err = users.Save(ctx, newUser("alice@example.com"))
	derr, ok = domain.AsError(err)
	require.True(t, ok)
	assert.Equal(t, domain.KindConflict, derr.Kind)
	assert.Equal(t, "email", derr.ConflictField())
	assert.Equal(t, "users.save", derr.Op)

	all, err := users.FindAll(ctx, repository.Offset(0))
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, users.Delete(ctx, u.ID()))
	require.NoError(t, users.Delete(ctx, u.ID()))
}

func ptr[T any](v T) *T { return &v }
