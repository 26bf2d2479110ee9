package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"entityvault/internal/domain"
	"entityvault/internal/metrics"
	"entityvault/internal/repository/sqlite"
	"entityvault/internal/service"
)

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	db, err := sqlite.New(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	userRepo, err := db.Users()
	require.NoError(t, err)
	orgRepo, err := db.Organizations()
	require.NoError(t, err)

	users := service.NewUserService(userRepo, nil, service.UserServiceConfig{BcryptCost: bcrypt.MinCost})
	orgs := service.NewOrganizationService(orgRepo, userRepo, nil, nil)

	return NewRouter(Routes{
		Users:         NewUserHandler(users, nil),
		Organizations: NewOrganizationHandler(orgs, nil),
		Database:      db,
		Metrics:       metrics.NewRecorder(false).Handler(),
	})
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(bytes.NewReader(w.Body.Bytes())).Decode(&v), w.Body.String())
	return v
}

func createUser(t *testing.T, h http.Handler, email string) domain.UserDTO {
	t.Helper()
	w := do(t, h, http.MethodPost, "/api/users", `{"name":"Ada","email":"`+email+`","password":"correct horse"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[domain.UserDTO](t, w)
}

func fieldNames(resp ErrorResponse) []string {
	var names []string
	for _, f := range resp.Fields {
		names = append(names, f.Field)
	}
	return names
}

func TestCreateAndGetUser(t *testing.T) {
	h := newTestRouter(t)

	created := createUser(t, h, "ada@example.com")
	assert.Equal(t, "Ada", created.Name)
	assert.NotContains(t, do(t, h, http.MethodGet, "/api/users/"+created.ID, "").Body.String(), "password")

	w := do(t, h, http.MethodGet, "/api/users/"+created.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, created, decode[domain.UserDTO](t, w))
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
}

func TestCreateUserValidation(t *testing.T) {
	h := newTestRouter(t)

	w := do(t, h, http.MethodPost, "/api/users", `{"name":"","email":"nope","password":"short"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode[ErrorResponse](t, w)
	assert.Equal(t, "Invalid request", resp.Error)
	assert.ElementsMatch(t, []string{"name", "email", "password"}, fieldNames(resp))
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	h := newTestRouter(t)
	createUser(t, h, "ada@example.com")

	w := do(t, h, http.MethodPost, "/api/users", `{"name":"Eve","email":"ada@example.com","password":"password1"}`)
	require.Equal(t, http.StatusConflict, w.Code)
	resp := decode[ErrorResponse](t, w)
	assert.Equal(t, "Conflict", resp.Error)
	assert.Equal(t, []FieldError{{Field: "email", Message: "already in use"}}, resp.Fields)
}

func TestRejectsMalformedBodies(t *testing.T) {
	h := newTestRouter(t)

	for _, body := range []string{`{"name":"Ada","admin":true}`, `{"name":`, `[]`} {
		w := do(t, h, http.MethodPost, "/api/users", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Equal(t, "Invalid request body", decode[ErrorResponse](t, w).Error)
	}
}

func TestGetUserErrors(t *testing.T) {
	h := newTestRouter(t)

	w := do(t, h, http.MethodGet, "/api/users/"+domain.NewUserID().Value(), "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h, http.MethodGet, "/api/users/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateUser(t *testing.T) {
	h := newTestRouter(t)
	u := createUser(t, h, "ada@example.com")
	createUser(t, h, "grace@example.com")

	w := do(t, h, http.MethodPatch, "/api/users/"+u.ID, `{}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "nothing to update", decode[ErrorResponse](t, w).Details)

	w = do(t, h, http.MethodPatch, "/api/users/"+u.ID, `{"name":"Countess","email":"ada@lovelace.org"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode[domain.UserDTO](t, w)
	assert.Equal(t, "Countess", got.Name)
	assert.Equal(t, "ada@lovelace.org", got.Email)
	assert.Equal(t, u.CreatedAt, got.CreatedAt)

	w = do(t, h, http.MethodPatch, "/api/users/"+u.ID, `{"email":"grace@example.com"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestDeleteUser(t *testing.T) {
	h := newTestRouter(t)
	u := createUser(t, h, "ada@example.com")

	w := do(t, h, http.MethodDelete, "/api/users/"+u.ID, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/users/"+u.ID, "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodDelete, "/api/users/"+u.ID, "").Code)
}

func TestListUsersPaging(t *testing.T) {
	h := newTestRouter(t)
	createUser(t, h, "a@example.com")
	createUser(t, h, "b@example.com")
	createUser(t, h, "c@example.com")

	w := do(t, h, http.MethodGet, "/api/users", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]domain.UserDTO](t, w), 3)

	w = do(t, h, http.MethodGet, "/api/users?limit=2&offset=2", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]domain.UserDTO](t, w), 1)

	w = do(t, h, http.MethodGet, "/api/users?limit=ten", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []string{"limit"}, fieldNames(decode[ErrorResponse](t, w)))

	w = do(t, h, http.MethodGet, "/api/users?offset=-1", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateSession(t *testing.T) {
	h := newTestRouter(t)
	u := createUser(t, h, "ada@example.com")

	w := do(t, h, http.MethodPost, "/api/sessions", `{"email":"ada@example.com","password":"correct horse"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, u.ID, decode[domain.UserDTO](t, w).ID)

	w = do(t, h, http.MethodPost, "/api/sessions", `{"email":"ada@example.com","password":"wrong horse"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid credentials", decode[ErrorResponse](t, w).Error)
}

func TestOrganizations(t *testing.T) {
	h := newTestRouter(t)
	owner := createUser(t, h, "ada@example.com")
	other := createUser(t, h, "grace@example.com")

	w := do(t, h, http.MethodPost, "/api/organizations", `{"name":"Acme","slug":"acme","ownerId":"`+owner.ID+`"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	org := decode[domain.OrganizationDTO](t, w)
	assert.Equal(t, owner.ID, org.OwnerID)

	w = do(t, h, http.MethodPost, "/api/organizations", `{"name":"Acme","slug":"acme","ownerId":"`+other.ID+`"}`)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, []string{"slug"}, fieldNames(decode[ErrorResponse](t, w)))

	w = do(t, h, http.MethodGet, "/api/organizations/"+org.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, org, decode[domain.OrganizationDTO](t, w))

	w = do(t, h, http.MethodGet, "/api/organizations/by-slug/acme", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, org.ID, decode[domain.OrganizationDTO](t, w).ID)

	w = do(t, h, http.MethodGet, "/api/organizations?owner="+owner.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]domain.OrganizationDTO](t, w), 1)

	w = do(t, h, http.MethodGet, "/api/organizations?owner="+owner.ID+"&offset=1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]domain.OrganizationDTO](t, w))

	w = do(t, h, http.MethodGet, "/api/organizations?owner="+other.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]domain.OrganizationDTO](t, w))

	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/api/organizations/"+org.ID, "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/organizations/by-slug/acme", "").Code)
}

func TestCreateOrganizationUnknownOwner(t *testing.T) {
	h := newTestRouter(t)

	w := do(t, h, http.MethodPost, "/api/organizations",
		`{"name":"Acme","slug":"acme","ownerId":"`+domain.NewUserID().Value()+`"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []string{"ownerId"}, fieldNames(decode[ErrorResponse](t, w)))
}

func TestHealthz(t *testing.T) {
	h := newTestRouter(t)
	w := do(t, h, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]string{"status": "ok"}, decode[map[string]string](t, w))

	down := NewRouter(Routes{Database: failingPinger{}})
	w = do(t, down, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "Database unavailable", decode[ErrorResponse](t, w).Error)
}

func TestOptionalRoutes(t *testing.T) {
	h := newTestRouter(t)
	w := do(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)

	bare := NewRouter(Routes{})
	assert.Equal(t, http.StatusNotFound, do(t, bare, http.MethodGet, "/metrics", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, bare, http.MethodGet, "/api/users", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, bare, http.MethodGet, "/api/events", "").Code)
}

func TestRecoverReturns500(t *testing.T) {
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}), Recover(slog.New(slog.DiscardHandler)))

	w := do(t, h, http.MethodGet, "/", "")
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal server error", decode[ErrorResponse](t, w).Error)
}

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}), mark("outer"), mark("inner"))
	do(t, h, http.MethodGet, "/", "")

	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}

func TestLoggerRecordsStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}), Logger(logger))

	do(t, h, http.MethodGet, "/brew", "")
	assert.Contains(t, buf.String(), "status=418")
	assert.Contains(t, buf.String(), "path=/brew")
}
