package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Routes collects everything the HTTP API serves. Nil handlers are not mounted.
type Routes struct {
	Users         *UserHandler
	Organizations *OrganizationHandler
	Database      Pinger
	Metrics       http.Handler
	Events        http.Handler
	Logger        *slog.Logger
}

// NewRouter builds the API mux wrapped in the standard middleware.
func NewRouter(rt Routes) http.Handler {
	logger := rt.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	mux := http.NewServeMux()

	if u := rt.Users; u != nil {
		mux.HandleFunc("GET /api/users", u.ListUsers)
		mux.HandleFunc("POST /api/users", u.CreateUser)
		mux.HandleFunc("GET /api/users/{id}", u.GetUser)
		mux.HandleFunc("PATCH /api/users/{id}", u.UpdateUser)
		mux.HandleFunc("DELETE /api/users/{id}", u.DeleteUser)
		mux.HandleFunc("POST /api/sessions", u.CreateSession)
	}

	if o := rt.Organizations; o != nil {
		mux.HandleFunc("GET /api/organizations", o.ListOrganizations)
		mux.HandleFunc("POST /api/organizations", o.CreateOrganization)
		mux.HandleFunc("GET /api/organizations/{id}", o.GetOrganization)
		mux.HandleFunc("GET /api/organizations/by-slug/{slug}", o.GetOrganizationBySlug)
		mux.HandleFunc("DELETE /api/organizations/{id}", o.DeleteOrganization)
	}

	mux.HandleFunc("GET /healthz", health(rt.Database))

	if rt.Metrics != nil {
		mux.Handle("GET /metrics", rt.Metrics)
	}
	if rt.Events != nil {
		mux.Handle("GET /api/events", rt.Events)
	}

	return Chain(mux, Recover(logger), Logger(logger))
}

func health(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				writeError(w, "Database unavailable", err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		writeJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
	}
}
