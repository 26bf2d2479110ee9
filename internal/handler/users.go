package handler

import (
	"log/slog"
	"net/http"

	"entityvault/internal/domain"
	"entityvault/internal/service"
)

// UserHandler handles user API requests
type UserHandler struct {
	svc    *service.UserService
	logger *slog.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(svc *service.UserService, logger *slog.Logger) *UserHandler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &UserHandler{svc: svc, logger: logger}
}

// ListUsers returns a page of users
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, ok := parsePage(w, r)
	if !ok {
		return
	}

	users, err := h.svc.List(r.Context(), page)
	if err != nil {
		writeServiceError(w, h.logger, "List users", err)
		return
	}
	dtos, err := h.svc.DTOs(users)
	if err != nil {
		writeServiceError(w, h.logger, "List users", err)
		return
	}

	writeJSON(w, dtos, http.StatusOK)
}

// CreateUser registers a new user
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if !decodeBody(w, r, &in) {
		return
	}

	u, err := h.svc.Register(r.Context(), in)
	if err != nil {
		writeServiceError(w, h.logger, "Create user", err)
		return
	}
	h.respond(w, "Create user", u, http.StatusCreated)
}

// GetUser returns a single user
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, h.logger, "Get user", err)
		return
	}
	h.respond(w, "Get user", u, http.StatusOK)
}

// UpdateUserRequest carries the fields a PATCH may change.
type UpdateUserRequest struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
}

// UpdateUser renames a user and/or changes their email
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req UpdateUserRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == nil && req.Email == nil {
		writeError(w, "Invalid request", "nothing to update", http.StatusBadRequest)
		return
	}

	if req.Name != nil {
		if _, err := h.svc.Rename(r.Context(), id, *req.Name); err != nil {
			writeServiceError(w, h.logger, "Update user", err)
			return
		}
	}
	if req.Email != nil {
		if _, err := h.svc.ChangeEmail(r.Context(), id, *req.Email); err != nil {
			writeServiceError(w, h.logger, "Update user", err)
			return
		}
	}

	u, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, "Update user", err)
		return
	}
	h.respond(w, "Update user", u, http.StatusOK)
}

// DeleteUser deletes a user
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, h.logger, "Delete user", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SessionRequest is the body of POST /api/sessions.
type SessionRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CreateSession checks a user's credentials and returns the user.
func (h *UserHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req SessionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	u, err := h.svc.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, h.logger, "Authenticate", err)
		return
	}
	h.respond(w, "Authenticate", u, http.StatusOK)
}

func (h *UserHandler) respond(w http.ResponseWriter, action string, u *domain.User, status int) {
	dto, err := h.svc.DTO(u)
	if err != nil {
		writeServiceError(w, h.logger, action, err)
		return
	}
	writeJSON(w, dto, status)
}
