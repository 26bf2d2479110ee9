package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"entityvault/internal/domain"
	"entityvault/internal/repository"
	"entityvault/internal/service"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error   string       `json:"error"`
	Details string       `json:"details,omitempty"`
	Fields  []FieldError `json:"fields,omitempty"`
}

// FieldError names one invalid or conflicting input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, error, details string, statusCode int) {
	writeJSON(w, ErrorResponse{Error: error, Details: details}, statusCode)
}

// writeServiceError maps a service failure onto a status code:
// validation 400, bad credentials 401, not found 404, conflict 409 and
// everything else 500.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, action string, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, "Not found", err.Error(), http.StatusNotFound)
		return
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, "Invalid credentials", "", http.StatusUnauthorized)
		return
	}

	de, ok := domain.AsError(err)
	if !ok {
		logger.Error(action+" failed", "error", err)
		writeError(w, action+" failed", "internal error", http.StatusInternalServerError)
		return
	}

	switch de.Kind {
	case domain.KindValidation:
		resp := ErrorResponse{Error: "Invalid request", Details: de.Message}
		for _, fe := range domain.ValidationErrors(de) {
			resp.Fields = append(resp.Fields, FieldError{Field: fe.Field(), Message: fe.Message})
		}
		writeJSON(w, resp, http.StatusBadRequest)
	case domain.KindConflict:
		writeJSON(w, ErrorResponse{
			Error:   "Conflict",
			Details: de.Message,
			Fields:  []FieldError{{Field: de.ConflictField(), Message: "already in use"}},
		}, http.StatusConflict)
	default:
		logger.Error(action+" failed", "kind", de.Kind, "op", de.Op, "error", err)
		writeError(w, action+" failed", string(de.Kind)+" error", http.StatusInternalServerError)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// parsePage reads the limit and offset query parameters. Range checks are
// left to the repository.
func parsePage(w http.ResponseWriter, r *http.Request) (repository.Page, bool) {
	var page repository.Page
	for _, p := range []struct {
		name string
		dst  **int
	}{{"limit", &page.Limit}, {"offset", &page.Offset}} {
		raw := r.URL.Query().Get(p.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, ErrorResponse{
				Error:  "Invalid request",
				Fields: []FieldError{{Field: p.name, Message: "must be an integer"}},
			}, http.StatusBadRequest)
			return page, false
		}
		*p.dst = &n
	}
	return page, true
}
