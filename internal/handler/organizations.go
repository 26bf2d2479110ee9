package handler

import (
	"log/slog"
	"net/http"

	"entityvault/internal/domain"
	"entityvault/internal/service"
)

// OrganizationHandler handles organization API requests
type OrganizationHandler struct {
	svc    *service.OrganizationService
	logger *slog.Logger
}

// NewOrganizationHandler creates a new organization handler
func NewOrganizationHandler(svc *service.OrganizationService, logger *slog.Logger) *OrganizationHandler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &OrganizationHandler{svc: svc, logger: logger}
}

// ListOrganizations returns a page of organizations, filtered by ?owner=
func (h *OrganizationHandler) ListOrganizations(w http.ResponseWriter, r *http.Request) {
	page, ok := parsePage(w, r)
	if !ok {
		return
	}

	orgs, err := h.svc.List(r.Context(), page, r.URL.Query().Get("owner"))
	if err != nil {
		writeServiceError(w, h.logger, "List organizations", err)
		return
	}
	dtos, err := h.svc.DTOs(orgs)
	if err != nil {
		writeServiceError(w, h.logger, "List organizations", err)
		return
	}

	writeJSON(w, dtos, http.StatusOK)
}

// CreateOrganization creates a new organization
func (h *OrganizationHandler) CreateOrganization(w http.ResponseWriter, r *http.Request) {
	var in service.CreateOrganizationInput
	if !decodeBody(w, r, &in) {
		return
	}

	o, err := h.svc.Create(r.Context(), in)
	if err != nil {
		writeServiceError(w, h.logger, "Create organization", err)
		return
	}
	h.respond(w, "Create organization", o, http.StatusCreated)
}

// GetOrganization returns a single organization
func (h *OrganizationHandler) GetOrganization(w http.ResponseWriter, r *http.Request) {
	o, err := h.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, h.logger, "Get organization", err)
		return
	}
	h.respond(w, "Get organization", o, http.StatusOK)
}

// GetOrganizationBySlug returns the organization registered under a slug
func (h *OrganizationHandler) GetOrganizationBySlug(w http.ResponseWriter, r *http.Request) {
	o, err := h.svc.GetBySlug(r.Context(), r.PathValue("slug"))
	if err != nil {
		writeServiceError(w, h.logger, "Get organization", err)
		return
	}
	h.respond(w, "Get organization", o, http.StatusOK)
}

// DeleteOrganization deletes an organization
func (h *OrganizationHandler) DeleteOrganization(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, h.logger, "Delete organization", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *OrganizationHandler) respond(w http.ResponseWriter, action string, o *domain.Organization, status int) {
	dto, err := h.svc.DTO(o)
	if err != nil {
		writeServiceError(w, h.logger, action, err)
		return
	}
	writeJSON(w, dto, status)
}
