package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"entityvault/internal/domain"
	"entityvault/internal/mapper"
	"entityvault/internal/repository"
)

// OrganizationRepository is what OrganizationService needs from storage.
type OrganizationRepository interface {
	repository.Repository[domain.OrganizationID, *domain.Organization]
	FindBySlug(ctx context.Context, slug domain.Slug) (*domain.Organization, bool, error)
	FindByOwner(ctx context.Context, owner domain.UserID, page repository.Page) ([]*domain.Organization, error)
	Mapper() *mapper.Mapper[*domain.Organization, domain.OrganizationDTO]
}

// OrganizationService provides business logic for organizations
type OrganizationService struct {
	repo     OrganizationRepository
	users    repository.Repository[domain.UserID, *domain.User]
	eventBus *EventBus
	logger   *slog.Logger
}

// NewOrganizationService creates a new organization service. users is
// consulted to check that owners exist.
func NewOrganizationService(repo OrganizationRepository, users repository.Repository[domain.UserID, *domain.User], eventBus *EventBus, logger *slog.Logger) *OrganizationService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &OrganizationService{repo: repo, users: users, eventBus: eventBus, logger: logger}
}

// CreateOrganizationInput is the raw creation request.
type CreateOrganizationInput struct {
	Name    string `json:"name"`
	Slug    string `json:"slug"`
	OwnerID string `json:"ownerId"`
}

var errUnknownOwner = domain.NewValidationError("ownerId", "does not refer to an existing user")

var organizationFields = map[string]mapper.ValueObjectMapping{
	"name":    {Factory: mapper.VO(domain.NewOrganizationName)},
	"slug":    {Factory: mapper.VO(domain.NewSlug)},
	"ownerId": {Factory: mapper.VO(domain.ParseUserID)},
}

// Create validates every field at once and stores a new organization
// owned by an existing user.
func (s *OrganizationService) Create(ctx context.Context, in CreateOrganizationInput) (*domain.Organization, error) {
	vos, err := mapper.CreateValueObjects(mapper.Record{
		"name":    in.Name,
		"slug":    in.Slug,
		"ownerId": in.OwnerID,
	}, organizationFields)
	if err != nil {
		return nil, err
	}

	r := mapper.NewReader(vos)
	params := domain.NewOrganizationParams{
		Name:    mapper.Read[domain.OrganizationName](r, "name"),
		Slug:    mapper.Read[domain.Slug](r, "slug"),
		OwnerID: mapper.Read[domain.UserID](r, "ownerId"),
	}
	if err := r.Err(); err != nil {
		return nil, err
	}

	// The Exists check gives a clear error up front. An owner deleted before
	// the insert lands is still caught by the foreign key.
	exists, err := s.users.Exists(ctx, params.OwnerID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errUnknownOwner
	}

	saved, err := s.repo.Save(ctx, domain.NewOrganization(params))
	var fk *repository.ForeignKeyViolation
	if errors.As(err, &fk) {
		return nil, errUnknownOwner
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("organization created", "organization_id", saved.ID().Value(), "slug", saved.Slug().Value())
	s.eventBus.Publish(Event{
		Type:    EventOrganizationCreated,
		Payload: map[string]string{"organization_id": saved.ID().Value(), "owner_id": saved.OwnerID().Value()},
	})
	return saved, nil
}

// Get retrieves a single organization by ID
func (s *OrganizationService) Get(ctx context.Context, id string) (*domain.Organization, error) {
	oid, err := domain.ParseOrganizationID(id)
	if err != nil {
		return nil, err
	}
	o, found, err := s.repo.FindByID(ctx, oid)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("organization %s: %w", oid, domain.ErrNotFound)
	}
	return o, nil
}

// GetBySlug retrieves a single organization by slug
func (s *OrganizationService) GetBySlug(ctx context.Context, slug string) (*domain.Organization, error) {
	sl, err := domain.NewSlug(slug)
	if err != nil {
		return nil, err
	}
	o, found, err := s.repo.FindBySlug(ctx, sl)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("organization %s: %w", sl, domain.ErrNotFound)
	}
	return o, nil
}

// List returns a page of organizations, restricted to those of owner when
// owner is non-empty.
func (s *OrganizationService) List(ctx context.Context, page repository.Page, owner string) ([]*domain.Organization, error) {
	if owner == "" {
		return s.repo.FindAll(ctx, page)
	}
	uid, err := domain.ParseUserID(owner)
	if err != nil {
		return nil, err
	}
	return s.repo.FindByOwner(ctx, uid, page)
}

// Delete removes an organization that must exist.
func (s *OrganizationService) Delete(ctx context.Context, id string) error {
	oid, err := domain.ParseOrganizationID(id)
	if err != nil {
		return err
	}
	exists, err := s.repo.Exists(ctx, oid)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("organization %s: %w", oid, domain.ErrNotFound)
	}
	if err := s.repo.Delete(ctx, oid); err != nil {
		return err
	}

	s.logger.Info("organization deleted", "organization_id", oid.Value())
	s.eventBus.Publish(Event{
		Type:    EventOrganizationDeleted,
		Payload: map[string]string{"organization_id": oid.Value()},
	})
	return nil
}

// DTO renders o in its outbound shape.
func (s *OrganizationService) DTO(o *domain.Organization) (domain.OrganizationDTO, error) {
	return s.repo.Mapper().ToDTO(o)
}

// DTOs renders organizations in their outbound shape.
func (s *OrganizationService) DTOs(orgs []*domain.Organization) ([]domain.OrganizationDTO, error) {
	return s.repo.Mapper().ToDTOs(orgs)
}
