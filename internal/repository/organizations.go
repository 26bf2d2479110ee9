package repository

import (
	"context"

	"entityvault/internal/domain"
	"entityvault/internal/mapper"
)

// Column names of the organizations table.
const (
	OrganizationsTable = "organizations"
	OrgColID           = "id"
	OrgColName         = "name"
	OrgColSlug         = "slug"
	OrgColOwnerID      = "owner_id"
	OrgColCreatedAt    = "created_at"
	OrgColUpdatedAt    = "updated_at"
)

// OrganizationColumns lists the organizations table columns in declaration order.
var OrganizationColumns = []string{OrgColID, OrgColName, OrgColSlug, OrgColOwnerID, OrgColCreatedAt, OrgColUpdatedAt}

// NewOrganizationMapper returns the declarative conversion tables for organizations.
func NewOrganizationMapper() *mapper.Mapper[*domain.Organization, domain.OrganizationDTO] {
	return &mapper.Mapper[*domain.Organization, domain.OrganizationDTO]{
		Domain: mapper.MappingConfig[*domain.Organization]{
			RequiredFields: OrganizationColumns,
			ValueObjects: map[string]mapper.ValueObjectMapping{
				"id":        {SourceField: OrgColID, Factory: mapper.VO(domain.ParseOrganizationID)},
				"name":      {SourceField: OrgColName, Factory: mapper.VO(domain.NewOrganizationName)},
				"slug":      {SourceField: OrgColSlug, Factory: mapper.VO(domain.NewSlug)},
				"ownerId":   {SourceField: OrgColOwnerID, Factory: mapper.VO(domain.ParseUserID)},
				"createdAt": {SourceField: OrgColCreatedAt, Factory: timestampFactory("createdAt")},
				"updatedAt": {SourceField: OrgColUpdatedAt, Factory: timestampFactory("updatedAt")},
			},
			Construct: func(vos mapper.ValueObjects, _ mapper.Record) (*domain.Organization, error) {
				r := mapper.NewReader(vos)
				p := domain.ReconstructOrganizationParams{
					ID:        mapper.Read[domain.OrganizationID](r, "id"),
					Name:      mapper.Read[domain.OrganizationName](r, "name"),
					Slug:      mapper.Read[domain.Slug](r, "slug"),
					OwnerID:   mapper.Read[domain.UserID](r, "ownerId"),
					CreatedAt: mapper.Read[domain.Timestamp](r, "createdAt"),
					UpdatedAt: mapper.Read[domain.Timestamp](r, "updatedAt"),
				}
				if err := r.Err(); err != nil {
					return nil, err
				}
				return domain.ReconstructOrganization(p), nil
			},
		},
		Persistence: mapper.Properties[*domain.Organization]{
			OrgColID:        {Path: "id.value", Get: mapper.Field(func(o *domain.Organization) string { return o.ID().Value() })},
			OrgColName:      {Path: "name.value", Get: mapper.Field(func(o *domain.Organization) string { return o.Name().Value() })},
			OrgColSlug:      {Path: "slug.value", Get: mapper.Field(func(o *domain.Organization) string { return o.Slug().Value() })},
			OrgColOwnerID:   ownerIDPath(),
			OrgColCreatedAt: {Path: "createdAt.value", Get: timestampField(func(o *domain.Organization) domain.Timestamp { return o.CreatedAt() })},
			OrgColUpdatedAt: {Path: "updatedAt.value", Get: timestampField(func(o *domain.Organization) domain.Timestamp { return o.UpdatedAt() })},
		},
		DTO: mapper.Properties[*domain.Organization]{
			"id":        {Path: "id.value", Get: mapper.Field(func(o *domain.Organization) string { return o.ID().Value() })},
			"name":      {Path: "name.value", Get: mapper.Field(func(o *domain.Organization) string { return o.Name().Value() })},
			"slug":      {Path: "slug.value", Get: mapper.Field(func(o *domain.Organization) string { return o.Slug().Value() })},
			"ownerId":   ownerIDPath(),
			"createdAt": {Path: "createdAt.value", Get: timestampField(func(o *domain.Organization) domain.Timestamp { return o.CreatedAt() })},
			"updatedAt": {Path: "updatedAt.value", Get: timestampField(func(o *domain.Organization) domain.Timestamp { return o.UpdatedAt() })},
		},
	}
}

// ownerIDPath reads ownerId.value; an organization without an owner fails
// extraction naming that path.
func ownerIDPath() mapper.PropertyMapping[*domain.Organization] {
	return mapper.Path[*domain.Organization](
		mapper.Seg("ownerId", func(o *domain.Organization) (domain.UserID, bool) { return o.OwnerID(), o.OwnerID().Value() != "" }),
		mapper.Seg("value", func(id domain.UserID) (string, bool) { return id.Value(), true }),
	)
}

// Organizations is the organization repository.
type Organizations struct {
	*Store[domain.OrganizationID, *domain.Organization, domain.OrganizationDTO, Table]
}

// NewOrganizations builds an organization repository over table.
func NewOrganizations(table Table, opts ...Option) *Organizations {
	return &Organizations{Store: NewStore[domain.OrganizationID](table, NewOrganizationMapper(), opts...)}
}

// FindBySlug loads the organization registered under slug, if any.
func (r *Organizations) FindBySlug(ctx context.Context, slug domain.Slug) (*domain.Organization, bool, error) {
	orgs, err := r.findBy(ctx, "findBySlug", OrgColSlug, slug.Value(), Limit(1))
	if err != nil {
		return nil, false, err
	}
	if len(orgs) == 0 {
		return nil, false, nil
	}
	return orgs[0], true, nil
}

// FindByOwner lists a page of the organizations owned by a user.
func (r *Organizations) FindByOwner(ctx context.Context, owner domain.UserID, page Page) ([]*domain.Organization, error) {
	return r.findBy(ctx, "findByOwner", OrgColOwnerID, owner.Value(), page)
}
