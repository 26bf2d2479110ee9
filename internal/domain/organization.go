package domain

// Organization groups users under a unique slug.
type Organization struct {
	lifecycle
	id      OrganizationID
	name    OrganizationName
	slug    Slug
	ownerID UserID
}

// NewOrganizationParams carries the validated fields of a new organization.
type NewOrganizationParams struct {
	Name    OrganizationName
	Slug    Slug
	OwnerID UserID
}

// NewOrganization creates an organization with a fresh identity.
func NewOrganization(p NewOrganizationParams) *Organization {
	now := Now()
	return &Organization{
		lifecycle: lifecycle{createdAt: now, updatedAt: now},
		id:        NewOrganizationID(),
		name:      p.Name,
		slug:      p.Slug,
		ownerID:   p.OwnerID,
	}
}

// ReconstructOrganizationParams carries every persisted field of an organization.
type ReconstructOrganizationParams struct {
	ID        OrganizationID
	Name      OrganizationName
	Slug      Slug
	OwnerID   UserID
	CreatedAt Timestamp
	UpdatedAt Timestamp
}

// ReconstructOrganization rehydrates a stored organization.
func ReconstructOrganization(p ReconstructOrganizationParams) *Organization {
	return &Organization{
		lifecycle: lifecycle{createdAt: p.CreatedAt, updatedAt: p.UpdatedAt},
		id:        p.ID,
		name:      p.Name,
		slug:      p.Slug,
		ownerID:   p.OwnerID,
	}
}

func (o *Organization) Identity() OrganizationID { return o.id }
func (o *Organization) ID() OrganizationID       { return o.id }
func (o *Organization) Name() OrganizationName   { return o.name }
func (o *Organization) Slug() Slug               { return o.slug }
func (o *Organization) OwnerID() UserID          { return o.ownerID }

// WithName returns a copy of o holding name.
func (o *Organization) WithName(name OrganizationName) *Organization {
	cp := *o
	cp.name = name
	return &cp
}
