package mapper

// Mapper bundles the three conversion tables of one entity type: record to
// entity, entity to record, and entity to DTO. Both outbound directions share
// the same extraction mechanism.
type Mapper[E, D any] struct {
	Domain      MappingConfig[E]
	Persistence Properties[E]
	DTO         Properties[E]
}

// ToDomain converts one storage record into an entity.
func (m *Mapper[E, D]) ToDomain(rec Record) (E, error) {
	return ToDomainUsingDefinition(rec, m.Domain)
}

// ToPersistence converts an entity into a storage record.
func (m *Mapper[E, D]) ToPersistence(e E) (Record, error) {
	return ToObjectUsingDefinition(e, m.Persistence)
}

// ToDTO converts an entity into its outbound shape.
func (m *Mapper[E, D]) ToDTO(e E) (D, error) {
	var zero D
	rec, err := ToObjectUsingDefinition(e, m.DTO)
	if err != nil {
		return zero, err
	}
	return Decode[D](rec)
}

// ToDomainArray converts records with fail-fast semantics.
func (m *Mapper[E, D]) ToDomainArray(recs []Record) ([]E, error) {
	return ToDomainArray(recs, m.Domain)
}

// ToDTOs converts entities with fail-fast semantics.
func (m *Mapper[E, D]) ToDTOs(entities []E) ([]D, error) {
	out := make([]D, 0, len(entities))
	for i, e := range entities {
		dto, err := m.ToDTO(e)
		if err != nil {
			return nil, batchFailure("toDTOs", i, err)
		}
		out = append(out, dto)
	}
	return out, nil
}

// Columns lists the persisted columns in a stable order.
func (m *Mapper[E, D]) Columns() []string {
	return m.Persistence.Keys()
}
