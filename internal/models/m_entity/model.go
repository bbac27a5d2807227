package m_entity

import (
	"cloud.google.com/go/spanner"
)

// Model provides a facade for type-safe operations on the entities table.
// Keys are (collection, entity_id).
type Model struct{}

// NewModel creates a new Model instance.
func NewModel() *Model {
	return &Model{}
}

// Key returns the primary key of one entity.
func (m *Model) Key(collection, entityID string) spanner.Key {
	return spanner.Key{collection, entityID}
}

// UpsertMut creates a mutation writing an entity. created_at is only set
// when the row is new; an existing row keeps its value because
// InsertOrUpdate leaves columns it is not given untouched.
func (m *Model) UpsertMut(data *Data, isNew bool) *spanner.Mutation {
	columns := []string{Collection, EntityID, Payload, Version, UpdatedAt}
	values := []interface{}{
		data.Collection,
		data.EntityID,
		data.Payload,
		data.Version,
		spanner.CommitTimestamp,
	}
	if isNew {
		columns = append(columns, CreatedAt)
		values = append(values, spanner.CommitTimestamp)
	}
	return spanner.InsertOrUpdate(TableName, columns, values)
}

// DeleteMut creates a mutation deleting one entity.
func (m *Model) DeleteMut(collection, entityID string) *spanner.Mutation {
	return spanner.Delete(TableName, m.Key(collection, entityID))
}
