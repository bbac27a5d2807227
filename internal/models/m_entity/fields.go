package m_entity

// Field name constants for the entities table.
const (
	TableName = "entities"

	Collection = "collection"
	EntityID   = "entity_id"
	Payload    = "payload"
	Version    = "version"
	CreatedAt  = "created_at"
	UpdatedAt  = "updated_at"
)

// Columns lists every column in Data order.
func Columns() []string {
	return []string{Collection, EntityID, Payload, Version, CreatedAt, UpdatedAt}
}
