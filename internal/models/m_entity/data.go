package m_entity

import (
	"time"

	"cloud.google.com/go/spanner"
)

// Data represents the database model for the entities table.
type Data struct {
	Collection string
	EntityID   string
	Payload    spanner.NullJSON // JSON column
	Version    int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
