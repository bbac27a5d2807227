package testutil

import (
	"context"
	"encoding/json"
	"testing"

	"cloud.google.com/go/spanner"
	"github.com/stretchr/testify/require"

	"github.com/light-bringer/dirtycheck-service/internal/models/m_entity"
)

// CreateTestEntity writes one entity row directly and returns its key.
func CreateTestEntity(t *testing.T, client *spanner.Client, collection, id, payload string, version int64) spanner.Key {
	t.Helper()

	model := m_entity.NewModel()
	data := &m_entity.Data{
		Collection: collection,
		EntityID:   id,
		Payload:    spanner.NullJSON{Value: json.RawMessage(payload), Valid: true},
		Version:    version,
	}

	_, err := client.Apply(context.Background(), []*spanner.Mutation{model.UpsertMut(data, true)})
	require.NoError(t, err, "failed to create test entity")

	return model.Key(collection, id)
}

// EntityVersion reads the stored version of one entity.
func EntityVersion(t *testing.T, client *spanner.Client, collection, id string) int64 {
	t.Helper()

	row, err := client.Single().ReadRow(context.Background(), m_entity.TableName,
		m_entity.NewModel().Key(collection, id), []string{m_entity.Version})
	require.NoError(t, err, "failed to read entity")

	var version int64
	require.NoError(t, row.Columns(&version))
	return version
}

// AssertOutboxEvent verifies an outbox event exists with the given event type.
func AssertOutboxEvent(t *testing.T, client *spanner.Client, eventType string) {
	t.Helper()

	ctx := context.Background()
	stmt := spanner.Statement{
		SQL:    "SELECT event_id FROM outbox_events WHERE event_type = @eventType",
		Params: map[string]interface{}{"eventType": eventType},
	}

	iter := client.Single().Query(ctx, stmt)
	defer iter.Stop()

	row, err := iter.Next()
	require.NoError(t, err, "outbox event not found for type: %s", eventType)
	require.NotNil(t, row, "outbox event not found for type: %s", eventType)
}
