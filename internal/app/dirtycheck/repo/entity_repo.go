package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/spanner"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"

	"github.com/light-bringer/dirtycheck-service/internal/app/dirtycheck/contracts"
	"github.com/light-bringer/dirtycheck-service/internal/app/dirtycheck/domain"
	"github.com/light-bringer/dirtycheck-service/internal/models/m_entity"
	"github.com/light-bringer/dirtycheck-service/internal/pkg/committer"
	"github.com/light-bringer/dirtycheck-service/internal/pkg/query"
)

// EntityRepo implements EntityRepository for Spanner. Entities are stored as
// JSON payloads in the shared entities table, keyed by collection.
type EntityRepo[E any] struct {
	client     *spanner.Client
	model      *m_entity.Model
	collection string
}

// NewEntityRepo creates a new EntityRepo for one collection.
func NewEntityRepo[E any](client *spanner.Client, collection string) (*EntityRepo[E], error) {
	if collection == "" {
		return nil, domain.ErrEmptyCollection
	}
	return &EntityRepo[E]{
		client:     client,
		model:      m_entity.NewModel(),
		collection: collection,
	}, nil
}

var _ contracts.EntityRepository[domain.Document] = (*EntityRepo[domain.Document])(nil)

func (r *EntityRepo[E]) Collection() string {
	return r.collection
}

// Key returns the primary key of one entity.
func (r *EntityRepo[E]) Key(id string) spanner.Key {
	return r.model.Key(r.collection, id)
}

// VersionCheck pins the version of one entity.
func (r *EntityRepo[E]) VersionCheck(id string, expected int64) committer.VersionCheck {
	return committer.VersionCheck{
		Table:    m_entity.TableName,
		Key:      r.Key(id),
		Column:   m_entity.Version,
		Expected: expected,
	}
}

// LoadStatement builds the query Load runs.
func (r *EntityRepo[E]) LoadStatement(ids []string) spanner.Statement {
	b := query.From(m_entity.TableName).
		Select(m_entity.EntityID, m_entity.Payload, m_entity.Version).
		Where(query.Eq(m_entity.Collection, r.collection))
	if len(ids) > 0 {
		b = b.Where(query.In(m_entity.EntityID, ids))
	}
	return b.OrderBy(m_entity.EntityID, query.Asc).Build()
}

// Load reads the collection.
func (r *EntityRepo[E]) Load(ctx context.Context, ids []string) ([]contracts.EntityRecord[E], error) {
	iter := r.client.Single().Query(ctx, r.LoadStatement(ids))
	defer iter.Stop()

	var records []contracts.EntityRecord[E]
	for {
		row, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate entities: %w", err)
		}

		var data m_entity.Data
		if err := row.Columns(&data.EntityID, &data.Payload, &data.Version); err != nil {
			return nil, fmt.Errorf("failed to scan entity: %w", err)
		}

		record, err := r.dataToRecord(&data)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// Get reads one entity.
func (r *EntityRepo[E]) Get(ctx context.Context, id string) (contracts.EntityRecord[E], error) {
	row, err := r.client.Single().ReadRow(ctx, m_entity.TableName, r.Key(id), []string{
		m_entity.EntityID,
		m_entity.Payload,
		m_entity.Version,
	})
	if err != nil {
		if spanner.ErrCode(err) == codes.NotFound {
			return contracts.EntityRecord[E]{}, domain.ErrEntityNotFound
		}
		return contracts.EntityRecord[E]{}, fmt.Errorf("failed to read entity: %w", err)
	}

	var data m_entity.Data
	if err := row.Columns(&data.EntityID, &data.Payload, &data.Version); err != nil {
		return contracts.EntityRecord[E]{}, fmt.Errorf("failed to parse entity: %w", err)
	}
	return r.dataToRecord(&data)
}

// UpsertMut creates a mutation writing entity at version.
func (r *EntityRepo[E]) UpsertMut(id string, entity E, version int64) (*spanner.Mutation, error) {
	data, err := r.recordToData(id, entity, version)
	if err != nil {
		return nil, err
	}
	return r.model.UpsertMut(data, version <= 1), nil
}

// DeleteMut creates a mutation removing one entity.
func (r *EntityRepo[E]) DeleteMut(id string) *spanner.Mutation {
	return r.model.DeleteMut(r.collection, id)
}

// recordToData converts an entity to database Data.
func (r *EntityRepo[E]) recordToData(id string, entity E, version int64) (*m_entity.Data, error) {
	if id == "" {
		return nil, domain.ErrEmptyEntityID
	}
	payload, err := domain.ToJSON(entity)
	if err != nil {
		return nil, err
	}
	return &m_entity.Data{
		Collection: r.collection,
		EntityID:   id,
		Payload:    spanner.NullJSON{Value: json.RawMessage(payload), Valid: true},
		Version:    version,
	}, nil
}

// dataToRecord converts database Data to an entity record.
func (r *EntityRepo[E]) dataToRecord(data *m_entity.Data) (contracts.EntityRecord[E], error) {
	var entity E
	if data.Payload.Valid {
		raw, err := domain.ToJSON(data.Payload.Value)
		if err != nil {
			return contracts.EntityRecord[E]{}, err
		}
		if entity, err = domain.FromJSON[E](raw); err != nil {
			return contracts.EntityRecord[E]{}, fmt.Errorf("entity %s: %w", data.EntityID, err)
		}
	}
	return contracts.EntityRecord[E]{
		ID:      data.EntityID,
		Entity:  entity,
		Version: data.Version,
	}, nil
}
