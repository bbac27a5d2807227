package repo

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/spanner"

	"github.com/light-bringer/dirtycheck-service/internal/models/m_outbox"
	"github.com/light-bringer/dirtycheck-service/internal/pkg/query"
)

// RetentionRule removes processed events of one status older than Before.
type RetentionRule struct {
	Status string
	Before time.Time
}

// RetentionQuery selects the events a rule removes.
func RetentionQuery(rule RetentionRule) *query.Builder {
	return query.From(m_outbox.TableName).
		Where(query.Eq(m_outbox.Status, rule.Status)).
		Where(query.Lt(m_outbox.ProcessedAt, rule.Before))
}

// OutboxRetention purges processed outbox events.
type OutboxRetention struct {
	client *spanner.Client
}

// NewOutboxRetention creates a new OutboxRetention.
func NewOutboxRetention(client *spanner.Client) *OutboxRetention {
	return &OutboxRetention{client: client}
}

// Count reports how many events each rule would remove, keyed by status.
func (r *OutboxRetention) Count(ctx context.Context, rules ...RetentionRule) (map[string]int64, error) {
	txn := r.client.ReadOnlyTransaction()
	defer txn.Close()

	counts := make(map[string]int64, len(rules))
	for _, rule := range rules {
		iter := txn.Query(ctx, RetentionQuery(rule).Count().Build())
		row, err := iter.Next()
		if err != nil {
			iter.Stop()
			return nil, fmt.Errorf("failed to count %s events: %w", rule.Status, err)
		}
		var n int64
		err = row.Columns(&n)
		iter.Stop()
		if err != nil {
			return nil, fmt.Errorf("failed to parse count: %w", err)
		}
		counts[rule.Status] += n
	}
	return counts, nil
}

// Purge deletes the events of every rule in one transaction and returns
// how many rows were removed.
func (r *OutboxRetention) Purge(ctx context.Context, rules ...RetentionRule) (int64, error) {
	var deleted int64
	_, err := r.client.ReadWriteTransaction(ctx, func(ctx context.Context, txn *spanner.ReadWriteTransaction) error {
		deleted = 0
		for _, rule := range rules {
			n, err := txn.Update(ctx, RetentionQuery(rule).Delete().Build())
			if err != nil {
				return fmt.Errorf("failed to delete %s events: %w", rule.Status, err)
			}
			deleted += n
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("cleanup transaction failed: %w", err)
	}
	return deleted, nil
}
