// Package committer collects Spanner mutations into a plan and applies them
// in one transaction.
//
// Repositories build mutations without applying them. A use case gathers the
// entity mutations and the matching outbox events into a CommitPlan, then
// hands the plan to a Committer, so either everything is written or nothing
// is:
//
//	plan := committer.NewPlan()
//	mut, err := entityRepo.UpsertMut(id, doc, version+1)
//	if err != nil {
//	    return err
//	}
//	plan.Add(mut)
//	plan.Add(outboxRepo.InsertMut(event))
//	plan.Expect(committer.VersionCheck{Table: "entities", Key: key, Expected: version})
//	return c.Apply(ctx, plan)
//
// Plans carrying version checks run in a read-write transaction that reads
// each row's version first and aborts with ErrVersionConflict on a mismatch.
package committer

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/spanner"
	"google.golang.org/grpc/codes"
)

// ErrVersionConflict reports that a row changed since it was loaded.
var ErrVersionConflict = errors.New("optimistic lock conflict")

// VersionColumn is the column version checks read unless told otherwise.
const VersionColumn = "version"

// VersionCheck pins the version a row must still have at commit time.
type VersionCheck struct {
	Table    string
	Key      spanner.Key
	Column   string // defaults to VersionColumn
	Expected int64
}

func (v VersionCheck) column() string {
	if v.Column == "" {
		return VersionColumn
	}
	return v.Column
}

// CommitPlan is a typed wrapper around Spanner mutations.
type CommitPlan struct {
	mutations []*spanner.Mutation
	checks    []VersionCheck
}

// NewPlan creates a new empty CommitPlan.
func NewPlan() *CommitPlan {
	return &CommitPlan{}
}

// Add adds a mutation to the plan.
// Nil mutations are silently ignored for convenience.
func (cp *CommitPlan) Add(mut *spanner.Mutation) {
	if mut != nil {
		cp.mutations = append(cp.mutations, mut)
	}
}

// AddMultiple adds multiple mutations to the plan.
func (cp *CommitPlan) AddMultiple(muts []*spanner.Mutation) {
	for _, mut := range muts {
		cp.Add(mut)
	}
}

// Expect adds version checks to the plan.
func (cp *CommitPlan) Expect(checks ...VersionCheck) {
	cp.checks = append(cp.checks, checks...)
}

// Mutations returns all collected mutations.
func (cp *CommitPlan) Mutations() []*spanner.Mutation {
	return cp.mutations
}

// Checks returns the version checks.
func (cp *CommitPlan) Checks() []VersionCheck {
	return cp.checks
}

// IsEmpty returns true if the plan has no mutations.
func (cp *CommitPlan) IsEmpty() bool {
	return len(cp.mutations) == 0
}

// Count returns the number of mutations in the plan.
func (cp *CommitPlan) Count() int {
	return len(cp.mutations)
}

// Committer applies CommitPlans to a Spanner database.
type Committer struct {
	client *spanner.Client
}

// NewCommitter creates a new Committer.
func NewCommitter(client *spanner.Client) *Committer {
	return &Committer{client: client}
}

// Apply executes the plan atomically. Plans with version checks run in a
// read-write transaction; the rest are applied blindly.
func (c *Committer) Apply(ctx context.Context, plan *CommitPlan) error {
	if plan.IsEmpty() {
		return nil
	}

	if len(plan.checks) == 0 {
		if _, err := c.client.Apply(ctx, plan.Mutations()); err != nil {
			return fmt.Errorf("failed to apply commit plan: %w", err)
		}
		return nil
	}

	_, err := c.client.ReadWriteTransaction(ctx, func(ctx context.Context, txn *spanner.ReadWriteTransaction) error {
		for _, check := range plan.checks {
			if err := verify(ctx, txn, check); err != nil {
				return err
			}
		}
		return txn.BufferWrite(plan.Mutations())
	})
	if err != nil {
		if errors.Is(err, ErrVersionConflict) {
			return err
		}
		return fmt.Errorf("failed to apply commit plan with version check: %w", err)
	}
	return nil
}

func verify(ctx context.Context, txn *spanner.ReadWriteTransaction, check VersionCheck) error {
	row, err := txn.ReadRow(ctx, check.Table, check.Key, []string{check.column()})
	if err != nil {
		if spanner.ErrCode(err) == codes.NotFound {
			return fmt.Errorf("%w: %s %v no longer exists", ErrVersionConflict, check.Table, check.Key)
		}
		return fmt.Errorf("failed to read %s version: %w", check.Table, err)
	}

	var current int64
	if err := row.Column(0, &current); err != nil {
		return fmt.Errorf("failed to parse version: %w", err)
	}
	if current != check.Expected {
		return fmt.Errorf("%w: %s %v expected version %d, got %d",
			ErrVersionConflict, check.Table, check.Key, check.Expected, current)
	}
	return nil
}
