package contracts

import (
	"context"

	"github.com/light-bringer/dirtycheck-service/internal/pkg/committer"
)

// Committer applies a CommitPlan atomically.
type Committer interface {
	Apply(ctx context.Context, plan *committer.CommitPlan) error
}
