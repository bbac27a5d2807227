package engine

import (
	"io"
	"log/slog"

	"github.com/light-bringer/dirtycheck-service/internal/app/dirtycheck/domain"
	"github.com/light-bringer/dirtycheck-service/internal/pkg/clock"
	"github.com/light-bringer/dirtycheck-service/internal/pkg/stream"
)

// Params configures an EntityDirtyCheck. The zero value is usable.
type Params[K comparable, E any] struct {
	// Comparator decides whether a value diverged from its head.
	// Defaults to domain.DefaultComparator, which compares JSON encodings and
	// so ignores unexported fields. Entities that keep state in unexported
	// fields need domain.DeepEqualComparator or their own comparator.
	Comparator domain.Comparator

	// EntityIDs restricts tracking to these IDs. Empty means every ID in the
	// store, including IDs added later.
	EntityIDs []K

	// Cloner copies an entity when it becomes a head. Defaults to Clone.
	Cloner func(E) E

	// TrackerFactory overrides how trackers are built.
	TrackerFactory TrackerFactory[K, E]

	// Scheduler runs the coalesced aggregate evaluation.
	Scheduler stream.Scheduler

	// Clock stamps captured heads.
	Clock clock.Clock

	Logger   *slog.Logger
	Recorder Recorder
}

func (p Params[K, E]) withDefaults() Params[K, E] {
	if p.Comparator == nil {
		p.Comparator = domain.DefaultComparator
	}
	if p.Cloner == nil {
		p.Cloner = Clone[E]
	}
	if p.Scheduler == nil || p.Clock == nil {
		rc := clock.NewRealClock()
		if p.Scheduler == nil {
			p.Scheduler = rc
		}
		if p.Clock == nil {
			p.Clock = rc
		}
	}
	if p.Logger == nil {
		p.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if p.Recorder == nil {
		p.Recorder = noopRecorder{}
	}
	return p
}

// Cloneable is implemented by entities that know how to deep-copy themselves.
type Cloneable[E any] interface {
	Clone() E
}

// Clone returns v.Clone() when E implements Cloneable and v otherwise.
// Plain value types are copied by assignment; entities holding pointers,
// slices or maps should implement Cloneable so a head cannot alias the live
// value.
func Clone[E any](v E) E {
	if c, ok := any(v).(Cloneable[E]); ok {
		return c.Clone()
	}
	return v
}
