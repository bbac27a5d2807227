// Package engine tracks whether the entities of a keyed collection have
// diverged from a captured baseline (the "head").
//
// An EntityDirtyCheck mirrors the membership of a store with one Tracker per
// tracked entity. Each tracker holds the entity's head and exposes a distinct
// stream of its dirty status. The check as a whole exposes an aggregate
// "some entity is dirty" stream that is re-evaluated at most once per
// scheduling turn.
//
// Entities without a head are never dirty, and neither are IDs the check does
// not track. Destroying the check completes every stream it handed out.
package engine
