package engine

// TrackerFactory builds the tracker for one entity ID.
type TrackerFactory[K comparable, E any] interface {
	CreateTracker(id K) Tracker[K, E]
}

// TrackerFactoryFunc adapts a function to TrackerFactory.
type TrackerFactoryFunc[K comparable, E any] func(id K) Tracker[K, E]

// CreateTracker calls f.
func (f TrackerFactoryFunc[K, E]) CreateTracker(id K) Tracker[K, E] {
	return f(id)
}

// NewTrackerFactory returns a factory building EntityTrackers from cfg.
func NewTrackerFactory[K comparable, E any](cfg TrackerConfig[K, E]) TrackerFactory[K, E] {
	return TrackerFactoryFunc[K, E](func(id K) Tracker[K, E] {
		return NewEntityTracker(id, cfg)
	})
}
