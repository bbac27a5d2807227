package engine

// Recorder receives engine activity for metrics.
type Recorder interface {
	TrackerCreated()
	TrackerDestroyed()
	HeadCaptured()
	EntityReset()
	SomeDirtyEvaluated(dirty bool)
}

type noopRecorder struct{}

func (noopRecorder) TrackerCreated()         {}
func (noopRecorder) TrackerDestroyed()       {}
func (noopRecorder) HeadCaptured()           {}
func (noopRecorder) EntityReset()            {}
func (noopRecorder) SomeDirtyEvaluated(bool) {}
