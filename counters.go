package planartracker

// Counters tallies why trackables failed to detect or track during the
// most recent ProcessFrame, for a visualization collaborator's benefit.
// The core reads none of these back; it only accumulates them.
type Counters struct {
	InsufficientFrameFeatures  int
	NoMatchingTrackable        int
	InvalidDetectionHomography int
	OpticalFlowLost            int
	TemplateMatchRejected      int
	InvalidTrackingHomography  int
}

func (c *Counters) reset() {
	*c = Counters{}
}
