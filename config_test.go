package planartracker

import "testing"

func TestSetMaximumNumberOfMarkersToTrackIgnoresPriorZero(t *testing.T) {
	c := DefaultConfig()

	c.SetMaximumNumberOfMarkersToTrack(0)

	if c.MaxConcurrentlyTracked != 0 {
		t.Fatalf("expected 0, got %d", c.MaxConcurrentlyTracked)
	}

	// A prior value of 0 must not block a later raise: the source
	// implementation's gating on "previous value positive" was a bug,
	// not a feature.
	c.SetMaximumNumberOfMarkersToTrack(4)

	if c.MaxConcurrentlyTracked != 4 {
		t.Fatalf("expected SetMaximumNumberOfMarkersToTrack to take effect after a prior 0, got %d", c.MaxConcurrentlyTracked)
	}
}

func TestSetMaximumNumberOfMarkersToTrackRejectsNegative(t *testing.T) {
	c := DefaultConfig()
	c.MaxConcurrentlyTracked = 3

	c.SetMaximumNumberOfMarkersToTrack(-1)

	if c.MaxConcurrentlyTracked != 3 {
		t.Fatalf("expected negative n to be rejected, got %d", c.MaxConcurrentlyTracked)
	}
}

func TestSetHomographyEstimationRANSACThreshold(t *testing.T) {
	c := DefaultConfig()
	c.SetHomographyEstimationRANSACThreshold(9.5)

	if c.RansacThresh != 9.5 {
		t.Fatalf("expected 9.5, got %v", c.RansacThresh)
	}
}
