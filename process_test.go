package planartracker

import (
	"testing"

	"gocv.io/x/gocv"
)

func TestProcessFrameDetectsRegisteredMarker(t *testing.T) {
	tr := NewTracker()

	marker := checkerboard(256)
	defer marker.Close()

	if err := tr.AddMarker(marker, "checker.png", 256, 256, 1, 0.01); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	frame := checkerboard(256)
	defer frame.Close()

	if err := tr.Initialise(testCameraParameters(256, 256)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tr.ProcessFrame(frame)

	if !tr.IsTrackableVisible(1) {
		t.Fatalf("expected trackable to be detected in its own reference image; counters=%+v", tr.Counters)
	}
}

func TestProcessFrameCountsInsufficientFeaturesOnBlankFrame(t *testing.T) {
	tr := NewTracker()

	marker := checkerboard(256)
	defer marker.Close()

	if err := tr.AddMarker(marker, "checker.png", 256, 256, 1, 0.01); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := tr.Initialise(testCameraParameters(256, 256)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	blank := gocv.NewMatWithSize(256, 256, gocv.MatTypeCV8U)
	defer blank.Close()

	tr.ProcessFrame(blank)

	if tr.IsTrackableVisible(1) {
		t.Fatal("expected no trackable to be detected against a featureless frame")
	}
}
