package planartracker

import (
	"testing"

	"github.com/kalwalt/artoolkitx/features"
)

func TestNewTrackableBuildsPyramidAndSelectors(t *testing.T) {
	img := checkerboard(128)
	defer img.Close()

	cfg := DefaultConfig()
	detector := features.NewDetector(cfg.FeatureVariant)
	defer detector.Close()

	tr, err := newTrackable(1, "checker.png", 0.01, img, cfg, detector, 42)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	defer tr.Close()

	if len(tr.image) != cfg.PyramidLevels+1 {
		t.Fatalf("expected %d pyramid levels, got %d", cfg.PyramidLevels+1, len(tr.image))
	}

	if len(tr.featurePoints) == 0 {
		t.Fatal("expected at least one detected feature point")
	}

	for lvl, sel := range tr.trackSelection {
		if sel == nil {
			t.Fatalf("level %d has a nil selector", lvl)
		}
	}
}

func TestSetDetectedUpdatesBBoxAndFlags(t *testing.T) {
	img := checkerboard(64)
	defer img.Close()

	cfg := DefaultConfig()
	detector := features.NewDetector(cfg.FeatureVariant)
	defer detector.Close()

	tr, err := newTrackable(1, "checker.png", 0.01, img, cfg, detector, 1)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	defer tr.Close()

	h := identityHomography()
	tr.setDetected(h)

	if !tr.isDetected {
		t.Fatal("expected isDetected to be true after setDetected")
	}

	if tr.bboxTransformed != tr.bbox {
		t.Fatalf("expected an identity homography to leave bboxTransformed unchanged: got %v, want %v", tr.bboxTransformed, tr.bbox)
	}
}

func TestMarkLostClearsBothFlags(t *testing.T) {
	img := checkerboard(64)
	defer img.Close()

	cfg := DefaultConfig()
	detector := features.NewDetector(cfg.FeatureVariant)
	defer detector.Close()

	tr, err := newTrackable(1, "checker.png", 0.01, img, cfg, detector, 1)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	defer tr.Close()

	tr.isDetected = true
	tr.isTracking = true
	tr.markLost()

	if tr.isDetected || tr.isTracking {
		t.Fatal("expected both flags cleared after markLost")
	}
}
