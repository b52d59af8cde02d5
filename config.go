package planartracker

import "github.com/kalwalt/artoolkitx/features"

// Config is the tracker's typed configuration record: every tunable lives
// on the Tracker instance rather than as a module-level global. Its fields
// are exported; the Set* methods mutate only this instance.
type Config struct {
	// MinRequiredDetectedFeatures is the minimum frame keypoint count
	// required before a detection pass continues to matching; a trackable
	// is promoted to detected only when its surviving match count exceeds
	// it.
	MinRequiredDetectedFeatures int
	// RansacThresh is the homography-fit reprojection threshold in pixels.
	RansacThresh float64
	// NNRatio is Lowe's ratio-test threshold for descriptor matching.
	NNRatio float64
	// SearchRadius inflates the template-matching search ROI, in pixels.
	SearchRadius int
	// MarkerTemplateWidth is the side length, in pixels, of a template
	// anchor's matching window at pyramid level 0.
	MarkerTemplateWidth int
	// PyramidLevels is L, the number of extra (halved) pyramid levels
	// built above image[0].
	PyramidLevels int
	// HarrisBorder excludes corners within this many pixels of the image
	// edge.
	HarrisBorder int
	// TemplateInflateFactor enlarges the reference-space crop taken around
	// each template anchor before it is warped, so the warp has surrounding
	// pixels to sample.
	TemplateInflateFactor float64
	// MaxConcurrentlyTracked caps how many trackables may be
	// simultaneously detected.
	MaxConcurrentlyTracked int
	// FeatureVariant selects the descriptor algorithm new Trackables and
	// frame-detection use.
	FeatureVariant features.Variant
}

// DefaultConfig returns the tracker's documented default tuning.
func DefaultConfig() Config {
	return Config{
		MinRequiredDetectedFeatures: 50,
		RansacThresh:                2.5,
		NNRatio:                     0.7,
		SearchRadius:                15,
		MarkerTemplateWidth:         15,
		PyramidLevels:               2,
		HarrisBorder:                10,
		TemplateInflateFactor:       1.5,
		MaxConcurrentlyTracked:      1,
		FeatureVariant:              features.Blob,
	}
}

// SetMinRequiredDetectedFeatures updates the minimum-feature threshold.
func (c *Config) SetMinRequiredDetectedFeatures(n int) {
	c.MinRequiredDetectedFeatures = n
}

// SetHomographyEstimationRANSACThreshold updates the homography RANSAC
// reprojection threshold.
func (c *Config) SetHomographyEstimationRANSACThreshold(px float64) {
	c.RansacThresh = px
}

// SetMaximumNumberOfMarkersToTrack updates the concurrently-tracked cap.
// The source implementation only accepted this assignment when the
// previous value was positive, which meant a caller who ever passed 0
// could never raise the cap again; that gating is a bug, not a feature,
// and is not reproduced here.
func (c *Config) SetMaximumNumberOfMarkersToTrack(n int) {
	if n < 0 {
		return
	}

	c.MaxConcurrentlyTracked = n
}
