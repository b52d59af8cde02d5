package planartracker

import (
	"image"
	"image/color"
	"log"

	"github.com/kalwalt/artoolkitx/features"
	"github.com/kalwalt/artoolkitx/geom"
	"gocv.io/x/gocv"
)

// occlusionMaskMargin inflates a detected trackable's polygon before it
// is painted into the occlusion mask, so a few pixels of homography
// estimation error at the marker's edge cannot leave a sliver of
// detectable texture outside the mask.
const occlusionMaskMargin = 4.0

// runDetectionPhase looks for a new trackable to lock onto. It only runs while
// capacity remains, downsamples the frame to the feature-detection
// pyramid level, masks out already-detected trackables, and promotes at
// most one un-detected trackable per frame.
func (t *Tracker) runDetectionPhase(frame gocv.Mat) {
	if t.currentlyTracked >= t.Config.MaxConcurrentlyTracked {
		return
	}

	detectionFrame := downsampleTo(frame, t.featureDetectPyrLevel)
	defer detectionFrame.Close()

	mask := t.occlusionMask(detectionFrame.Cols(), detectionFrame.Rows())
	defer mask.Close()

	kps, desc := t.detector.DetectAndCompute(detectionFrame, mask)
	defer desc.Close()

	if len(kps) < t.Config.MinRequiredDetectedFeatures {
		t.Counters.InsufficientFrameFeatures++
		return
	}

	t.matchFeatures(kps, desc)
}

// occlusionMask returns an all-white mask, painted black within the
// current bboxTransformed polygon of every detected trackable, scaled
// into detection coordinates. The mask is only meaningfully allocated
// when at least one trackable is currently detected; otherwise an empty
// Mat is returned, which Detect/DetectAndCompute treat as "no mask".
func (t *Tracker) occlusionMask(w, h int) gocv.Mat {
	anyDetected := false

	for _, tr := range t.trackables {
		if tr.isDetected {
			anyDetected = true
			break
		}
	}

	if !anyDetected {
		return gocv.NewMat()
	}

	mask := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 0, 0, 0), h, w, gocv.MatTypeCV8UC1)

	for _, tr := range t.trackables {
		if !tr.isDetected {
			continue
		}

		inflated := geom.InflateQuad(tr.bboxTransformed, occlusionMaskMargin)
		poly := make([]image.Point, len(inflated))

		for i, p := range inflated {
			poly[i] = image.Point{
				X: int(p.X / t.scaleFactorX),
				Y: int(p.Y / t.scaleFactorY),
			}
		}

		pv := gocv.NewPointsVectorFromPoints([][]image.Point{poly})
		gocv.FillPoly(&mask, pv, color.RGBA{R: 0, G: 0, B: 0, A: 0})
		pv.Close()
	}

	return mask
}

// matchFeatures matches frame descriptors
// against every un-detected trackable, pick the best-count winner, and
// promote it if that count clears the threshold.
func (t *Tracker) matchFeatures(frameKps []features.KeyPoint, frameDesc gocv.Mat) {
	bestIdx := -1
	bestCount := 0
	var bestCorrespondences []features.Correspondence

	for i, tr := range t.trackables {
		if tr.isDetected {
			continue
		}

		pairs := t.detector.Match(frameDesc, tr.descriptors)
		correspondences := features.RatioTest(pairs, t.Config.NNRatio)

		if len(correspondences) > bestCount {
			bestCount = len(correspondences)
			bestIdx = i
			bestCorrespondences = correspondences
		}
	}

	if bestIdx < 0 || bestCount <= t.Config.MinRequiredDetectedFeatures {
		t.Counters.NoMatchingTrackable++
		return
	}

	tr := t.trackables[bestIdx]

	src := make([]geom.Point, len(bestCorrespondences))
	dst := make([]geom.Point, len(bestCorrespondences))

	for i, c := range bestCorrespondences {
		ref := tr.featurePoints[c.TrainIdx]
		frm := frameKps[c.QueryIdx]

		src[i] = geom.Point{X: ref.X, Y: ref.Y}
		dst[i] = geom.Point{X: frm.X * t.scaleFactorX, Y: frm.Y * t.scaleFactorY}
	}

	res := t.homographySolver().Estimate(src, dst)

	if !res.Valid {
		t.Counters.InvalidDetectionHomography++
		log.Printf("planartracker: trackable %d rejected: homography did not validate at frame %d", tr.id, t.frameCount)
		return
	}

	tr.setDetected(res.H)
	t.currentlyTracked++
}
