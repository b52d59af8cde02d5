package planartracker

import (
	"image"
	"log"
	"math"

	"github.com/kalwalt/artoolkitx/geom"
	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/mat"
)

// runTrackingPhase advances every detected trackable: it picks a template
// pyramid level from its homography's determinant, runs bidirectional
// optical flow, then refines with template matching. Any failure drops
// both flags and frees a tracking slot.
func (t *Tracker) runTrackingPhase() {
	if t.currentlyTracked == 0 || t.frameCount == 0 || !t.haveFrame {
		return
	}

	for _, tr := range t.trackables {
		if !tr.isDetected {
			continue
		}

		tr.templatePyrLevel = templatePyrLevelFor(tr.homography, len(tr.image)-1)

		refPts, framePts, survived, ok := t.runOpticalFlow(tr)

		if !ok {
			t.Counters.OpticalFlowLost++
			log.Printf("planartracker: trackable %d lost: optical flow failed at frame %d", tr.id, t.frameCount)
			tr.markLost()
			t.currentlyTracked--
			continue
		}

		refined, matched := t.runTemplateMatching(tr, refPts, framePts, survived)

		if !t.updateTrackableHomography(tr, refPts, refined, matched) {
			t.Counters.InvalidTrackingHomography++
			log.Printf("planartracker: trackable %d lost: homography rejected at frame %d", tr.id, t.frameCount)
			tr.markLost()
			t.currentlyTracked--
		}
	}
}

// templatePyrLevelFor picks how far to search for template anchors:
// level = floor(log2(1/sqrt(|det H|))), clamped to [0, maxLevel].
func templatePyrLevelFor(h *mat.Dense, maxLevel int) int {
	if h == nil {
		return 0
	}

	det := math.Abs(mat.Det(h))

	if det <= 0 {
		return maxLevel
	}

	level := int(math.Floor(-0.5 * math.Log2(det)))

	if level < 0 {
		level = 0
	}

	if level > maxLevel {
		level = maxLevel
	}

	return level
}

// runOpticalFlow projects the selector's
// tracked reference points through the trackable's current homography to
// get a starting guess in frame coordinates, run forward LK from
// prevFrame to frame, then backward LK from frame to prevFrame, and keep
// only points whose forward and backward passes both converged.
func (t *Tracker) runOpticalFlow(tr *Trackable) ([]geom.Point, []geom.Point, []bool, bool) {
	lvl := tr.templatePyrLevel
	selector := tr.trackSelection[lvl]

	refPts := selector.GetInitialFeatures()

	if len(refPts) == 0 {
		return nil, nil, nil, false
	}

	lsx, lsy := tr.levelScale(lvl)

	warped := make([]geom.Point, len(refPts))

	for i, p := range refPts {
		level0Pt := geom.Point{X: p.X * lsx, Y: p.Y * lsy}
		warped[i] = geom.TransformPoint(tr.homography, level0Pt)
	}

	prevMat := pointsToMat(warped)
	defer prevMat.Close()

	nextMat := gocv.NewMat()
	defer nextMat.Close()
	statusFwd := gocv.NewMat()
	defer statusFwd.Close()
	errFwd := gocv.NewMat()
	defer errFwd.Close()

	gocv.CalcOpticalFlowPyrLK(t.prevFrame, t.frame, prevMat, &nextMat, &statusFwd, &errFwd)

	backMat := gocv.NewMat()
	defer backMat.Close()
	statusBwd := gocv.NewMat()
	defer statusBwd.Close()
	errBwd := gocv.NewMat()
	defer errBwd.Close()

	gocv.CalcOpticalFlowPyrLK(t.frame, t.prevFrame, nextMat, &backMat, &statusBwd, &errBwd)

	n := len(warped)
	framePts := make([]geom.Point, n)
	survived := make([]bool, n)

	for i := 0; i < n; i++ {
		framePts[i] = geom.Point{X: float64(nextMat.GetFloatAt(i, 0)), Y: float64(nextMat.GetFloatAt(i, 1))}
		survived[i] = statusFwd.GetUCharAt(i, 0) == 1 && statusBwd.GetUCharAt(i, 0) == 1
	}

	return refPts, framePts, survived, true
}

// runTemplateMatching refines each surviving optical-flow correspondence.
// For every point it warps an inflated reference-level patch through the
// trackable's current homography, so the template it correlates against
// the frame already carries the marker's current perspective skew rather
// than its frontal appearance, then searches a frame-level ROI inflated
// by SearchRadius around the optical-flow estimate and keeps the
// SQDIFF_NORMED best match if it clears the 0.5 threshold.
func (t *Tracker) runTemplateMatching(tr *Trackable, refPts, framePts []geom.Point, survived []bool) ([]geom.Point, []bool) {
	lvl := tr.templatePyrLevel
	refImg := tr.image[lvl]

	sx, sy := t.levelScale(lvl)
	lsx, lsy := tr.levelScale(lvl)

	refined := make([]geom.Point, len(framePts))
	copy(refined, framePts)

	matched := make([]bool, len(framePts))

	halfSide := t.Config.MarkerTemplateWidth / 2
	templateSide := 2 * halfSide

	bigHalf := int(float64(halfSide) * t.Config.TemplateInflateFactor)

	if bigHalf < halfSide {
		bigHalf = halfSide
	}

	// warpModel maps a point in this trackable's reference pyramid level
	// lvl to the corresponding point in the frame's pyramid level lvl,
	// composing the level-lvl -> level-0 scale-up, the level-0 -> native
	// homography, and the native -> level-lvl scale-down.
	scaleIn := mat.NewDense(3, 3, []float64{lsx, 0, 0, 0, lsy, 0, 0, 0, 1})
	scaleOut := mat.NewDense(3, 3, []float64{1 / sx, 0, 0, 0, 1 / sy, 0, 0, 0, 1})

	var warpModel, tmp mat.Dense
	tmp.Mul(tr.homography, scaleIn)
	warpModel.Mul(scaleOut, &tmp)

	// searchArea tolerates drift up to SearchRadius outside the fitted
	// bbox before rejecting a point, instead of cutting it off exactly at
	// the boundary.
	searchArea := geom.InflateQuad(tr.bboxTransformed, float64(t.Config.SearchRadius))

	for i := range framePts {
		if !survived[i] {
			continue
		}

		if !geom.PointInPolygon(searchArea, framePts[i]) {
			t.Counters.TemplateMatchRejected++
			continue
		}

		srcRect := image.Rect(
			int(refPts[i].X)-bigHalf, int(refPts[i].Y)-bigHalf,
			int(refPts[i].X)+bigHalf, int(refPts[i].Y)+bigHalf)

		if !rectWithin(srcRect, refImg.Cols(), refImg.Rows()) {
			t.Counters.TemplateMatchRejected++
			continue
		}

		region := refImg.Region(srcRect)
		patch := region.Clone()
		region.Close()

		anchor := geom.TransformPoint(&warpModel, refPts[i])

		if math.IsNaN(anchor.X) || math.IsNaN(anchor.Y) {
			patch.Close()
			t.Counters.TemplateMatchRejected++
			continue
		}

		// toPatchLocal recenters the srcRect crop on the origin; toTemplate
		// recenters the warp's output on the template's own center instead
		// of wherever the homography currently projects the anchor point,
		// so the warped template is comparable to a plain search window.
		toPatchLocal := mat.NewDense(3, 3, []float64{1, 0, -float64(bigHalf), 0, 1, -float64(bigHalf), 0, 0, 1})
		toTemplate := mat.NewDense(3, 3, []float64{1, 0, float64(halfSide) - anchor.X, 0, 1, float64(halfSide) - anchor.Y, 0, 0, 1})

		var warpLocal, transform mat.Dense
		warpLocal.Mul(&warpModel, toPatchLocal)
		transform.Mul(toTemplate, &warpLocal)

		warpMat := denseToWarpMat(&transform)
		template := gocv.NewMat()

		gocv.WarpPerspective(patch, &template, warpMat, image.Pt(templateSide, templateSide))

		warpMat.Close()
		patch.Close()

		levelX := framePts[i].X / sx
		levelY := framePts[i].Y / sy

		searchHalf := halfSide + t.Config.SearchRadius
		searchRect := image.Rect(
			int(levelX)-searchHalf, int(levelY)-searchHalf,
			int(levelX)+searchHalf, int(levelY)+searchHalf)

		levelFrame := t.levelFrame(lvl)

		if !rectWithin(searchRect, levelFrame.Cols(), levelFrame.Rows()) {
			template.Close()
			t.Counters.TemplateMatchRejected++
			continue
		}

		searchROI := levelFrame.Region(searchRect)

		result := gocv.NewMat()
		gocv.MatchTemplate(searchROI, template, &result, gocv.TmSqdiffNormed, gocv.NewMat())

		minVal, _, minLoc, _ := gocv.MinMaxLoc(result)

		result.Close()
		template.Close()

		if minVal > 0.5 {
			t.Counters.TemplateMatchRejected++
			continue
		}

		centerX := float64(searchRect.Min.X+minLoc.X+halfSide) * sx
		centerY := float64(searchRect.Min.Y+minLoc.Y+halfSide) * sy

		refined[i] = geom.Point{X: centerX, Y: centerY}
		matched[i] = true
	}

	return refined, matched
}

// denseToWarpMat converts a 3x3 gonum matrix into the CV64F gocv.Mat
// WarpPerspective expects as its transform argument.
func denseToWarpMat(d *mat.Dense) gocv.Mat {
	m := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV64F)

	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			m.SetDoubleAt(r, c, d.At(r, c))
		}
	}

	return m
}

// pointsToMat packs pts into the Nx2 single-channel float32 Mat that
// gocv.CalcOpticalFlowPyrLK expects for both its input and output point
// sets.
func pointsToMat(pts []geom.Point) gocv.Mat {
	m := gocv.NewMatWithSize(len(pts), 2, gocv.MatTypeCV32F)

	for i, p := range pts {
		m.SetFloatAt(i, 0, float32(p.X))
		m.SetFloatAt(i, 1, float32(p.Y))
	}

	return m
}

func rectWithin(r image.Rectangle, w, h int) bool {
	return r.Min.X >= 0 && r.Min.Y >= 0 && r.Max.X <= w && r.Max.Y <= h && r.Dx() > 0 && r.Dy() > 0
}

// levelScale returns the ratio of native frame pixels to level-lvl
// pixels, simulating the same (n+1)/2 halving chain used to build the
// pyramid.
func (t *Tracker) levelScale(lvl int) (float64, float64) {
	fx, fy := t.xsize, t.ysize

	for i := 0; i < lvl; i++ {
		fx = halvedSize(fx)
		fy = halvedSize(fy)
	}

	return float64(t.xsize) / float64(fx), float64(t.ysize) / float64(fy)
}

// levelFrame lazily downsamples the current frame to pyramid level lvl,
// caching the result for the remainder of this ProcessFrame call.
func (t *Tracker) levelFrame(lvl int) gocv.Mat {
	if m, ok := t.frameLevels[lvl]; ok {
		return m
	}

	m := downsampleTo(t.frame, lvl)

	if t.frameLevels == nil {
		t.frameLevels = make(map[int]gocv.Mat)
	}

	t.frameLevels[lvl] = m

	return m
}

func (t *Tracker) clearFrameLevels() {
	for lvl, m := range t.frameLevels {
		m.Close()
		delete(t.frameLevels, lvl)
	}
}

// updateTrackableHomography refits a trackable's homography from the
// frame's surviving correspondences. It requires more than 4 of them,
// applies the inlier mask back to the selector, and — past the first
// tracked frame — resets every selector level for a fresh anchor set next
// frame.
func (t *Tracker) updateTrackableHomography(tr *Trackable, refPts, framePts []geom.Point, matched []bool) bool {
	lsx, lsy := tr.levelScale(tr.templatePyrLevel)

	var src, dst []geom.Point

	for i, ok := range matched {
		if ok {
			src = append(src, geom.Point{X: refPts[i].X * lsx, Y: refPts[i].Y * lsy})
			dst = append(dst, framePts[i])
		}
	}

	if len(src) <= 4 {
		return false
	}

	res := t.homographySolver().Estimate(src, dst)

	if !res.Valid {
		return false
	}

	final := make([]bool, len(matched))
	inlierIdx := 0

	for i, ok := range matched {
		if !ok {
			continue
		}

		final[i] = res.Inliers[inlierIdx]
		inlierIdx++
	}

	tr.trackSelection[tr.templatePyrLevel].UpdatePointStatus(final)
	tr.homography = res.H
	tr.bboxTransformed = geom.TransformQuad(res.H, tr.bbox)
	tr.isTracking = true

	if t.frameCount > 1 {
		tr.resetSelectors()
	}

	return true
}
