package planartracker

import (
	"github.com/kalwalt/artoolkitx/geom"
	"github.com/kalwalt/artoolkitx/pose"
	"gocv.io/x/gocv"
)

// ProcessFrame runs one full detect/track/pose cycle over a grayscale
// frame. frame is cloned internally;
// the caller retains ownership of the Mat it passes in.
func (t *Tracker) ProcessFrame(frame gocv.Mat) {
	t.Counters.reset()
	t.clearFrameLevels()

	if t.haveFrame {
		t.prevFrame.Close()
		t.prevFrame = t.frame
	}

	t.frame = frame.Clone()

	t.runDetectionPhase(t.frame)

	if t.haveFrame {
		t.runTrackingPhase()
	}

	t.solvePoses()

	t.haveFrame = true
	t.frameCount++
}

// solvePoses runs RANSAC PnP for every currently visible trackable. Object
// points come from the active pyramid level's selector, lifted to 3D by
// the trackable's registered scale adjusted for that level's pixel size;
// the matching image points are those same reference anchors converted to
// level-0 coordinates and projected through the trackable's current
// homography, which keeps pose solving in native frame coordinates
// regardless of which pyramid level the tracking phase last touched.
func (t *Tracker) solvePoses() {
	if !t.distSet {
		return
	}

	k := pose.Intrinsics{
		Fx:   t.k.At(0, 0),
		Fy:   t.k.At(1, 1),
		Cx:   t.k.At(0, 2),
		Cy:   t.k.At(1, 2),
		Dist: t.dist,
	}

	for _, tr := range t.trackables {
		if (!tr.isDetected && !tr.isTracking) || tr.homography == nil {
			continue
		}

		lvl := tr.templatePyrLevel
		lsx, lsy := tr.levelScale(lvl)

		selector := tr.trackSelection[lvl]
		refPts := selector.GetTrackedFeatures()
		obj3d := selector.GetTrackedFeatures3d(tr.scale * (lsx + lsy) / 2)

		if len(obj3d) != len(refPts) || len(obj3d) < 6 {
			continue
		}

		obj := make([]pose.Point3, len(obj3d))
		img := make([]geom.Point, len(refPts))

		for i, p := range obj3d {
			obj[i] = pose.Point3{X: p.X, Y: p.Y, Z: p.Z}
			level0Pt := geom.Point{X: refPts[i].X * lsx, Y: refPts[i].Y * lsy}
			img[i] = geom.TransformPoint(tr.homography, level0Pt)
		}

		res := t.poseSolver().Solve(k, obj, img)

		if !res.Valid {
			continue
		}

		tr.pose = res.Pose
	}
}
