package planartracker

import (
	"github.com/kalwalt/artoolkitx/corners"
	"github.com/kalwalt/artoolkitx/features"
	"github.com/kalwalt/artoolkitx/geom"
	"github.com/kalwalt/artoolkitx/trackerdb"
	"gocv.io/x/gocv"
)

// matToMatrix copies a gocv.Mat's raw bytes into a trackerdb.Matrix.
// Mats are assumed single-channel 8-bit or 32-bit float, which covers
// both the grayscale image pyramid and AKAZE/ORB descriptor matrices.
func matToMatrix(m gocv.Mat) trackerdb.Matrix {
	elemSize := 1

	if m.Type() == gocv.MatTypeCV32F {
		elemSize = 4
	}

	return trackerdb.Matrix{Rows: m.Rows(), Cols: m.Cols(), ElemSize: elemSize, Data: m.ToBytes()}
}

// matrixToMat reconstructs a gocv.Mat of the given type from a
// trackerdb.Matrix loaded off disk.
func matrixToMat(m trackerdb.Matrix, mt gocv.MatType) gocv.Mat {
	out, err := gocv.NewMatFromBytes(m.Rows, m.Cols, mt, m.Data)

	if err != nil {
		return gocv.NewMatWithSize(m.Rows, m.Cols, mt)
	}

	return out
}

// descMatType infers a descriptor matrix's gocv type from its element
// size, since the database format doesn't store OpenCV type tags
// directly.
func descMatType(m trackerdb.Matrix) gocv.MatType {
	if m.ElemSize == 4 {
		return gocv.MatTypeCV32F
	}

	return gocv.MatTypeCV8U
}

func toDBKeypoints(kps []features.KeyPoint) []trackerdb.Keypoint {
	out := make([]trackerdb.Keypoint, len(kps))

	for i, kp := range kps {
		out[i] = trackerdb.Keypoint{X: kp.X, Y: kp.Y, Size: kp.Size, Angle: kp.Angle, Response: kp.Response}
	}

	return out
}

func fromDBKeypoints(kps []trackerdb.Keypoint) []features.KeyPoint {
	out := make([]features.KeyPoint, len(kps))

	for i, kp := range kps {
		out[i] = features.KeyPoint{X: kp.X, Y: kp.Y, Size: kp.Size, Angle: kp.Angle, Response: kp.Response}
	}

	return out
}

func toDBPoints(pts []geom.Point) []trackerdb.Point {
	out := make([]trackerdb.Point, len(pts))

	for i, p := range pts {
		out[i] = trackerdb.Point{X: p.X, Y: p.Y}
	}

	return out
}

func fromDBPoints(pts []trackerdb.Point) []geom.Point {
	out := make([]geom.Point, len(pts))

	for i, p := range pts {
		out[i] = geom.Point{X: p.X, Y: p.Y}
	}

	return out
}

// rebuildCornersAndSelectors recomputes cornerPoints[i>0] by Harris
// detection and builds a TrackingPointSelector per level, matching what
// AddMarker builds at registration time. cornerPoints[0] comes from the database
// verbatim.
func rebuildCornersAndSelectors(tr *Trackable, corner0 []geom.Point, cfg Config, seed uint64) {
	levels := len(tr.image) - 1

	harris := corners.NewHarrisCornerDetector()
	harris.Border = cfg.HarrisBorder

	tr.cornerPoints = make([][]geom.Point, levels+1)
	tr.trackSelection = make([]*corners.TrackingPointSelector, levels+1)

	tr.cornerPoints[0] = corner0

	for lvl := 0; lvl <= levels; lvl++ {
		if lvl > 0 {
			tr.cornerPoints[lvl] = harris.Detect(tr.image[lvl])
		}

		tr.trackSelection[lvl] = corners.NewTrackingPointSelector(
			tr.cornerPoints[lvl], tr.image[lvl].Cols(), tr.image[lvl].Rows(), defaultQuotaPerBin, seed+uint64(lvl))
	}
}
