package planartracker

import (
	"github.com/kalwalt/artoolkitx/corners"
	"github.com/kalwalt/artoolkitx/features"
	"github.com/kalwalt/artoolkitx/geom"
	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/mat"
)

const defaultQuotaPerBin = 3

// Trackable is a per-reference-image record: an image pyramid, its
// detector output, Harris-corner anchors and selector state per level,
// and the current geometry/pose established by the tracking pipeline.
type Trackable struct {
	id       int
	filename string
	scale    float64

	// image holds levels 0..L; image[0] is caller-owned (shared, never
	// closed by the trackable), image[1:] are exclusively owned.
	image []gocv.Mat

	featurePoints []features.KeyPoint
	descriptors   gocv.Mat

	cornerPoints   [][]geom.Point
	trackSelection []*corners.TrackingPointSelector

	bbox            geom.Quad
	bboxTransformed geom.Quad

	homography *mat.Dense
	pose       *mat.Dense

	isDetected  bool
	isTracking  bool
	resetTracks bool

	templatePyrLevel int
}

// newTrackable runs the full construction pipeline for a freshly
// registered marker: feature detection on image[0], pyramid generation,
// per-level Harris corners, and per-level selectors.
func newTrackable(id int, filename string, scale float64, image0 gocv.Mat, cfg Config, detector *features.Detector, seed uint64) (*Trackable, error) {
	w, h := image0.Cols(), image0.Rows()

	kps, desc := detector.DetectAndCompute(image0, gocv.NewMat())

	t := &Trackable{
		id:            id,
		filename:      filename,
		scale:         scale,
		featurePoints: kps,
		descriptors:   desc,
		bbox:          geom.NewBBox(w, h),
	}

	t.bboxTransformed = t.bbox

	levels := cfg.PyramidLevels
	t.image = make([]gocv.Mat, levels+1)
	t.image[0] = image0

	pyr := buildPyramid(image0, levels)
	copy(t.image[1:], pyr)

	harris := corners.NewHarrisCornerDetector()
	harris.Border = cfg.HarrisBorder

	t.cornerPoints = make([][]geom.Point, levels+1)
	t.trackSelection = make([]*corners.TrackingPointSelector, levels+1)

	for lvl := 0; lvl <= levels; lvl++ {
		cps := harris.Detect(t.image[lvl])
		t.cornerPoints[lvl] = cps
		t.trackSelection[lvl] = corners.NewTrackingPointSelector(
			cps, t.image[lvl].Cols(), t.image[lvl].Rows(), defaultQuotaPerBin, seed+uint64(lvl))
	}

	return t, nil
}

// Close releases every gocv.Mat this trackable exclusively owns.
// image[0] is caller-owned and is never closed here.
func (t *Trackable) Close() {
	for i := 1; i < len(t.image); i++ {
		t.image[i].Close()
	}

	t.descriptors.Close()
}

// resetSelectors marks every pyramid level's selector stale, so the next
// GetInitialFeatures call reseeds the tracked set.
func (t *Trackable) resetSelectors() {
	for _, s := range t.trackSelection {
		s.MarkStale()
	}
}

// levelScale returns the ratio of level-0 pixels to level-lvl pixels in
// this trackable's own image pyramid, simulating the same (n+1)/2 halving
// chain buildPyramid used. tr.homography and tr.scale are both defined in
// level-0 coordinates; any level-lvl point must be scaled through this
// factor before it can be combined with either.
func (t *Trackable) levelScale(lvl int) (float64, float64) {
	w0, h0 := t.image[0].Cols(), t.image[0].Rows()
	fx, fy := w0, h0

	for i := 0; i < lvl; i++ {
		fx = halvedSize(fx)
		fy = halvedSize(fy)
	}

	return float64(w0) / float64(fx), float64(h0) / float64(fy)
}

// markLost clears both tracking flags, used on every tracking-phase
// failure path.
func (t *Trackable) markLost() {
	t.isDetected = false
	t.isTracking = false
}

// setDetected records a freshly fit homography: store it, project the
// reference bbox through it, and reset every level's selector.
func (t *Trackable) setDetected(h *mat.Dense) {
	t.homography = h
	t.isDetected = true
	t.bboxTransformed = geom.TransformQuad(h, t.bbox)
	t.resetSelectors()
}
