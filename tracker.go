package planartracker

import (
	"fmt"
	"log"
	"math"

	"github.com/kalwalt/artoolkitx/features"
	"github.com/kalwalt/artoolkitx/geom"
	"github.com/kalwalt/artoolkitx/homography"
	"github.com/kalwalt/artoolkitx/pose"
	"github.com/kalwalt/artoolkitx/trackerdb"
	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/mat"
)

// minDetectionWidth and minDetectionHeight are the default effective
// minimum detection image size used by Initialise's pyramid-level
// formula.
const (
	minDetectionWidth  = 320
	minDetectionHeight = 240
)

// Tracker orchestrates the per-frame detect/track pipeline over a set of
// registered Trackables.
type Tracker struct {
	Config Config

	trackables       []*Trackable
	currentlyTracked int

	xsize, ysize          int
	featureDetectPyrLevel int
	scaleFactorX          float64
	scaleFactorY          float64

	k       *mat.Dense
	dist    []float64
	distSet bool

	detector *features.Detector

	prevFrame   gocv.Mat
	frame       gocv.Mat
	haveFrame   bool
	frameLevels map[int]gocv.Mat

	frameCount int
	seedCursor uint64

	Counters Counters
}

// NewTracker returns a tracker configured with the documented defaults.
// Initialise must be called before ProcessFrame.
func NewTracker() *Tracker {
	cfg := DefaultConfig()

	return &Tracker{
		Config:   cfg,
		detector: features.NewDetector(cfg.FeatureVariant),
	}
}

// Initialise sets the frame geometry and camera model.
func (t *Tracker) Initialise(cp CameraParameters) error {
	t.xsize, t.ysize = cp.XSize, cp.YSize
	t.k = cp.intrinsics()
	t.dist = cp.distortion()
	t.distSet = true

	levelX := int(math.Floor(math.Log2(float64(cp.XSize) / float64(minDetectionWidth))))
	levelY := int(math.Floor(math.Log2(float64(cp.YSize) / float64(minDetectionHeight))))

	level := levelX
	if levelY < level {
		level = levelY
	}

	if level < 0 {
		level = 0
	}

	t.featureDetectPyrLevel = level

	finalX, finalY := cp.XSize, cp.YSize

	for i := 0; i < level; i++ {
		finalX = halvedSize(finalX)
		finalY = halvedSize(finalY)
	}

	t.scaleFactorX = float64(cp.XSize) / float64(finalX)
	t.scaleFactorY = float64(cp.YSize) / float64(finalY)

	if t.haveFrame {
		t.prevFrame.Close()
		t.frame.Close()
	}

	t.clearFrameLevels()
	t.haveFrame = false
	t.currentlyTracked = 0
	t.frameCount = 0

	return nil
}

// AddMarker registers a new trackable built from buffer, a grayscale
// image of size w x h. buffer is shared with the caller by reference;
// AddMarker never mutates it.
func (t *Tracker) AddMarker(buffer gocv.Mat, filename string, w, h, id int, scale float64) error {
	for _, tr := range t.trackables {
		if tr.id == id {
			return badInput(fmt.Sprintf("trackable id %d already registered", id), nil)
		}
	}

	if buffer.Cols() != w || buffer.Rows() != h {
		return badInput("buffer dimensions do not match w,h", nil)
	}

	t.seedCursor++

	tr, err := newTrackable(id, filename, scale, buffer, t.Config, t.detector, t.seedCursor*0x9e3779b1)

	if err != nil {
		return err
	}

	t.trackables = append(t.trackables, tr)

	return nil
}

// RemoveAllMarkers releases every registered trackable.
func (t *Tracker) RemoveAllMarkers() {
	for _, tr := range t.trackables {
		tr.Close()
	}

	t.trackables = nil
	t.currentlyTracked = 0
}

// TrackableCount reports how many trackables are registered.
func (t *Tracker) TrackableCount() int {
	return len(t.trackables)
}

// TrackableName returns the filename of the trackable at index i.
func (t *Tracker) TrackableName(i int) (string, bool) {
	if i < 0 || i >= len(t.trackables) {
		return "", false
	}

	return t.trackables[i].filename, true
}

// TrackableScale returns the scale of the trackable at index i.
func (t *Tracker) TrackableScale(i int) (float64, bool) {
	if i < 0 || i >= len(t.trackables) {
		return 0, false
	}

	return t.trackables[i].scale, true
}

// GetImageIds returns the id of every registered trackable, in
// registration order.
func (t *Tracker) GetImageIds() []int {
	ids := make([]int, len(t.trackables))

	for i, tr := range t.trackables {
		ids[i] = tr.id
	}

	return ids
}

// ChangeImageId renumbers a trackable, failing if oldId does not exist or
// newId is already taken.
func (t *Tracker) ChangeImageId(oldID, newID int) bool {
	if oldID == newID {
		return t.findTrackable(oldID) != nil
	}

	if t.findTrackable(newID) != nil {
		return false
	}

	tr := t.findTrackable(oldID)

	if tr == nil {
		return false
	}

	tr.id = newID

	return true
}

func (t *Tracker) findTrackable(id int) *Trackable {
	for _, tr := range t.trackables {
		if tr.id == id {
			return tr
		}
	}

	return nil
}

// IsTrackableVisible reports whether id is currently detected or
// tracking.
func (t *Tracker) IsTrackableVisible(id int) bool {
	tr := t.findTrackable(id)

	return tr != nil && (tr.isDetected || tr.isTracking)
}

// GetTrackablePose copies id's current 3x4 pose (single precision) into
// out, reporting false if id is unknown or not currently visible.
func (t *Tracker) GetTrackablePose(id int, out *[3][4]float32) bool {
	tr := t.findTrackable(id)

	if tr == nil || !(tr.isDetected || tr.isTracking) || tr.pose == nil {
		return false
	}

	for r := 0; r < 3; r++ {
		for c := 0; c < 4; c++ {
			out[r][c] = float32(tr.pose.At(r, c))
		}
	}

	return true
}

// SetFeatureDetector switches the detector variant used for future
// AddMarker calls and frame detection passes.
func (t *Tracker) SetFeatureDetector(v features.Variant) {
	if t.detector != nil {
		t.detector.Close()
	}

	t.Config.FeatureVariant = v
	t.detector = features.NewDetector(v)
}

// SetMaximumNumberOfMarkersToTrack updates Config.MaxConcurrentlyTracked.
func (t *Tracker) SetMaximumNumberOfMarkersToTrack(n int) {
	t.Config.SetMaximumNumberOfMarkersToTrack(n)
}

// SetMinRequiredDetectedFeatures updates Config.MinRequiredDetectedFeatures.
func (t *Tracker) SetMinRequiredDetectedFeatures(n int) {
	t.Config.SetMinRequiredDetectedFeatures(n)
}

// SetHomographyEstimationRANSACThreshold updates Config.RansacThresh.
func (t *Tracker) SetHomographyEstimationRANSACThreshold(px float64) {
	t.Config.SetHomographyEstimationRANSACThreshold(px)
}

// homographySolver builds a solver from the tracker's current config,
// seeded from frameCount: every call within one frame draws the same RNG
// stream, so RANSAC sampling is deterministic per frame without repeating
// the exact same draws every frame.
func (t *Tracker) homographySolver() *homography.HomographySolver {
	s := homography.NewHomographySolver(uint64(t.frameCount)*0x2545f4914f6cdd1d + 1)
	s.RansacThresh = t.Config.RansacThresh

	return s
}

func (t *Tracker) poseSolver() *pose.PoseSolver {
	return pose.NewPoseSolver(uint64(t.frameCount)*0x2545f4914f6cdd1d + 2)
}

// SaveDatabase writes every trackable to path in the tagged key-value
// format trackerdb implements. It returns false (with a logged-style
// wrapped error kept internal) on any I/O failure.
func (t *Tracker) SaveDatabase(path string) bool {
	w, f, err := trackerdb.CreateFile(path)

	if err != nil {
		log.Printf("planartracker: creating database file %s: %v", path, err)
		return false
	}

	defer f.Close()

	w.PutInt("totalTrackables", len(t.trackables))
	w.PutInt("featureType", int(t.Config.FeatureVariant))

	for i, tr := range t.trackables {
		writeTrackable(w, i, tr)
	}

	if err := w.Flush(); err != nil {
		log.Printf("planartracker: writing database file %s: %v", path, err)
		return false
	}

	return true
}

func writeTrackable(w *trackerdb.Writer, i int, tr *Trackable) {
	suffix := fmt.Sprintf("%d", i)

	w.PutInt("trackableId"+suffix, tr.id)
	w.PutString("trackableFileName"+suffix, tr.filename)
	w.PutFloat64("trackableScale"+suffix, tr.scale)
	w.PutInt("trackableWidth"+suffix, tr.image[0].Cols())
	w.PutInt("trackableHeight"+suffix, tr.image[0].Rows())
	w.PutMatrix("trackableImage"+suffix, matToMatrix(tr.image[0]))
	w.PutMatrix("trackableDescriptors"+suffix, matToMatrix(tr.descriptors))
	w.PutKeypoints("trackableFeaturePoints"+suffix, toDBKeypoints(tr.featurePoints))
	w.PutPoints("trackableCornerPoints"+suffix, toDBPoints(tr.cornerPoints[0]))
}

// LoadDatabase replaces the tracker's trackable set with the contents of
// path, rebuilding derived pyramid levels, Harris corners and selectors.
// It returns false, leaving tracker state unchanged, on any read or
// format failure.
func (t *Tracker) LoadDatabase(path string) bool {
	db, err := trackerdb.Open(path)

	if err != nil {
		log.Printf("planartracker: opening database file %s: %v", path, err)
		return false
	}

	total, err := db.GetInt("totalTrackables")

	if err != nil {
		log.Printf("planartracker: reading database file %s: %v", path, err)
		return false
	}

	featureType, err := db.GetInt("featureType")

	if err != nil {
		log.Printf("planartracker: reading database file %s: %v", path, err)
		return false
	}

	loaded := make([]*Trackable, 0, total)

	for i := 0; i < total; i++ {
		tr, err := readTrackable(db, i, t.Config)

		if err != nil {
			log.Printf("planartracker: reading trackable %d from %s: %v", i, path, err)

			for _, tr := range loaded {
				tr.Close()
			}

			return false
		}

		loaded = append(loaded, tr)
	}

	t.RemoveAllMarkers()
	t.trackables = loaded
	t.SetFeatureDetector(features.Variant(featureType))

	return true
}

func readTrackable(db *trackerdb.DB, i int, cfg Config) (*Trackable, error) {
	suffix := fmt.Sprintf("%d", i)

	id, err := db.GetInt("trackableId" + suffix)

	if err != nil {
		return nil, err
	}

	filename, err := db.GetString("trackableFileName" + suffix)

	if err != nil {
		return nil, err
	}

	scale, err := db.GetFloat64("trackableScale" + suffix)

	if err != nil {
		return nil, err
	}

	imgM, err := db.GetMatrix("trackableImage" + suffix)

	if err != nil {
		return nil, err
	}

	descM, err := db.GetMatrix("trackableDescriptors" + suffix)

	if err != nil {
		return nil, err
	}

	kps, err := db.GetKeypoints("trackableFeaturePoints" + suffix)

	if err != nil {
		return nil, err
	}

	corner0, err := db.GetPoints("trackableCornerPoints" + suffix)

	if err != nil {
		return nil, err
	}

	image0 := matrixToMat(imgM, gocv.MatTypeCV8U)
	desc := matrixToMat(descM, descMatType(descM))

	tr := &Trackable{
		id:            id,
		filename:      filename,
		scale:         scale,
		featurePoints: fromDBKeypoints(kps),
		descriptors:   desc,
		bbox:          geom.NewBBox(image0.Cols(), image0.Rows()),
	}

	tr.bboxTransformed = tr.bbox
	tr.image = append([]gocv.Mat{image0}, buildPyramid(image0, cfg.PyramidLevels)...)

	rebuildCornersAndSelectors(tr, fromDBPoints(corner0), cfg, uint64(i))

	return tr, nil
}
