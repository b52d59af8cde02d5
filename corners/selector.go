package corners

import (
	"math/rand/v2"

	"github.com/kalwalt/artoolkitx/geom"
	"gonum.org/v1/gonum/mat"
)

// gridSize is the fixed spatial-binning resolution used to spread tracked
// points evenly across an image.
const gridSize = 10

// Point3D is a tracked anchor lifted into the trackable's reference frame
// (z=0 plane) and scaled to world units.
type Point3D struct {
	X, Y, Z float64
}

// TrackingPointSelector maintains, for one trackable pyramid level, a pool
// of Harris-corner candidates partitioned into Candidates (unused),
// Tracked (the current working set) and Dead (retired after failure). The
// three partitions are always disjoint and their union is the original
// corner set.
type TrackingPointSelector struct {
	imgW, imgH  int
	quotaPerBin int
	rng         *rand.Rand

	all     []geom.Point
	binOf   []int // bin index per corner in `all`
	bins    [][]int
	tracked []int // indices into `all`
	dead    map[int]bool
	stale   bool
}

// NewTrackingPointSelector builds a selector over the given corner set for
// an image of size imgW x imgH. quotaPerBin bounds how many corners one
// grid bin may contribute to the tracked set on a reset.
func NewTrackingPointSelector(corners []geom.Point, imgW, imgH, quotaPerBin int, seed uint64) *TrackingPointSelector {
	s := &TrackingPointSelector{
		imgW:        imgW,
		imgH:        imgH,
		quotaPerBin: quotaPerBin,
		rng:         rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		all:         corners,
		dead:        make(map[int]bool),
		stale:       true,
	}

	s.binOf = make([]int, len(corners))
	s.bins = make([][]int, gridSize*gridSize)

	for i, c := range corners {
		b := s.binIndex(c)
		s.binOf[i] = b
		s.bins[b] = append(s.bins[b], i)
	}

	return s
}

func (s *TrackingPointSelector) binIndex(p geom.Point) int {
	col := int(p.X * gridSize / float64(s.imgW))
	row := int(p.Y * gridSize / float64(s.imgH))

	if col >= gridSize {
		col = gridSize - 1
	}

	if col < 0 {
		col = 0
	}

	if row >= gridSize {
		row = gridSize - 1
	}

	if row < 0 {
		row = 0
	}

	return row*gridSize + col
}

func (s *TrackingPointSelector) isTracked(idx int) bool {
	for _, t := range s.tracked {
		if t == idx {
			return true
		}
	}

	return false
}

// ResetSelection reseeds the Tracked set by random sampling across
// non-empty bins, drawing at most quotaPerBin candidates per bin and
// skipping any corner already marked Dead.
func (s *TrackingPointSelector) ResetSelection() {
	s.tracked = s.tracked[:0]

	for _, bin := range s.bins {
		if len(bin) == 0 {
			continue
		}

		available := make([]int, 0, len(bin))

		for _, idx := range bin {
			if !s.dead[idx] {
				available = append(available, idx)
			}
		}

		s.rng.Shuffle(len(available), func(i, j int) {
			available[i], available[j] = available[j], available[i]
		})

		n := s.quotaPerBin

		if n > len(available) {
			n = len(available)
		}

		s.tracked = append(s.tracked, available[:n]...)
	}

	s.stale = false
}

// MarkStale forces the next GetInitialFeatures call to reset the tracked
// set, mirroring the trackable-level resetTracks flag.
func (s *TrackingPointSelector) MarkStale() {
	s.stale = true
}

// GetInitialFeatures returns the current Tracked set, first calling
// ResetSelection if it is empty or has been marked stale.
func (s *TrackingPointSelector) GetInitialFeatures() []geom.Point {
	if len(s.tracked) == 0 || s.stale {
		s.ResetSelection()
	}

	return s.trackedPoints()
}

// GetTrackedFeatures returns the current Tracked set without ever
// triggering a reset.
func (s *TrackingPointSelector) GetTrackedFeatures() []geom.Point {
	return s.trackedPoints()
}

func (s *TrackingPointSelector) trackedPoints() []geom.Point {
	out := make([]geom.Point, len(s.tracked))

	for i, idx := range s.tracked {
		out[i] = s.all[idx]
	}

	return out
}

// GetTrackedFeaturesWarped projects the current Tracked set through the
// 3x3 homography H into frame coordinates.
func (s *TrackingPointSelector) GetTrackedFeaturesWarped(h *mat.Dense) []geom.Point {
	pts := s.trackedPoints()
	out := make([]geom.Point, len(pts))

	for i, p := range pts {
		out[i] = geom.TransformPoint(h, p)
	}

	return out
}

// GetTrackedFeatures3d lifts the current Tracked set to 3D by assigning
// z=0 and applying scale, centered so the reference image's centre sits at
// the origin.
func (s *TrackingPointSelector) GetTrackedFeatures3d(scale float64) []Point3D {
	pts := s.trackedPoints()
	out := make([]Point3D, len(pts))

	cx := float64(s.imgW) / 2
	cy := float64(s.imgH) / 2

	for i, p := range pts {
		out[i] = Point3D{
			X: (p.X - cx) * scale,
			Y: (p.Y - cy) * scale,
			Z: 0,
		}
	}

	return out
}

// UpdatePointStatus keeps each tracked point whose corresponding mask bit
// is set, and moves every rejected point into Dead. status must be the
// same length as the slice last returned by GetInitialFeatures or
// GetTrackedFeatures.
func (s *TrackingPointSelector) UpdatePointStatus(status []bool) {
	if len(status) != len(s.tracked) {
		return
	}

	kept := s.tracked[:0:0]

	for i, idx := range s.tracked {
		if status[i] {
			kept = append(kept, idx)
		} else {
			s.dead[idx] = true
		}
	}

	s.tracked = kept
}

// Partitions reports the size of each of the three disjoint sets, for
// invariant checking.
func (s *TrackingPointSelector) Partitions() (candidates, tracked, dead int) {
	return len(s.all) - len(s.tracked) - len(s.dead), len(s.tracked), len(s.dead)
}

// Total returns the size of the original corner set backing this selector.
func (s *TrackingPointSelector) Total() int {
	return len(s.all)
}
