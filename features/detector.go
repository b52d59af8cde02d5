package features

import (
	"fmt"

	"gocv.io/x/gocv"
)

// Variant selects the concrete feature algorithm and its matcher distance.
type Variant int

const (
	// Blob is an AKAZE-style detector with float descriptors matched by L2.
	Blob Variant = 0
	// Binary is an ORB-style detector with binary descriptors matched by
	// Hamming distance.
	Binary Variant = 1
)

// String implements fmt.Stringer.
func (v Variant) String() string {
	switch v {
	case Blob:
		return "blob"
	case Binary:
		return "binary"
	default:
		return fmt.Sprintf("unknown variant %d", int(v))
	}
}

// KeyPoint is a detected feature location, decoupled from gocv's KeyPoint
// so callers outside this package never import gocv directly.
type KeyPoint struct {
	X, Y     float64
	Size     float64
	Angle    float64
	Response float64
}

// Detector extracts keypoints and descriptors from a grayscale image and
// matches descriptor sets, using whichever concrete algorithm Variant
// selects.
type Detector struct {
	variant Variant
	akaze   gocv.AKAZE
	orb     gocv.ORB
	matcher gocv.BFMatcher
}

// NewDetector constructs a Detector for the given Variant. Close must be
// called to release the underlying OpenCV resources.
func NewDetector(variant Variant) *Detector {
	d := &Detector{variant: variant}

	switch variant {
	case Binary:
		d.orb = gocv.NewORB()
		d.matcher = gocv.NewBFMatcherWithParams(gocv.NormHamming, false)
	default:
		d.variant = Blob
		d.akaze = gocv.NewAKAZE()
		d.matcher = gocv.NewBFMatcherWithParams(gocv.NormL2, false)
	}

	return d
}

// Variant reports which concrete algorithm this Detector runs.
func (d *Detector) Variant() Variant {
	return d.variant
}

// Close releases the underlying OpenCV feature detector and matcher.
func (d *Detector) Close() error {
	if d.variant == Binary {
		d.orb.Close()
	} else {
		d.akaze.Close()
	}

	return d.matcher.Close()
}

// Detect extracts keypoints from img. Where mask is non-empty and zero at a
// pixel, no keypoint is reported there.
func (d *Detector) Detect(img gocv.Mat, mask gocv.Mat) []KeyPoint {
	var raw []gocv.KeyPoint

	if d.variant == Binary {
		raw = d.orb.Detect(img)
	} else {
		raw = d.akaze.Detect(img)
	}

	return filterByMask(raw, mask)
}

// DetectAndCompute extracts keypoints and their descriptors from img in a
// single pass — gocv's feature2d bindings only expose a combined
// detect-and-compute call, so Describe (below) is implemented in terms of
// this method rather than computing descriptors for externally supplied
// keypoints.
func (d *Detector) DetectAndCompute(img gocv.Mat, mask gocv.Mat) ([]KeyPoint, gocv.Mat) {
	var raw []gocv.KeyPoint
	var desc gocv.Mat

	if d.variant == Binary {
		raw, desc = d.orb.DetectAndCompute(img, mask)
	} else {
		raw, desc = d.akaze.DetectAndCompute(img, mask)
	}

	return toKeyPoints(raw), desc
}

// Describe recomputes descriptors for img, ignoring keypoints and instead
// returning the detector's own keypoints alongside their descriptors. It
// exists to satisfy the detect/describe two-step contract callers expect;
// in practice every caller in this codebase uses DetectAndCompute directly.
func (d *Detector) Describe(img gocv.Mat, keypoints []KeyPoint) ([]KeyPoint, gocv.Mat) {
	return d.DetectAndCompute(img, gocv.NewMat())
}

func toKeyPoints(raw []gocv.KeyPoint) []KeyPoint {
	out := make([]KeyPoint, len(raw))

	for i, kp := range raw {
		out[i] = KeyPoint{X: kp.X, Y: kp.Y, Size: kp.Size, Angle: kp.Angle, Response: kp.Response}
	}

	return out
}

func filterByMask(raw []gocv.KeyPoint, mask gocv.Mat) []KeyPoint {
	if mask.Empty() {
		return toKeyPoints(raw)
	}

	out := make([]KeyPoint, 0, len(raw))

	for _, kp := range raw {
		x, y := int(kp.X), int(kp.Y)

		if x < 0 || y < 0 || y >= mask.Rows() || x >= mask.Cols() {
			continue
		}

		if mask.GetUCharAt(y, x) == 0 {
			continue
		}

		out = append(out, KeyPoint{X: kp.X, Y: kp.Y, Size: kp.Size, Angle: kp.Angle, Response: kp.Response})
	}

	return out
}
