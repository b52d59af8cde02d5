package corners

import (
	"sort"

	"github.com/kalwalt/artoolkitx/geom"
	"gocv.io/x/gocv"
)

// HarrisCornerDetector extracts well-separated Harris corners from a
// grayscale image, ordered by descending response.
type HarrisCornerDetector struct {
	// BlockSize is the neighbourhood size passed to cv::cornerHarris.
	BlockSize int
	// ApertureSize is the Sobel aperture parameter.
	ApertureSize int
	// K is the Harris free parameter (typically 0.04-0.06).
	K float64
	// Border excludes corners within this many pixels of the image edge.
	Border int
	// MinSeparation is the minimum pixel distance enforced between two
	// accepted corners so the result stays "well separated".
	MinSeparation float64
	// MaxCorners caps the number of corners returned; <= 0 means no cap.
	MaxCorners int
}

// NewHarrisCornerDetector returns a detector with the default parameters: a
// 10px border exclusion and no cap on corner count.
func NewHarrisCornerDetector() *HarrisCornerDetector {
	return &HarrisCornerDetector{
		BlockSize:     2,
		ApertureSize:  3,
		K:             0.04,
		Border:        10,
		MinSeparation: 5,
		MaxCorners:    0,
	}
}

type scoredPoint struct {
	pt       geom.Point
	response float32
}

// Detect returns corner coordinates ordered by descending Harris response,
// excluding a border strip and enforcing minimum separation. Coordinates
// are whole-pixel positions of the response map; no subpixel refinement
// is applied.
func (h *HarrisCornerDetector) Detect(img gocv.Mat) []geom.Point {
	resp := gocv.NewMat()
	defer resp.Close()

	gocv.CornerHarris(img, &resp, h.BlockSize, h.ApertureSize, h.K)

	rows, cols := resp.Rows(), resp.Cols()
	border := h.Border

	if border < 0 {
		border = 0
	}

	var candidates []scoredPoint

	for y := border; y < rows-border; y++ {
		for x := border; x < cols-border; x++ {
			v := resp.GetFloatAt(y, x)

			if v <= 0 {
				continue
			}

			candidates = append(candidates, scoredPoint{
				pt:       geom.Point{X: float64(x), Y: float64(y)},
				response: v,
			})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].response > candidates[j].response
	})

	return h.suppressAndCap(candidates)
}

// suppressAndCap greedily accepts candidates in response order, skipping
// any that fall within MinSeparation of an already-accepted corner, and
// stops once MaxCorners is reached.
func (h *HarrisCornerDetector) suppressAndCap(candidates []scoredPoint) []geom.Point {
	minSepSq := h.MinSeparation * h.MinSeparation
	var accepted []geom.Point

	for _, c := range candidates {
		if h.MaxCorners > 0 && len(accepted) >= h.MaxCorners {
			break
		}

		tooClose := false

		for _, a := range accepted {
			dx := a.X - c.pt.X
			dy := a.Y - c.pt.Y

			if dx*dx+dy*dy < minSepSq {
				tooClose = true
				break
			}
		}

		if !tooClose {
			accepted = append(accepted, c.pt)
		}
	}

	return accepted
}
