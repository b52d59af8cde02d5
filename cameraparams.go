package planartracker

import (
	"log"

	"gonum.org/v1/gonum/mat"
)

// DistFunctionVersion selects the layout of a CameraParameters'
// distortion coefficient array.
type DistFunctionVersion int

const (
	// DistVersion4 is the 5-coefficient layout: k1,k2,p1,p2,k3=0.
	DistVersion4 DistFunctionVersion = 4
	// DistVersion5 is the full 12-coefficient rational + thin-prism
	// layout.
	DistVersion5 DistFunctionVersion = 5
)

// CameraParameters describes a calibrated monocular camera: frame size,
// a 3x4 intrinsics-extended matrix (row-major; only the leftmost 3x3 is
// used as K), and a distortion model.
type CameraParameters struct {
	XSize, YSize int
	// Mat34 is the row-major 3x4 intrinsics-extended matrix; only the
	// leftmost 3x3 block is used.
	Mat34 [12]float64
	// DistFunctionVersion selects how DistFactor is interpreted.
	DistFunctionVersion DistFunctionVersion
	// DistFactor holds 5 coefficients (version 4, k3 forced to 0) or 12
	// (version 5).
	DistFactor []float64
}

// intrinsics extracts the 3x3 K block from Mat34 as a gonum matrix.
func (c CameraParameters) intrinsics() *mat.Dense {
	k := mat.NewDense(3, 3, nil)

	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			k.Set(row, col, c.Mat34[row*4+col])
		}
	}

	return k
}

// distortion validates and normalizes DistFactor according to
// DistFunctionVersion. An unknown version logs a warning and leaves the
// distortion vector empty; it does not stop the caller from configuring
// the rest of the camera model.
func (c CameraParameters) distortion() []float64 {
	switch c.DistFunctionVersion {
	case DistVersion4:
		d := make([]float64, 5)
		copy(d, c.DistFactor)
		d[4] = 0

		return d
	case DistVersion5:
		d := make([]float64, 12)
		copy(d, c.DistFactor)

		return d
	default:
		log.Printf("planartracker: unsupported distFunctionVersion %d, leaving distortion empty", int(c.DistFunctionVersion))

		return nil
	}
}
