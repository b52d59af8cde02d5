package planartracker

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/mat"
)

func identityHomography() *mat.Dense {
	return mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
}

// checkerboard returns a synthetic grayscale image with enough texture for
// AKAZE/ORB to find keypoints in and Harris to find corners in.
func checkerboard(size int) gocv.Mat {
	img := gocv.NewMatWithSize(size, size, gocv.MatTypeCV8U)

	for y := 0; y < size; y += 8 {
		for x := 0; x < size; x += 8 {
			if ((x/8)+(y/8))%2 == 0 {
				gocv.Rectangle(&img, image.Rect(x, y, x+8, y+8), color.RGBA{R: 255, G: 255, B: 255, A: 0}, -1)
			}
		}
	}

	return img
}

func testCameraParameters(w, h int) CameraParameters {
	return CameraParameters{
		XSize: w,
		YSize: h,
		Mat34: [12]float64{
			float64(w), 0, float64(w) / 2, 0,
			0, float64(w), float64(h) / 2, 0,
			0, 0, 1, 0,
		},
		DistFunctionVersion: DistVersion4,
		DistFactor:          []float64{0, 0, 0, 0, 0},
	}
}
