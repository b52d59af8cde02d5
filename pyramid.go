package planartracker

import (
	"image"

	"gocv.io/x/gocv"
)

// halvedSize applies the (n+1)/2 rounding convention used for
// pyramid downsampling.
func halvedSize(n int) int {
	return (n + 1) / 2
}

// pyrDownHalf returns a new Mat holding src resized by the (n+1)/2
// halving convention, using area interpolation for downscaling.
func pyrDownHalf(src gocv.Mat) gocv.Mat {
	w := halvedSize(src.Cols())
	h := halvedSize(src.Rows())

	dst := gocv.NewMat()
	gocv.Resize(src, &dst, image.Pt(w, h), 0, 0, gocv.InterpolationArea)

	return dst
}

// buildPyramid returns levels 1..L given image[0]; the caller retains
// ownership of level0 and this function's returned Mats become the
// caller's to Close.
func buildPyramid(level0 gocv.Mat, levels int) []gocv.Mat {
	out := make([]gocv.Mat, levels)
	prev := level0

	for i := 0; i < levels; i++ {
		out[i] = pyrDownHalf(prev)
		prev = out[i]
	}

	return out
}

// downsampleTo repeatedly halves src until it reaches targetLevel,
// returning a newly allocated Mat (or a clone of src if targetLevel is
// 0).
func downsampleTo(src gocv.Mat, targetLevel int) gocv.Mat {
	if targetLevel <= 0 {
		return src.Clone()
	}

	cur := src

	for i := 0; i < targetLevel; i++ {
		next := pyrDownHalf(cur)

		if i > 0 {
			cur.Close()
		}

		cur = next
	}

	return cur
}
