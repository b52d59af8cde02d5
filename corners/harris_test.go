package corners

import (
	"image"
	"image/color"
	"testing"

	"gocv.io/x/gocv"
)

func checkerboard(size int) gocv.Mat {
	img := gocv.NewMatWithSize(size, size, gocv.MatTypeCV8U)

	for y := 0; y < size; y += 8 {
		for x := 0; x < size; x += 8 {
			if ((x/8)+(y/8))%2 == 0 {
				gocv.Rectangle(&img, image.Rect(x, y, x+8, y+8), color.RGBA{255, 255, 255, 0}, -1)
			}
		}
	}

	return img
}

func TestHarrisCornerDetectorFindsCorners(t *testing.T) {
	img := checkerboard(128)
	defer img.Close()

	h := NewHarrisCornerDetector()
	corners := h.Detect(img)

	if len(corners) == 0 {
		t.Fatal("expected Harris corners on a checkerboard pattern")
	}

	for _, c := range corners {
		if c.X < float64(h.Border) || c.Y < float64(h.Border) {
			t.Fatalf("corner %+v violates border exclusion of %d", c, h.Border)
		}
	}
}

func TestHarrisCornerDetectorRespectsMaxCorners(t *testing.T) {
	img := checkerboard(128)
	defer img.Close()

	h := NewHarrisCornerDetector()
	h.MaxCorners = 5

	corners := h.Detect(img)

	if len(corners) > 5 {
		t.Fatalf("expected at most 5 corners, got %d", len(corners))
	}
}
