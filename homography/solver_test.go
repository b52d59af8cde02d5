package homography

import (
	"math"
	"testing"

	"github.com/kalwalt/artoolkitx/geom"
	"gonum.org/v1/gonum/mat"
)

func squarePoints() []geom.Point {
	return []geom.Point{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 100}, {X: 0, Y: 100}}
}

func TestEstimateRecoversTranslation(t *testing.T) {
	src := squarePoints()
	dst := make([]geom.Point, len(src))

	for i, p := range src {
		dst[i] = geom.Point{X: p.X + 20, Y: p.Y - 10}
	}

	s := NewHomographySolver(1)
	res := s.Estimate(src, dst)

	if !res.Valid {
		t.Fatal("expected valid homography for a simple translation")
	}

	for i, p := range src {
		proj := geom.TransformPoint(res.H, p)

		if math.Abs(proj.X-dst[i].X) > 1e-6 || math.Abs(proj.Y-dst[i].Y) > 1e-6 {
			t.Fatalf("point %d: projected %+v, want %+v", i, proj, dst[i])
		}
	}

	for i, ok := range res.Inliers {
		if !ok {
			t.Fatalf("expected point %d to be an inlier", i)
		}
	}
}

func TestEstimateRejectsTooFewPoints(t *testing.T) {
	src := squarePoints()[:3]
	dst := squarePoints()[:3]

	s := NewHomographySolver(2)
	res := s.Estimate(src, dst)

	if res.Valid {
		t.Fatal("expected fewer than 4 correspondences to be rejected")
	}
}

func TestEstimateToleratesOutliers(t *testing.T) {
	src := append(squarePoints(), geom.Point{X: 50, Y: 50}, geom.Point{X: 25, Y: 75})
	dst := make([]geom.Point, len(src))

	for i, p := range squarePoints() {
		dst[i] = geom.Point{X: p.X + 5, Y: p.Y + 5}
	}

	// two gross outliers that do not follow the translation
	dst = append(dst, geom.Point{X: 500, Y: -300}, geom.Point{X: -900, Y: 400})

	// two more correspondences that follow the translation: with only four
	// true inliers every 4-point sample fits its own points exactly and
	// ties with the true model, so RANSAC needs more support than that.
	src = append(src, geom.Point{X: 70, Y: 20}, geom.Point{X: 10, Y: 70})
	dst = append(dst, geom.Point{X: 75, Y: 25}, geom.Point{X: 15, Y: 75})

	s := NewHomographySolver(3)
	res := s.Estimate(src, dst)

	if !res.Valid {
		t.Fatal("expected RANSAC to recover a valid homography despite outliers")
	}

	if res.Inliers[4] || res.Inliers[5] {
		t.Fatal("expected the gross outliers to be rejected as inliers")
	}
}

func TestIsValidHomographyRejectsSingular(t *testing.T) {
	if isValidHomography(nil) {
		t.Fatal("nil homography must be invalid")
	}

	singular := mat.NewDense(3, 3, []float64{1, 2, 3, 2, 4, 6, 0, 0, 1})

	if isValidHomography(singular) {
		t.Fatal("singular homography must be invalid")
	}
}
