package planartracker

import (
	"testing"

	"github.com/kalwalt/artoolkitx/features"
	"github.com/kalwalt/artoolkitx/geom"
	"github.com/kalwalt/artoolkitx/trackerdb"
	"gocv.io/x/gocv"
)

func TestMatToMatrixRoundTripsGrayscale(t *testing.T) {
	img := checkerboard(32)
	defer img.Close()

	m := matToMatrix(img)

	if m.Rows != 32 || m.Cols != 32 || m.ElemSize != 1 {
		t.Fatalf("unexpected matrix header: %+v", m)
	}

	back := matrixToMat(m, gocv.MatTypeCV8U)
	defer back.Close()

	if back.Rows() != 32 || back.Cols() != 32 {
		t.Fatalf("unexpected reconstructed size %dx%d", back.Rows(), back.Cols())
	}

	if img.GetUCharAt(5, 5) != back.GetUCharAt(5, 5) {
		t.Fatal("expected pixel values to round-trip")
	}
}

func TestDescMatTypeInfersFromElemSize(t *testing.T) {
	if descMatType(trackerdb.Matrix{ElemSize: 4}) != gocv.MatTypeCV32F {
		t.Fatal("expected 4-byte elements to infer CV32F")
	}

	if descMatType(trackerdb.Matrix{ElemSize: 1}) != gocv.MatTypeCV8U {
		t.Fatal("expected 1-byte elements to infer CV8U")
	}
}

func TestKeypointAndPointRoundTrip(t *testing.T) {
	kps := []features.KeyPoint{{X: 1, Y: 2, Size: 3, Angle: 4, Response: 5}}
	back := fromDBKeypoints(toDBKeypoints(kps))

	if back[0] != kps[0] {
		t.Fatalf("unexpected keypoint round trip: %+v", back[0])
	}

	pts := []geom.Point{{X: 10, Y: 20}}
	backPts := fromDBPoints(toDBPoints(pts))

	if backPts[0] != pts[0] {
		t.Fatalf("unexpected point round trip: %+v", backPts[0])
	}
}
