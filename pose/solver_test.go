package pose

import (
	"math"
	"testing"

	"github.com/kalwalt/artoolkitx/geom"
)

func planarObjectPoints() []Point3 {
	return []Point3{
		{X: -50, Y: -50, Z: 0},
		{X: 50, Y: -50, Z: 0},
		{X: 50, Y: 50, Z: 0},
		{X: -50, Y: 50, Z: 0},
		{X: 0, Y: -50, Z: 0},
		{X: -50, Y: 0, Z: 0},
		{X: 50, Y: 0, Z: 0},
		{X: 0, Y: 50, Z: 0},
	}
}

func identityCamera() Intrinsics {
	return Intrinsics{Fx: 800, Fy: 800, Cx: 320, Cy: 240}
}

func TestSolveRecoversFrontoParallelPose(t *testing.T) {
	k := identityCamera()
	obj := planarObjectPoints()

	// ground truth: camera looking straight down the object's z axis,
	// offset by (0, 0, 400).
	img := make([]geom.Point, len(obj))

	for i, p := range obj {
		cz := p.Z + 400
		u, v, ok := k.Project(p.X, p.Y, cz)

		if !ok {
			t.Fatalf("point %d projected behind camera", i)
		}

		img[i] = geom.Point{X: u, Y: v}
	}

	s := NewPoseSolver(1)
	res := s.Solve(k, obj, img)

	if !res.Valid {
		t.Fatal("expected a valid pose for a well-conditioned planar sample")
	}

	for i, p := range obj {
		cx := res.Pose.At(0, 0)*p.X + res.Pose.At(0, 1)*p.Y + res.Pose.At(0, 2)*p.Z + res.Pose.At(0, 3)
		cy := res.Pose.At(1, 0)*p.X + res.Pose.At(1, 1)*p.Y + res.Pose.At(1, 2)*p.Z + res.Pose.At(1, 3)
		cz := res.Pose.At(2, 0)*p.X + res.Pose.At(2, 1)*p.Y + res.Pose.At(2, 2)*p.Z + res.Pose.At(2, 3)

		u, v, ok := k.Project(cx, cy, cz)

		if !ok {
			t.Fatalf("point %d: recovered pose projects behind camera", i)
		}

		if math.Hypot(u-img[i].X, v-img[i].Y) > 1 {
			t.Fatalf("point %d: reprojected (%v,%v), want (%v,%v)", i, u, v, img[i].X, img[i].Y)
		}
	}
}

func TestSolveRejectsTooFewCorrespondences(t *testing.T) {
	k := identityCamera()
	obj := planarObjectPoints()[:5]
	img := make([]geom.Point, len(obj))

	s := NewPoseSolver(2)
	res := s.Solve(k, obj, img)

	if res.Valid {
		t.Fatal("expected fewer than 6 correspondences to be rejected")
	}
}

func TestUndistortRoundTripsWithZeroDistortion(t *testing.T) {
	k := identityCamera()

	x, y := k.Undistort(400, 300)
	u, v, ok := k.Project(x, y, 1)

	if !ok {
		t.Fatal("expected point in front of camera")
	}

	if math.Abs(u-400) > 1e-6 || math.Abs(v-300) > 1e-6 {
		t.Fatalf("round trip mismatch: got (%v,%v)", u, v)
	}
}

func TestMatrixToRodriguesRoundTrip(t *testing.T) {
	v := Vec3{X: 0.1, Y: -0.2, Z: 0.3}
	r := RodriguesToMatrix(v)
	back := MatrixToRodrigues(r)

	if math.Abs(back.X-v.X) > 1e-6 || math.Abs(back.Y-v.Y) > 1e-6 || math.Abs(back.Z-v.Z) > 1e-6 {
		t.Fatalf("rodrigues round trip mismatch: got %+v, want %+v", back, v)
	}
}

func TestMatrixToRodriguesIdentity(t *testing.T) {
	r := identity3()
	v := MatrixToRodrigues(r)

	if v.X != 0 || v.Y != 0 || v.Z != 0 {
		t.Fatalf("expected zero rotation vector for identity, got %+v", v)
	}
}
