package pose

import (
	"math"
	"math/rand/v2"

	"github.com/kalwalt/artoolkitx/geom"
	"gonum.org/v1/gonum/mat"
)

// DefaultReprojThresh is the reprojection-error inlier threshold, in
// pixels, used when a PoseSolver leaves RansacThresh unset.
const DefaultReprojThresh = 4.0

const (
	defaultMaxIterations = 500
	minPnpSample         = 6
)

// Point3 is a 3D point in a trackable's local coordinate frame (
// trackables are planar, so z is usually 0, but the solver itself is
// dimension-agnostic).
type Point3 struct {
	X, Y, Z float64
}

// Result is the outcome of a RANSAC PnP solve.
type Result struct {
	// Pose is the 3x4 [R|t] rigid transform, world -> camera.
	Pose *mat.Dense
	Inliers []bool
	Valid   bool
}

// PoseSolver fits a camera pose from 3D<->2D correspondences by RANSAC
// over a minimal linear PnP solve, mirroring the homography package's
// normalized-DLT-plus-RANSAC structure.
type PoseSolver struct {
	// RansacThresh is the reprojection-error inlier threshold in pixels.
	RansacThresh float64
	// MaxIterations bounds the RANSAC sampling loop.
	MaxIterations int

	rng *rand.Rand
}

// NewPoseSolver returns a solver configured with the documented defaults.
func NewPoseSolver(seed uint64) *PoseSolver {
	return &PoseSolver{
		RansacThresh:  DefaultReprojThresh,
		MaxIterations: defaultMaxIterations,
		rng:           rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Solve fits a pose mapping obj (local trackable coordinates, z usually 0)
// to img (observed, distorted pixel coordinates) under the given camera
// model, via RANSAC over 6-point linear PnP solves followed by a
// least-squares refit over all inliers. The recovered rotation is
// round-tripped through its Rodrigues vector before the pose is
// assembled.
func (s *PoseSolver) Solve(k Intrinsics, obj []Point3, img []geom.Point) Result {
	n := len(obj)

	if n != len(img) || n < minPnpSample {
		return Result{Valid: false}
	}

	undist := make([]geom.Point, n)

	for i, p := range img {
		x, y := k.Undistort(p.X, p.Y)
		undist[i] = geom.Point{X: x, Y: y}
	}

	thresh := s.RansacThresh

	if thresh <= 0 {
		thresh = DefaultReprojThresh
	}

	maxIter := s.MaxIterations

	if maxIter <= 0 {
		maxIter = defaultMaxIterations
	}

	var bestPose *mat.Dense
	var bestMask []bool
	bestInliers := -1

	for iter := 0; iter < maxIter; iter++ {
		sample := s.rng.Perm(n)[:minPnpSample]

		sObj := make([]Point3, minPnpSample)
		sImg := make([]geom.Point, minPnpSample)

		for i, idx := range sample {
			sObj[i] = obj[idx]
			sImg[i] = undist[idx]
		}

		pose, ok := solveLinearPnP(sObj, sImg)

		if !ok {
			continue
		}

		mask, count := countPoseInliers(k, pose, obj, img, thresh)

		if count > bestInliers {
			bestInliers = count
			bestMask = mask
			bestPose = pose
		}
	}

	if bestPose == nil || bestInliers < minPnpSample {
		return Result{Pose: bestPose, Inliers: bestMask, Valid: false}
	}

	inObj := make([]Point3, 0, bestInliers)
	inImg := make([]geom.Point, 0, bestInliers)

	for i, ok := range bestMask {
		if ok {
			inObj = append(inObj, obj[i])
			inImg = append(inImg, undist[i])
		}
	}

	if refit, ok := solveLinearPnP(inObj, inImg); ok {
		mask, count := countPoseInliers(k, refit, obj, img, thresh)

		if count >= bestInliers {
			bestPose = refit
			bestMask = mask
			bestInliers = count
		}
	}

	r := extractRotation(bestPose)
	rvec := MatrixToRodrigues(r)
	rBack := RodriguesToMatrix(rvec)
	t := Vec3{X: bestPose.At(0, 3), Y: bestPose.At(1, 3), Z: bestPose.At(2, 3)}

	return Result{Pose: assemblePose(rBack, t), Inliers: bestMask, Valid: true}
}

// solveLinearPnP solves the linear (DLT-style) camera matrix from
// normalized (already undistorted) 2D<->3D correspondences, then
// projects the recovered 3x3 block onto the nearest rotation matrix to
// recover a proper [R|t].
func solveLinearPnP(obj []Point3, img []geom.Point) (*mat.Dense, bool) {
	n := len(obj)

	if n < minPnpSample {
		return nil, false
	}

	a := mat.NewDense(2*n, 12, nil)

	for i := 0; i < n; i++ {
		x, y, z := obj[i].X, obj[i].Y, obj[i].Z
		u, v := img[i].X, img[i].Y

		a.SetRow(2*i, []float64{x, y, z, 1, 0, 0, 0, 0, -u * x, -u * y, -u * z, -u})
		a.SetRow(2*i+1, []float64{0, 0, 0, 0, x, y, z, 1, -v * x, -v * y, -v * z, -v})
	}

	var svd mat.SVD

	if ok := svd.Factorize(a, mat.SVDFull); !ok {
		return nil, false
	}

	var v mat.Dense
	svd.VTo(&v)

	p := mat.Col(nil, 11, &v)
	pm := mat.NewDense(3, 4, p)

	w := pm.At(2, 0)*obj[0].X + pm.At(2, 1)*obj[0].Y + pm.At(2, 2)*obj[0].Z + pm.At(2, 3)

	if w < 0 {
		pm.Scale(-1, pm)
	}

	m := mat.NewDense(3, 3, nil)

	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m.Set(i, j, pm.At(i, j))
		}
	}

	var svdM mat.SVD

	if ok := svdM.Factorize(m, mat.SVDFull); !ok {
		return nil, false
	}

	sv := svdM.Values(nil)

	var u, vm mat.Dense
	svdM.UTo(&u)
	svdM.VTo(&vm)

	var r mat.Dense
	r.Mul(&u, vm.T())

	if mat.Det(&r) < 0 {
		for i := 0; i < 3; i++ {
			u.Set(i, 2, -u.At(i, 2))
		}

		r.Mul(&u, vm.T())
	}

	scale := (sv[0] + sv[1] + sv[2]) / 3

	if scale == 0 || math.IsNaN(scale) {
		return nil, false
	}

	pose := mat.NewDense(3, 4, nil)

	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			pose.Set(i, j, r.At(i, j))
		}

		pose.Set(i, 3, pm.At(i, 3)/scale)
	}

	return pose, true
}

func countPoseInliers(k Intrinsics, pose *mat.Dense, obj []Point3, img []geom.Point, thresh float64) ([]bool, int) {
	mask := make([]bool, len(obj))
	count := 0

	for i, p := range obj {
		cx := pose.At(0, 0)*p.X + pose.At(0, 1)*p.Y + pose.At(0, 2)*p.Z + pose.At(0, 3)
		cy := pose.At(1, 0)*p.X + pose.At(1, 1)*p.Y + pose.At(1, 2)*p.Z + pose.At(1, 3)
		cz := pose.At(2, 0)*p.X + pose.At(2, 1)*p.Y + pose.At(2, 2)*p.Z + pose.At(2, 3)

		u, v, ok := k.Project(cx, cy, cz)

		if !ok {
			continue
		}

		dx, dy := u-img[i].X, v-img[i].Y

		if math.Hypot(dx, dy) <= thresh {
			mask[i] = true
			count++
		}
	}

	return mask, count
}

func extractRotation(pose *mat.Dense) *mat.Dense {
	r := mat.NewDense(3, 3, nil)

	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r.Set(i, j, pose.At(i, j))
		}
	}

	return r
}

func assemblePose(r *mat.Dense, t Vec3) *mat.Dense {
	pose := mat.NewDense(3, 4, nil)

	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			pose.Set(i, j, r.At(i, j))
		}
	}

	pose.Set(0, 3, t.X)
	pose.Set(1, 3, t.Y)
	pose.Set(2, 3, t.Z)

	return pose
}
