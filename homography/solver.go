package homography

import (
	"math"
	"math/rand/v2"

	"github.com/kalwalt/artoolkitx/geom"
	"gonum.org/v1/gonum/mat"
)

// DefaultRansacThresh is the reprojection-error threshold, in pixels, used
// when the caller leaves RansacThresh unset.
const DefaultRansacThresh = 2.5

const defaultMaxIterations = 500

var unitSquare = geom.Quad{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}

// Result is the outcome of a RANSAC homography fit.
type Result struct {
	H       *mat.Dense
	Inliers []bool
	Valid   bool
}

// HomographySolver fits 3x3 homographies by RANSAC over a normalized DLT
// minimal solver, runtime-tunable via RansacThresh.
type HomographySolver struct {
	// RansacThresh is the reprojection-error inlier threshold in pixels.
	RansacThresh float64
	// MaxIterations bounds the RANSAC sampling loop.
	MaxIterations int

	rng *rand.Rand
}

// NewHomographySolver returns a solver configured with the documented defaults
// (2.5px reprojection threshold).
func NewHomographySolver(seed uint64) *HomographySolver {
	return &HomographySolver{
		RansacThresh:  DefaultRansacThresh,
		MaxIterations: defaultMaxIterations,
		rng:           rand.New(rand.NewPCG(seed, seed^0xd1b54a32d192ed03)),
	}
}

// Estimate fits a homography H such that dst ~= H*src, via RANSAC over
// minimal 4-point DLT solves followed by a least-squares refit over all
// inliers.
func (s *HomographySolver) Estimate(src, dst []geom.Point) Result {
	n := len(src)

	if n != len(dst) || n < 4 {
		return Result{Valid: false}
	}

	thresh := s.RansacThresh

	if thresh <= 0 {
		thresh = DefaultRansacThresh
	}

	maxIter := s.MaxIterations

	if maxIter <= 0 {
		maxIter = defaultMaxIterations
	}

	var bestH *mat.Dense
	var bestMask []bool
	bestInliers := -1

	for iter := 0; iter < maxIter; iter++ {
		sample := s.rng.Perm(n)[:4]

		sSrc := make([]geom.Point, 4)
		sDst := make([]geom.Point, 4)

		for i, idx := range sample {
			sSrc[i] = src[idx]
			sDst[i] = dst[idx]
		}

		h, ok := solveDLT(sSrc, sDst)

		if !ok {
			continue
		}

		mask, count := countInliers(h, src, dst, thresh)

		if count > bestInliers {
			bestInliers = count
			bestMask = mask
			bestH = h
		}
	}

	if bestH == nil || bestInliers < 4 {
		return Result{H: bestH, Inliers: bestMask, Valid: false}
	}

	inSrc := make([]geom.Point, 0, bestInliers)
	inDst := make([]geom.Point, 0, bestInliers)

	for i, ok := range bestMask {
		if ok {
			inSrc = append(inSrc, src[i])
			inDst = append(inDst, dst[i])
		}
	}

	if refit, ok := solveDLT(inSrc, inDst); ok {
		mask, count := countInliers(refit, src, dst, thresh)

		if count >= bestInliers {
			bestH = refit
			bestMask = mask
			bestInliers = count
		}
	}

	valid := bestInliers >= 4 && isValidHomography(bestH)

	return Result{H: bestH, Inliers: bestMask, Valid: valid}
}

// isValidHomography checks that H is usable: it must not be
// singular and the unit square transformed through H must remain a
// convex, non-self-intersecting quadrilateral.
func isValidHomography(h *mat.Dense) bool {
	if h == nil {
		return false
	}

	if math.Abs(mat.Det(h)) < 1e-9 {
		return false
	}

	warped := geom.TransformQuad(h, unitSquare)

	return geom.ConvexNonSelfIntersecting(warped)
}

func countInliers(h *mat.Dense, src, dst []geom.Point, thresh float64) ([]bool, int) {
	mask := make([]bool, len(src))
	count := 0

	for i := range src {
		proj := geom.TransformPoint(h, src[i])
		dx := proj.X - dst[i].X
		dy := proj.Y - dst[i].Y

		if math.Hypot(dx, dy) <= thresh {
			mask[i] = true
			count++
		}
	}

	return mask, count
}

// solveDLT solves the normalized direct linear transform for a homography
// mapping src -> dst, returning false if the point set is degenerate.
func solveDLT(src, dst []geom.Point) (*mat.Dense, bool) {
	n := len(src)

	if n < 4 {
		return nil, false
	}

	srcN, tSrc := normalize(src)
	dstN, tDst := normalize(dst)

	a := mat.NewDense(2*n, 9, nil)

	for i := 0; i < n; i++ {
		x, y := srcN[i].X, srcN[i].Y
		u, v := dstN[i].X, dstN[i].Y

		a.SetRow(2*i, []float64{-x, -y, -1, 0, 0, 0, u * x, u * y, u})
		a.SetRow(2*i+1, []float64{0, 0, 0, -x, -y, -1, v * x, v * y, v})
	}

	var svd mat.SVD

	if ok := svd.Factorize(a, mat.SVDFull); !ok {
		return nil, false
	}

	var v mat.Dense
	svd.VTo(&v)

	h := mat.Col(nil, 8, &v)
	hn := mat.NewDense(3, 3, h)

	var tDstInv mat.Dense

	if err := tDstInv.Inverse(tDst); err != nil {
		return nil, false
	}

	var tmp, result mat.Dense
	tmp.Mul(&tDstInv, hn)
	result.Mul(&tmp, tSrc)

	scale := result.At(2, 2)

	if scale == 0 || math.IsNaN(scale) {
		return nil, false
	}

	result.Scale(1/scale, &result)

	return &result, true
}

// normalize applies the classic Hartley isotropic-scaling normalization:
// translate the centroid to the origin and scale so the average distance
// from the origin is sqrt(2). Returns the normalized points and the 3x3
// similarity transform used, so the fitted homography can be denormalized.
func normalize(pts []geom.Point) ([]geom.Point, *mat.Dense) {
	n := float64(len(pts))
	var cx, cy float64

	for _, p := range pts {
		cx += p.X
		cy += p.Y
	}

	cx /= n
	cy /= n

	var meanDist float64

	for _, p := range pts {
		meanDist += math.Hypot(p.X-cx, p.Y-cy)
	}

	meanDist /= n

	if meanDist == 0 {
		meanDist = 1
	}

	scale := math.Sqrt2 / meanDist

	t := mat.NewDense(3, 3, []float64{
		scale, 0, -scale * cx,
		0, scale, -scale * cy,
		0, 0, 1,
	})

	out := make([]geom.Point, len(pts))

	for i, p := range pts {
		out[i] = geom.Point{X: (p.X - cx) * scale, Y: (p.Y - cy) * scale}
	}

	return out, t
}
