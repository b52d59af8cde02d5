package geom

import (
	"math"

	clipper "github.com/ctessum/go.clipper"
	"gonum.org/v1/gonum/mat"
)

// clipperScale converts between this package's float64 pixel coordinates
// and go.clipper's integer coordinate space, preserving sub-pixel
// precision down to 1/1000 px.
const clipperScale = 1000.0

// Point is a 2D coordinate in pixel or reference-image space.
type Point struct {
	X, Y float64
}

// Quad is an ordered set of four corners, conventionally
// (0,0), (W,0), (W,H), (0,H) for a reference bounding box.
type Quad [4]Point

// TransformPoint maps p through the 3x3 homography H: dst = H * [x y 1]^T,
// then de-homogenizes.
func TransformPoint(h *mat.Dense, p Point) Point {
	v := []float64{
		h.At(0, 0)*p.X + h.At(0, 1)*p.Y + h.At(0, 2),
		h.At(1, 0)*p.X + h.At(1, 1)*p.Y + h.At(1, 2),
		h.At(2, 0)*p.X + h.At(2, 1)*p.Y + h.At(2, 2),
	}

	if v[2] == 0 {
		return Point{X: math.Inf(1), Y: math.Inf(1)}
	}

	return Point{X: v[0] / v[2], Y: v[1] / v[2]}
}

// TransformQuad maps every corner of q through H.
func TransformQuad(h *mat.Dense, q Quad) Quad {
	var out Quad

	for i, p := range q {
		out[i] = TransformPoint(h, p)
	}

	return out
}

// NewBBox returns the reference-image bounding quad for a W x H image:
// (0,0), (W,0), (W,H), (0,H).
func NewBBox(w, h int) Quad {
	return Quad{
		{X: 0, Y: 0},
		{X: float64(w), Y: 0},
		{X: float64(w), Y: float64(h)},
		{X: 0, Y: float64(h)},
	}
}

// PointInPolygon reports whether p lies strictly inside the polygon
// described by the ordered vertices (ray casting, even-odd rule). Points
// on an edge are treated as outside, matching the "strict inside" test
// used by RunTemplateMatching.
func PointInPolygon(poly []Point, p Point) bool {

	n := len(poly)
	inside := false

	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := poly[i], poly[j]

		if cross(a, b, p) == 0 && math.Min(a.X, b.X) <= p.X && p.X <= math.Max(a.X, b.X) &&
			math.Min(a.Y, b.Y) <= p.Y && p.Y <= math.Max(a.Y, b.Y) {
			return false
		}

		onSegment := (a.Y > p.Y) != (b.Y > p.Y)

		if onSegment {
			xCross := (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y) + a.X

			if p.X < xCross {
				inside = !inside
			} else if p.X == xCross {
				return false
			}
		}
	}

	return inside
}

// cross returns the z-component of (b-a) x (c-a).
func cross(a, b, c Point) float64 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}

// ConvexNonSelfIntersecting reports whether the four corners of q form a
// convex, non-self-intersecting quadrilateral: the cross product at each
// vertex must keep a consistent sign (winding order), and the two
// diagonals must intersect each other strictly between their endpoints.
func ConvexNonSelfIntersecting(q Quad) bool {

	signs := make([]float64, 4)

	for i := 0; i < 4; i++ {
		a := q[i]
		b := q[(i+1)%4]
		c := q[(i+2)%4]
		signs[i] = cross(a, b, c)
	}

	positive, negative := false, false

	for _, s := range signs {
		if s == 0 {
			return false
		}

		if s > 0 {
			positive = true
		} else {
			negative = true
		}
	}

	if positive && negative {
		return false
	}

	return diagonalsCross(q[0], q[2], q[1], q[3])
}

// diagonalsCross reports whether segment p1-p2 intersects segment p3-p4
// strictly between both pairs of endpoints.
func diagonalsCross(p1, p2, p3, p4 Point) bool {
	d1 := cross(p3, p4, p1)
	d2 := cross(p3, p4, p2)
	d3 := cross(p1, p2, p3)
	d4 := cross(p1, p2, p4)

	return ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0))
}

// InflateQuad offsets q's boundary outward by margin pixels (inward for a
// negative margin) using a round-joined polygon offset, returning the
// result as a plain point list — round joins add corner points a
// fixed-size Quad cannot hold. Returns q's own corners unchanged if the
// offset yields no solution.
func InflateQuad(q Quad, margin float64) []Point {
	path := make(clipper.Path, len(q))

	for i, p := range q {
		path[i] = &clipper.IntPoint{X: clipper.CInt(p.X * clipperScale), Y: clipper.CInt(p.Y * clipperScale)}
	}

	co := clipper.NewClipperOffset()
	co.AddPath(path, clipper.JtRound, clipper.EtClosedPolygon)

	solution := co.Execute(margin * clipperScale)

	if len(solution) == 0 {
		return q[:]
	}

	out := make([]Point, len(solution[0]))

	for i, pt := range solution[0] {
		out[i] = Point{X: float64(pt.X) / clipperScale, Y: float64(pt.Y) / clipperScale}
	}

	return out
}

// Centroid returns the mean of the four corners.
func (q Quad) Centroid() Point {
	var cx, cy float64

	for _, p := range q {
		cx += p.X
		cy += p.Y
	}

	return Point{X: cx / 4, Y: cy / 4}
}
