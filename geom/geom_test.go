package geom

import (
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestTransformPointIdentity(t *testing.T) {
	h := mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
	p := TransformPoint(h, Point{X: 3, Y: 4})

	if p.X != 3 || p.Y != 4 {
		t.Fatalf("identity transform changed point: got %+v", p)
	}
}

func TestTransformPointTranslation(t *testing.T) {
	h := mat.NewDense(3, 3, []float64{1, 0, 10, 0, 1, 20, 0, 0, 1})
	p := TransformPoint(h, Point{X: 1, Y: 1})

	if p.X != 11 || p.Y != 21 {
		t.Fatalf("expected (11,21), got %+v", p)
	}
}

func TestPointInPolygonSquare(t *testing.T) {
	poly := []Point{{0, 0}, {10, 0}, {10, 10}, {0, 10}}

	if !PointInPolygon(poly, Point{5, 5}) {
		t.Fatal("expected center point inside square")
	}

	if PointInPolygon(poly, Point{15, 5}) {
		t.Fatal("expected point outside square to be rejected")
	}

	if PointInPolygon(poly, Point{0, 5}) {
		t.Fatal("expected point on edge to be rejected (strict inside)")
	}
}

func TestConvexNonSelfIntersecting(t *testing.T) {
	square := Quad{{0, 0}, {10, 0}, {10, 10}, {0, 10}}

	if !ConvexNonSelfIntersecting(square) {
		t.Fatal("expected square to be convex")
	}

	bowtie := Quad{{0, 0}, {10, 10}, {10, 0}, {0, 10}}

	if ConvexNonSelfIntersecting(bowtie) {
		t.Fatal("expected self-intersecting quad to be rejected")
	}
}

func TestNewBBoxCorners(t *testing.T) {
	q := NewBBox(100, 50)
	want := Quad{{0, 0}, {100, 0}, {100, 50}, {0, 50}}

	if q != want {
		t.Fatalf("expected %+v, got %+v", want, q)
	}
}

func TestInflateQuadGrowsOutward(t *testing.T) {
	square := Quad{{0, 0}, {10, 0}, {10, 10}, {0, 10}}

	inflated := InflateQuad(square, 5)

	if !PointInPolygon(inflated, Point{-3, 5}) {
		t.Fatal("expected a point 3px outside the original square to be inside the inflated one")
	}

	if PointInPolygon(inflated, Point{-10, 5}) {
		t.Fatal("expected a point far outside the inflated square to stay outside")
	}
}

func TestInflateQuadShrinksInward(t *testing.T) {
	square := Quad{{0, 0}, {10, 0}, {10, 10}, {0, 10}}

	shrunk := InflateQuad(square, -3)

	if !PointInPolygon(shrunk, Point{5, 5}) {
		t.Fatal("expected the square's center to remain inside after shrinking")
	}

	if PointInPolygon(shrunk, Point{1, 5}) {
		t.Fatal("expected a point near the original edge to fall outside after shrinking")
	}
}
