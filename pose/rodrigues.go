package pose

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Vec3 is a 3-element vector, used here for rotation (angle-axis) and
// translation.
type Vec3 struct {
	X, Y, Z float64
}

func (v Vec3) norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// MatrixToRodrigues converts a 3x3 rotation matrix to its Rodrigues
// (angle-axis) vector.
func MatrixToRodrigues(r *mat.Dense) Vec3 {
	trace := r.At(0, 0) + r.At(1, 1) + r.At(2, 2)
	cosTheta := (trace - 1) / 2

	if cosTheta > 1 {
		cosTheta = 1
	}

	if cosTheta < -1 {
		cosTheta = -1
	}

	theta := math.Acos(cosTheta)

	if theta < 1e-12 {
		return Vec3{}
	}

	sinTheta := math.Sin(theta)

	axis := Vec3{
		X: r.At(2, 1) - r.At(1, 2),
		Y: r.At(0, 2) - r.At(2, 0),
		Z: r.At(1, 0) - r.At(0, 1),
	}

	factor := theta / (2 * sinTheta)

	return Vec3{X: axis.X * factor, Y: axis.Y * factor, Z: axis.Z * factor}
}

// RodriguesToMatrix converts a Rodrigues (angle-axis) vector to its 3x3
// rotation matrix using Rodrigues' rotation formula.
func RodriguesToMatrix(v Vec3) *mat.Dense {
	theta := v.norm()

	if theta < 1e-12 {
		return identity3()
	}

	kx, ky, kz := v.X/theta, v.Y/theta, v.Z/theta

	k := mat.NewDense(3, 3, []float64{
		0, -kz, ky,
		kz, 0, -kx,
		-ky, kx, 0,
	})

	var kSq mat.Dense
	kSq.Mul(k, k)

	r := identity3()
	r.Add(r, scaled(k, math.Sin(theta)))
	r.Add(r, scaled(&kSq, 1-math.Cos(theta)))

	return r
}

func identity3() *mat.Dense {
	return mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
}

func scaled(m mat.Matrix, s float64) *mat.Dense {
	var out mat.Dense
	out.Scale(s, m)

	return &out
}
