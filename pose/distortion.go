package pose

// Intrinsics is the pinhole camera model used to project 3D camera-space
// points to distorted pixel coordinates and to undistort observed pixels
// back to the normalized camera plane.
type Intrinsics struct {
	Fx, Fy, Cx, Cy float64
	// Dist holds distortion coefficients in OpenCV order: k1,k2,p1,p2,k3
	// (the 5-coefficient layout), optionally followed by k4,k5,k6
	// for the rational model (the leading 8 of the 12-coefficient layout).
	// Any coefficients beyond index 7 (thin-prism s1-s4) are accepted for
	// round-tripping but not applied during projection.
	Dist []float64
}

func (k Intrinsics) coeff(i int) float64 {
	if i < len(k.Dist) {
		return k.Dist[i]
	}

	return 0
}

// Distort applies the radial/tangential (+rational, when k4-k6 are
// present) distortion model to a normalized camera-plane coordinate.
func (k Intrinsics) Distort(x, y float64) (float64, float64) {
	r2 := x*x + y*y
	r4 := r2 * r2
	r6 := r4 * r2

	k1, k2, p1, p2, k3 := k.coeff(0), k.coeff(1), k.coeff(2), k.coeff(3), k.coeff(4)
	k4, k5, k6 := k.coeff(5), k.coeff(6), k.coeff(7)

	num := 1 + k1*r2 + k2*r4 + k3*r6
	den := 1 + k4*r2 + k5*r4 + k6*r6

	if den == 0 {
		den = 1
	}

	radial := num / den

	xd := x*radial + 2*p1*x*y + p2*(r2+2*x*x)
	yd := y*radial + p1*(r2+2*y*y) + 2*p2*x*y

	return xd, yd
}

// Project maps a 3D camera-space point to a distorted pixel coordinate.
// ok is false when the point is behind the camera.
func (k Intrinsics) Project(x, y, z float64) (u, v float64, ok bool) {
	if z <= 0 {
		return 0, 0, false
	}

	xn, yn := x/z, y/z
	xd, yd := k.Distort(xn, yn)

	return k.Fx*xd + k.Cx, k.Fy*yd + k.Cy, true
}

// Undistort removes distortion from an observed pixel coordinate,
// returning the corresponding undistorted normalized camera-plane
// coordinate, via the same fixed-point iteration cv::undistortPoints
// uses.
func (k Intrinsics) Undistort(u, v float64) (float64, float64) {
	xd := (u - k.Cx) / k.Fx
	yd := (v - k.Cy) / k.Fy

	x, y := xd, yd

	for i := 0; i < 10; i++ {
		r2 := x*x + y*y
		r4 := r2 * r2
		r6 := r4 * r2

		k1, k2, p1, p2, k3 := k.coeff(0), k.coeff(1), k.coeff(2), k.coeff(3), k.coeff(4)
		k4, k5, k6 := k.coeff(5), k.coeff(6), k.coeff(7)

		num := 1 + k1*r2 + k2*r4 + k3*r6
		den := 1 + k4*r2 + k5*r4 + k6*r6

		if den == 0 {
			den = 1
		}

		radial := num / den

		if radial == 0 {
			radial = 1
		}

		deltaX := 2*p1*x*y + p2*(r2+2*x*x)
		deltaY := p1*(r2+2*y*y) + 2*p2*x*y

		x = (xd - deltaX) / radial
		y = (yd - deltaY) / radial
	}

	return x, y
}
