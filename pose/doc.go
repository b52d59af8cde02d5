// Package pose solves camera pose from 2D<->3D correspondences and known
// camera intrinsics/distortion via a RANSAC-wrapped linear PnP solve,
// correspondences come from a trackable's tracked
// selector points lifted to the z=0 plane, the result is a 3x4 rigid
// transform built from a Rodrigues rotation vector and a translation.
package pose
