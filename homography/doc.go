// Package homography fits a 3x3 planar homography between two equal-length
// point sets using RANSAC over a normalized direct-linear-transform (DLT)
// solve, returning the fitted matrix, a per-correspondence inlier mask, and
// a validity bit (minimum inlier count, non-singularity, and
// a convex non-self-intersecting unit-square image).
package homography
