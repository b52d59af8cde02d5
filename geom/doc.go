// Package geom provides the small set of 2D polygon operations shared by
// the homography validity check, the detection-phase occlusion mask, and
// template-match anchor rejection: transforming a quadrilateral through a
// homography, testing point containment, and testing convexity/winding.
package geom
