// Package corners extracts Harris corners from a grayscale image and
// maintains, per trackable pyramid level, the partitioned candidate/
// tracked/dead anchor sets a tracking pipeline selects from frame to
// frame.
package corners
