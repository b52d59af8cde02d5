/*
Package planartracker implements a planar natural-feature marker tracker.

Each registered trackable is a flat image with a known real-world scale.
Every frame is run through two phases: detection, which matches
descriptors against the trackable database and fits a homography to
locate markers not currently tracked, and tracking, which advances
already-detected markers with bidirectional pyramidal optical flow and a
template-match refinement step. Pose is recovered per visible trackable
by RANSAC PnP against the calibrated camera model.

See the example/demo subdirectory for usage.
*/
package planartracker
