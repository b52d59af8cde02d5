// Package features wraps gocv's feature2d detectors behind a single
// interchangeable contract: detect keypoints, compute descriptors, and
// match two descriptor sets, then filter the matches with a ratio test.
// Match and RatioTest each return a fully built slice; neither is lazy.
// Two variants
// are supported, selected by Variant: Blob (AKAZE, float descriptors,
// L2 distance) and Binary (ORB, binary descriptors, Hamming distance).
package features
