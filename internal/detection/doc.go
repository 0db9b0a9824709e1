// Package detection finds corner candidates and descriptor-bearing keypoints
// in single-channel images.
//
// Two detectors are provided:
//
//   - DetectCorners: Harris corner response with relative thresholding and
//     3x3 non-maximum suppression. Run once per pyramid level to produce the
//     raw candidates the template selector bins.
//   - FeatureDetector: keypoints with an orientation and a 256-bit binary
//     descriptor, run once on the full-resolution reference image. Keypoint
//     candidates come from FAST-9 or from the Harris detector, selected by
//     DetectorType.
//
// # Determinism
//
// Both detectors are pure functions of the image and their configuration.
// Corner results are returned in scan order (row-major). Keypoints are
// returned strongest first, ties kept in scan order. The descriptor sampling
// pattern is generated from a fixed seed.
//
// # Coordinate System
//
// Coordinates are pixel positions in the image passed in, origin at the
// top-left corner, Y increasing downward.
package detection
