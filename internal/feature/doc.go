// Package feature computes and imports per-image keypoints and descriptors.
//
// The built-in extractor is a CPU implementation: images are decoded to
// grayscale, corner responses are scored over a grid, and each surviving
// keypoint gets an L2-normalized gradient-histogram descriptor. The importer
// ingests descriptors computed elsewhere from the text format "rows dim"
// header followed by one keypoint row per line.
package feature
