// Package visualindex retrieves visually similar images without exhaustive
// comparison.
//
// A precomputed vocabulary of descriptor centroids quantizes each image's
// descriptors into visual words. Images become TF-IDF-weighted word
// histograms; retrieval ranks candidates by cosine similarity. The
// vocabulary lives in a small binary file produced offline (or by
// WriteVocabulary in tests and tooling).
package visualindex
