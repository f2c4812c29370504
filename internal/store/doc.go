// Package store persists images, keypoints, descriptors, and matches in
// SQLite.
//
// The Store manages the database connection, schema initialization, and the
// blob codecs for feature and match payloads. A lock file beside the database
// enforces the single-active-worker guarantee: a second invocation against
// the same database fails fast instead of interleaving writes.
//
// Pair rows are keyed by a packed pair ID derived from the two image IDs,
// with the smaller ID always first. Schema changes bump the version in
// schema.go; users recreate the database to adopt the new schema.
package store
