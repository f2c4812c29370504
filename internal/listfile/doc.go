// Package listfile reads the ordered image-list, pair-list, and match-list
// text files accepted by the dispatcher entry points.
//
// All readers skip blank lines and '#' comments, preserve input order, and
// treat an empty result as a valid empty sequence rather than an error. The
// dispatcher relies on that contract for its success-and-stop no-op path.
package listfile
