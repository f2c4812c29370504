package store

// maxNumImages bounds image IDs so two of them pack into one int64 pair ID.
const maxNumImages int64 = 2147483647

// Image is one row of the images table.
type Image struct {
	ID            int64
	Name          string
	CameraModelID int
	CameraParams  string
	// Prior is the optional known position (x, y, z); valid iff HasPrior.
	Prior    [3]float64
	HasPrior bool
}

// Stats aggregates table counts for presentation.
type Stats struct {
	NumImages        int
	NumFeatured      int
	NumKeypoints     int64
	NumMatchedPairs  int
	NumVerifiedPairs int
	NumMatches       int64
	NumInlierMatches int64
}

// PairID packs two image IDs into the canonical pair key. The smaller ID is
// always the leading component, so (a, b) and (b, a) share one key.
func PairID(imageID1, imageID2 int64) int64 {
	if imageID1 > imageID2 {
		imageID1, imageID2 = imageID2, imageID1
	}
	return imageID1*maxNumImages + imageID2
}

// PairIDToImageIDs unpacks a pair key into its ordered image IDs.
func PairIDToImageIDs(pairID int64) (int64, int64) {
	return pairID / maxNumImages, pairID % maxNumImages
}

// NormalizeMatches returns matches oriented for the canonical pair order: if
// the IDs must swap to normalize the pair, the match columns swap with them.
func NormalizeMatches(imageID1, imageID2 int64, matches [][2]uint32) [][2]uint32 {
	if imageID1 <= imageID2 {
		return matches
	}
	swapped := make([][2]uint32, len(matches))
	for i, m := range matches {
		swapped[i] = [2]uint32{m[1], m[0]}
	}
	return swapped
}
