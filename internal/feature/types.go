package feature

// Keypoint locates one feature in image coordinates.
type Keypoint struct {
	X           float32
	Y           float32
	Scale       float32
	Orientation float32
}

// Descriptors holds the row-major descriptor matrix for one image.
type Descriptors struct {
	Rows int
	Dim  int
	Data []float32
}

// Row returns the descriptor vector at index i. The returned slice aliases
// the underlying matrix.
func (d Descriptors) Row(i int) []float32 {
	return d.Data[i*d.Dim : (i+1)*d.Dim]
}
