package store

import (
	"encoding/binary"
	"fmt"
	"math"

	"parallax/internal/feature"
)

// Blob layouts are little-endian with fixed-width rows; row counts live in
// table columns, not in the blob itself.

func encodeKeypoints(keypoints []feature.Keypoint) []byte {
	buf := make([]byte, 0, len(keypoints)*16)
	for _, kp := range keypoints {
		buf = appendFloat32(buf, kp.X)
		buf = appendFloat32(buf, kp.Y)
		buf = appendFloat32(buf, kp.Scale)
		buf = appendFloat32(buf, kp.Orientation)
	}
	return buf
}

func decodeKeypoints(data []byte, rows int) ([]feature.Keypoint, error) {
	if len(data) != rows*16 {
		return nil, fmt.Errorf("keypoint blob is %d bytes, expected %d", len(data), rows*16)
	}
	keypoints := make([]feature.Keypoint, rows)
	for i := 0; i < rows; i++ {
		off := i * 16
		keypoints[i] = feature.Keypoint{
			X:           readFloat32(data[off:]),
			Y:           readFloat32(data[off+4:]),
			Scale:       readFloat32(data[off+8:]),
			Orientation: readFloat32(data[off+12:]),
		}
	}
	return keypoints, nil
}

func encodeDescriptors(d feature.Descriptors) []byte {
	buf := make([]byte, 0, len(d.Data)*4)
	for _, v := range d.Data {
		buf = appendFloat32(buf, v)
	}
	return buf
}

func decodeDescriptors(data []byte, rows, dim int) (feature.Descriptors, error) {
	if len(data) != rows*dim*4 {
		return feature.Descriptors{}, fmt.Errorf("descriptor blob is %d bytes, expected %d", len(data), rows*dim*4)
	}
	d := feature.Descriptors{Rows: rows, Dim: dim, Data: make([]float32, rows*dim)}
	for i := range d.Data {
		d.Data[i] = readFloat32(data[i*4:])
	}
	return d, nil
}

func encodeMatches(matches [][2]uint32) []byte {
	buf := make([]byte, 0, len(matches)*8)
	for _, m := range matches {
		buf = binary.LittleEndian.AppendUint32(buf, m[0])
		buf = binary.LittleEndian.AppendUint32(buf, m[1])
	}
	return buf
}

func decodeMatches(data []byte, rows int) ([][2]uint32, error) {
	if len(data) != rows*8 {
		return nil, fmt.Errorf("match blob is %d bytes, expected %d", len(data), rows*8)
	}
	matches := make([][2]uint32, rows)
	for i := 0; i < rows; i++ {
		matches[i][0] = binary.LittleEndian.Uint32(data[i*8:])
		matches[i][1] = binary.LittleEndian.Uint32(data[i*8+4:])
	}
	return matches, nil
}

func appendFloat32(buf []byte, v float32) []byte {
	return binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
}

func readFloat32(data []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(data))
}
