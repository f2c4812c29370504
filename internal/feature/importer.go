package feature

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ReadDescriptorFile parses an externally computed feature file. The format
// is a "rows dim" header line followed by one row per keypoint:
//
//	x y scale orientation d_1 ... d_dim
func ReadDescriptorFile(path string) ([]Keypoint, Descriptors, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, Descriptors{}, fmt.Errorf("open descriptor file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	header, err := nextFields(scanner)
	if err != nil {
		return nil, Descriptors{}, fmt.Errorf("%s: read header: %w", path, err)
	}
	if header == nil {
		// Empty file means zero features, which is valid.
		return nil, Descriptors{}, nil
	}
	if len(header) != 2 {
		return nil, Descriptors{}, fmt.Errorf("%s: header must be \"rows dim\", got %d fields", path, len(header))
	}
	rows, err := strconv.Atoi(header[0])
	if err != nil || rows < 0 {
		return nil, Descriptors{}, fmt.Errorf("%s: invalid row count %q", path, header[0])
	}
	dim, err := strconv.Atoi(header[1])
	if err != nil || dim <= 0 {
		return nil, Descriptors{}, fmt.Errorf("%s: invalid descriptor dim %q", path, header[1])
	}

	keypoints := make([]Keypoint, 0, rows)
	descriptors := Descriptors{Rows: rows, Dim: dim, Data: make([]float32, 0, rows*dim)}
	for i := 0; i < rows; i++ {
		fields, err := nextFields(scanner)
		if err != nil {
			return nil, Descriptors{}, fmt.Errorf("%s: row %d: %w", path, i+1, err)
		}
		if fields == nil {
			return nil, Descriptors{}, fmt.Errorf("%s: expected %d rows, found %d", path, rows, i)
		}
		if len(fields) != 4+dim {
			return nil, Descriptors{}, fmt.Errorf("%s: row %d: expected %d fields, got %d", path, i+1, 4+dim, len(fields))
		}
		values := make([]float64, len(fields))
		for j, field := range fields {
			values[j], err = strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, Descriptors{}, fmt.Errorf("%s: row %d: parse field %d: %w", path, i+1, j+1, err)
			}
		}
		keypoints = append(keypoints, Keypoint{
			X:           float32(values[0]),
			Y:           float32(values[1]),
			Scale:       float32(values[2]),
			Orientation: float32(values[3]),
		})
		for _, v := range values[4:] {
			descriptors.Data = append(descriptors.Data, float32(v))
		}
	}
	return keypoints, descriptors, nil
}

func nextFields(scanner *bufio.Scanner) ([]string, error) {
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return strings.Fields(line), nil
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return nil, nil
}
