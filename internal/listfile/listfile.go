package listfile

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Pair names two images that should be matched against each other.
type Pair struct {
	Name1 string
	Name2 string
}

// PairMatches carries one match-list block: an image pair plus the feature
// index correspondences supplied for it. Matches may be empty for pair-only
// lists.
type PairMatches struct {
	Name1   string
	Name2   string
	Matches [][2]uint32
}

var imageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
}

// ReadImageList returns the ordered image names from a list file, one name
// per line.
func ReadImageList(path string) ([]string, error) {
	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}
	return lines, nil
}

// ReadPairList parses a pair-list file with two whitespace-separated image
// names per line.
func ReadPairList(path string) ([]Pair, error) {
	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}
	pairs := make([]Pair, 0, len(lines))
	for i, line := range lines {
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("%s: line %d: expected two image names, got %d fields", path, i+1, len(fields))
		}
		pairs = append(pairs, Pair{Name1: fields[0], Name2: fields[1]})
	}
	return pairs, nil
}

// Prior names an image and its known position.
type Prior struct {
	Name string
	Pos  [3]float64
}

// ReadPriorList parses a prior-list file with an image name followed by
// three position coordinates per line.
func ReadPriorList(path string) ([]Prior, error) {
	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}
	priors := make([]Prior, 0, len(lines))
	for i, line := range lines {
		fields := strings.Fields(line)
		if len(fields) != 4 {
			return nil, fmt.Errorf("%s: line %d: expected image name and three coordinates, got %d fields", path, i+1, len(fields))
		}
		prior := Prior{Name: fields[0]}
		for k := 0; k < 3; k++ {
			value, err := strconv.ParseFloat(fields[k+1], 64)
			if err != nil {
				return nil, fmt.Errorf("%s: line %d: parse coordinate: %w", path, i+1, err)
			}
			prior.Pos[k] = value
		}
		priors = append(priors, prior)
	}
	return priors, nil
}

// ReadMatchList parses a match-list file: blocks starting with a line naming
// two images, followed by zero or more "idx1 idx2" correspondence rows, with
// blank lines separating blocks.
func ReadMatchList(path string) ([]PairMatches, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open match list: %w", err)
	}
	defer file.Close()

	var blocks []PairMatches
	var current *PairMatches
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			current = nil
			continue
		}
		if strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if current == nil {
			if len(fields) != 2 {
				return nil, fmt.Errorf("%s: line %d: expected image pair header, got %q", path, lineNo, line)
			}
			blocks = append(blocks, PairMatches{Name1: fields[0], Name2: fields[1]})
			current = &blocks[len(blocks)-1]
			continue
		}
		if len(fields) != 2 {
			return nil, fmt.Errorf("%s: line %d: expected match row with two indices, got %q", path, lineNo, line)
		}
		idx1, err := strconv.ParseUint(fields[0], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%s: line %d: parse index: %w", path, lineNo, err)
		}
		idx2, err := strconv.ParseUint(fields[1], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%s: line %d: parse index: %w", path, lineNo, err)
		}
		current.Matches = append(current.Matches, [2]uint32{uint32(idx1), uint32(idx2)})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read match list: %w", err)
	}
	return blocks, nil
}

// ScanImageDir walks a directory tree and returns the supported image files
// found, as slash-separated paths relative to root, sorted lexicographically.
func ScanImageDir(root string) ([]string, error) {
	var names []string
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if _, ok := imageExtensions[ext]; !ok {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan image dir %q: %w", root, err)
	}
	sort.Strings(names)
	return names, nil
}

func readLines(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open list file: %w", err)
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read list file: %w", err)
	}
	return lines, nil
}
