package match_test

import (
	"testing"

	"parallax/internal/feature"
	"parallax/internal/match"
)

func descriptorsFrom(rows [][]float32) feature.Descriptors {
	if len(rows) == 0 {
		return feature.Descriptors{}
	}
	d := feature.Descriptors{Rows: len(rows), Dim: len(rows[0])}
	for _, row := range rows {
		d.Data = append(d.Data, row...)
	}
	return d
}

func TestFindMatchesIdentity(t *testing.T) {
	d1 := descriptorsFrom([][]float32{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
	})
	d2 := descriptorsFrom([][]float32{
		{0, 1, 0, 0},
		{0, 0, 1, 0},
		{1, 0, 0, 0},
	})
	matches := match.FindMatches(d1, d2, match.DefaultOptions())
	want := map[[2]uint32]bool{{0, 2}: true, {1, 0}: true, {2, 1}: true}
	if len(matches) != 3 {
		t.Fatalf("got %d matches, want 3: %v", len(matches), matches)
	}
	for _, m := range matches {
		if !want[m] {
			t.Fatalf("unexpected match %v", m)
		}
	}
}

func TestFindMatchesDistanceCutoff(t *testing.T) {
	d1 := descriptorsFrom([][]float32{{1, 0}})
	d2 := descriptorsFrom([][]float32{{0, 1}})
	matches := match.FindMatches(d1, d2, match.Options{MaxRatio: 0.8, MaxDistance: 0.5})
	if len(matches) != 0 {
		t.Fatalf("distant descriptors must not match: %v", matches)
	}
}

func TestFindMatchesRatioTest(t *testing.T) {
	// Two nearly identical candidates: ambiguous, so the ratio test rejects.
	d1 := descriptorsFrom([][]float32{{1, 0}})
	d2 := descriptorsFrom([][]float32{
		{0.99, 0.141},
		{0.98, 0.199},
	})
	opts := match.Options{MaxRatio: 0.5, MaxDistance: 1.0}
	if matches := match.FindMatches(d1, d2, opts); len(matches) != 0 {
		t.Fatalf("ambiguous match must be rejected: %v", matches)
	}

	opts.MaxRatio = 0.99
	if matches := match.FindMatches(d1, d2, opts); len(matches) != 1 {
		t.Fatalf("permissive ratio should accept: %v", matches)
	}
}

func TestFindMatchesCrossCheck(t *testing.T) {
	// d2[0] is the best for both d1 rows; cross-check keeps only the mutual one.
	d1 := descriptorsFrom([][]float32{
		{1, 0, 0},
		{0.9, 0.1, 0},
	})
	d2 := descriptorsFrom([][]float32{
		{1, 0, 0},
	})
	opts := match.Options{MaxRatio: 0, MaxDistance: 2, CrossCheck: true}
	matches := match.FindMatches(d1, d2, opts)
	if len(matches) != 1 || matches[0] != [2]uint32{0, 0} {
		t.Fatalf("cross-check should keep only the mutual match: %v", matches)
	}
}

func TestFindMatchesEmpty(t *testing.T) {
	if matches := match.FindMatches(feature.Descriptors{}, feature.Descriptors{}, match.DefaultOptions()); matches != nil {
		t.Fatalf("empty inputs must yield nil, got %v", matches)
	}
}
