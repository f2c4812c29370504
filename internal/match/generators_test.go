package match_test

import (
	"testing"

	"parallax/internal/match"
)

func pairSet(pairs []match.ImagePair) map[match.ImagePair]struct{} {
	set := make(map[match.ImagePair]struct{}, len(pairs))
	for _, p := range pairs {
		set[p] = struct{}{}
	}
	return set
}

func TestExhaustivePairs(t *testing.T) {
	ids := []int64{1, 2, 3, 4}
	pairs := match.ExhaustivePairs(ids)
	if len(pairs) != 6 {
		t.Fatalf("got %d pairs, want n*(n-1)/2 = 6", len(pairs))
	}
	set := pairSet(pairs)
	if _, ok := set[match.ImagePair{ID1: 1, ID2: 4}]; !ok {
		t.Fatal("missing pair (1, 4)")
	}
	if len(set) != len(pairs) {
		t.Fatal("duplicate pairs generated")
	}
}

func TestSequentialPairsWindow(t *testing.T) {
	ids := []int64{10, 20, 30, 40, 50}
	pairs := match.SequentialPairs(ids, 2, 0, 0)
	set := pairSet(pairs)
	want := []match.ImagePair{
		{ID1: 10, ID2: 20}, {ID1: 10, ID2: 30},
		{ID1: 20, ID2: 30}, {ID1: 20, ID2: 40},
		{ID1: 30, ID2: 40}, {ID1: 30, ID2: 50},
		{ID1: 40, ID2: 50},
	}
	if len(pairs) != len(want) {
		t.Fatalf("got %d pairs, want %d: %v", len(pairs), len(want), pairs)
	}
	for _, p := range want {
		if _, ok := set[p]; !ok {
			t.Fatalf("missing window pair %v", p)
		}
	}
}

func TestSequentialPairsLoopClosure(t *testing.T) {
	ids := make([]int64, 20)
	for i := range ids {
		ids[i] = int64(i + 1)
	}
	windowOnly := match.SequentialPairs(ids, 2, 0, 0)
	withLoops := match.SequentialPairs(ids, 2, 10, 3)
	if len(withLoops) <= len(windowOnly) {
		t.Fatalf("loop closure added no pairs: %d vs %d", len(withLoops), len(windowOnly))
	}
	// Image at index 10 (id 11) must probe a distant earlier image.
	set := pairSet(withLoops)
	if _, ok := set[match.ImagePair{ID1: 1, ID2: 11}]; !ok {
		t.Fatalf("expected loop-closure pair (1, 11): %v", withLoops)
	}
}

func TestSpatialPairsNearestNeighbors(t *testing.T) {
	images := []match.Located{
		{ID: 1, Pos: [3]float64{0, 0, 0}},
		{ID: 2, Pos: [3]float64{1, 0, 0}},
		{ID: 3, Pos: [3]float64{2, 0, 0}},
		{ID: 4, Pos: [3]float64{100, 0, 0}},
	}
	pairs := match.SpatialPairs(images, 1, 0)
	set := pairSet(pairs)
	if _, ok := set[match.ImagePair{ID1: 1, ID2: 2}]; !ok {
		t.Fatalf("expected nearest pair (1, 2): %v", pairs)
	}
	if _, ok := set[match.ImagePair{ID1: 2, ID2: 3}]; !ok {
		t.Fatalf("expected nearest pair (2, 3): %v", pairs)
	}
	if _, ok := set[match.ImagePair{ID1: 1, ID2: 4}]; ok {
		t.Fatalf("distant pair (1, 4) must not appear with k=1: %v", pairs)
	}
}

func TestSpatialPairsDistanceCutoff(t *testing.T) {
	images := []match.Located{
		{ID: 1, Pos: [3]float64{0, 0, 0}},
		{ID: 2, Pos: [3]float64{1, 0, 0}},
		{ID: 3, Pos: [3]float64{50, 0, 0}},
	}
	pairs := match.SpatialPairs(images, 10, 5)
	if len(pairs) != 1 || pairs[0] != (match.ImagePair{ID1: 1, ID2: 2}) {
		t.Fatalf("distance cutoff violated: %v", pairs)
	}
}

func TestTransitivePairsOneRound(t *testing.T) {
	existing := []match.ImagePair{
		{ID1: 1, ID2: 2},
		{ID1: 2, ID2: 3},
	}
	proposals := match.TransitivePairs(existing, 1)
	if len(proposals) != 1 || proposals[0] != (match.ImagePair{ID1: 1, ID2: 3}) {
		t.Fatalf("expected single proposal (1, 3): %v", proposals)
	}
}

func TestTransitivePairsBoundedRounds(t *testing.T) {
	// Chain 1-2-3-4-5: one round closes distance-2 gaps only.
	existing := []match.ImagePair{
		{ID1: 1, ID2: 2}, {ID1: 2, ID2: 3}, {ID1: 3, ID2: 4}, {ID1: 4, ID2: 5},
	}
	oneRound := pairSet(match.TransitivePairs(existing, 1))
	if _, ok := oneRound[match.ImagePair{ID1: 1, ID2: 3}]; !ok {
		t.Fatal("round 1 should propose (1, 3)")
	}
	if _, ok := oneRound[match.ImagePair{ID1: 1, ID2: 5}]; ok {
		t.Fatal("round 1 must not reach (1, 5)")
	}
	twoRounds := pairSet(match.TransitivePairs(existing, 2))
	if _, ok := twoRounds[match.ImagePair{ID1: 1, ID2: 5}]; !ok {
		t.Fatal("round 2 should reach (1, 5)")
	}
}

func TestTransitivePairsNoDuplicates(t *testing.T) {
	existing := []match.ImagePair{
		{ID1: 1, ID2: 2}, {ID1: 2, ID2: 3}, {ID1: 1, ID2: 3},
	}
	proposals := match.TransitivePairs(existing, 3)
	if len(proposals) != 0 {
		t.Fatalf("complete graph must yield no proposals: %v", proposals)
	}
}

func TestVocabTreePairs(t *testing.T) {
	retrievals := map[int64][]int64{
		1: {2, 3, 1},
		2: {1, 3},
		3: {1},
	}
	retrieve := func(id int64, topK int) []int64 {
		r := retrievals[id]
		if len(r) > topK {
			r = r[:topK]
		}
		return r
	}
	pairs := match.VocabTreePairs([]int64{1, 2, 3}, 2, retrieve)
	set := pairSet(pairs)
	if len(set) != len(pairs) {
		t.Fatal("duplicate pairs generated")
	}
	for _, p := range pairs {
		if p.ID1 == p.ID2 {
			t.Fatalf("self pair generated: %v", p)
		}
	}
	if _, ok := set[match.ImagePair{ID1: 1, ID2: 2}]; !ok {
		t.Fatalf("expected retrieval pair (1, 2): %v", pairs)
	}
}
