package match

import (
	"math"
	"sort"
)

// ImagePair names two images by ID as a matching candidate. ID1 < ID2 for
// every generated pair.
type ImagePair struct {
	ID1 int64
	ID2 int64
}

// Located couples an image ID with its known position for spatial matching.
type Located struct {
	ID  int64
	Pos [3]float64
}

// ExhaustivePairs proposes all unordered pairs among the given images.
func ExhaustivePairs(ids []int64) []ImagePair {
	var pairs []ImagePair
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			pairs = append(pairs, orderedPair(ids[i], ids[j]))
		}
	}
	return pairs
}

// SequentialPairs proposes pairs within a sliding window over the ordered
// image sequence. Every loopPeriod-th image is additionally probed against
// up to loopNumImages earlier images sampled evenly across the history,
// providing loop-closure candidates.
func SequentialPairs(ids []int64, overlap, loopPeriod, loopNumImages int) []ImagePair {
	if overlap <= 0 {
		overlap = 10
	}
	seen := make(map[ImagePair]struct{})
	var pairs []ImagePair

	add := func(a, b int64) {
		p := orderedPair(a, b)
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		pairs = append(pairs, p)
	}

	for i := range ids {
		for d := 1; d <= overlap && i+d < len(ids); d++ {
			add(ids[i], ids[i+d])
		}
		if loopPeriod > 0 && loopNumImages > 0 && i > 0 && i%loopPeriod == 0 {
			stride := i / loopNumImages
			if stride < 1 {
				stride = 1
			}
			for j := 0; j < i; j += stride {
				add(ids[i], ids[j])
			}
		}
	}
	return pairs
}

// SpatialPairs proposes each image against its nearest neighbors by known
// position. maxDistance <= 0 disables the distance cutoff.
func SpatialPairs(images []Located, maxNeighbors int, maxDistance float64) []ImagePair {
	if maxNeighbors <= 0 {
		maxNeighbors = 50
	}
	seen := make(map[ImagePair]struct{})
	var pairs []ImagePair

	type neighbor struct {
		id   int64
		dist float64
	}
	for i, img := range images {
		neighbors := make([]neighbor, 0, len(images)-1)
		for j, other := range images {
			if i == j {
				continue
			}
			d := euclidean(img.Pos, other.Pos)
			if maxDistance > 0 && d > maxDistance {
				continue
			}
			neighbors = append(neighbors, neighbor{id: other.ID, dist: d})
		}
		sort.Slice(neighbors, func(a, b int) bool {
			if neighbors[a].dist != neighbors[b].dist {
				return neighbors[a].dist < neighbors[b].dist
			}
			return neighbors[a].id < neighbors[b].id
		})
		if len(neighbors) > maxNeighbors {
			neighbors = neighbors[:maxNeighbors]
		}
		for _, nb := range neighbors {
			p := orderedPair(img.ID, nb.id)
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			pairs = append(pairs, p)
		}
	}
	return pairs
}

// TransitivePairs expands an existing match graph: when A-B and B-C are
// matched, A-C becomes a candidate. Expansion repeats for the given number
// of rounds, feeding each round's proposals into the next, and returns only
// the new pairs.
func TransitivePairs(existing []ImagePair, rounds int) []ImagePair {
	if rounds <= 0 {
		rounds = 3
	}
	known := make(map[ImagePair]struct{}, len(existing))
	adjacency := make(map[int64][]int64)
	addEdge := func(p ImagePair) {
		known[p] = struct{}{}
		adjacency[p.ID1] = append(adjacency[p.ID1], p.ID2)
		adjacency[p.ID2] = append(adjacency[p.ID2], p.ID1)
	}
	for _, p := range existing {
		addEdge(orderedPair(p.ID1, p.ID2))
	}

	var proposals []ImagePair
	frontier := make([]ImagePair, len(existing))
	copy(frontier, existing)

	for round := 0; round < rounds && len(frontier) > 0; round++ {
		var next []ImagePair
		for _, edge := range frontier {
			for _, endpoint := range [2]int64{edge.ID1, edge.ID2} {
				other := edge.ID2
				if endpoint == edge.ID2 {
					other = edge.ID1
				}
				for _, third := range adjacency[endpoint] {
					if third == other {
						continue
					}
					p := orderedPair(other, third)
					if _, ok := known[p]; ok {
						continue
					}
					known[p] = struct{}{}
					next = append(next, p)
					proposals = append(proposals, p)
				}
			}
		}
		for _, p := range next {
			adjacency[p.ID1] = append(adjacency[p.ID1], p.ID2)
			adjacency[p.ID2] = append(adjacency[p.ID2], p.ID1)
		}
		frontier = next
	}
	sort.Slice(proposals, func(i, j int) bool {
		if proposals[i].ID1 != proposals[j].ID1 {
			return proposals[i].ID1 < proposals[j].ID1
		}
		return proposals[i].ID2 < proposals[j].ID2
	})
	return proposals
}

// RetrieveFunc returns the IDs of the images most similar to the query.
type RetrieveFunc func(imageID int64, topK int) []int64

// VocabTreePairs proposes each image against its top-k retrievals from a
// visual index.
func VocabTreePairs(ids []int64, topK int, retrieve RetrieveFunc) []ImagePair {
	if topK <= 0 {
		topK = 100
	}
	seen := make(map[ImagePair]struct{})
	var pairs []ImagePair
	for _, id := range ids {
		for _, candidate := range retrieve(id, topK) {
			if candidate == id {
				continue
			}
			p := orderedPair(id, candidate)
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			pairs = append(pairs, p)
		}
	}
	return pairs
}

func orderedPair(a, b int64) ImagePair {
	if a > b {
		a, b = b, a
	}
	return ImagePair{ID1: a, ID2: b}
}

func euclidean(a, b [3]float64) float64 {
	dx := a[0] - b[0]
	dy := a[1] - b[1]
	dz := a[2] - b[2]
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
