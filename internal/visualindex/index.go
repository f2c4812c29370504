package visualindex

import (
	"fmt"
	"math"
	"sort"

	"parallax/internal/feature"
)

// Index is a TF-IDF inverted index over quantized image descriptors.
type Index struct {
	vocab  *Vocabulary
	images map[int64][]float64 // image -> term frequency histogram
	order  []int64             // insertion order, for stable results
	idf    []float64
	dirty  bool
}

// NewIndex creates an empty index backed by the given vocabulary.
func NewIndex(vocab *Vocabulary) *Index {
	return &Index{
		vocab:  vocab,
		images: make(map[int64][]float64),
	}
}

// NumImages reports how many images have been added.
func (ix *Index) NumImages() int {
	return len(ix.images)
}

// Add quantizes the descriptors of an image and records its word histogram.
// Adding the same image again replaces the previous entry. The descriptors
// must share the vocabulary's dimensionality.
func (ix *Index) Add(imageID int64, d feature.Descriptors) error {
	if d.Rows > 0 && d.Dim != ix.vocab.Dim {
		return fmt.Errorf("descriptor dim %d does not match vocabulary dim %d", d.Dim, ix.vocab.Dim)
	}
	tf := make([]float64, len(ix.vocab.Words))
	for i := 0; i < d.Rows; i++ {
		tf[ix.vocab.quantize(d.Row(i))]++
	}
	if d.Rows > 0 {
		for w := range tf {
			tf[w] /= float64(d.Rows)
		}
	}
	if _, ok := ix.images[imageID]; !ok {
		ix.order = append(ix.order, imageID)
	}
	ix.images[imageID] = tf
	ix.dirty = true
	return nil
}

// Query returns up to topK image IDs most similar to the given image,
// ranked by cosine similarity of TF-IDF vectors. The query image itself
// is excluded. Images never added score zero everywhere and return nil.
func (ix *Index) Query(imageID int64, topK int) []int64 {
	query, ok := ix.images[imageID]
	if !ok || topK <= 0 {
		return nil
	}
	ix.recomputeIDF()

	queryVec := ix.weighted(query)
	type scored struct {
		id    int64
		score float64
	}
	var results []scored
	for _, id := range ix.order {
		if id == imageID {
			continue
		}
		score := cosine(queryVec, ix.weighted(ix.images[id]))
		if score > 0 {
			results = append(results, scored{id, score})
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})
	if len(results) > topK {
		results = results[:topK]
	}
	ids := make([]int64, len(results))
	for i, r := range results {
		ids[i] = r.id
	}
	return ids
}

func (ix *Index) recomputeIDF() {
	if !ix.dirty {
		return
	}
	numWords := len(ix.vocab.Words)
	docFreq := make([]float64, numWords)
	for _, tf := range ix.images {
		for w, f := range tf {
			if f > 0 {
				docFreq[w]++
			}
		}
	}
	ix.idf = make([]float64, numWords)
	total := float64(len(ix.images))
	for w, df := range docFreq {
		if df > 0 {
			ix.idf[w] = math.Log(total / df)
		}
	}
	ix.dirty = false
}

func (ix *Index) weighted(tf []float64) []float64 {
	out := make([]float64, len(tf))
	for w, f := range tf {
		out[w] = f * ix.idf[w]
	}
	return out
}

func cosine(a, b []float64) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
