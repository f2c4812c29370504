package match

import (
	"math"

	"parallax/internal/feature"
)

// Options controls the brute-force descriptor matcher.
type Options struct {
	// MaxRatio is the Lowe ratio threshold: best/second-best distance.
	MaxRatio float64
	// MaxDistance caps the best-match descriptor distance.
	MaxDistance float64
	// CrossCheck keeps a match only when it is mutual.
	CrossCheck bool
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{MaxRatio: 0.8, MaxDistance: 0.7, CrossCheck: true}
}

// FindMatches runs a brute-force ratio-test match from d1 to d2. Matches are
// reported as (index in d1, index in d2), ordered by the d1 index.
func FindMatches(d1, d2 feature.Descriptors, opts Options) [][2]uint32 {
	if d1.Rows == 0 || d2.Rows == 0 {
		return nil
	}

	forward := nearestNeighbors(d1, d2, opts)
	var reverse []int32
	if opts.CrossCheck {
		reverse = nearestNeighbors(d2, d1, opts)
	}

	var matches [][2]uint32
	for i, j := range forward {
		if j < 0 {
			continue
		}
		if opts.CrossCheck && reverse[j] != int32(i) {
			continue
		}
		matches = append(matches, [2]uint32{uint32(i), uint32(j)})
	}
	return matches
}

// nearestNeighbors returns for each row of from the accepted best index in
// to, or -1 when the ratio or distance test rejects it.
func nearestNeighbors(from, to feature.Descriptors, opts Options) []int32 {
	result := make([]int32, from.Rows)
	for i := 0; i < from.Rows; i++ {
		best, second := math.Inf(1), math.Inf(1)
		bestIdx := int32(-1)
		row := from.Row(i)
		for j := 0; j < to.Rows; j++ {
			d := l2Distance(row, to.Row(j))
			if d < best {
				second = best
				best = d
				bestIdx = int32(j)
			} else if d < second {
				second = d
			}
		}
		if bestIdx < 0 || best > opts.MaxDistance {
			result[i] = -1
			continue
		}
		if second < math.Inf(1) && opts.MaxRatio > 0 && best > opts.MaxRatio*second {
			result[i] = -1
			continue
		}
		result[i] = bestIdx
	}
	return result
}

func l2Distance(a, b []float32) float64 {
	var sum float64
	for k := range a {
		d := float64(a[k]) - float64(b[k])
		sum += d * d
	}
	return math.Sqrt(sum)
}
