package match

import (
	"math"

	"parallax/internal/feature"
	"parallax/internal/store"
)

// Geometry is the outcome of geometric verification for one pair.
type Geometry struct {
	Inliers [][2]uint32
	Config  int
}

// Verifier checks that candidate matches are consistent with a plausible
// camera geometry.
type Verifier interface {
	Verify(k1, k2 []feature.Keypoint, matches [][2]uint32) Geometry
}

// VerifyOptions controls the RANSAC verifier.
type VerifyOptions struct {
	// MaxError is the inlier residual threshold in pixels.
	MaxError float64
	// MinNumInliers rejects pairs with fewer verified matches.
	MinNumInliers int
	// Confidence stops sampling early once the inlier ratio supports it.
	Confidence float64
	// MaxIterations bounds the hypothesis samples.
	MaxIterations int
}

// DefaultVerifyOptions mirrors the configuration defaults.
func DefaultVerifyOptions() VerifyOptions {
	return VerifyOptions{MaxError: 4.0, MinNumInliers: 15, Confidence: 0.999, MaxIterations: 10000}
}

type ransacVerifier struct {
	opts VerifyOptions
}

// NewRansacVerifier verifies matches by fitting a 2D similarity transform
// with RANSAC. The sampling schedule is deterministic, so verification of
// identical inputs yields identical geometries.
func NewRansacVerifier(opts VerifyOptions) Verifier {
	return &ransacVerifier{opts: opts}
}

func (v *ransacVerifier) Verify(k1, k2 []feature.Keypoint, matches [][2]uint32) Geometry {
	if len(matches) < 2 || len(matches) < v.opts.MinNumInliers {
		return Geometry{Config: store.ConfigDegenerate}
	}

	n := len(matches)
	maxIter := v.opts.MaxIterations
	if maxIter <= 0 {
		maxIter = 10000
	}

	var bestInlierMask []bool
	bestCount := 0

	// Deterministic LCG over sample index pairs.
	seed := uint64(n)*2654435761 + 1
	next := func(bound int) int {
		seed = seed*6364136223846793005 + 1442695040888963407
		return int((seed >> 33) % uint64(bound))
	}

	for iter := 0; iter < maxIter; iter++ {
		i := next(n)
		j := next(n)
		if i == j {
			continue
		}
		model, ok := similarityFrom(k1, k2, matches[i], matches[j])
		if !ok {
			continue
		}

		mask := make([]bool, n)
		count := 0
		for m, pair := range matches {
			if model.residual(k1[pair[0]], k2[pair[1]]) <= v.opts.MaxError {
				mask[m] = true
				count++
			}
		}
		if count > bestCount {
			bestCount = count
			bestInlierMask = mask
			if enough(count, n, maxIter, iter, v.opts.Confidence) {
				break
			}
		}
	}

	if bestCount < v.opts.MinNumInliers {
		return Geometry{Config: store.ConfigDegenerate}
	}

	inliers := make([][2]uint32, 0, bestCount)
	for m, keep := range bestInlierMask {
		if keep {
			inliers = append(inliers, matches[m])
		}
	}
	return Geometry{Inliers: inliers, Config: store.ConfigCalibrated}
}

// enough reports whether the confidence target makes further samples
// pointless given the best inlier ratio so far.
func enough(inliers, total, maxIter, iter int, confidence float64) bool {
	if confidence <= 0 || confidence >= 1 {
		return false
	}
	ratio := float64(inliers) / float64(total)
	if ratio >= 1 {
		return true
	}
	// Probability a 2-point sample is all inliers.
	pSample := ratio * ratio
	if pSample <= 0 {
		return false
	}
	needed := math.Log(1-confidence) / math.Log(1-pSample)
	return float64(iter+1) >= needed
}

// similarity is a 2D transform: scale+rotation (a, b) plus translation.
type similarity struct {
	a, b, tx, ty float64
}

func similarityFrom(k1, k2 []feature.Keypoint, m1, m2 [2]uint32) (similarity, bool) {
	x1, y1 := float64(k1[m1[0]].X), float64(k1[m1[0]].Y)
	x2, y2 := float64(k1[m2[0]].X), float64(k1[m2[0]].Y)
	u1, v1 := float64(k2[m1[1]].X), float64(k2[m1[1]].Y)
	u2, v2 := float64(k2[m2[1]].X), float64(k2[m2[1]].Y)

	dx, dy := x2-x1, y2-y1
	norm := dx*dx + dy*dy
	if norm < 1e-12 {
		return similarity{}, false
	}
	du, dv := u2-u1, v2-v1
	a := (dx*du + dy*dv) / norm
	b := (dx*dv - dy*du) / norm
	return similarity{
		a:  a,
		b:  b,
		tx: u1 - (a*x1 - b*y1),
		ty: v1 - (b*x1 + a*y1),
	}, true
}

func (s similarity) residual(p1, p2 feature.Keypoint) float64 {
	x, y := float64(p1.X), float64(p1.Y)
	u := s.a*x - s.b*y + s.tx
	v := s.b*x + s.a*y + s.ty
	return math.Hypot(u-float64(p2.X), v-float64(p2.Y))
}
