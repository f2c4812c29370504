package match

import (
	"context"
	"fmt"
	"log/slog"

	"parallax/internal/logging"
	"parallax/internal/store"
)

// Pipeline is the shared match-and-verify step consumed by every matcher
// job variant. Strategies hand it candidate pairs; it matches descriptors,
// verifies geometry, and persists both raw and verified matches.
type Pipeline struct {
	store    *store.Store
	logger   *slog.Logger
	matching Options
	verifier Verifier
}

// NewPipeline assembles the pipeline. A nil verifier disables geometric
// verification entirely.
func NewPipeline(s *store.Store, logger *slog.Logger, matching Options, verifier Verifier) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pipeline{store: s, logger: logger, matching: matching, verifier: verifier}
}

// MatchPairs matches and verifies every candidate pair. Pairs whose matches
// already exist are skipped, making re-runs of a strategy idempotent.
func (p *Pipeline) MatchPairs(ctx context.Context, pairs []ImagePair) error {
	for i, pair := range pairs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.matchPair(ctx, pair); err != nil {
			return fmt.Errorf("match %s: %w", p.pairLabel(ctx, pair), err)
		}
		if (i+1)%100 == 0 {
			p.logger.Info("matching progress",
				logging.Int("matched", i+1),
				logging.Int("total", len(pairs)))
		}
	}
	return nil
}

func (p *Pipeline) matchPair(ctx context.Context, pair ImagePair) error {
	pairID := store.PairID(pair.ID1, pair.ID2)
	existing, err := p.store.ReadMatches(ctx, pairID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	d1, err := p.store.ReadDescriptors(ctx, pair.ID1)
	if err != nil {
		return err
	}
	d2, err := p.store.ReadDescriptors(ctx, pair.ID2)
	if err != nil {
		return err
	}
	if d1.Rows == 0 || d2.Rows == 0 {
		return nil
	}
	if d1.Dim != d2.Dim {
		return fmt.Errorf("descriptor dims differ: %d vs %d", d1.Dim, d2.Dim)
	}

	matches := FindMatches(d1, d2, p.matching)
	if err := p.store.WriteMatches(ctx, pairID, matches); err != nil {
		return err
	}
	if p.verifier == nil || len(matches) == 0 {
		return nil
	}
	return p.verifyPair(ctx, pair, pairID, matches)
}

// StoreImportedMatches persists externally supplied matches for a pair. With
// verify set the matches go through geometric verification; otherwise they
// are recorded as already-verified inliers. Either way the feature indices
// must be within the stored keypoint counts.
func (p *Pipeline) StoreImportedMatches(ctx context.Context, pair ImagePair, matches [][2]uint32, verify bool) error {
	k1, err := p.store.ReadKeypoints(ctx, pair.ID1)
	if err != nil {
		return err
	}
	k2, err := p.store.ReadKeypoints(ctx, pair.ID2)
	if err != nil {
		return err
	}
	if err := checkMatchBounds(matches, len(k1), len(k2)); err != nil {
		return err
	}

	pairID := store.PairID(pair.ID1, pair.ID2)
	if err := p.store.WriteMatches(ctx, pairID, matches); err != nil {
		return err
	}
	if verify {
		if len(matches) == 0 || p.verifier == nil {
			return nil
		}
		geometry := p.verifier.Verify(k1, k2, matches)
		return p.store.WriteTwoViewGeometry(ctx, pairID, geometry.Inliers, geometry.Config)
	}
	return p.store.WriteTwoViewGeometry(ctx, pairID, matches, store.ConfigCalibrated)
}

func (p *Pipeline) verifyPair(ctx context.Context, pair ImagePair, pairID int64, matches [][2]uint32) error {
	k1, err := p.store.ReadKeypoints(ctx, pair.ID1)
	if err != nil {
		return err
	}
	k2, err := p.store.ReadKeypoints(ctx, pair.ID2)
	if err != nil {
		return err
	}
	if err := checkMatchBounds(matches, len(k1), len(k2)); err != nil {
		return err
	}
	geometry := p.verifier.Verify(k1, k2, matches)
	return p.store.WriteTwoViewGeometry(ctx, pairID, geometry.Inliers, geometry.Config)
}

// pairLabel names a pair for error messages, falling back to raw IDs when a
// name cannot be resolved.
func (p *Pipeline) pairLabel(ctx context.Context, pair ImagePair) string {
	name1, err1 := p.store.ImageName(ctx, pair.ID1)
	name2, err2 := p.store.ImageName(ctx, pair.ID2)
	if err1 != nil || err2 != nil {
		return fmt.Sprintf("pair (%d, %d)", pair.ID1, pair.ID2)
	}
	return fmt.Sprintf("%s and %s", name1, name2)
}

func checkMatchBounds(matches [][2]uint32, n1, n2 int) error {
	for _, m := range matches {
		if int(m[0]) >= n1 || int(m[1]) >= n2 {
			return fmt.Errorf("match (%d, %d) out of keypoint bounds (%d, %d)", m[0], m[1], n1, n2)
		}
	}
	return nil
}
