package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"parallax/internal/job"
	"parallax/internal/listfile"
	"parallax/internal/logging"
	"parallax/internal/match"
	"parallax/internal/store"
)

// Match import types.
const (
	MatchTypePairs   = "pairs"
	MatchTypeRaw     = "raw"
	MatchTypeInliers = "inliers"
)

// ImportMatchesOptions configures the generic match importer. MatchType
// selects the worker variant: "pairs" matches listed image pairs, "raw"
// imports matches and verifies them geometrically, "inliers" imports
// matches as already-verified geometry.
type ImportMatchesOptions struct {
	DatabasePath  string
	MatchListPath string
	MatchType     string
	UseGPU        bool
}

// importKind maps a match type to its worker kind. The mapping is the first
// validation the importer performs, independent of every other option.
func importKind(matchType string) (job.Kind, error) {
	switch matchType {
	case MatchTypePairs:
		return job.KindPairsImporter, nil
	case MatchTypeRaw:
		return job.KindRawImporter, nil
	case MatchTypeInliers:
		return job.KindInliersImporter, nil
	default:
		return "", configError("import", fmt.Sprintf("unknown match type %q", matchType))
	}
}

// ImportMatches dispatches one of the three match import variants.
func (d *Dispatcher) ImportMatches(ctx context.Context, opts ImportMatchesOptions) error {
	kind, err := importKind(opts.MatchType)
	if err != nil {
		return err
	}
	logger := d.runLogger(kind)

	if opts.MatchListPath == "" {
		return configError("import", "match list path is required")
	}
	dbPath, err := d.databasePath(opts.DatabasePath)
	if err != nil {
		return err
	}

	if kind == job.KindPairsImporter {
		return d.importPairs(ctx, logger, dbPath, opts)
	}
	return d.importMatches(ctx, kind, logger, dbPath, opts)
}

// importPairs matches the listed image pairs with the shared pipeline.
func (d *Dispatcher) importPairs(ctx context.Context, logger *slog.Logger, dbPath string, opts ImportMatchesOptions) error {
	entries, err := listfile.ReadPairList(opts.MatchListPath)
	if err != nil {
		return configErrorf("import", "read pair list", err)
	}
	if len(entries) == 0 {
		logger.Info("no image pairs to match")
		return nil
	}

	s, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer s.Close()

	task := func(ctx context.Context) error {
		var pairs []match.ImagePair
		for _, entry := range entries {
			pair, ok, err := resolvePair(ctx, s, logger, entry.Name1, entry.Name2)
			if err != nil {
				return err
			}
			if ok {
				pairs = append(pairs, pair)
			}
		}
		return d.pipeline(s, logger).MatchPairs(ctx, pairs)
	}
	return d.execute(ctx, job.KindPairsImporter, logger, opts.UseGPU, task)
}

// importMatches imports externally computed matches. The raw variant runs
// geometric verification over every imported pair; the inliers variant
// records the matches as verified geometry directly. Neither uses the GPU.
func (d *Dispatcher) importMatches(ctx context.Context, kind job.Kind, logger *slog.Logger, dbPath string, opts ImportMatchesOptions) error {
	blocks, err := listfile.ReadMatchList(opts.MatchListPath)
	if err != nil {
		return configErrorf("import", "read match list", err)
	}
	if len(blocks) == 0 {
		logger.Info("no matches to import")
		return nil
	}

	s, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer s.Close()

	verify := kind == job.KindRawImporter
	task := func(ctx context.Context) error {
		pipe := d.pipeline(s, logger)
		for _, block := range blocks {
			if err := ctx.Err(); err != nil {
				return err
			}
			id1, ok1, err := s.ImageID(ctx, block.Name1)
			if err != nil {
				return err
			}
			id2, ok2, err := s.ImageID(ctx, block.Name2)
			if err != nil {
				return err
			}
			if !ok1 || !ok2 {
				logger.Warn("skipping pair with unknown image",
					logging.String("image1", block.Name1),
					logging.String("image2", block.Name2))
				continue
			}
			matches := store.NormalizeMatches(id1, id2, block.Matches)
			pair := match.ImagePair{ID1: min(id1, id2), ID2: max(id1, id2)}
			if err := pipe.StoreImportedMatches(ctx, pair, matches, verify); err != nil {
				return fmt.Errorf("import matches (%s, %s): %w", block.Name1, block.Name2, err)
			}
		}
		return nil
	}
	return d.execute(ctx, kind, logger, false, task)
}

// resolvePair looks up both image IDs for a listed pair. Pairs naming
// unknown images are skipped with a warning.
func resolvePair(ctx context.Context, s *store.Store, logger *slog.Logger, name1, name2 string) (match.ImagePair, bool, error) {
	id1, ok1, err := s.ImageID(ctx, name1)
	if err != nil {
		return match.ImagePair{}, false, err
	}
	id2, ok2, err := s.ImageID(ctx, name2)
	if err != nil {
		return match.ImagePair{}, false, err
	}
	if !ok1 || !ok2 {
		logger.Warn("skipping pair with unknown image",
			logging.String("image1", name1),
			logging.String("image2", name2))
		return match.ImagePair{}, false, nil
	}
	return match.ImagePair{ID1: min(id1, id2), ID2: max(id1, id2)}, true, nil
}
