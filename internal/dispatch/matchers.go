package dispatch

import (
	"context"
	"log/slog"

	"parallax/internal/job"
	"parallax/internal/listfile"
	"parallax/internal/logging"
	"parallax/internal/match"
	"parallax/internal/store"
	"parallax/internal/visualindex"
)

// ExhaustiveMatchOptions configures exhaustive matching over every image
// with stored descriptors.
type ExhaustiveMatchOptions struct {
	DatabasePath string
	UseGPU       bool
}

// SequentialMatchOptions configures sliding-window matching over the image
// sequence in insertion order.
type SequentialMatchOptions struct {
	DatabasePath string
	UseGPU       bool
	// Overlap is the window size; each image is matched against that many
	// successors.
	Overlap int
	// LoopDetection probes periodic images against sampled history.
	LoopDetection          bool
	LoopDetectionPeriod    int
	LoopDetectionNumImages int
}

// SpatialMatchOptions configures matching against nearest neighbors by
// known image position.
type SpatialMatchOptions struct {
	DatabasePath string
	UseGPU       bool
	MaxNeighbors int
	// MaxDistance <= 0 disables the distance cutoff.
	MaxDistance float64
	// PriorListPath optionally names a file with "image x y z" lines whose
	// positions are recorded before planning.
	PriorListPath string
}

// TransitiveMatchOptions configures expansion of the stored match graph.
type TransitiveMatchOptions struct {
	DatabasePath string
	UseGPU       bool
	Rounds       int
}

// VocabTreeMatchOptions configures retrieval-based matching against a
// prebuilt vocabulary file.
type VocabTreeMatchOptions struct {
	DatabasePath string
	UseGPU       bool
	VocabPath    string
	// NumImages is the number of retrieval candidates per query image.
	NumImages int
}

// MatchExhaustive matches all unordered pairs of featured images.
func (d *Dispatcher) MatchExhaustive(ctx context.Context, opts ExhaustiveMatchOptions) error {
	return d.runMatcher(ctx, job.KindExhaustiveMatcher, opts.DatabasePath, opts.UseGPU,
		func(ctx context.Context, s *store.Store, logger *slog.Logger) ([]match.ImagePair, error) {
			ids, err := s.ImageIDsWithDescriptors(ctx)
			if err != nil {
				return nil, err
			}
			return match.ExhaustivePairs(ids), nil
		})
}

// MatchSequential matches images against their sequence neighbors, with
// optional loop-closure probes.
func (d *Dispatcher) MatchSequential(ctx context.Context, opts SequentialMatchOptions) error {
	return d.runMatcher(ctx, job.KindSequentialMatcher, opts.DatabasePath, opts.UseGPU,
		func(ctx context.Context, s *store.Store, logger *slog.Logger) ([]match.ImagePair, error) {
			ids, err := s.ImageIDsWithDescriptors(ctx)
			if err != nil {
				return nil, err
			}
			loopPeriod, loopNumImages := 0, 0
			if opts.LoopDetection {
				loopPeriod = opts.LoopDetectionPeriod
				loopNumImages = opts.LoopDetectionNumImages
			}
			return match.SequentialPairs(ids, opts.Overlap, loopPeriod, loopNumImages), nil
		})
}

// MatchSpatial matches each positioned image against its nearest neighbors.
// A prior list supplies positions for images that have none recorded yet;
// images without a position prior or without features are skipped.
func (d *Dispatcher) MatchSpatial(ctx context.Context, opts SpatialMatchOptions) error {
	var priors []listfile.Prior
	if opts.PriorListPath != "" {
		var err error
		priors, err = listfile.ReadPriorList(opts.PriorListPath)
		if err != nil {
			return configErrorf("spatial", "read prior list", err)
		}
	}
	return d.runMatcher(ctx, job.KindSpatialMatcher, opts.DatabasePath, opts.UseGPU,
		func(ctx context.Context, s *store.Store, logger *slog.Logger) ([]match.ImagePair, error) {
			if err := applyPriors(ctx, s, logger, priors); err != nil {
				return nil, err
			}
			ids, err := s.ImageIDsWithDescriptors(ctx)
			if err != nil {
				return nil, err
			}
			featured := make(map[int64]struct{}, len(ids))
			for _, id := range ids {
				featured[id] = struct{}{}
			}
			images, err := s.ListImages(ctx)
			if err != nil {
				return nil, err
			}
			var located []match.Located
			for _, img := range images {
				if !img.HasPrior {
					continue
				}
				if _, ok := featured[img.ID]; !ok {
					continue
				}
				located = append(located, match.Located{ID: img.ID, Pos: img.Prior})
			}
			return match.SpatialPairs(located, opts.MaxNeighbors, opts.MaxDistance), nil
		})
}

// MatchTransitive matches pairs implied by the stored match graph.
func (d *Dispatcher) MatchTransitive(ctx context.Context, opts TransitiveMatchOptions) error {
	return d.runMatcher(ctx, job.KindTransitiveMatcher, opts.DatabasePath, opts.UseGPU,
		func(ctx context.Context, s *store.Store, logger *slog.Logger) ([]match.ImagePair, error) {
			pairIDs, err := s.MatchedPairIDs(ctx)
			if err != nil {
				return nil, err
			}
			existing := make([]match.ImagePair, len(pairIDs))
			for i, pairID := range pairIDs {
				id1, id2 := store.PairIDToImageIDs(pairID)
				existing[i] = match.ImagePair{ID1: id1, ID2: id2}
			}
			return match.TransitivePairs(existing, opts.Rounds), nil
		})
}

// MatchVocabTree matches each image against its top retrievals from a
// TF-IDF index built over the vocabulary file.
func (d *Dispatcher) MatchVocabTree(ctx context.Context, opts VocabTreeMatchOptions) error {
	if opts.VocabPath == "" {
		return configError("vocab-tree", "vocabulary path is required")
	}
	vocab, err := visualindex.ReadVocabulary(opts.VocabPath)
	if err != nil {
		return configErrorf("vocab-tree", "load vocabulary", err)
	}
	return d.runMatcher(ctx, job.KindVocabTreeMatcher, opts.DatabasePath, opts.UseGPU,
		func(ctx context.Context, s *store.Store, logger *slog.Logger) ([]match.ImagePair, error) {
			ids, err := s.ImageIDsWithDescriptors(ctx)
			if err != nil {
				return nil, err
			}
			index := visualindex.NewIndex(vocab)
			for _, id := range ids {
				descriptors, err := s.ReadDescriptors(ctx, id)
				if err != nil {
					return nil, err
				}
				if err := index.Add(id, descriptors); err != nil {
					return nil, configErrorf("vocab-tree", "index image descriptors", err)
				}
			}
			return match.VocabTreePairs(ids, opts.NumImages, func(imageID int64, topK int) []int64 {
				return index.Query(imageID, topK)
			}), nil
		})
}

// applyPriors records listed positions, skipping names that are not in the
// store.
func applyPriors(ctx context.Context, s *store.Store, logger *slog.Logger, priors []listfile.Prior) error {
	for _, prior := range priors {
		id, ok, err := s.ImageID(ctx, prior.Name)
		if err != nil {
			return err
		}
		if !ok {
			logger.Warn("skipping prior for unknown image", logging.String("image", prior.Name))
			continue
		}
		if err := s.SetImagePrior(ctx, id, prior.Pos); err != nil {
			return err
		}
	}
	return nil
}

// pairPlan resolves the candidate pairs for one matcher strategy.
type pairPlan func(ctx context.Context, s *store.Store, logger *slog.Logger) ([]match.ImagePair, error)

// runMatcher is the shared matcher flow: open the store, plan pairs, and run
// the match pipeline in a single worker. An empty plan is a successful no-op
// and never constructs a worker.
func (d *Dispatcher) runMatcher(ctx context.Context, kind job.Kind, dbPath string, useGPU bool, plan pairPlan) error {
	logger := d.runLogger(kind)

	path, err := d.databasePath(dbPath)
	if err != nil {
		return err
	}
	s, err := store.Open(path)
	if err != nil {
		return err
	}
	defer s.Close()

	pairs, err := plan(ctx, s, logger)
	if err != nil {
		return err
	}
	if len(pairs) == 0 {
		logger.Info("no image pairs to match")
		return nil
	}
	logger.Info("matching image pairs", logging.Int("pairs", len(pairs)))

	pipe := d.pipeline(s, logger)
	task := func(ctx context.Context) error {
		return pipe.MatchPairs(ctx, pairs)
	}
	return d.execute(ctx, kind, logger, useGPU, task)
}
