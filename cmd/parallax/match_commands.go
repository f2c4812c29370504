package main

import (
	"github.com/spf13/cobra"

	"parallax/internal/dispatch"
)

// matchFlags holds the flags shared by every matcher subcommand.
type matchFlags struct {
	database string
	useGPU   bool
}

func newMatchCommand(ctx *commandContext) *cobra.Command {
	var shared matchFlags

	matchCmd := &cobra.Command{
		Use:   "match",
		Short: "Match image features",
	}
	matchCmd.PersistentFlags().StringVar(&shared.database, "database", "", "Database path (defaults to the configured path)")
	matchCmd.PersistentFlags().BoolVar(&shared.useGPU, "use-gpu", false, "Run matching on the GPU context thread")

	matchCmd.AddCommand(newMatchExhaustiveCommand(ctx, &shared))
	matchCmd.AddCommand(newMatchSequentialCommand(ctx, &shared))
	matchCmd.AddCommand(newMatchSpatialCommand(ctx, &shared))
	matchCmd.AddCommand(newMatchTransitiveCommand(ctx, &shared))
	matchCmd.AddCommand(newMatchVocabTreeCommand(ctx, &shared))
	matchCmd.AddCommand(newMatchImportCommand(ctx, &shared))

	return matchCmd
}

// resolveUseGPU prefers an explicit flag over the configured default.
func resolveUseGPU(cmd *cobra.Command, shared *matchFlags, configured bool) bool {
	if flag := cmd.Flag("use-gpu"); flag != nil && flag.Changed {
		return shared.useGPU
	}
	return configured
}

func newMatchExhaustiveCommand(ctx *commandContext, shared *matchFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "exhaustive",
		Short: "Match all image pairs",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, cfg, err := ctx.dispatcher()
			if err != nil {
				return err
			}
			return d.MatchExhaustive(cmd.Context(), dispatch.ExhaustiveMatchOptions{
				DatabasePath: shared.database,
				UseGPU:       resolveUseGPU(cmd, shared, cfg.Matching.UseGPU),
			})
		},
	}
}

func newMatchSequentialCommand(ctx *commandContext, shared *matchFlags) *cobra.Command {
	var opts dispatch.SequentialMatchOptions

	cmd := &cobra.Command{
		Use:   "sequential",
		Short: "Match neighboring images in sequence order",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, cfg, err := ctx.dispatcher()
			if err != nil {
				return err
			}
			opts.DatabasePath = shared.database
			opts.UseGPU = resolveUseGPU(cmd, shared, cfg.Matching.UseGPU)
			return d.MatchSequential(cmd.Context(), opts)
		},
	}
	cmd.Flags().IntVar(&opts.Overlap, "overlap", 10, "Number of successors to match each image against")
	cmd.Flags().BoolVar(&opts.LoopDetection, "loop-detection", false, "Probe periodic images against sampled history")
	cmd.Flags().IntVar(&opts.LoopDetectionPeriod, "loop-detection-period", 10, "Probe every n-th image for loop closure")
	cmd.Flags().IntVar(&opts.LoopDetectionNumImages, "loop-detection-num-images", 50, "History samples per loop-closure probe")
	return cmd
}

func newMatchSpatialCommand(ctx *commandContext, shared *matchFlags) *cobra.Command {
	var opts dispatch.SpatialMatchOptions

	cmd := &cobra.Command{
		Use:   "spatial",
		Short: "Match images against nearest neighbors by position prior",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, cfg, err := ctx.dispatcher()
			if err != nil {
				return err
			}
			opts.DatabasePath = shared.database
			opts.UseGPU = resolveUseGPU(cmd, shared, cfg.Matching.UseGPU)
			return d.MatchSpatial(cmd.Context(), opts)
		},
	}
	cmd.Flags().IntVar(&opts.MaxNeighbors, "max-neighbors", 50, "Neighbors to match per image")
	cmd.Flags().Float64Var(&opts.MaxDistance, "max-distance", 0, "Neighbor distance cutoff (0 disables)")
	cmd.Flags().StringVar(&opts.PriorListPath, "prior-list", "", "File with an image name and x y z position per line")
	return cmd
}

func newMatchTransitiveCommand(ctx *commandContext, shared *matchFlags) *cobra.Command {
	var opts dispatch.TransitiveMatchOptions

	cmd := &cobra.Command{
		Use:   "transitive",
		Short: "Match pairs implied by the existing match graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, cfg, err := ctx.dispatcher()
			if err != nil {
				return err
			}
			opts.DatabasePath = shared.database
			opts.UseGPU = resolveUseGPU(cmd, shared, cfg.Matching.UseGPU)
			return d.MatchTransitive(cmd.Context(), opts)
		},
	}
	cmd.Flags().IntVar(&opts.Rounds, "rounds", 3, "Transitive expansion rounds")
	return cmd
}

func newMatchVocabTreeCommand(ctx *commandContext, shared *matchFlags) *cobra.Command {
	var opts dispatch.VocabTreeMatchOptions

	cmd := &cobra.Command{
		Use:   "vocab-tree",
		Short: "Match images against visual-index retrievals",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, cfg, err := ctx.dispatcher()
			if err != nil {
				return err
			}
			opts.DatabasePath = shared.database
			opts.UseGPU = resolveUseGPU(cmd, shared, cfg.Matching.UseGPU)
			return d.MatchVocabTree(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.VocabPath, "vocab-path", "", "Vocabulary file for retrieval")
	cmd.Flags().IntVar(&opts.NumImages, "num-images", 100, "Retrieval candidates per image")
	return cmd
}

func newMatchImportCommand(ctx *commandContext, shared *matchFlags) *cobra.Command {
	var opts dispatch.ImportMatchesOptions

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import match lists or precomputed matches",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, cfg, err := ctx.dispatcher()
			if err != nil {
				return err
			}
			opts.DatabasePath = shared.database
			opts.UseGPU = resolveUseGPU(cmd, shared, cfg.Matching.UseGPU)
			return d.ImportMatches(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.MatchListPath, "match-list", "", "Match list file")
	cmd.Flags().StringVar(&opts.MatchType, "match-type", dispatch.MatchTypePairs, "List contents: pairs, raw, or inliers")
	return cmd
}
