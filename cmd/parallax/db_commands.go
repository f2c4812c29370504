package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"parallax/internal/store"
)

func newDBCommand(ctx *commandContext) *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Database utilities",
	}
	dbCmd.AddCommand(newDBInitCommand(ctx))
	dbCmd.AddCommand(newDBStatsCommand(ctx))
	return dbCmd
}

func newDBInitCommand(ctx *commandContext) *cobra.Command {
	var databasePath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveDatabasePath(ctx, databasePath)
			if err != nil {
				return err
			}
			s, err := store.Open(path)
			if err != nil {
				return err
			}
			if err := s.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized database at %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&databasePath, "database", "", "Database path (defaults to the configured path)")
	return cmd
}

func newDBStatsCommand(ctx *commandContext) *cobra.Command {
	var databasePath string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show database contents summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveDatabasePath(ctx, databasePath)
			if err != nil {
				return err
			}
			s, err := store.Open(path)
			if err != nil {
				return err
			}
			defer s.Close()

			stats, err := s.Stats(cmd.Context())
			if err != nil {
				return err
			}

			rows := [][2]string{
				{"Images", strconv.Itoa(stats.NumImages)},
				{"Images with features", strconv.Itoa(stats.NumFeatured)},
				{"Keypoints", strconv.FormatInt(stats.NumKeypoints, 10)},
				{"Matched pairs", strconv.Itoa(stats.NumMatchedPairs)},
				{"Verified pairs", strconv.Itoa(stats.NumVerifiedPairs)},
				{"Matches", strconv.FormatInt(stats.NumMatches, 10)},
				{"Inlier matches", strconv.FormatInt(stats.NumInlierMatches, 10)},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderMetricTable(rows))
			return nil
		},
	}
	cmd.Flags().StringVar(&databasePath, "database", "", "Database path (defaults to the configured path)")
	return cmd
}

func resolveDatabasePath(ctx *commandContext, override string) (string, error) {
	if override != "" {
		return override, nil
	}
	cfg, err := ctx.configValue()
	if err != nil {
		return "", err
	}
	if cfg.Paths.DatabasePath == "" {
		return "", fmt.Errorf("no database path configured; pass --database or set paths.database_path")
	}
	return cfg.Paths.DatabasePath, nil
}
