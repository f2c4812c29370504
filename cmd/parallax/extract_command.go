package main

import (
	"github.com/spf13/cobra"

	"parallax/internal/dispatch"
)

func newExtractCommand(ctx *commandContext) *cobra.Command {
	var opts dispatch.ExtractOptions

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Detect and store image features",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, cfg, err := ctx.dispatcher()
			if err != nil {
				return err
			}
			if opts.ImagePath == "" {
				opts.ImagePath = cfg.Paths.ImagePath
			}
			if !cmd.Flags().Changed("use-gpu") {
				opts.UseGPU = cfg.Extraction.UseGPU
			}
			return d.Extract(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.DatabasePath, "database", "", "Database path (defaults to the configured path)")
	cmd.Flags().StringVar(&opts.ImagePath, "image-path", "", "Root directory of the source images")
	cmd.Flags().StringVar(&opts.ImageListPath, "image-list", "", "Optional file listing the images to process")
	cmd.Flags().StringVar(&opts.CameraModel, "camera-model", "SIMPLE_RADIAL", "Camera model for new images")
	cmd.Flags().StringVar(&opts.CameraParams, "camera-params", "", "Comma-separated camera parameters")
	cmd.Flags().BoolVar(&opts.UseGPU, "use-gpu", false, "Run extraction on the GPU context thread")
	cmd.Flags().IntVar(&opts.MaxFeatures, "max-features", 0, "Feature cap per image (0 uses the configured value)")
	cmd.Flags().IntVar(&opts.MaxImageSize, "max-image-size", 0, "Downscale images above this edge length (0 uses the configured value)")

	return cmd
}

func newImportFeaturesCommand(ctx *commandContext) *cobra.Command {
	var opts dispatch.ImportFeaturesOptions

	cmd := &cobra.Command{
		Use:   "import-features",
		Short: "Import precomputed feature files",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, cfg, err := ctx.dispatcher()
			if err != nil {
				return err
			}
			if opts.ImagePath == "" {
				opts.ImagePath = cfg.Paths.ImagePath
			}
			return d.ImportFeatures(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.DatabasePath, "database", "", "Database path (defaults to the configured path)")
	cmd.Flags().StringVar(&opts.ImagePath, "image-path", "", "Root directory of the source images")
	cmd.Flags().StringVar(&opts.ImageListPath, "image-list", "", "Optional file listing the images to process")
	cmd.Flags().StringVar(&opts.ImportPath, "import-path", "", "Directory holding <image>.txt feature files")
	cmd.Flags().StringVar(&opts.CameraModel, "camera-model", "SIMPLE_RADIAL", "Camera model for new images")
	cmd.Flags().StringVar(&opts.CameraParams, "camera-params", "", "Comma-separated camera parameters")

	return cmd
}
