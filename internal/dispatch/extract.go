package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"

	"parallax/internal/feature"
	"parallax/internal/job"
	"parallax/internal/logging"
	"parallax/internal/store"
)

// ExtractOptions configures one feature extraction run.
type ExtractOptions struct {
	DatabasePath  string
	ImagePath     string
	ImageListPath string
	CameraModel   string
	CameraParams  string
	UseGPU        bool
	MaxFeatures   int
	MaxImageSize  int
}

// ImportFeaturesOptions configures one feature import run. Descriptor files
// are looked up as <ImportPath>/<image name>.txt.
type ImportFeaturesOptions struct {
	DatabasePath  string
	ImagePath     string
	ImageListPath string
	ImportPath    string
	CameraModel   string
	CameraParams  string
}

// Extract detects and stores features for every resolved image.
func (d *Dispatcher) Extract(ctx context.Context, opts ExtractOptions) error {
	logger := d.runLogger(job.KindFeatureExtractor)

	modelID, err := validateCamera(opts.CameraModel, opts.CameraParams)
	if err != nil {
		return err
	}
	dbPath, err := d.databasePath(opts.DatabasePath)
	if err != nil {
		return err
	}
	if opts.ImagePath == "" {
		return configError("images", "image path is required")
	}
	names, err := resolveImageNames(opts.ImageListPath, opts.ImagePath)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		logger.Info("no images to process")
		return nil
	}

	s, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer s.Close()

	extractOpts := feature.ExtractOptions{
		MaxFeatures:  opts.MaxFeatures,
		MaxImageSize: opts.MaxImageSize,
	}
	if extractOpts.MaxFeatures <= 0 {
		extractOpts.MaxFeatures = d.cfg.Extraction.MaxFeatures
	}
	if extractOpts.MaxImageSize <= 0 {
		extractOpts.MaxImageSize = d.cfg.Extraction.MaxImageSize
	}

	task := func(ctx context.Context) error {
		for _, name := range names {
			if err := ctx.Err(); err != nil {
				return err
			}
			imageID, err := s.AddImage(ctx, name, modelID, opts.CameraParams)
			if err != nil {
				return err
			}
			done, err := s.HasFeatures(ctx, imageID)
			if err != nil {
				return err
			}
			if done {
				logger.Debug("features already exist", logging.String("image", name))
				continue
			}
			img, err := feature.LoadImage(filepath.Join(opts.ImagePath, name))
			if err != nil {
				return fmt.Errorf("load image %s: %w", name, err)
			}
			keypoints, descriptors := feature.Extract(img, extractOpts)
			if err := s.WriteFeatures(ctx, imageID, keypoints, descriptors); err != nil {
				return err
			}
			logger.Info("features extracted",
				logging.String("image", name),
				logging.Int("features", len(keypoints)))
		}
		return nil
	}
	return d.execute(ctx, job.KindFeatureExtractor, logger, opts.UseGPU, task)
}

// ImportFeatures reads precomputed descriptor files and stores them. The
// importer never uses the GPU.
func (d *Dispatcher) ImportFeatures(ctx context.Context, opts ImportFeaturesOptions) error {
	logger := d.runLogger(job.KindFeatureImporter)

	modelID, err := validateCamera(opts.CameraModel, opts.CameraParams)
	if err != nil {
		return err
	}
	dbPath, err := d.databasePath(opts.DatabasePath)
	if err != nil {
		return err
	}
	if opts.ImportPath == "" {
		return configError("import", "import path is required")
	}
	names, err := resolveImageNames(opts.ImageListPath, opts.ImagePath)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		logger.Info("no images to process")
		return nil
	}

	s, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer s.Close()

	task := d.importFeaturesTask(s, logger, names, modelID, opts)
	return d.execute(ctx, job.KindFeatureImporter, logger, false, task)
}

func (d *Dispatcher) importFeaturesTask(s *store.Store, logger *slog.Logger, names []string, modelID int, opts ImportFeaturesOptions) job.Task {
	return func(ctx context.Context) error {
		for _, name := range names {
			if err := ctx.Err(); err != nil {
				return err
			}
			path := filepath.Join(opts.ImportPath, name+".txt")
			keypoints, descriptors, err := feature.ReadDescriptorFile(path)
			if errors.Is(err, fs.ErrNotExist) {
				logger.Warn("no descriptor file for image",
					logging.String("image", name),
					logging.String("path", path))
				continue
			}
			if err != nil {
				return fmt.Errorf("import features for %s: %w", name, err)
			}
			imageID, err := s.AddImage(ctx, name, modelID, opts.CameraParams)
			if err != nil {
				return err
			}
			if err := s.WriteFeatures(ctx, imageID, keypoints, descriptors); err != nil {
				return err
			}
			logger.Info("features imported",
				logging.String("image", name),
				logging.Int("features", len(keypoints)))
		}
		return nil
	}
}
