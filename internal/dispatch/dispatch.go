package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"parallax/internal/camera"
	"parallax/internal/config"
	"parallax/internal/gpu"
	"parallax/internal/job"
	"parallax/internal/listfile"
	"parallax/internal/logging"
	"parallax/internal/match"
	"parallax/internal/store"
)

// Dispatcher owns one run: it validates options, resolves inputs, and
// executes a single worker per invocation.
type Dispatcher struct {
	cfg    config.Config
	logger *slog.Logger
	runner *gpu.Runner
}

// New constructs a dispatcher. A nil runner gets the build's default GPU
// support.
func New(cfg config.Config, logger *slog.Logger, runner *gpu.Runner) *Dispatcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	if runner == nil {
		runner = gpu.NewRunner(logger)
	}
	return &Dispatcher{cfg: cfg, logger: logger, runner: runner}
}

// runLogger scopes the logger to one invocation.
func (d *Dispatcher) runLogger(kind job.Kind) *slog.Logger {
	return d.logger.With(
		logging.String("run_id", uuid.NewString()),
		logging.String("job", string(kind)))
}

// execute is the single worker construction and execution point shared by
// every entry point. Validation and input resolution happen strictly before
// this is reached.
func (d *Dispatcher) execute(ctx context.Context, kind job.Kind, logger *slog.Logger, useGPU bool, task job.Task) error {
	worker := job.New(kind, logger, task)
	return d.runner.Execute(ctx, worker, useGPU)
}

// validateCamera resolves the camera model name and checks the parameter
// string against its arity. An empty parameter string is always valid.
func validateCamera(model, params string) (int, error) {
	modelID, ok := camera.ModelNameToID(model)
	if !ok {
		return 0, configError("camera", fmt.Sprintf("unknown camera model %q", model))
	}
	values, err := camera.ParseParamsCSV(params)
	if err != nil {
		return 0, configErrorf("camera", "invalid camera parameters", err)
	}
	if !camera.VerifyParams(modelID, values) {
		return 0, configError("camera", fmt.Sprintf("camera parameters %q do not fit model %s", params, model))
	}
	return modelID, nil
}

// resolveImageNames produces the ordered image set for an invocation. An
// explicit list file takes precedence over scanning the image directory.
func resolveImageNames(imageListPath, imagePath string) ([]string, error) {
	if imageListPath != "" {
		names, err := listfile.ReadImageList(imageListPath)
		if err != nil {
			return nil, configErrorf("images", "read image list", err)
		}
		return names, nil
	}
	if imagePath == "" {
		return nil, configError("images", "image path is required")
	}
	names, err := listfile.ScanImageDir(imagePath)
	if err != nil {
		return nil, configErrorf("images", "scan image directory", err)
	}
	return names, nil
}

func (d *Dispatcher) databasePath(override string) (string, error) {
	path := override
	if path == "" {
		path = d.cfg.Paths.DatabasePath
	}
	if path == "" {
		return "", configError("database", "database path is required")
	}
	return path, nil
}

func (d *Dispatcher) matchOptions() match.Options {
	return match.Options{
		MaxRatio:    d.cfg.Matching.MaxRatio,
		MaxDistance: d.cfg.Matching.MaxDistance,
		CrossCheck:  d.cfg.Matching.CrossCheck,
	}
}

func (d *Dispatcher) verifier() match.Verifier {
	return match.NewRansacVerifier(match.VerifyOptions{
		MaxError:      d.cfg.Matching.MaxError,
		MinNumInliers: d.cfg.Matching.MinNumInliers,
		Confidence:    d.cfg.Matching.Confidence,
		MaxIterations: d.cfg.Matching.MaxIterations,
	})
}

func (d *Dispatcher) pipeline(s *store.Store, logger *slog.Logger) *match.Pipeline {
	return match.NewPipeline(s, logger, d.matchOptions(), d.verifier())
}
