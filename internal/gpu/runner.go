package gpu

import (
	"context"
	"log/slog"

	"parallax/internal/job"
	"parallax/internal/logging"
)

// Runner executes workers either directly on the invoking goroutine or via a
// dedicated context-owning thread when GPU acceleration is requested and the
// build supports it.
type Runner struct {
	supported  bool
	logger     *slog.Logger
	newContext func() *Context
}

// RunnerOption customizes runner construction.
type RunnerOption func(*Runner)

// WithSupported overrides the build-level support flag. Intended for tests.
func WithSupported(supported bool) RunnerOption {
	return func(r *Runner) { r.supported = supported }
}

// WithContextFactory overrides context construction. Intended for tests.
func WithContextFactory(factory func() *Context) RunnerOption {
	return func(r *Runner) { r.newContext = factory }
}

// NewRunner constructs a runner using the build's context support.
func NewRunner(logger *slog.Logger, opts ...RunnerOption) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	r := &Runner{
		supported:  ContextSupported,
		logger:     logger,
		newContext: NewContext,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Supported reports whether the dedicated-thread path is available.
func (r *Runner) Supported() bool {
	return r.supported
}

// Execute runs the worker to a terminal state and returns its error.
//
// The dedicated context thread is used iff useGPU is set and the build
// supports context execution; otherwise the worker runs directly and no
// context is ever created. A created context outlives the worker's execution
// and is torn down before Execute returns.
func (r *Runner) Execute(ctx context.Context, w *job.Worker, useGPU bool) error {
	if useGPU && r.supported {
		r.logger.Debug("executing worker on dedicated context thread",
			logging.String("worker", string(w.Kind())))
		gctx := r.newContext()
		defer gctx.Close()

		w.StartOn(ctx, gctx)
		return w.Wait()
	}

	if useGPU && !r.supported {
		r.logger.Warn("gpu acceleration requested but this build has no context support; running directly",
			logging.String("worker", string(w.Kind())))
	}
	w.Start(ctx)
	return w.Wait()
}
