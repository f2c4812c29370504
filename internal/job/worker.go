package job

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"parallax/internal/logging"
)

// Kind identifies one member of the closed job variant family.
type Kind string

const (
	KindFeatureExtractor  Kind = "feature_extractor"
	KindFeatureImporter   Kind = "feature_importer"
	KindExhaustiveMatcher Kind = "exhaustive_matcher"
	KindSequentialMatcher Kind = "sequential_matcher"
	KindSpatialMatcher    Kind = "spatial_matcher"
	KindTransitiveMatcher Kind = "transitive_matcher"
	KindVocabTreeMatcher  Kind = "vocab_tree_matcher"
	KindPairsImporter     Kind = "pairs_importer"
	KindRawImporter       Kind = "raw_importer"
	KindInliersImporter   Kind = "inliers_importer"
)

// State represents the lifecycle of a worker.
type State string

const (
	StateCreated   State = "created"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Task is the unit of work a worker executes to completion.
type Task func(ctx context.Context) error

// Executor marshals a function onto a specific execution context and blocks
// until it returns. The GPU context satisfies this to give workers access to
// its thread-bound capability.
type Executor interface {
	Do(fn func())
}

// Worker runs exactly one task of a fixed kind and exposes the
// Start/Wait contract consumed by the dispatcher and the GPU runner.
type Worker struct {
	kind   Kind
	task   Task
	logger *slog.Logger

	state atomic.Value // State
	start sync.Once
	done  chan struct{}
	err   error
}

// New constructs a worker in the created state. The kind is immutable for
// the worker's lifetime.
func New(kind Kind, logger *slog.Logger, task Task) *Worker {
	if logger == nil {
		logger = logging.NewNop()
	}
	w := &Worker{
		kind:   kind,
		task:   task,
		logger: logger.With(logging.String("worker", string(kind))),
		done:   make(chan struct{}),
	}
	w.state.Store(StateCreated)
	return w
}

// Kind returns the job variant this worker was constructed for.
func (w *Worker) Kind() Kind {
	return w.kind
}

// State returns the current lifecycle state.
func (w *Worker) State() State {
	return w.state.Load().(State)
}

// Start begins execution on a background goroutine. Subsequent calls are
// no-ops; the task runs at most once.
func (w *Worker) Start(ctx context.Context) {
	w.StartOn(ctx, nil)
}

// StartOn begins execution like Start, but runs the task body through the
// provided executor. The GPU runner passes a context-owning thread here so
// GPU work executes on the thread that created the rendering context. A nil
// executor runs the task on the worker goroutine itself.
func (w *Worker) StartOn(ctx context.Context, exec Executor) {
	w.start.Do(func() {
		w.state.Store(StateRunning)
		w.logger.Info("worker started")
		began := time.Now()
		go func() {
			defer close(w.done)
			var err error
			if exec != nil {
				exec.Do(func() { err = w.run(ctx) })
			} else {
				err = w.run(ctx)
			}
			if err != nil {
				w.err = err
				w.state.Store(StateFailed)
				w.logger.Error("worker failed",
					logging.Duration("elapsed", time.Since(began)),
					logging.Error(err))
				return
			}
			w.state.Store(StateCompleted)
			w.logger.Info("worker completed",
				logging.Duration("elapsed", time.Since(began)))
		}()
	})
}

// Wait blocks until the worker reaches a terminal state and returns the
// task error. It is valid only after Start.
func (w *Worker) Wait() error {
	<-w.done
	return w.err
}

func (w *Worker) run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("worker panic: %v", r)
		}
	}()
	if w.task == nil {
		return fmt.Errorf("worker %s has no task", w.kind)
	}
	return w.task(ctx)
}
