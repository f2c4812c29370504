//go:build linux

package gpu_test

import (
	"context"
	"testing"

	"golang.org/x/sys/unix"

	"parallax/internal/gpu"
	"parallax/internal/job"
)

func TestContextTasksShareOneThread(t *testing.T) {
	gctx := gpu.NewContext()
	defer gctx.Close()

	var first, second int
	gctx.Do(func() { first = unix.Gettid() })
	gctx.Do(func() { second = unix.Gettid() })
	if first != second {
		t.Fatalf("tasks ran on different threads: %d vs %d", first, second)
	}
}

func TestRunnerGPUPathExecutesOnContextThread(t *testing.T) {
	gctx := gpu.NewContext()
	defer gctx.Close()

	var contextTid int
	gctx.Do(func() { contextTid = unix.Gettid() })

	runner := gpu.NewRunner(nil,
		gpu.WithSupported(true),
		gpu.WithContextFactory(func() *gpu.Context { return gctx }))

	var taskTid int
	w := job.New(job.KindFeatureExtractor, nil, func(ctx context.Context) error {
		taskTid = unix.Gettid()
		return nil
	})
	if err := runner.Execute(context.Background(), w, true); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if taskTid != contextTid {
		t.Fatalf("task ran on thread %d, context owns thread %d", taskTid, contextTid)
	}
}
