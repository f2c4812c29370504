package gpu

import (
	"runtime"
	"sync"
)

// Context owns a dedicated OS-thread-locked goroutine for the lifetime of
// one worker execution. All GPU work must be marshaled through Do so it runs
// on the thread that owns the context.
type Context struct {
	tasks     chan func()
	stopped   chan struct{}
	closeOnce sync.Once
}

// NewContext creates the context and binds its goroutine to an OS thread.
// The caller must Close the context once the dependent worker has reached a
// terminal state; contexts are never reused across invocations.
func NewContext() *Context {
	c := &Context{
		tasks:   make(chan func()),
		stopped: make(chan struct{}),
	}
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		defer close(c.stopped)
		for task := range c.tasks {
			task()
		}
	}()
	return c
}

// Do runs fn on the context-owning thread and blocks until it returns.
func (c *Context) Do(fn func()) {
	done := make(chan struct{})
	c.tasks <- func() {
		defer close(done)
		fn()
	}
	<-done
}

// Close tears down the context thread. It blocks until any in-flight task
// has finished.
func (c *Context) Close() {
	c.closeOnce.Do(func() {
		close(c.tasks)
	})
	<-c.stopped
}
