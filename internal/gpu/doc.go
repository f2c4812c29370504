// Package gpu owns the thread-affinity-aware execution path for
// GPU-requiring workers.
//
// A rendering/compute context is bound to the OS thread that creates it, so
// GPU-backed extraction or matching must run on that exact thread. Context
// models this as a capability: it spawns one goroutine locked to its OS
// thread, and Do is the only way to run code there. The Runner decides per
// invocation whether a worker executes through a dedicated context or
// directly on the invoking goroutine.
//
// Runtime support is a build property: compiling with the "gpucontext" tag
// enables the dedicated-thread path; without it, workers always run directly.
package gpu
