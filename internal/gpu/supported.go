//go:build gpucontext

package gpu

// ContextSupported reports whether this build can execute workers on a
// dedicated context-owning thread.
const ContextSupported = true
