// Package dispatch turns validated invocation options into exactly one
// worker per run. Every entry point follows the same order: validate
// configuration, resolve inputs (an empty input set is a successful no-op),
// construct the worker, execute it through the GPU runner, and return its
// terminal error.
package dispatch
