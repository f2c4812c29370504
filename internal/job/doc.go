// Package job defines the worker lifecycle shared by every dispatcher job
// kind.
//
// A Worker wraps one long-running task and moves through the states
// Created -> Running -> Completed or Failed. Start begins execution on a
// background goroutine; Wait blocks until a terminal state and returns the
// task error, if any. There is no cancellation or retry at this layer: once
// started, the only remaining action is to wait.
//
// The kind is fixed at construction. Dispatch code selects the variant once
// and never re-dispatches after the worker exists.
package job
