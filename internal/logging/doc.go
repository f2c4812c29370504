// Package logging assembles the structured slog loggers used across
// parallax commands and workers.
//
// It owns the console and JSON handlers, centralizes level plumbing, and
// exposes small attribute helpers plus a no-op logger for tests and wiring
// code that cannot fail. Console output is colorized only when attached to a
// terminal.
//
// Prefer these constructors over hand-rolled slog setup so every component
// emits records with the same shape.
package logging
