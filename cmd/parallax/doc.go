// Package main hosts the parallax CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into
// dispatcher entry points: feature extraction and import, the matcher
// strategies, match import, database utilities, and configuration
// scaffolding. It centralizes configuration resolution and structured
// logging setup so subcommands can focus on flag parsing.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
