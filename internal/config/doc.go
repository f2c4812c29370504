// Package config loads, normalizes, and validates parallax configuration
// data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. The Config type centralizes the knobs the
// CLI needs: database and image locations, extraction and matching defaults,
// and log routing. Command-line flags override configuration values per
// invocation.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
