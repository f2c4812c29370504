package testsupport

import (
	"path/filepath"
	"testing"

	"parallax/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp paths per test. It
// defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DatabasePath = filepath.Join(base, "parallax.db")
	cfg.Paths.ImagePath = filepath.Join(base, "images")

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithMinNumInliers lowers the verification threshold for small fixtures.
func WithMinNumInliers(n int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Matching.MinNumInliers = n
	}
}
