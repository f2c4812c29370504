package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateExtraction(); err != nil {
		return err
	}
	if err := c.validateMatching(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateExtraction() error {
	if c.Extraction.MaxFeatures <= 0 {
		return errors.New("extraction.max_features must be positive")
	}
	if c.Extraction.MaxImageSize <= 0 {
		return errors.New("extraction.max_image_size must be positive")
	}
	return nil
}

func (c *Config) validateMatching() error {
	if c.Matching.MaxRatio <= 0 || c.Matching.MaxRatio > 1 {
		return errors.New("matching.max_ratio must be in (0, 1]")
	}
	if c.Matching.MaxDistance <= 0 {
		return errors.New("matching.max_distance must be positive")
	}
	if c.Matching.MaxError <= 0 {
		return errors.New("matching.max_error must be positive")
	}
	if c.Matching.MinNumInliers < 0 {
		return errors.New("matching.min_num_inliers must not be negative")
	}
	if c.Matching.Confidence <= 0 || c.Matching.Confidence >= 1 {
		return errors.New("matching.confidence must be in (0, 1)")
	}
	if c.Matching.MaxIterations <= 0 {
		return errors.New("matching.max_iterations must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
