package config

const (
	defaultLogFormat     = "console"
	defaultLogLevel      = "info"
	defaultMaxFeatures   = 8192
	defaultMaxImageSize  = 3200
	defaultMaxRatio      = 0.8
	defaultMaxDistance   = 0.7
	defaultMaxError      = 4.0
	defaultMinNumInliers = 15
	defaultConfidence    = 0.999
	defaultMaxIterations = 10000
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Extraction: Extraction{
			UseGPU:       false,
			MaxFeatures:  defaultMaxFeatures,
			MaxImageSize: defaultMaxImageSize,
		},
		Matching: Matching{
			UseGPU:        false,
			MaxRatio:      defaultMaxRatio,
			MaxDistance:   defaultMaxDistance,
			CrossCheck:    true,
			MaxError:      defaultMaxError,
			MinNumInliers: defaultMinNumInliers,
			Confidence:    defaultConfidence,
			MaxIterations: defaultMaxIterations,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
