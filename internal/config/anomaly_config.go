package config

// AnomalyConfig defines baseline collection and comparison
type AnomalyConfig struct {
	Enabled             bool     `json:"enabled" yaml:"enabled"`
	LengthThreshold     float64  `json:"length_threshold,omitempty" yaml:"length_threshold,omitempty" validate:"gt=0"`
	KeywordPatterns     []string `json:"keyword_patterns,omitempty" yaml:"keyword_patterns,omitempty" validate:"dive,regexp"`
	MaxBaselines        int      `json:"max_baselines,omitempty" yaml:"max_baselines,omitempty" validate:"min=0"`
	BaselineTimeoutSecs int      `json:"baseline_timeout_secs,omitempty" yaml:"baseline_timeout_secs,omitempty" validate:"min=1"`
}

// NewDefaultAnomalyConfig creates default anomaly configuration
func NewDefaultAnomalyConfig() AnomalyConfig {
	return AnomalyConfig{
		Enabled:             true,
		LengthThreshold:     DefaultAnomalyLengthThreshold,
		KeywordPatterns:     append([]string(nil), DefaultAnomalyKeywordPatterns...),
		MaxBaselines:        DefaultAnomalyMaxBaselines,
		BaselineTimeoutSecs: DefaultAnomalyBaselineTimeoutSecs,
	}
}

// PrioritizerConfig toggles keyword based parameter ranking
type PrioritizerConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
}

// NewDefaultPrioritizerConfig creates default prioritizer configuration
func NewDefaultPrioritizerConfig() PrioritizerConfig {
	return PrioritizerConfig{Enabled: true}
}
