package config

// ResourceLimiterConfig holds configuration for resource monitoring
type ResourceLimiterConfig struct {
	EnableAutoShutdown bool    `json:"enable_auto_shutdown" yaml:"enable_auto_shutdown"`
	CheckIntervalSecs  int     `json:"check_interval_secs,omitempty" yaml:"check_interval_secs,omitempty" validate:"min=1"`
	MaxMemoryMB        int64   `json:"max_memory_mb,omitempty" yaml:"max_memory_mb,omitempty" validate:"min=64"`
	SystemMemThreshold float64 `json:"system_mem_threshold,omitempty" yaml:"system_mem_threshold,omitempty" validate:"min=0.1,max=1.0"`
	CPUThreshold       float64 `json:"cpu_threshold,omitempty" yaml:"cpu_threshold,omitempty" validate:"min=0.1,max=1.0"`
}

// NewDefaultResourceLimiterConfig creates default resource limiter configuration
func NewDefaultResourceLimiterConfig() ResourceLimiterConfig {
	return ResourceLimiterConfig{
		EnableAutoShutdown: true,
		CheckIntervalSecs:  DefaultResourceCheckIntervalSecs,
		MaxMemoryMB:        DefaultResourceMaxMemoryMB,
		SystemMemThreshold: DefaultResourceSystemMemThreshold,
		CPUThreshold:       DefaultResourceCPUThreshold,
	}
}

// MetricsConfig exposes run metrics for scraping
type MetricsConfig struct {
	Enabled       bool   `json:"enabled" yaml:"enabled"`
	ListenAddress string `json:"listen_address,omitempty" yaml:"listen_address,omitempty" validate:"omitempty,hostname_port"`
	Path          string `json:"path,omitempty" yaml:"path,omitempty" validate:"omitempty,startswith=/"`
}

// NewDefaultMetricsConfig creates default metrics configuration
func NewDefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		ListenAddress: DefaultMetricsListenAddress,
		Path:          DefaultMetricsPath,
	}
}

// DisplayConfig controls the live terminal panel
type DisplayConfig struct {
	Enabled           bool `json:"enabled" yaml:"enabled"`
	RefreshIntervalMs int  `json:"refresh_interval_ms,omitempty" yaml:"refresh_interval_ms,omitempty" validate:"min=50"`
	RecentFindings    int  `json:"recent_findings,omitempty" yaml:"recent_findings,omitempty" validate:"min=1"`
	NoColor           bool `json:"no_color" yaml:"no_color"`
}

// NewDefaultDisplayConfig creates default display configuration
func NewDefaultDisplayConfig() DisplayConfig {
	return DisplayConfig{
		Enabled:           true,
		RefreshIntervalMs: DefaultDisplayRefreshIntervalMs,
		RecentFindings:    DefaultDisplayRecentFindings,
	}
}
