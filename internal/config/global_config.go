package config

// GlobalConfig contains all configuration sections for the application
type GlobalConfig struct {
	Target                string                `json:"target,omitempty" yaml:"target,omitempty"`
	Platform              string                `json:"platform,omitempty" yaml:"platform,omitempty"`
	Verbose               bool                  `json:"verbose" yaml:"verbose"`
	Debug                 bool                  `json:"debug" yaml:"debug"`
	AnomalyConfig         AnomalyConfig         `json:"anomaly_config,omitempty" yaml:"anomaly_config,omitempty"`
	DiscoveryConfig       DiscoveryConfig       `json:"discovery_config,omitempty" yaml:"discovery_config,omitempty"`
	DisplayConfig         DisplayConfig         `json:"display_config,omitempty" yaml:"display_config,omitempty"`
	LogConfig             LogConfig             `json:"log_config,omitempty" yaml:"log_config,omitempty"`
	MetricsConfig         MetricsConfig         `json:"metrics_config,omitempty" yaml:"metrics_config,omitempty"`
	NotificationConfig    NotificationConfig    `json:"notification_config,omitempty" yaml:"notification_config,omitempty"`
	OOBConfig             OOBConfig             `json:"oob_config,omitempty" yaml:"oob_config,omitempty"`
	OrchestratorConfig    OrchestratorConfig    `json:"orchestrator_config,omitempty" yaml:"orchestrator_config,omitempty"`
	PrioritizerConfig     PrioritizerConfig     `json:"prioritizer_config,omitempty" yaml:"prioritizer_config,omitempty"`
	ProxyConfig           ProxyConfig           `json:"proxy_config,omitempty" yaml:"proxy_config,omitempty"`
	ResourceLimiterConfig ResourceLimiterConfig `json:"resource_limiter_config,omitempty" yaml:"resource_limiter_config,omitempty"`
	ScannerConfig         ScannerConfig         `json:"scanner_config,omitempty" yaml:"scanner_config,omitempty"`
	StorageConfig         StorageConfig         `json:"storage_config,omitempty" yaml:"storage_config,omitempty"`
	ThrottleConfig        ThrottleConfig        `json:"throttle_config,omitempty" yaml:"throttle_config,omitempty"`
	VerifyConfig          VerifyConfig          `json:"verify_config,omitempty" yaml:"verify_config,omitempty"`
}

// NewDefaultGlobalConfig creates a new GlobalConfig with default values
func NewDefaultGlobalConfig() *GlobalConfig {
	return &GlobalConfig{
		Platform:              DefaultPlatform,
		AnomalyConfig:         NewDefaultAnomalyConfig(),
		DiscoveryConfig:       NewDefaultDiscoveryConfig(),
		DisplayConfig:         NewDefaultDisplayConfig(),
		LogConfig:             NewDefaultLogConfig(),
		MetricsConfig:         NewDefaultMetricsConfig(),
		NotificationConfig:    NewDefaultNotificationConfig(),
		OOBConfig:             NewDefaultOOBConfig(),
		OrchestratorConfig:    NewDefaultOrchestratorConfig(),
		PrioritizerConfig:     NewDefaultPrioritizerConfig(),
		ProxyConfig:           NewDefaultProxyConfig(),
		ResourceLimiterConfig: NewDefaultResourceLimiterConfig(),
		ScannerConfig:         NewDefaultScannerConfig(),
		StorageConfig:         NewDefaultStorageConfig(),
		ThrottleConfig:        NewDefaultThrottleConfig(),
		VerifyConfig:          NewDefaultVerifyConfig(),
	}
}
