package config

import "time"

// ThrottleConfig defines pacing and identity rotation for outbound probes
type ThrottleConfig struct {
	MinDelayMs   int      `json:"min_delay_ms" yaml:"min_delay_ms" validate:"min=0"`
	MaxDelayMs   int      `json:"max_delay_ms" yaml:"max_delay_ms" validate:"min=0"`
	PerHostRPS   float64  `json:"per_host_rps,omitempty" yaml:"per_host_rps,omitempty" validate:"min=0"`
	PerHostBurst int      `json:"per_host_burst,omitempty" yaml:"per_host_burst,omitempty" validate:"min=0"`
	UserAgents   []string `json:"user_agents,omitempty" yaml:"user_agents,omitempty" validate:"dive,required"`
}

// NewDefaultThrottleConfig creates default throttle configuration
func NewDefaultThrottleConfig() ThrottleConfig {
	return ThrottleConfig{
		MinDelayMs: DefaultThrottleMinDelayMs,
		MaxDelayMs: DefaultThrottleMaxDelayMs,
	}
}

// DelayRange returns the configured delay interval.
func (c ThrottleConfig) DelayRange() (time.Duration, time.Duration) {
	return time.Duration(c.MinDelayMs) * time.Millisecond, time.Duration(c.MaxDelayMs) * time.Millisecond
}
