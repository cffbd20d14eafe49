package config

import "time"

// ProxyConfig defines the free proxy pool behaviour
type ProxyConfig struct {
	UseFree               bool     `json:"use_free" yaml:"use_free"`
	MaxProxies            int      `json:"max_proxies,omitempty" yaml:"max_proxies,omitempty" validate:"min=1"`
	TestURL               string   `json:"test_url,omitempty" yaml:"test_url,omitempty" validate:"required,url"`
	TestTimeoutSecs       int      `json:"test_timeout_secs,omitempty" yaml:"test_timeout_secs,omitempty" validate:"min=1"`
	FetchTimeoutSecs      int      `json:"fetch_timeout_secs,omitempty" yaml:"fetch_timeout_secs,omitempty" validate:"min=1"`
	ValidationConcurrency int      `json:"validation_concurrency,omitempty" yaml:"validation_concurrency,omitempty" validate:"min=1"`
	RefreshIntervalSecs   int      `json:"refresh_interval_secs,omitempty" yaml:"refresh_interval_secs,omitempty" validate:"min=0"`
	Sources               []string `json:"sources,omitempty" yaml:"sources,omitempty" validate:"dive,url"`
}

// NewDefaultProxyConfig creates default proxy configuration
func NewDefaultProxyConfig() ProxyConfig {
	return ProxyConfig{
		UseFree:               true,
		MaxProxies:            DefaultProxyMaxProxies,
		TestURL:               DefaultProxyTestURL,
		TestTimeoutSecs:       DefaultProxyTestTimeoutSecs,
		FetchTimeoutSecs:      DefaultProxyFetchTimeoutSecs,
		ValidationConcurrency: DefaultProxyValidationConcurrency,
		Sources:               append([]string(nil), DefaultProxySources...),
	}
}

// RefreshInterval returns the periodic refresh interval; zero disables refreshing.
func (c ProxyConfig) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalSecs) * time.Second
}
