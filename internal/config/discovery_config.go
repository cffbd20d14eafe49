package config

// DiscoveryConfig defines where candidate URLs come from
type DiscoveryConfig struct {
	URLFile          string `json:"url_file,omitempty" yaml:"url_file,omitempty"`
	Scope            string `json:"scope,omitempty" yaml:"scope,omitempty" validate:"omitempty,regexp"`
	Crawl            bool   `json:"crawl" yaml:"crawl"`
	CrawlDepth       int    `json:"crawl_depth,omitempty" yaml:"crawl_depth,omitempty" validate:"min=0"`
	CrawlThreads     int    `json:"crawl_threads,omitempty" yaml:"crawl_threads,omitempty" validate:"min=1"`
	CrawlTimeoutSecs int    `json:"crawl_timeout_secs,omitempty" yaml:"crawl_timeout_secs,omitempty" validate:"min=1"`
	JSExtract        bool   `json:"js_extract" yaml:"js_extract"`
	MaxJSFiles       int    `json:"max_js_files,omitempty" yaml:"max_js_files,omitempty" validate:"min=0"`
	LiveProbe        bool   `json:"live_probe" yaml:"live_probe"`
	HttpxThreads     int    `json:"httpx_threads,omitempty" yaml:"httpx_threads,omitempty" validate:"min=1"`
	HttpxTimeoutSecs int    `json:"httpx_timeout_secs,omitempty" yaml:"httpx_timeout_secs,omitempty" validate:"min=1"`
}

// NewDefaultDiscoveryConfig creates default discovery configuration
func NewDefaultDiscoveryConfig() DiscoveryConfig {
	return DiscoveryConfig{
		Crawl:            true,
		CrawlDepth:       DefaultDiscoveryCrawlDepth,
		CrawlThreads:     DefaultDiscoveryCrawlThreads,
		CrawlTimeoutSecs: DefaultDiscoveryCrawlTimeoutSecs,
		JSExtract:        true,
		MaxJSFiles:       DefaultDiscoveryMaxJSFiles,
		LiveProbe:        true,
		HttpxThreads:     DefaultDiscoveryHttpxThreads,
		HttpxTimeoutSecs: DefaultDiscoveryHttpxTimeoutSecs,
	}
}
