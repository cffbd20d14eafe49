package config

// OrchestratorConfig defines the queue and worker pool
type OrchestratorConfig struct {
	Concurrency      int    `json:"concurrency,omitempty" yaml:"concurrency,omitempty" validate:"min=1"`
	QueueSize        int    `json:"queue_size,omitempty" yaml:"queue_size,omitempty" validate:"min=1"`
	DequeueTimeoutMs int    `json:"dequeue_timeout_ms,omitempty" yaml:"dequeue_timeout_ms,omitempty" validate:"min=1"`
	OutputFile       string `json:"output_file,omitempty" yaml:"output_file,omitempty"`
	PauseOnFind      bool   `json:"pause_on_find" yaml:"pause_on_find"`
}

// NewDefaultOrchestratorConfig creates default orchestrator configuration
func NewDefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		Concurrency:      DefaultOrchestratorConcurrency,
		QueueSize:        DefaultOrchestratorQueueSize,
		DequeueTimeoutMs: DefaultOrchestratorDequeueTimeoutMs,
		OutputFile:       DefaultOrchestratorOutputFile,
	}
}

// OOBConfig points at the out-of-band interaction server
type OOBConfig struct {
	ServerURL       string `json:"server_url,omitempty" yaml:"server_url,omitempty" validate:"required,url"`
	SecretKey       string `json:"secret_key,omitempty" yaml:"secret_key,omitempty"`
	PollTimeoutSecs int    `json:"poll_timeout_secs,omitempty" yaml:"poll_timeout_secs,omitempty" validate:"min=1"`
}

// NewDefaultOOBConfig creates default OOB configuration
func NewDefaultOOBConfig() OOBConfig {
	return OOBConfig{
		ServerURL:       DefaultOOBServerURL,
		PollTimeoutSecs: DefaultOOBPollTimeoutSecs,
	}
}

// VerifyConfig tunes the verification stage
type VerifyConfig struct {
	XSSBrowserVerify   bool   `json:"xss_browser_verify" yaml:"xss_browser_verify"`
	BrowserTimeoutSecs int    `json:"browser_timeout_secs,omitempty" yaml:"browser_timeout_secs,omitempty" validate:"min=1"`
	ChromePath         string `json:"chrome_path,omitempty" yaml:"chrome_path,omitempty"`
}

// NewDefaultVerifyConfig creates default verify configuration
func NewDefaultVerifyConfig() VerifyConfig {
	return VerifyConfig{
		BrowserTimeoutSecs: DefaultVerifyBrowserTimeoutSecs,
	}
}
