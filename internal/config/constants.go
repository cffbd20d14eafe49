package config

const (
	// General Defaults
	DefaultPlatform = "unknown"

	// Log Defaults
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "console"
	DefaultLogFile       = ""
	DefaultMaxLogSizeMB  = 100
	DefaultMaxLogBackups = 3

	// Proxy Defaults
	DefaultProxyMaxProxies            = 50
	DefaultProxyTestURL               = "http://httpbin.org/ip"
	DefaultProxyTestTimeoutSecs       = 5
	DefaultProxyFetchTimeoutSecs      = 10
	DefaultProxyValidationConcurrency = 20

	// Throttle Defaults
	DefaultThrottleMinDelayMs = 1000
	DefaultThrottleMaxDelayMs = 3000

	// Anomaly Defaults
	DefaultAnomalyLengthThreshold     = 0.2
	DefaultAnomalyMaxBaselines        = 20
	DefaultAnomalyBaselineTimeoutSecs = 10

	// Scanner Defaults
	DefaultScannerRequestTimeoutSecs = 10
	DefaultSQLiTimeThresholdSecs     = 5.0
	DefaultSSRFSettleSecs            = 5
	DefaultSSRFRequestTimeoutSecs    = 5
	DefaultDalfoxPath                = "dalfox"
	DefaultXSSToolTimeoutSecs        = 300
	DefaultBusinessLogicValue        = "999999"

	// Orchestrator Defaults
	DefaultOrchestratorConcurrency      = 10
	DefaultOrchestratorQueueSize        = 1000
	DefaultOrchestratorDequeueTimeoutMs = 1000
	DefaultOrchestratorOutputFile       = "omnihunter_results.txt"

	// OOB Defaults
	DefaultOOBServerURL       = "https://oast.pro"
	DefaultOOBPollTimeoutSecs = 10

	// Verify Defaults
	DefaultVerifyBrowserTimeoutSecs = 20

	// Storage Defaults
	DefaultStorageArchiveDir       = "archive"
	DefaultStorageCompressionCodec = "zstd"

	// Notification Defaults
	DefaultNotificationTimeoutSecs = 10

	// Discovery Defaults
	DefaultDiscoveryCrawlDepth       = 2
	DefaultDiscoveryCrawlThreads     = 8
	DefaultDiscoveryCrawlTimeoutSecs = 10
	DefaultDiscoveryMaxJSFiles       = 50
	DefaultDiscoveryHttpxThreads     = 25
	DefaultDiscoveryHttpxTimeoutSecs = 10

	// Resource Limiter Defaults
	DefaultResourceCheckIntervalSecs  = 30
	DefaultResourceMaxMemoryMB        = 2048
	DefaultResourceSystemMemThreshold = 0.9
	DefaultResourceCPUThreshold       = 0.9

	// Metrics Defaults
	DefaultMetricsListenAddress = "127.0.0.1:9464"
	DefaultMetricsPath          = "/metrics"

	// Display Defaults
	DefaultDisplayRefreshIntervalMs = 1000
	DefaultDisplayRecentFindings    = 5
)

// DefaultProxySources are the public proxy lists fetched when free proxies are enabled.
var DefaultProxySources = []string{
	"https://free-proxy-list.net/",
	"https://www.proxy-list.download/api/v1/get?type=http",
	"https://raw.githubusercontent.com/TheSpeedX/PROXY-List/master/http.txt",
}

// DefaultAnomalyKeywordPatterns flag content that usually only appears when access rules change.
var DefaultAnomalyKeywordPatterns = []string{
	`unauthori[sz]ed`,
	`access denied`,
	`forbidden`,
	`exception`,
	`stack trace`,
	`admin`,
	`balance`,
}
