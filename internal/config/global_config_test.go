package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultGlobalConfig(t *testing.T) {
	cfg := NewDefaultGlobalConfig()

	require.NotNil(t, cfg)
	assert.Equal(t, "unknown", cfg.Platform)
	assert.Equal(t, 50, cfg.ProxyConfig.MaxProxies)
	assert.Equal(t, "http://httpbin.org/ip", cfg.ProxyConfig.TestURL)
	assert.Equal(t, 5, cfg.ProxyConfig.TestTimeoutSecs)
	assert.Len(t, cfg.ProxyConfig.Sources, 3)
	assert.Equal(t, 1000, cfg.ThrottleConfig.MinDelayMs)
	assert.Equal(t, 3000, cfg.ThrottleConfig.MaxDelayMs)
	assert.Equal(t, 0.2, cfg.AnomalyConfig.LengthThreshold)
	assert.Equal(t, 10, cfg.OrchestratorConfig.Concurrency)
	assert.True(t, cfg.PrioritizerConfig.Enabled)
	assert.NoError(t, ValidateConfig(cfg))
}

func TestLoadGlobalConfig_NonExistentFile(t *testing.T) {
	cfg, err := LoadGlobalConfig("/nonexistent/config.json")

	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "config file does not exist")
}

func TestLoadGlobalConfig_YAMLFile(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	configData := `
target: example.com
platform: hackerone
orchestrator_config:
  concurrency: 4
proxy_config:
  use_free: false
  max_proxies: 5
scanner_config:
  enabled: [sqli, ssrf]
log_config:
  log_level: debug
`
	require.NoError(t, os.WriteFile(configFile, []byte(configData), 0644))

	cfg, err := LoadGlobalConfig(configFile)
	require.NoError(t, err)

	assert.Equal(t, "example.com", cfg.Target)
	assert.Equal(t, "hackerone", cfg.Platform)
	assert.Equal(t, 4, cfg.OrchestratorConfig.Concurrency)
	assert.Equal(t, DefaultOrchestratorQueueSize, cfg.OrchestratorConfig.QueueSize)
	assert.False(t, cfg.ProxyConfig.UseFree)
	assert.Equal(t, 5, cfg.ProxyConfig.MaxProxies)
	assert.Equal(t, "debug", cfg.LogConfig.LogLevel)
	assert.Equal(t, []string{"sqli", "ssrf"}, cfg.ScannerConfig.ActiveScanners())
	assert.NoError(t, ValidateConfig(cfg))
}

func TestLoadGlobalConfig_JSONFile(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "config.json")
	configData := `{"target": "example.org", "throttle_config": {"min_delay_ms": 10, "max_delay_ms": 20}}`
	require.NoError(t, os.WriteFile(configFile, []byte(configData), 0644))

	cfg, err := LoadGlobalConfig(configFile)
	require.NoError(t, err)

	assert.Equal(t, "example.org", cfg.Target)
	assert.Equal(t, 10, cfg.ThrottleConfig.MinDelayMs)
	assert.Equal(t, 20, cfg.ThrottleConfig.MaxDelayMs)
}

func TestLoadGlobalConfig_InvalidJSON(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(configFile, []byte(`{"target": `), 0644))

	cfg, err := LoadGlobalConfig(configFile)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config content")
}

func TestGetConfigPath_Env(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("target: a.com\n"), 0644))
	t.Setenv(ConfigPathEnv, configFile)

	assert.Equal(t, configFile, GetConfigPath(""))
	assert.Equal(t, "explicit.yaml", GetConfigPath("explicit.yaml"))
}

func TestValidateConfig_Failures(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(cfg *GlobalConfig)
		contains string
	}{
		{
			name:     "bad log level",
			mutate:   func(cfg *GlobalConfig) { cfg.LogConfig.LogLevel = "loud" },
			contains: "LogConfig.LogLevel",
		},
		{
			name:     "unknown scanner",
			mutate:   func(cfg *GlobalConfig) { cfg.ScannerConfig.Enabled = []string{"sqli", "rce"} },
			contains: "rule 'scannername'",
		},
		{
			name:     "zero concurrency",
			mutate:   func(cfg *GlobalConfig) { cfg.OrchestratorConfig.Concurrency = 0 },
			contains: "OrchestratorConfig.Concurrency",
		},
		{
			name: "inverted delay range",
			mutate: func(cfg *GlobalConfig) {
				cfg.ThrottleConfig.MinDelayMs = 500
				cfg.ThrottleConfig.MaxDelayMs = 100
			},
			contains: "rule 'delayrange'",
		},
		{
			name:     "bad keyword regexp",
			mutate:   func(cfg *GlobalConfig) { cfg.AnomalyConfig.KeywordPatterns = []string{"("} },
			contains: "rule 'regexp'",
		},
		{
			name:     "bad webhook",
			mutate:   func(cfg *GlobalConfig) { cfg.NotificationConfig.SlackWebhookURL = "not a url" },
			contains: "SlackWebhookURL",
		},
		{
			name:     "telegram token without chat",
			mutate:   func(cfg *GlobalConfig) { cfg.NotificationConfig.TelegramToken = "123:abc" },
			contains: "TelegramChatID",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultGlobalConfig()
			tt.mutate(cfg)
			err := ValidateConfig(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "configuration validation failed")
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestScannerConfig_ActiveScanners(t *testing.T) {
	cfg := NewDefaultScannerConfig()
	assert.Equal(t, []string{ScannerSQLi, ScannerXSS}, cfg.ActiveScanners())

	cfg.DeepScan = true
	assert.Equal(t, []string{ScannerSQLi, ScannerXSS, ScannerSSRF, ScannerIDOR, ScannerBusinessLogic}, cfg.ActiveScanners())

	cfg.Enabled = []string{ScannerBusinessLogic}
	assert.Equal(t, []string{ScannerBusinessLogic}, cfg.ActiveScanners())
}

func TestStorageConfig_DBPathFor(t *testing.T) {
	cfg := NewDefaultStorageConfig()
	assert.Equal(t, "omnihunter_example_com.db", cfg.DBPathFor("example.com"))

	cfg.SQLiteDBPath = "/tmp/x.db"
	assert.Equal(t, "/tmp/x.db", cfg.DBPathFor("example.com"))
}
