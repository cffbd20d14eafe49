package config

import "time"

// Scanner names accepted in ScannerConfig.Enabled
const (
	ScannerSQLi          = "sqli"
	ScannerXSS           = "xss"
	ScannerSSRF          = "ssrf"
	ScannerIDOR          = "idor"
	ScannerBusinessLogic = "business_logic"
)

// KnownScanners lists every registered scanner name.
var KnownScanners = []string{ScannerSQLi, ScannerXSS, ScannerSSRF, ScannerIDOR, ScannerBusinessLogic}

// ScannerConfig selects and tunes the scanner variants
type ScannerConfig struct {
	AllScanners           bool     `json:"all_scanners" yaml:"all_scanners"`
	DeepScan              bool     `json:"deep_scan" yaml:"deep_scan"`
	Enabled               []string `json:"enabled,omitempty" yaml:"enabled,omitempty" validate:"dive,scannername"`
	RequestTimeoutSecs    int      `json:"request_timeout_secs,omitempty" yaml:"request_timeout_secs,omitempty" validate:"min=1"`
	SQLiTimeThresholdSecs float64  `json:"sqli_time_threshold_secs,omitempty" yaml:"sqli_time_threshold_secs,omitempty" validate:"gt=0"`
	SSRFSettleSecs        int      `json:"ssrf_settle_secs,omitempty" yaml:"ssrf_settle_secs,omitempty" validate:"min=0"`
	SSRFRequestTimeoutSec int      `json:"ssrf_request_timeout_secs,omitempty" yaml:"ssrf_request_timeout_secs,omitempty" validate:"min=1"`
	DalfoxPath            string   `json:"dalfox_path,omitempty" yaml:"dalfox_path,omitempty"`
	XSSToolTimeoutSecs    int      `json:"xss_tool_timeout_secs,omitempty" yaml:"xss_tool_timeout_secs,omitempty" validate:"min=1"`
	BusinessLogicValue    string   `json:"business_logic_value,omitempty" yaml:"business_logic_value,omitempty" validate:"required"`
}

// NewDefaultScannerConfig creates default scanner configuration
func NewDefaultScannerConfig() ScannerConfig {
	return ScannerConfig{
		RequestTimeoutSecs:    DefaultScannerRequestTimeoutSecs,
		SQLiTimeThresholdSecs: DefaultSQLiTimeThresholdSecs,
		SSRFSettleSecs:        DefaultSSRFSettleSecs,
		SSRFRequestTimeoutSec: DefaultSSRFRequestTimeoutSecs,
		DalfoxPath:            DefaultDalfoxPath,
		XSSToolTimeoutSecs:    DefaultXSSToolTimeoutSecs,
		BusinessLogicValue:    DefaultBusinessLogicValue,
	}
}

// ActiveScanners resolves the scanner names to run for every task.
// An explicit Enabled list wins; otherwise sqli and xss always run and
// all_scanners or deep_scan add the remaining variants.
func (c ScannerConfig) ActiveScanners() []string {
	if len(c.Enabled) > 0 {
		return append([]string(nil), c.Enabled...)
	}
	names := []string{ScannerSQLi, ScannerXSS}
	if c.AllScanners || c.DeepScan {
		names = append(names, ScannerSSRF, ScannerIDOR, ScannerBusinessLogic)
	}
	return names
}

// SQLiThreshold returns the time-based SQLi latency threshold.
func (c ScannerConfig) SQLiThreshold() time.Duration {
	return time.Duration(c.SQLiTimeThresholdSecs * float64(time.Second))
}
