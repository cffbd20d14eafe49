package logger

import (
	"github.com/aleister1102/omnihunter/internal/config"
	"github.com/rs/zerolog"
)

// ConfigConverter converts config.LogConfig to LoggerConfig
type ConfigConverter struct {
	levelParser  *LogLevelParser
	formatParser *LogFormatParser
}

// NewConfigConverter creates a new config converter
func NewConfigConverter() *ConfigConverter {
	return &ConfigConverter{
		levelParser:  NewLogLevelParser(),
		formatParser: NewLogFormatParser(),
	}
}

// ConvertConfig converts application config to logger config.
// An unparsable level falls back to info and is reported alongside the result.
func (cc *ConfigConverter) ConvertConfig(cfg config.LogConfig) (LoggerConfig, error) {
	level, err := cc.levelParser.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	result := DefaultLoggerConfig()
	result.Level = level
	result.Format = cc.formatParser.ParseFormat(cfg.LogFormat)
	result.EnableFile = cfg.LogFile != ""
	result.FilePath = cfg.LogFile
	if cfg.MaxLogSizeMB > 0 {
		result.MaxSizeMB = cfg.MaxLogSizeMB
	}
	if cfg.MaxLogBackups > 0 {
		result.MaxBackups = cfg.MaxLogBackups
	}
	return result, err
}
