package config

import (
	"fmt"
	"strings"
)

// StorageConfig defines configuration for data storage
type StorageConfig struct {
	SQLiteDBPath     string `json:"sqlite_db_path,omitempty" yaml:"sqlite_db_path,omitempty"`
	ArchiveDir       string `json:"archive_dir,omitempty" yaml:"archive_dir,omitempty"`
	CompressionCodec string `json:"compression_codec,omitempty" yaml:"compression_codec,omitempty" validate:"omitempty,oneof=zstd snappy gzip none"`
}

// NewDefaultStorageConfig creates default storage configuration
func NewDefaultStorageConfig() StorageConfig {
	return StorageConfig{
		ArchiveDir:       DefaultStorageArchiveDir,
		CompressionCodec: DefaultStorageCompressionCodec,
	}
}

// DBPathFor returns the configured database path or one derived from the target.
func (c StorageConfig) DBPathFor(target string) string {
	if c.SQLiteDBPath != "" {
		return c.SQLiteDBPath
	}
	return fmt.Sprintf("omnihunter_%s.db", strings.ReplaceAll(target, ".", "_"))
}
