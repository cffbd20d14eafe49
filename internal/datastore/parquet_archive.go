package datastore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aleister1102/omnihunter/internal/common"
	"github.com/aleister1102/omnihunter/internal/config"
	"github.com/aleister1102/omnihunter/internal/models"
	"github.com/aleister1102/omnihunter/internal/urlhandler"

	"github.com/parquet-go/parquet-go"
	"github.com/rs/zerolog"
)

// ParquetFinding is the archived row layout of a verified finding.
type ParquetFinding struct {
	URL          string  `parquet:"url"`
	Param        *string `parquet:"param,optional"`
	Type         string  `parquet:"type"`
	Platform     *string `parquet:"platform,optional"`
	Confidence   int32   `parquet:"confidence"`
	Details      *string `parquet:"details,optional"`
	Scanner      *string `parquet:"scanner,optional"`
	Verified     bool    `parquet:"verified"`
	DetectedAt   int64   `parquet:"detected_at_ms"`
	VerifiedAt   int64   `parquet:"verified_at_ms"`
	ElapsedMilli *int64  `parquet:"elapsed_ms,optional"`
}

// ToParquetFinding converts a verified finding to its archived form.
func ToParquetFinding(f models.VerifiedFinding) ParquetFinding {
	return ParquetFinding{
		URL:          f.URL,
		Param:        StringPtrOrNil(f.Param),
		Type:         string(f.Type),
		Platform:     StringPtrOrNil(f.Platform),
		Confidence:   int32(f.Confidence),
		Details:      StringPtrOrNil(f.DetailsString()),
		Scanner:      StringPtrOrNil(f.Scanner),
		Verified:     f.Verified,
		DetectedAt:   f.DetectedAt.UnixMilli(),
		VerifiedAt:   f.VerifiedAt.UnixMilli(),
		ElapsedMilli: Int64PtrOrNilZero(f.Elapsed.Milliseconds()),
	}
}

// ArchiveWriter writes the findings of a run to a Parquet file.
type ArchiveWriter struct {
	dir    string
	codec  string
	logger zerolog.Logger
	now    func() time.Time
}

// WriteResult describes one archive write.
type WriteResult struct {
	FilePath       string
	RecordsWritten int
	FileSize       int64
	WriteTime      time.Duration
}

// NewArchiveWriter creates a writer rooted at cfg.ArchiveDir.
func NewArchiveWriter(cfg config.StorageConfig, logger zerolog.Logger) (*ArchiveWriter, error) {
	if cfg.ArchiveDir == "" {
		return nil, common.NewValidationError("archive_dir", cfg.ArchiveDir, "archive directory is not configured")
	}
	return &ArchiveWriter{
		dir:    cfg.ArchiveDir,
		codec:  cfg.CompressionCodec,
		logger: logger.With().Str("component", "ArchiveWriter").Logger(),
		now:    time.Now,
	}, nil
}

// Write archives findings under <dir>/<target>_<yyyymmdd-hhmmss>.parquet.
func (w *ArchiveWriter) Write(ctx context.Context, target string, findings []models.VerifiedFinding) (*WriteResult, error) {
	start := time.Now()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("archive write cancelled: %w", err)
	}

	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return nil, common.WrapError(err, "failed to create archive directory: "+w.dir)
	}

	fileName := fmt.Sprintf("%s_%s.parquet", urlhandler.SanitizeFilename(target), w.now().Format("20060102-150405"))
	filePath := filepath.Join(w.dir, fileName)

	records := make([]ParquetFinding, 0, len(findings))
	for _, f := range findings {
		records = append(records, ToParquetFinding(f))
	}

	if err := w.writeFile(filePath, records); err != nil {
		return nil, err
	}

	var size int64
	if info, err := os.Stat(filePath); err == nil {
		size = info.Size()
	}

	result := &WriteResult{
		FilePath:       filePath,
		RecordsWritten: len(records),
		FileSize:       size,
		WriteTime:      time.Since(start),
	}

	w.logger.Info().
		Str("file_path", result.FilePath).
		Int("records_written", result.RecordsWritten).
		Dur("write_time", result.WriteTime).
		Msg("Findings archived")

	return result, nil
}

func (w *ArchiveWriter) writeFile(filePath string, records []ParquetFinding) error {
	file, err := os.Create(filePath)
	if err != nil {
		return common.WrapError(err, "failed to create parquet file: "+filePath)
	}
	defer func() { _ = file.Close() }()

	writer := parquet.NewGenericWriter[ParquetFinding](file, w.compressionOption())

	if len(records) > 0 {
		if _, err := writer.Write(records); err != nil {
			_ = writer.Close()
			return common.WrapError(err, "failed to write parquet records")
		}
	}

	if err := writer.Close(); err != nil {
		return common.WrapError(err, "failed to close parquet writer")
	}
	return nil
}

func (w *ArchiveWriter) compressionOption() parquet.WriterOption {
	switch strings.ToLower(w.codec) {
	case "gzip":
		return parquet.Compression(&parquet.Gzip)
	case "snappy":
		return parquet.Compression(&parquet.Snappy)
	case "none":
		return parquet.Compression(&parquet.Uncompressed)
	default:
		return parquet.Compression(&parquet.Zstd)
	}
}

// ReadArchive loads every row of an archive file.
func ReadArchive(filePath string) ([]ParquetFinding, error) {
	rows, err := parquet.ReadFile[ParquetFinding](filePath)
	if err != nil {
		return nil, common.WrapError(err, "failed to read parquet archive: "+filePath)
	}
	return rows, nil
}

// StringPtrOrNil returns nil for an empty string.
func StringPtrOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Int64PtrOrNilZero returns nil for zero.
func Int64PtrOrNilZero(i int64) *int64 {
	if i == 0 {
		return nil
	}
	return &i
}
