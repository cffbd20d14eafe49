package datastore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aleister1102/omnihunter/internal/config"
	"github.com/aleister1102/omnihunter/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedNow() time.Time {
	return time.Date(2024, 3, 9, 14, 5, 6, 0, time.UTC)
}

func TestArchiveWriter_WriteAndRead(t *testing.T) {
	for _, codec := range []string{"zstd", "snappy", "gzip", "none"} {
		t.Run(codec, func(t *testing.T) {
			cfg := config.StorageConfig{ArchiveDir: t.TempDir(), CompressionCodec: codec}
			w, err := NewArchiveWriter(cfg, zerolog.Nop())
			require.NoError(t, err)
			w.now = fixedNow

			f := models.NewFinding("sqli", models.VulnSQLiTimeBased, "https://a.test/i?id=1", "id", 70, "elapsed 6.1s")
			f.Elapsed = 6100 * time.Millisecond
			findings := []models.VerifiedFinding{
				models.NewVerifiedFinding(f, "intigriti", true),
				models.NewVerifiedFinding(models.NewFinding("ssrf", models.VulnSSRF, "https://a.test/f?url=x", "url", 85), "", true),
			}

			res, err := w.Write(context.Background(), "https://a.test", findings)
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(cfg.ArchiveDir, "a.test_20240309-140506.parquet"), res.FilePath)
			assert.Equal(t, 2, res.RecordsWritten)
			assert.Positive(t, res.FileSize)

			rows, err := ReadArchive(res.FilePath)
			require.NoError(t, err)
			require.Len(t, rows, 2)
			assert.Equal(t, "SQLi (time-based)", rows[0].Type)
			require.NotNil(t, rows[0].ElapsedMilli)
			assert.Equal(t, int64(6100), *rows[0].ElapsedMilli)
			assert.Equal(t, "intigriti", *rows[0].Platform)
			assert.Nil(t, rows[1].Platform)
			assert.Nil(t, rows[1].Details)
		})
	}
}

func TestArchiveWriter_Cancelled(t *testing.T) {
	w, err := NewArchiveWriter(config.StorageConfig{ArchiveDir: t.TempDir()}, zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = w.Write(ctx, "a.test", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewArchiveWriter_RequiresDir(t *testing.T) {
	_, err := NewArchiveWriter(config.StorageConfig{}, zerolog.Nop())
	assert.Error(t, err)
}

func TestResultFile_AppendThenSummary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "results.txt")
	rf, err := NewResultFile(path, zerolog.Nop())
	require.NoError(t, err)
	rf.now = fixedNow

	f := models.NewVerifiedFinding(models.NewFinding("xss", models.VulnXSS, "https://a.test/s?q=%3Csvg%3E", "q", 90), "bugcrowd", true)
	require.NoError(t, rf.AppendFinding(f))
	require.NoError(t, rf.AppendFinding(f))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "[2024-03-09 14:05:06] XSS - https://a.test/s?q=%3Csvg%3E", lines[0])

	require.NoError(t, rf.WriteSummary("a.test", "bugcrowd", []models.VerifiedFinding{f}))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	report := string(data)
	assert.True(t, strings.HasPrefix(report, "OmniHunter Scan Results for a.test\n"))
	assert.Contains(t, report, "Platform: bugcrowd\n")
	assert.Contains(t, report, "Type: XSS\n")
	assert.Contains(t, report, "Confidence: 90%\n")
	assert.Contains(t, report, "Verified: true\n")
	assert.NotContains(t, report, "[2024-03-09 14:05:06]")
}

func TestWriteLists(t *testing.T) {
	dir := t.TempDir()

	path, err := WriteURLList(dir, []string{"https://a.test/1", "https://a.test/2"})
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "https://a.test/1\nhttps://a.test/2\n", string(data))

	path, err = WriteEndpointList(dir, []models.Endpoint{{URL: "https://a.test/i", Params: []string{"id", "page"}}})
	require.NoError(t, err)
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "https://a.test/i -> id, page\n", string(data))
}
