package datastore

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aleister1102/omnihunter/internal/common"
	"github.com/aleister1102/omnihunter/internal/models"

	"github.com/rs/zerolog"
)

const (
	reportRule     = "=================================================="
	reportSubRule  = "------------------------------"
	reportTimeFmt  = "2006-01-02 15:04:05"
	defaultURLList = "all_urls.txt"
	defaultEPList  = "endpoints.txt"
)

// ResultFile is the human-readable output file. Findings are appended as they
// are verified and the file is replaced by a summary when the run ends.
type ResultFile struct {
	path   string
	mu     sync.Mutex
	logger zerolog.Logger
	now    func() time.Time
}

// NewResultFile prepares path for writing; the parent directory is created if needed.
func NewResultFile(path string, logger zerolog.Logger) (*ResultFile, error) {
	if strings.TrimSpace(path) == "" {
		return nil, common.NewValidationError("output_file", path, "output file path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, common.WrapError(err, "failed to create output directory")
	}
	return &ResultFile{
		path:   path,
		logger: logger.With().Str("component", "ResultFile").Logger(),
		now:    time.Now,
	}, nil
}

// Path returns the output file location.
func (r *ResultFile) Path() string {
	return r.path
}

// AppendFinding writes "[timestamp] <type> - <url>" for f.
func (r *ResultFile) AppendFinding(f models.VerifiedFinding) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return common.WrapError(err, "failed to open output file")
	}
	defer func() { _ = file.Close() }()

	if _, err := fmt.Fprintf(file, "[%s] %s - %s\n", r.now().Format(reportTimeFmt), f.Type, f.URL); err != nil {
		return common.WrapError(err, "failed to append finding")
	}
	return nil
}

// WriteSummary replaces the output file with the final report.
func (r *ResultFile) WriteSummary(target, platform string, findings []models.VerifiedFinding) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "OmniHunter Scan Results for %s\n", target)
	fmt.Fprintf(&b, "Date: %s\n", r.now().Format(reportTimeFmt))
	fmt.Fprintf(&b, "Platform: %s\n", platform)
	b.WriteString(reportRule + "\n\n")

	for _, f := range findings {
		fmt.Fprintf(&b, "Type: %s\n", f.Type)
		fmt.Fprintf(&b, "URL: %s\n", f.URL)
		if f.Param != "" {
			fmt.Fprintf(&b, "Parameter: %s\n", f.Param)
		}
		fmt.Fprintf(&b, "Confidence: %d%%\n", f.Confidence)
		fmt.Fprintf(&b, "Verified: %t\n", f.Verified)
		if len(f.Details) > 0 {
			fmt.Fprintf(&b, "Details: %s\n", f.DetailsString())
		}
		b.WriteString(reportSubRule + "\n")
	}

	if err := os.WriteFile(r.path, []byte(b.String()), 0644); err != nil {
		return common.WrapError(err, "failed to write summary report")
	}

	r.logger.Info().Str("path", r.path).Int("findings", len(findings)).Msg("Summary report written")
	return nil
}

// WriteURLList writes one URL per line to dir/all_urls.txt.
func WriteURLList(dir string, urls []string) (string, error) {
	return writeLines(filepath.Join(dir, defaultURLList), urls)
}

// WriteEndpointList writes "endpoint -> p1, p2" lines to dir/endpoints.txt.
func WriteEndpointList(dir string, endpoints []models.Endpoint) (string, error) {
	lines := make([]string, 0, len(endpoints))
	for _, ep := range endpoints {
		lines = append(lines, fmt.Sprintf("%s -> %s", ep.URL, strings.Join(ep.Params, ", ")))
	}
	return writeLines(filepath.Join(dir, defaultEPList), lines)
}

func writeLines(path string, lines []string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", common.WrapError(err, "failed to create directory")
	}

	file, err := os.Create(path)
	if err != nil {
		return "", common.WrapError(err, "failed to create "+path)
	}
	defer func() { _ = file.Close() }()

	w := bufio.NewWriter(file)
	for _, line := range lines {
		if _, err := w.WriteString(line + "\n"); err != nil {
			return "", common.WrapError(err, "failed to write "+path)
		}
	}
	if err := w.Flush(); err != nil {
		return "", common.WrapError(err, "failed to flush "+path)
	}
	return path, nil
}
