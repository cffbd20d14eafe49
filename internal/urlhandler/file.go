package urlhandler

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

var (
	ErrFileNotFound = errors.New("input file not found")
	ErrFileEmpty    = errors.New("input file is empty or contains no valid URLs")
	ErrReadingFile  = errors.New("error reading input file")
)

// ReadURLsFromFile reads one URL per line, skipping blanks, # comments and
// lines that do not normalize.
func ReadURLsFromFile(filePath string, logger zerolog.Logger) ([]string, error) {
	fileLogger := logger.With().Str("file_path", filePath).Logger()

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, filePath)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrReadingFile, filePath, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrReadingFile, filePath)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrReadingFile, filePath, err)
	}
	defer file.Close()

	var (
		urls    []string
		lines   int
		skipped int
	)

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		normalized, normErr := NormalizeURL(line)
		if normErr != nil {
			fileLogger.Debug().Err(normErr).Int("line", lines).Msg("Skipping invalid URL")
			skipped++
			continue
		}
		urls = append(urls, normalized)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrReadingFile, filePath, err)
	}

	fileLogger.Info().Int("lines", lines).Int("urls", len(urls)).Int("skipped", skipped).Msg("Finished reading URL file")

	if len(urls) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrFileEmpty, filePath)
	}
	return urls, nil
}
