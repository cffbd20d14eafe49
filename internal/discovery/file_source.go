package discovery

import (
	"context"

	"github.com/aleister1102/omnihunter/internal/urlhandler"

	"github.com/rs/zerolog"
)

// FileSource reads a URL list, one per line.
type FileSource struct {
	path   string
	logger zerolog.Logger
}

func NewFileSource(path string, logger zerolog.Logger) *FileSource {
	return &FileSource{path: path, logger: logger.With().Str("component", "FileSource").Logger()}
}

func (s *FileSource) Name() string { return "file" }

func (s *FileSource) Discover(ctx context.Context, _ []string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return urlhandler.ReadURLsFromFile(s.path, s.logger)
}
