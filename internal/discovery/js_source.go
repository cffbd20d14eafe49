package discovery

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aleister1102/omnihunter/internal/common"
	"github.com/aleister1102/omnihunter/internal/httpclient"
	"github.com/aleister1102/omnihunter/internal/urlhandler"

	"github.com/BishopFox/jsluice"
	"github.com/rs/zerolog"
)

// Fetcher is the GET capability the JS source needs; *httpclient.HTTPClient satisfies it.
type Fetcher interface {
	Get(ctx context.Context, url string, headers map[string]string) (*httpclient.HTTPResponse, error)
}

// JSSource downloads known script URLs and extracts the URLs referenced inside them.
type JSSource struct {
	fetcher  Fetcher
	maxFiles int
	logger   zerolog.Logger
}

// NewJSSource creates a JS source; maxFiles <= 0 means no limit.
func NewJSSource(fetcher Fetcher, maxFiles int, logger zerolog.Logger) *JSSource {
	return &JSSource{
		fetcher:  fetcher,
		maxFiles: maxFiles,
		logger:   logger.With().Str("component", "JSSource").Logger(),
	}
}

func (s *JSSource) Name() string { return "jsluice" }

func (s *JSSource) Discover(ctx context.Context, known []string) ([]string, error) {
	scripts := scriptURLs(known, s.maxFiles)
	if len(scripts) == 0 {
		return nil, nil
	}

	collector := common.NewErrorCollector()
	var out []string

	for _, scriptURL := range scripts {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		resp, err := s.fetcher.Get(ctx, scriptURL, nil)
		if err != nil {
			collector.Add(err)
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			collector.Add(common.NewHTTPErrorWithURL(resp.StatusCode, fmt.Sprintf("script fetch returned %d", resp.StatusCode), scriptURL))
			continue
		}

		found := s.Analyze(scriptURL, resp.Body)
		s.logger.Debug().Str("script", scriptURL).Int("urls", len(found)).Msg("Script analyzed")
		out = append(out, found...)
	}

	return urlhandler.Dedupe(out), collector.Error()
}

// Analyze returns the absolute http(s) URLs jsluice finds in content,
// resolved against the script's own URL.
func (s *JSSource) Analyze(scriptURL string, content []byte) []string {
	base, err := url.Parse(scriptURL)
	if err != nil {
		return nil
	}

	analyzer := jsluice.NewAnalyzer(content)

	var out []string
	for _, res := range analyzer.GetURLs() {
		absolute, err := urlhandler.ResolveURL(res.URL, base)
		if err != nil {
			s.logger.Debug().Str("url", res.URL).Err(err).Msg("Skipping unresolvable URL from script")
			continue
		}
		out = append(out, absolute)
	}
	return out
}

func scriptURLs(known []string, limit int) []string {
	var out []string
	for _, raw := range known {
		u, err := url.Parse(raw)
		if err != nil {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(u.Path), ".js") {
			continue
		}
		out = append(out, raw)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}
