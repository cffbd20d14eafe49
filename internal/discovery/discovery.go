package discovery

import (
	"context"
	"fmt"
	"time"

	"github.com/aleister1102/omnihunter/internal/common"
	"github.com/aleister1102/omnihunter/internal/config"
	"github.com/aleister1102/omnihunter/internal/urlhandler"

	"github.com/rs/zerolog"
)

// Source produces candidate URLs. Discover receives every URL known so far,
// so later sources can build on what earlier ones found.
type Source interface {
	Name() string
	Discover(ctx context.Context, known []string) ([]string, error)
}

// URLFilter narrows the discovered set, e.g. to live hosts.
type URLFilter interface {
	Filter(ctx context.Context, urls []string) ([]string, error)
}

// Discoverer runs the configured sources in order and merges their output.
type Discoverer struct {
	sources []Source
	filter  URLFilter
	logger  zerolog.Logger
}

// NewDiscoverer creates a discoverer; filter may be nil.
func NewDiscoverer(sources []Source, filter URLFilter, logger zerolog.Logger) *Discoverer {
	return &Discoverer{
		sources: sources,
		filter:  filter,
		logger:  logger.With().Str("component", "Discovery").Logger(),
	}
}

// NewFromConfig wires the sources enabled in cfg.
func NewFromConfig(cfg config.DiscoveryConfig, fetcher Fetcher, logger zerolog.Logger) *Discoverer {
	var sources []Source

	if cfg.URLFile != "" {
		sources = append(sources, NewFileSource(cfg.URLFile, logger))
	}
	if cfg.Crawl {
		sources = append(sources, NewCrawlerSource(CrawlerOptions{
			MaxDepth: cfg.CrawlDepth,
			Threads:  cfg.CrawlThreads,
			Timeout:  time.Duration(cfg.CrawlTimeoutSecs) * time.Second,
		}, logger))
	}
	if cfg.JSExtract && fetcher != nil {
		sources = append(sources, NewJSSource(fetcher, cfg.MaxJSFiles, logger))
	}

	var filter URLFilter
	if cfg.LiveProbe {
		filter = NewLiveFilter(NewHttpxProber(cfg.HttpxThreads, cfg.HttpxTimeoutSecs, logger), logger)
	}

	return NewDiscoverer(sources, filter, logger)
}

// Sources lists the active source names.
func (d *Discoverer) Sources() []string {
	names := make([]string, 0, len(d.sources))
	for _, s := range d.sources {
		names = append(names, s.Name())
	}
	return names
}

// Run returns the normalized seeds followed by everything the sources found,
// de-duplicated in first-seen order. Source and filter failures are returned
// as one combined error alongside a usable URL list; only a cancelled context
// stops the run early.
func (d *Discoverer) Run(ctx context.Context, seeds []string) ([]string, error) {
	collector := common.NewErrorCollector()

	var urls []string
	for _, seed := range seeds {
		normalized, err := urlhandler.NormalizeURL(seed)
		if err != nil {
			collector.AddWithContext(err, "invalid seed")
			continue
		}
		urls = append(urls, normalized)
	}
	urls = urlhandler.Dedupe(urls)

	for _, src := range d.sources {
		if err := ctx.Err(); err != nil {
			return urls, err
		}

		start := time.Now()
		found, err := src.Discover(ctx, urls)
		if err != nil {
			d.logger.Warn().Err(err).Str("source", src.Name()).Msg("Discovery source failed")
			collector.AddWithContext(err, fmt.Sprintf("source %s", src.Name()))
		}

		before := len(urls)
		urls = urlhandler.Dedupe(append(urls, found...))
		d.logger.Info().
			Str("source", src.Name()).
			Int("found", len(found)).
			Int("new", len(urls)-before).
			Dur("duration", time.Since(start)).
			Msg("Discovery source finished")
	}

	if d.filter != nil && len(urls) > 0 {
		live, err := d.filter.Filter(ctx, urls)
		if err != nil {
			d.logger.Warn().Err(err).Msg("Live filter failed, keeping unfiltered URLs")
			collector.AddWithContext(err, "live filter")
		} else {
			urls = live
		}
	}

	d.logger.Info().Int("urls", len(urls)).Msg("Discovery complete")
	return urls, collector.Error()
}
