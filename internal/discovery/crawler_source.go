package discovery

import (
	"context"
	"errors"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aleister1102/omnihunter/internal/common"
	"github.com/aleister1102/omnihunter/internal/urlhandler"

	"github.com/gocolly/colly/v2"
	"github.com/rs/zerolog"
)

// CrawlerOptions tunes the crawler.
type CrawlerOptions struct {
	MaxDepth  int
	Threads   int
	Timeout   time.Duration
	UserAgent string
}

// CrawlerSource crawls each seed's host with colly.
type CrawlerSource struct {
	opts   CrawlerOptions
	logger zerolog.Logger
}

// NewCrawlerSource fills zero options with defaults. A depth of 0 crawls only the seed page.
func NewCrawlerSource(opts CrawlerOptions, logger zerolog.Logger) *CrawlerSource {
	if opts.MaxDepth < 1 {
		opts.MaxDepth = 1
	}
	if opts.Threads < 1 {
		opts.Threads = 8
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "Mozilla/5.0 (compatible; OmniHunter/1.0)"
	}
	return &CrawlerSource{opts: opts, logger: logger.With().Str("component", "Crawler").Logger()}
}

func (s *CrawlerSource) Name() string { return "crawler" }

// Discover crawls every distinct seed host once, starting at the first seed
// seen for that host.
func (s *CrawlerSource) Discover(ctx context.Context, known []string) ([]string, error) {
	collector := common.NewErrorCollector()
	var all []string

	hosts := make(map[string]struct{})
	for _, seed := range known {
		host := urlhandler.Hostname(seed)
		if host == "" {
			continue
		}
		if _, done := hosts[host]; done {
			continue
		}
		hosts[host] = struct{}{}

		if err := ctx.Err(); err != nil {
			return all, err
		}

		found, err := s.crawl(ctx, seed)
		if err != nil {
			collector.AddWithContext(err, "crawl "+seed)
		}
		all = append(all, found...)
	}

	return all, collector.Error()
}

func (s *CrawlerSource) crawl(ctx context.Context, seed string) ([]string, error) {
	seedURL, err := url.Parse(seed)
	if err != nil {
		return nil, common.WrapError(err, "failed to parse seed URL")
	}

	var (
		mu       sync.Mutex
		found    = make(map[string]struct{})
		visited  int
		failures int
	)

	c := colly.NewCollector(
		colly.MaxDepth(s.opts.MaxDepth),
		colly.Async(true),
		colly.UserAgent(s.opts.UserAgent),
		colly.AllowedDomains(seedURL.Hostname()),
	)
	c.SetRequestTimeout(s.opts.Timeout)
	if err := c.Limit(&colly.LimitRule{DomainGlob: "*", Parallelism: s.opts.Threads}); err != nil {
		return nil, common.WrapError(err, "failed to set limit rule")
	}

	record := func(e *colly.HTMLElement, attr string, visit bool) {
		absolute := e.Request.AbsoluteURL(e.Attr(attr))
		if absolute == "" || !urlhandler.SameHost(absolute, seed) {
			return
		}
		absolute = stripFragment(absolute)

		mu.Lock()
		_, seen := found[absolute]
		found[absolute] = struct{}{}
		mu.Unlock()

		if visit && !seen {
			if err := e.Request.Visit(absolute); err != nil {
				s.handleVisitError(absolute, err)
			}
		}
	}

	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
		}
	})
	c.OnResponse(func(_ *colly.Response) {
		mu.Lock()
		visited++
		mu.Unlock()
	})
	c.OnError(func(r *colly.Response, err error) {
		mu.Lock()
		failures++
		mu.Unlock()
		s.logger.Debug().Str("url", r.Request.URL.String()).Int("status", r.StatusCode).Err(err).Msg("Request failed")
	})
	c.OnHTML("a[href]", func(e *colly.HTMLElement) { record(e, "href", true) })
	c.OnHTML("form[action]", func(e *colly.HTMLElement) { record(e, "action", false) })
	c.OnHTML("script[src]", func(e *colly.HTMLElement) { record(e, "src", false) })

	if err := c.Visit(seed); err != nil {
		return nil, common.NewNetworkError(seed, "failed to start crawl", err)
	}
	c.Wait()

	mu.Lock()
	defer mu.Unlock()

	out := make([]string, 0, len(found))
	for u := range found {
		out = append(out, u)
	}
	sort.Strings(out)

	s.logger.Info().
		Str("seed", seed).
		Int("visited", visited).
		Int("errors", failures).
		Int("found", len(out)).
		Msg("Crawl finished")

	if ctx.Err() != nil {
		return out, ctx.Err()
	}
	return out, nil
}

func (s *CrawlerSource) handleVisitError(target string, err error) {
	if strings.Contains(err.Error(), "already visited") || errors.Is(err, colly.ErrMaxDepth) ||
		errors.Is(err, colly.ErrForbiddenDomain) || errors.Is(err, colly.ErrRobotsTxtBlocked) {
		return
	}
	s.logger.Debug().Str("url", target).Err(err).Msg("Error queueing visit")
}

func stripFragment(raw string) string {
	if i := strings.IndexByte(raw, '#'); i >= 0 {
		return raw[:i]
	}
	return raw
}
