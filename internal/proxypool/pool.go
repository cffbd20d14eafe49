package proxypool

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aleister1102/omnihunter/internal/common"
	"github.com/aleister1102/omnihunter/internal/models"
	"github.com/rs/zerolog"
)

// Options tunes a pool refresh.
type Options struct {
	MaxProxies            int
	ValidationConcurrency int
}

// Pool holds the proxies that passed the last health check. The slice is
// replaced as a whole on refresh, so readers never see a partial pool.
type Pool struct {
	sources []Source
	checker Checker
	opts    Options
	logger  zerolog.Logger

	current    atomic.Pointer[[]models.ProxyRecord]
	refreshing sync.Mutex
	onRefresh  func(size int)
}

// NewPool creates an empty pool. Call Refresh to populate it.
func NewPool(sources []Source, checker Checker, opts Options, logger zerolog.Logger) *Pool {
	if opts.MaxProxies <= 0 {
		opts.MaxProxies = 1
	}
	if opts.ValidationConcurrency <= 0 {
		opts.ValidationConcurrency = 1
	}
	p := &Pool{
		sources: sources,
		checker: checker,
		opts:    opts,
		logger:  logger.With().Str("component", "ProxyPool").Logger(),
	}
	empty := []models.ProxyRecord{}
	p.current.Store(&empty)
	return p
}

// OnRefresh registers fn to receive the pool size after every completed
// refresh, including the periodic ones. Call it before the first Refresh.
func (p *Pool) OnRefresh(fn func(size int)) {
	p.onRefresh = fn
}

// Get returns a random healthy proxy, or ErrNoProxy when the pool is empty.
func (p *Pool) Get() (string, error) {
	if p == nil {
		return "", common.ErrNoProxy
	}
	records := *p.current.Load()
	if len(records) == 0 {
		return "", common.ErrNoProxy
	}
	return records[rand.Intn(len(records))].Address, nil
}

// Size returns the number of proxies currently in the pool.
func (p *Pool) Size() int {
	if p == nil {
		return 0
	}
	return len(*p.current.Load())
}

// Snapshot returns a copy of the current pool.
func (p *Pool) Snapshot() []models.ProxyRecord {
	records := *p.current.Load()
	return append([]models.ProxyRecord(nil), records...)
}

// Refresh fetches candidates from every source, validates at most twice
// MaxProxies of them and swaps in the ones that passed. A failing source
// never aborts the others; the collected source errors are returned
// alongside a still-successful refresh.
func (p *Pool) Refresh(ctx context.Context) (int, error) {
	p.refreshing.Lock()
	defer p.refreshing.Unlock()

	candidates, sourceErrs := p.collectCandidates(ctx)
	limit := p.opts.MaxProxies * 2
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	healthy := p.validate(ctx, candidates)
	if err := ctx.Err(); err != nil {
		return p.Size(), err
	}

	p.current.Store(&healthy)
	if p.onRefresh != nil {
		p.onRefresh(len(healthy))
	}
	p.logger.Info().
		Int("candidates", len(candidates)).
		Int("healthy", len(healthy)).
		Msg("Proxy pool refreshed")

	return len(healthy), sourceErrs.Error()
}

type candidate struct {
	addr   string
	source string
}

func (p *Pool) collectCandidates(ctx context.Context) ([]candidate, *common.ErrorCollector) {
	results := make([][]string, len(p.sources))
	errs := make([]error, len(p.sources))

	var wg sync.WaitGroup
	for i, src := range p.sources {
		wg.Add(1)
		go func(i int, src Source) {
			defer wg.Done()
			addrs, err := src.Fetch(ctx)
			if err != nil {
				p.logger.Warn().Err(err).Str("source", src.Name()).Msg("Proxy source failed")
				errs[i] = err
				return
			}
			p.logger.Debug().Str("source", src.Name()).Int("count", len(addrs)).Msg("Fetched proxy candidates")
			results[i] = addrs
		}(i, src)
	}
	wg.Wait()

	collector := common.NewErrorCollector()
	for i, err := range errs {
		collector.AddWithContext(err, p.sources[i].Name())
	}

	seen := make(map[string]struct{})
	var out []candidate
	for i, addrs := range results {
		for _, addr := range addrs {
			if _, dup := seen[addr]; dup {
				continue
			}
			seen[addr] = struct{}{}
			out = append(out, candidate{addr: addr, source: p.sources[i].Name()})
		}
	}
	return out, collector
}

// validate checks candidates concurrently and stops once MaxProxies passed.
func (p *Pool) validate(ctx context.Context, candidates []candidate) []models.ProxyRecord {
	vctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu      sync.Mutex
		healthy = make([]models.ProxyRecord, 0, p.opts.MaxProxies)
		wg      sync.WaitGroup
		sem     = make(chan struct{}, p.opts.ValidationConcurrency)
	)

feed:
	for _, c := range candidates {
		select {
		case <-vctx.Done():
			break feed
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(c candidate) {
			defer wg.Done()
			defer func() { <-sem }()

			ok, latency := p.checker.Check(vctx, c.addr)
			if !ok {
				return
			}

			mu.Lock()
			defer mu.Unlock()
			if len(healthy) >= p.opts.MaxProxies {
				return
			}
			healthy = append(healthy, models.ProxyRecord{
				Address: c.addr,
				Source:  c.source,
				Healthy: true,
				Latency: latency,
			})
			if len(healthy) >= p.opts.MaxProxies {
				cancel()
			}
		}(c)
	}
	wg.Wait()

	return healthy
}

// StartRefresher refreshes the pool every interval until ctx is done.
func (p *Pool) StartRefresher(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := p.Refresh(ctx); err != nil {
					p.logger.Debug().Err(err).Msg("Periodic proxy refresh finished with errors")
				}
			}
		}
	}()
}
