package discovery

import (
	"context"
	"net/url"
	"sync"

	"github.com/aleister1102/omnihunter/internal/common"

	"github.com/projectdiscovery/httpx/runner"
	"github.com/rs/zerolog"
)

// Prober reports which of the given origins answer HTTP.
type Prober interface {
	Live(ctx context.Context, origins []string) (map[string]bool, error)
}

// LiveFilter drops URLs whose origin does not respond.
type LiveFilter struct {
	prober Prober
	logger zerolog.Logger
}

func NewLiveFilter(prober Prober, logger zerolog.Logger) *LiveFilter {
	return &LiveFilter{prober: prober, logger: logger.With().Str("component", "LiveFilter").Logger()}
}

// Filter probes each distinct scheme://host once and keeps URLs on live origins, in input order.
func (f *LiveFilter) Filter(ctx context.Context, urls []string) ([]string, error) {
	var origins []string
	originOf := make(map[string]string, len(urls))
	seen := make(map[string]struct{})

	for _, raw := range urls {
		o := origin(raw)
		if o == "" {
			continue
		}
		originOf[raw] = o
		if _, ok := seen[o]; !ok {
			seen[o] = struct{}{}
			origins = append(origins, o)
		}
	}

	live, err := f.prober.Live(ctx, origins)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(urls))
	for _, raw := range urls {
		if o, ok := originOf[raw]; ok && live[o] {
			out = append(out, raw)
		}
	}

	f.logger.Info().Int("origins", len(origins)).Int("live_origins", len(live)).Int("kept", len(out)).Msg("Live filter applied")
	return out, nil
}

func origin(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// HttpxProber probes origins with the httpx engine.
type HttpxProber struct {
	threads int
	timeout int
	logger  zerolog.Logger
}

func NewHttpxProber(threads, timeoutSecs int, logger zerolog.Logger) *HttpxProber {
	if threads < 1 {
		threads = 25
	}
	if timeoutSecs < 1 {
		timeoutSecs = 10
	}
	return &HttpxProber{
		threads: threads,
		timeout: timeoutSecs,
		logger:  logger.With().Str("component", "HttpxProber").Logger(),
	}
}

// Options builds the httpx runner options; results are delivered to onResult.
func (p *HttpxProber) Options(origins []string, onResult func(runner.Result)) *runner.Options {
	return &runner.Options{
		Methods:            "GET",
		Silent:             true,
		NoColor:            true,
		DisableUpdateCheck: true,
		Timeout:            p.timeout,
		Retries:            1,
		Threads:            p.threads,
		FollowRedirects:    true,
		HostMaxErrors:      -1,
		OmitBody:           true,
		StatusCode:         true,
		InputTargetHost:    origins,
		OnResult:           onResult,
	}
}

func (p *HttpxProber) Live(ctx context.Context, origins []string) (map[string]bool, error) {
	live := make(map[string]bool)
	if len(origins) == 0 {
		return live, nil
	}

	var mu sync.Mutex
	options := p.Options(origins, func(res runner.Result) {
		if res.Error != "" || res.StatusCode == 0 {
			return
		}
		mu.Lock()
		live[res.Input] = true
		mu.Unlock()
	})

	httpxRunner, err := runner.New(options)
	if err != nil {
		return nil, common.WrapError(err, "failed to create httpx runner")
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer httpxRunner.Close()
		httpxRunner.RunEnumeration()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		p.logger.Warn().Msg("Context cancelled, abandoning httpx probe")
		return nil, ctx.Err()
	}

	mu.Lock()
	defer mu.Unlock()
	p.logger.Debug().Int("origins", len(origins)).Int("live", len(live)).Msg("httpx probe finished")
	return live, nil
}
