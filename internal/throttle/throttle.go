package throttle

import (
	"context"
	"math/rand"
	"net/url"
	"sync"
	"time"

	"github.com/aleister1102/omnihunter/internal/config"
	"github.com/aleister1102/omnihunter/internal/httpclient"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// ProxyProvider hands out proxy addresses; an error means go direct.
type ProxyProvider interface {
	Get() (string, error)
}

// Identity is the client identity for one outbound probe.
type Identity struct {
	Headers map[string]string
	Proxy   string
}

// Apply copies the identity onto a request without overriding headers
// the caller already set.
func (id Identity) Apply(req *httpclient.HTTPRequest) *httpclient.HTTPRequest {
	if req.Headers == nil {
		req.Headers = make(map[string]string, len(id.Headers))
	}
	for k, v := range id.Headers {
		if _, set := req.Headers[k]; !set {
			req.Headers[k] = v
		}
	}
	if req.Proxy == "" && !req.Direct {
		req.Proxy = id.Proxy
	}
	return req
}

// Throttle paces probes and rotates identity and proxy.
type Throttle struct {
	userAgents []string
	proxies    ProxyProvider
	minDelay   time.Duration
	maxDelay   time.Duration
	rps        float64
	burst      int
	logger     zerolog.Logger

	rngMu sync.Mutex
	rng   *rand.Rand

	limitersMu sync.RWMutex
	limiters   map[string]*rate.Limiter
}

// New creates a throttle. proxies may be nil.
func New(cfg config.ThrottleConfig, proxies ProxyProvider, logger zerolog.Logger) *Throttle {
	minDelay, maxDelay := cfg.DelayRange()
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	uas := cfg.UserAgents
	if len(uas) == 0 {
		uas = DefaultUserAgents
	}
	burst := cfg.PerHostBurst
	if burst <= 0 {
		burst = 1
	}

	return &Throttle{
		userAgents: uas,
		proxies:    proxies,
		minDelay:   minDelay,
		maxDelay:   maxDelay,
		rps:        cfg.PerHostRPS,
		burst:      burst,
		logger:     logger.With().Str("component", "Throttle").Logger(),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		limiters:   make(map[string]*rate.Limiter),
	}
}

// Identity picks a random User-Agent and a proxy from the pool.
func (t *Throttle) Identity() Identity {
	id := Identity{
		Headers: map[string]string{
			"User-Agent": t.userAgent(),
		},
	}
	if t.proxies != nil {
		if addr, err := t.proxies.Get(); err == nil {
			id.Proxy = addr
		}
	}
	return id
}

func (t *Throttle) userAgent() string {
	t.rngMu.Lock()
	defer t.rngMu.Unlock()
	return t.userAgents[t.rng.Intn(len(t.userAgents))]
}

// NextDelay draws a delay uniformly from [min, max].
func (t *Throttle) NextDelay() time.Duration {
	span := t.maxDelay - t.minDelay
	if span <= 0 {
		return t.minDelay
	}
	t.rngMu.Lock()
	defer t.rngMu.Unlock()
	return t.minDelay + time.Duration(t.rng.Int63n(int64(span)+1))
}

// Delay waits a random interval or until ctx is done.
func (t *Throttle) Delay(ctx context.Context) error {
	return sleep(ctx, t.NextDelay())
}

// WaitHost blocks on the per-host limiter when one is configured.
func (t *Throttle) WaitHost(ctx context.Context, rawURL string) error {
	limiter := t.limiterFor(hostOf(rawURL))
	if limiter == nil {
		return nil
	}
	return limiter.Wait(ctx)
}

func (t *Throttle) limiterFor(host string) *rate.Limiter {
	if t.rps <= 0 || host == "" {
		return nil
	}

	t.limitersMu.RLock()
	limiter, exists := t.limiters[host]
	t.limitersMu.RUnlock()
	if exists {
		return limiter
	}

	t.limitersMu.Lock()
	defer t.limitersMu.Unlock()
	if limiter, exists := t.limiters[host]; exists {
		return limiter
	}
	limiter = rate.NewLimiter(rate.Limit(t.rps), t.burst)
	t.limiters[host] = limiter
	return limiter
}

// NewActor starts a probe sequence. Consecutive probes of one actor are
// separated by the random delay; different actors never wait on each other.
func (t *Throttle) NewActor() *Actor {
	return &Actor{throttle: t}
}

// Actor is one logical probe sequence, such as a scanner working through
// its payload list. It is not safe for concurrent use.
type Actor struct {
	throttle *Throttle
	probes   int
}

// Next waits as required before the next probe to rawURL and returns the
// identity to send it with.
func (a *Actor) Next(ctx context.Context, rawURL string) (Identity, error) {
	if a.probes > 0 {
		if err := a.throttle.Delay(ctx); err != nil {
			return Identity{}, err
		}
	}
	if err := a.throttle.WaitHost(ctx, rawURL); err != nil {
		return Identity{}, err
	}
	a.probes++
	return a.throttle.Identity(), nil
}

// Probes returns how many probes the actor has been cleared for.
func (a *Actor) Probes() int {
	return a.probes
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}
