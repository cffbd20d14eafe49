package proxypool

import (
	"time"

	"github.com/aleister1102/omnihunter/internal/config"
	"github.com/aleister1102/omnihunter/internal/httpclient"
	"github.com/rs/zerolog"
)

// NewFromConfig wires HTTP list sources and an HTTP checker from config.
// Lists are fetched with listClient; candidates are checked with checkClient.
// A disabled pool has no sources and always answers ErrNoProxy.
func NewFromConfig(cfg config.ProxyConfig, listClient, checkClient *httpclient.HTTPClient, logger zerolog.Logger) *Pool {
	var sources []Source
	if cfg.UseFree {
		for _, u := range cfg.Sources {
			sources = append(sources, NewHTTPSource(u, listClient))
		}
	}
	checker := NewHTTPChecker(checkClient, cfg.TestURL, time.Duration(cfg.TestTimeoutSecs)*time.Second)

	return NewPool(sources, checker, Options{
		MaxProxies:            cfg.MaxProxies,
		ValidationConcurrency: cfg.ValidationConcurrency,
	}, logger)
}
