package httpclient

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/aleister1102/omnihunter/internal/common"
	"golang.org/x/net/proxy"
)

var supportedProxySchemes = map[string]bool{
	"http":    true,
	"https":   true,
	"socks5":  true,
	"socks5h": true,
}

// ParseProxyURL accepts ip:port (assumed http) or a full proxy URL.
func ParseProxyURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, common.NewValidationError("proxy", raw, "empty proxy address")
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, common.WrapErrorf(err, "invalid proxy '%s'", raw)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if !supportedProxySchemes[u.Scheme] {
		return nil, common.NewValidationError("proxy", raw, fmt.Sprintf("unsupported proxy scheme %q", u.Scheme))
	}
	if u.Hostname() == "" || u.Port() == "" {
		return nil, common.NewValidationError("proxy", raw, "proxy must be host:port")
	}
	return u, nil
}

// applyProxy routes transport through proxyURL. HTTP(S) proxies use the
// transport's Proxy hook; SOCKS5 proxies replace the dialer.
func applyProxy(transport *http.Transport, proxyURL *url.URL, dialer *net.Dialer) error {
	switch proxyURL.Scheme {
	case "http", "https":
		transport.Proxy = http.ProxyURL(proxyURL)
		return nil
	}

	socksURL := *proxyURL
	if socksURL.Scheme == "socks5h" {
		socksURL.Scheme = "socks5"
	}
	socksDialer, err := proxy.FromURL(&socksURL, dialer)
	if err != nil {
		return common.WrapError(err, "failed to create SOCKS dialer")
	}

	transport.Proxy = nil
	if cd, ok := socksDialer.(proxy.ContextDialer); ok {
		transport.DialContext = cd.DialContext
		return nil
	}
	transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		return socksDialer.Dial(network, addr)
	}
	return nil
}
